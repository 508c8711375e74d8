// Package device resolves user-supplied device identifiers against the
// list of scanners enumerated by the capture backend.
package device

import (
	"errors"
	"fmt"
	"strings"
)

// Descriptor identifies one scanner known to the capture backend.
// Descriptors are produced by enumeration and never modified.
type Descriptor struct {
	Name string // human-readable model name
	Code string // backend device code, e.g. "airscan:e0:EPSON ET-4850 Series"
}

// ErrDeviceResolution is the common ancestor of every matcher failure.
var ErrDeviceResolution = errors.New("device resolution failed")

// ErrNoDevices reports that enumeration returned nothing at all.
var ErrNoDevices = fmt.Errorf("%w: no devices available", ErrDeviceResolution)

// NoMatchError reports that no enumerated device code contains the query.
type NoMatchError struct {
	Query      string
	Candidates []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no device code contains %q (candidates: %s)",
		e.Query, strings.Join(e.Candidates, ", "))
}

func (e *NoMatchError) Unwrap() error { return ErrDeviceResolution }

// Match returns the first descriptor, in enumeration order, whose Code
// contains query as a literal, case-sensitive substring. The empty
// query matches the first descriptor. Two devices sharing a substring
// resolve to whichever is enumerated first; that order dependence is
// intentional.
func Match(devices []Descriptor, query string) (Descriptor, error) {
	if len(devices) == 0 {
		return Descriptor{}, ErrNoDevices
	}
	for _, d := range devices {
		if strings.Contains(d.Code, query) {
			return d, nil
		}
	}
	return Descriptor{}, &NoMatchError{Query: query, Candidates: codes(devices)}
}

// MatchPreferExact behaves like Match, except that a descriptor whose
// Code equals the query exactly wins over any earlier substring match.
// This is what an interactive front end wants when the stored default
// is a full device code.
func MatchPreferExact(devices []Descriptor, query string) (Descriptor, error) {
	if len(devices) == 0 {
		return Descriptor{}, ErrNoDevices
	}
	for _, d := range devices {
		if d.Code == query {
			return d, nil
		}
	}
	return Match(devices, query)
}

func codes(devices []Descriptor) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.Code
	}
	return out
}

// Package session ties the scan pipeline together: device resolution,
// acquisition, the page collection, and final assembly, behind one
// mutual-exclusion lock. Exactly one operation runs at a time; a
// reorder or remove can never interleave with a running acquisition.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"scankit/acquire"
	"scankit/assemble"
	"scankit/capture"
	"scankit/device"
	"scankit/normalize"
	"scankit/observability"
	"scankit/pages"
)

// Config is the explicit session configuration; there is no ambient
// state to set up.
type Config struct {
	Device string // device code or substring; empty matches the first device
	Policy normalize.Policy
}

type Option func(*Session)

func WithLogger(l observability.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is one scan session. Safe for use from one goroutine at a
// time per method; the internal lock serializes overlapping callers
// (e.g. a UI worker thread issuing a cancelable multi-scan while the
// event thread polls the page count).
type Session struct {
	id      uuid.UUID
	cfg     Config
	backend capture.Backend
	seq     *acquire.Sequencer
	log     observability.Logger

	mu   sync.Mutex
	coll pages.Collection
}

func New(cfg Config, backend capture.Backend, opts ...Option) (*Session, error) {
	if !cfg.Policy.OutputDPI.Valid() {
		return nil, &normalize.InvalidResolutionError{Stage: "policy", DPI: cfg.Policy.OutputDPI}
	}
	s := &Session{
		id:      uuid.New(),
		cfg:     cfg,
		backend: backend,
		log:     observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(observability.String("session", s.id.String()))
	s.seq = acquire.New(s.log)
	return s, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

// Devices enumerates the backend's devices.
func (s *Session) Devices(ctx context.Context) ([]device.Descriptor, error) {
	return s.backend.ListDevices(ctx)
}

// Resolve maps the configured device query to a concrete descriptor.
// An exact code match wins; otherwise the first code containing the
// query as a substring does.
func (s *Session) Resolve(ctx context.Context) (device.Descriptor, error) {
	devs, err := s.backend.ListDevices(ctx)
	if err != nil {
		return device.Descriptor{}, err
	}
	desc, err := device.MatchPreferExact(devs, s.cfg.Device)
	if err != nil {
		return device.Descriptor{}, err
	}
	s.log.Debug("device resolved",
		observability.String("query", s.cfg.Device),
		observability.String("code", desc.Code))
	return desc, nil
}

// ScanSingle acquires one flatbed page. Returns the number of pages
// appended (one on success).
func (s *Session) ScanSingle(ctx context.Context) (int, error) {
	return s.scan(ctx, acquire.Single, capture.Flatbed)
}

// ScanMulti acquires pages through the document feeder until it is
// exhausted. Cancelling ctx stops at the next frame boundary and keeps
// the pages acquired so far.
func (s *Session) ScanMulti(ctx context.Context) (int, error) {
	return s.scan(ctx, acquire.Multi, capture.Feeder)
}

func (s *Session) scan(ctx context.Context, mode acquire.Mode, src capture.Source) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc, err := s.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	sess, err := s.backend.Open(ctx, desc.Code, src)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.log.Warn("close device", observability.Error("cause", cerr))
		}
	}()

	s.log.Info("acquisition started",
		observability.String("mode", mode.String()),
		observability.String("source", src.String()),
		observability.String("device", desc.Code))
	n, err := s.seq.Run(ctx, sess, mode, s.cfg.Policy, &s.coll)
	if err != nil {
		return n, err
	}
	s.log.Info("acquisition complete",
		observability.Int("pages", n),
		observability.Int("total", s.coll.Len()))
	return n, nil
}

// PageCount reports the current collection size.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Len()
}

// Remove drops the page at the given position.
func (s *Session) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Remove(i)
}

// Move relocates a page; the user-facing reorder operation.
func (s *Session) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Move(from, to)
}

// Reset discards all acquired pages.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll.Clear()
	s.log.Info("session reset")
}

// Save assembles the collection into the requested artifact.
func (s *Session) Save(spec assemble.OutputSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := assemble.Assemble(&s.coll, spec); err != nil {
		return err
	}
	s.log.Info("artifact written",
		observability.String("format", spec.Format.String()),
		observability.String("path", spec.Path),
		observability.Int("pages", s.coll.Len()))
	return nil
}

// Package acquire drives page acquisition: it pulls frames off an open
// capture session, normalizes each one, and appends the result to a
// page collection.
package acquire

import (
	"context"
	"errors"
	"fmt"

	"scankit/capture"
	"scankit/normalize"
	"scankit/observability"
	"scankit/pages"
)

// Mode selects single-shot or feeder acquisition.
type Mode int

const (
	Single Mode = iota
	Multi
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Multi:
		return "multi"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ErrNoFrame reports that a single-shot capture produced no frame; the
// device signalled exhaustion instead of delivering a page.
var ErrNoFrame = errors.New("capture produced no frame")

// AcquisitionError reports an aborted acquisition run. Pages appended
// before the failure remain in the collection; Captured says how many.
// The caller decides whether to keep or discard them.
type AcquisitionError struct {
	Captured int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed after %d pages: %v", e.Captured, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Sequencer runs acquisitions. The zero value works and logs nowhere.
type Sequencer struct {
	Log observability.Logger
}

func New(log observability.Logger) *Sequencer {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Sequencer{Log: log}
}

// Run acquires pages from sess in the given mode, capturing at the
// policy's output resolution. Single captures exactly one frame; Multi
// captures until the feeder reports exhaustion, which may be
// immediately (an empty collection is not an error). Cancellation takes
// effect at frame boundaries only. Returns the number of pages appended.
func (s *Sequencer) Run(ctx context.Context, sess capture.Session, mode Mode, policy normalize.Policy, coll *pages.Collection) (int, error) {
	log := s.logger()
	appended := 0
	for {
		if err := ctx.Err(); err != nil {
			return appended, &AcquisitionError{Captured: appended, Err: err}
		}

		res, err := sess.Capture(ctx, policy.OutputDPI)
		if err != nil {
			log.Error("capture failed", observability.Int("pages", appended), observability.Error("cause", err))
			return appended, &AcquisitionError{Captured: appended, Err: err}
		}
		if res.IsExhausted() {
			if mode == Single {
				return appended, &AcquisitionError{Captured: appended, Err: ErrNoFrame}
			}
			log.Info("feeder exhausted", observability.Int("pages", appended))
			return appended, nil
		}

		frame, _ := res.Frame()
		page, err := normalize.Normalize(frame, policy)
		if err != nil {
			return appended, &AcquisitionError{Captured: appended, Err: err}
		}
		coll.Append(page)
		appended++
		log.Debug("page appended",
			observability.Int("ordinal", page.Ordinal),
			observability.String("dpi", page.Resolution.String()))

		if mode == Single {
			return appended, nil
		}
	}
}

func (s *Sequencer) logger() observability.Logger {
	if s.Log == nil {
		return observability.NopLogger{}
	}
	return s.Log
}

// Package capture defines the contract between the scan pipeline and
// the native device-access layer. The pipeline treats that layer as an
// opaque capability: enumerate devices, open one, pull raster frames
// off it one at a time.
package capture

import (
	"context"
	"fmt"
	"image"

	"scankit/device"
)

// Resolution is a dots-per-inch pair, horizontal then vertical.
type Resolution struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (r Resolution) Valid() bool { return r.X > 0 && r.Y > 0 }

// Swapped exchanges the axes, as a 90° rotation does.
func (r Resolution) Swapped() Resolution { return Resolution{X: r.Y, Y: r.X} }

func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.X, r.Y) }

// Source selects the scan mechanism of the opened device.
type Source int

const (
	Flatbed Source = iota // stationary glass surface, one page at a time
	Feeder                // automatic document feeder (ADF)
)

func (s Source) String() string {
	switch s {
	case Flatbed:
		return "flatbed"
	case Feeder:
		return "feeder"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// RawFrame is one raster image as delivered by the device, together
// with the resolution it was actually acquired at (which may differ
// from the requested resolution when the hardware rounds). A RawFrame
// is never mutated after production; the normalizer derives new images
// from it.
type RawFrame struct {
	Image image.Image
	DPI   Resolution
}

// Result is the outcome of one capture call: either a frame, or the
// feeder-exhausted signal. Exhaustion is a value rather than an error;
// an empty feeder is a normal end of sequence.
type Result struct {
	frame     *RawFrame
	exhausted bool
}

// Frame wraps a captured frame as a Result.
func Frame(f *RawFrame) Result { return Result{frame: f} }

// Exhausted is the Result reporting that the source has no more pages.
func Exhausted() Result { return Result{exhausted: true} }

// Frame returns the captured frame, or ok=false for the exhausted signal.
func (r Result) Frame() (*RawFrame, bool) { return r.frame, r.frame != nil }

func (r Result) IsExhausted() bool { return r.exhausted }

// Backend is the device-access capability.
type Backend interface {
	ListDevices(ctx context.Context) ([]device.Descriptor, error)
	Open(ctx context.Context, code string, src Source) (Session, error)
}

// Session is an open channel to one device. The hardware cannot serve
// two concurrent captures; callers serialize Capture calls.
type Session interface {
	Capture(ctx context.Context, dpi Resolution) (Result, error)
	Close() error
}

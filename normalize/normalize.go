// Package normalize turns raw scanner frames into pages: optional 90°
// rotation, optional DIN A4 paper enforcement, and a resolution remap
// that governs how downstream assembly maps pixels to physical size.
package normalize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"scankit/capture"
	"scankit/pages"
)

// PaperMode selects how a page is forced onto DIN A4 dimensions.
type PaperMode int

const (
	PaperOff     PaperMode = iota // keep the captured geometry
	PaperStretch                  // resample to exactly A4, ignoring aspect ratio
	PaperPad                      // fit within A4, center on a white canvas
)

func (m PaperMode) String() string {
	switch m {
	case PaperOff:
		return "off"
	case PaperStretch:
		return "stretch"
	case PaperPad:
		return "pad"
	}
	return fmt.Sprintf("PaperMode(%d)", int(m))
}

// Policy is fixed for the duration of a session.
type Policy struct {
	Paper     PaperMode
	Landscape bool // rotate each frame 90° counter-clockwise
	OutputDPI capture.Resolution
}

// InvalidResolutionError reports a non-positive dpi component.
type InvalidResolutionError struct {
	Stage string // "policy" or "frame"
	DPI   capture.Resolution
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("invalid %s resolution %s", e.Stage, e.DPI)
}

// DIN A4 in millimetres.
const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
	mmPerInch  = 25.4
)

// A4Pixels returns the pixel dimensions of a DIN A4 sheet at the given
// resolution; landscape swaps the axes. Millimetres convert to pixels
// by round-half-away-from-zero.
func A4Pixels(dpi capture.Resolution, landscape bool) (w, h int) {
	wmm, hmm := a4WidthMM, a4HeightMM
	if landscape {
		wmm, hmm = hmm, wmm
	}
	w = int(math.Round(wmm * float64(dpi.X) / mmPerInch))
	h = int(math.Round(hmm * float64(dpi.Y) / mmPerInch))
	return w, h
}

// Normalize derives a page from a raw frame. Steps apply in fixed
// order: rotation first (the A4 target aspect depends on the final
// orientation), then paper enforcement, then the resolution remap to
// the policy's output dpi. The frame is never mutated.
func Normalize(frame *capture.RawFrame, policy Policy) (*pages.Page, error) {
	if !policy.OutputDPI.Valid() {
		return nil, &InvalidResolutionError{Stage: "policy", DPI: policy.OutputDPI}
	}
	if !frame.DPI.Valid() {
		return nil, &InvalidResolutionError{Stage: "frame", DPI: frame.DPI}
	}

	img := frame.Image
	if policy.Landscape {
		img = rotateCCW(img)
	}

	switch policy.Paper {
	case PaperStretch:
		w, h := A4Pixels(policy.OutputDPI, policy.Landscape)
		img = resample(img, w, h)
	case PaperPad:
		w, h := A4Pixels(policy.OutputDPI, policy.Landscape)
		img = padToCanvas(img, w, h)
	}

	return &pages.Page{Image: img, Resolution: policy.OutputDPI}, nil
}

// rotateCCW rotates src 90° counter-clockwise: the right edge of the
// original becomes the top edge of the result.
func rotateCCW(src image.Image) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	in := toNRGBA(src)
	out := image.NewNRGBA(image.Rect(0, 0, sh, sw))
	for y := 0; y < sw; y++ {
		for x := 0; x < sh; x++ {
			out.SetNRGBA(x, y, in.NRGBAAt(sw-1-y, x))
		}
	}
	return out
}

// resample scales src to exactly w×h.
func resample(src image.Image, w, h int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// padToCanvas scales src by the largest factor that keeps both axes
// within w×h (never cropping), then centers it on a white canvas of
// exactly w×h.
func padToCanvas(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	rw := float64(w) / float64(sw)
	rh := float64(h) / float64(sh)
	var fw, fh int
	if rw <= rh {
		fw = w
		fh = int(math.Round(float64(sh) * rw))
		if fh > h {
			fh = h
		}
	} else {
		fh = h
		fw = int(math.Round(float64(sw) * rh))
		if fw > w {
			fw = w
		}
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	ox := (w - fw) / 2
	oy := (h - fh) / 2
	target := image.Rect(ox, oy, ox+fw, oy+fh)
	xdraw.CatmullRom.Scale(canvas, target, src, src.Bounds(), xdraw.Src, nil)
	return canvas
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

package normalize

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"scankit/capture"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func frame(img image.Image, dpi int) *capture.RawFrame {
	return &capture.RawFrame{Image: img, DPI: capture.Resolution{X: dpi, Y: dpi}}
}

func TestA4PixelRounding(t *testing.T) {
	tests := []struct {
		dpi       int
		landscape bool
		w, h      int
	}{
		// 210mm*150/25.4 = 1240.157..., 297mm*150/25.4 = 1753.937...
		{150, false, 1240, 1754},
		{150, true, 1754, 1240},
		// 72 dpi: 595.275... and 841.889...
		{72, false, 595, 842},
		// 300 dpi: 2480.31... and 3507.87...
		{300, false, 2480, 3508},
		{600, false, 4961, 7016},
	}
	for _, tt := range tests {
		w, h := A4Pixels(capture.Resolution{X: tt.dpi, Y: tt.dpi}, tt.landscape)
		if w != tt.w || h != tt.h {
			t.Errorf("A4Pixels(%d, landscape=%v) = %dx%d, want %dx%d",
				tt.dpi, tt.landscape, w, h, tt.w, tt.h)
		}
	}
}

func TestStretchYieldsExactA4(t *testing.T) {
	for _, dpi := range []int{72, 150, 300} {
		policy := Policy{Paper: PaperStretch, OutputDPI: capture.Resolution{X: dpi, Y: dpi}}
		p, err := Normalize(frame(solid(640, 480, color.NRGBA{A: 255}), 150), policy)
		if err != nil {
			t.Fatalf("dpi %d: %v", dpi, err)
		}
		wantW, wantH := A4Pixels(policy.OutputDPI, false)
		b := p.Image.Bounds()
		if b.Dx() != wantW || b.Dy() != wantH {
			t.Fatalf("dpi %d: stretched to %dx%d, want %dx%d", dpi, b.Dx(), b.Dy(), wantW, wantH)
		}
		if p.Resolution != policy.OutputDPI {
			t.Fatalf("dpi %d: resolution not remapped: %v", dpi, p.Resolution)
		}
	}
}

func TestPadNeverCropsAndTouchesOneAxis(t *testing.T) {
	policy := Policy{Paper: PaperPad, OutputDPI: capture.Resolution{X: 150, Y: 150}}
	targetW, targetH := A4Pixels(policy.OutputDPI, false)

	shapes := []struct {
		name string
		w, h int
	}{
		{"wide", 4000, 500},
		{"tall", 300, 6000},
		{"square", 1000, 1000},
		{"already A4 aspect", 620, 877},
		{"tiny", 3, 7},
	}
	for _, s := range shapes {
		t.Run(s.name, func(t *testing.T) {
			ink := color.NRGBA{R: 10, G: 10, B: 10, A: 255}
			p, err := Normalize(frame(solid(s.w, s.h, ink), 150), policy)
			if err != nil {
				t.Fatal(err)
			}
			b := p.Image.Bounds()
			if b.Dx() != targetW || b.Dy() != targetH {
				t.Fatalf("canvas is %dx%d, want %dx%d", b.Dx(), b.Dy(), targetW, targetH)
			}

			// Reconstruct the inked area: non-white pixels.
			minX, minY, maxX, maxY := targetW, targetH, -1, -1
			nrgba := p.Image.(*image.NRGBA)
			for y := 0; y < targetH; y++ {
				for x := 0; x < targetW; x++ {
					c := nrgba.NRGBAAt(x, y)
					if c.R < 200 {
						if x < minX {
							minX = x
						}
						if y < minY {
							minY = y
						}
						if x > maxX {
							maxX = x
						}
						if y > maxY {
							maxY = y
						}
					}
				}
			}
			if maxX < 0 {
				t.Fatal("no inked pixels found on the canvas")
			}
			inkW, inkH := maxX-minX+1, maxY-minY+1
			if inkW > targetW || inkH > targetH {
				t.Fatalf("pad cropped: ink %dx%d exceeds canvas", inkW, inkH)
			}
			// Resampling can bleed a row of blended pixels, so allow
			// one pixel of slack when checking that an axis touches.
			touchesW := inkW >= targetW-1
			touchesH := inkH >= targetH-1
			if !touchesW && !touchesH {
				t.Fatalf("neither axis touches the target: ink %dx%d vs %dx%d",
					inkW, inkH, targetW, targetH)
			}
			// Centered: margins differ by at most one pixel per axis.
			if d := (minX) - (targetW - 1 - maxX); d < -1 || d > 1 {
				t.Fatalf("horizontal margins unbalanced: left %d, right %d", minX, targetW-1-maxX)
			}
			if d := (minY) - (targetH - 1 - maxY); d < -1 || d > 1 {
				t.Fatalf("vertical margins unbalanced: top %d, bottom %d", minY, targetH-1-maxY)
			}
		})
	}
}

func TestRotateCCWMapsPixels(t *testing.T) {
	// 2x1 source: red at (0,0), green at (1,0). After a 90° CCW turn
	// the image is 1x2 with the top edge becoming the left edge: red
	// ends up at the bottom, green at the top.
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})

	p, err := Normalize(frame(src, 150), Policy{Landscape: true, OutputDPI: capture.Resolution{X: 150, Y: 150}})
	if err != nil {
		t.Fatal(err)
	}
	b := p.Image.Bounds()
	if b.Dx() != 1 || b.Dy() != 2 {
		t.Fatalf("rotated bounds = %dx%d, want 1x2", b.Dx(), b.Dy())
	}
	out := p.Image.(*image.NRGBA)
	if c := out.NRGBAAt(0, 0); c.G != 255 {
		t.Fatalf("top pixel = %+v, want green", c)
	}
	if c := out.NRGBAAt(0, 1); c.R != 255 {
		t.Fatalf("bottom pixel = %+v, want red", c)
	}
}

func TestRotationPrecedesPaperEnforcement(t *testing.T) {
	// With landscape rotation the A4 target must be landscape too.
	policy := Policy{Paper: PaperStretch, Landscape: true, OutputDPI: capture.Resolution{X: 150, Y: 150}}
	p, err := Normalize(frame(solid(100, 200, color.NRGBA{A: 255}), 150), policy)
	if err != nil {
		t.Fatal(err)
	}
	wantW, wantH := A4Pixels(policy.OutputDPI, true)
	b := p.Image.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Fatalf("landscape stretch = %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestResolutionRemapOnly(t *testing.T) {
	// No paper enforcement: pixels survive untouched, metadata changes.
	src := solid(33, 44, color.NRGBA{B: 255, A: 255})
	p, err := Normalize(frame(src, 600), Policy{OutputDPI: capture.Resolution{X: 150, Y: 150}})
	if err != nil {
		t.Fatal(err)
	}
	b := p.Image.Bounds()
	if b.Dx() != 33 || b.Dy() != 44 {
		t.Fatalf("pixels changed without paper enforcement: %dx%d", b.Dx(), b.Dy())
	}
	if p.Resolution != (capture.Resolution{X: 150, Y: 150}) {
		t.Fatalf("resolution = %v, want 150x150", p.Resolution)
	}
}

func TestInvalidResolution(t *testing.T) {
	good := capture.Resolution{X: 150, Y: 150}
	var ire *InvalidResolutionError

	_, err := Normalize(frame(solid(1, 1, color.NRGBA{}), 150), Policy{OutputDPI: capture.Resolution{X: 0, Y: 150}})
	if !errors.As(err, &ire) || ire.Stage != "policy" {
		t.Fatalf("zero policy dpi: %v", err)
	}

	_, err = Normalize(&capture.RawFrame{Image: solid(1, 1, color.NRGBA{}), DPI: capture.Resolution{X: -300, Y: 300}}, Policy{OutputDPI: good})
	if !errors.As(err, &ire) || ire.Stage != "frame" {
		t.Fatalf("negative frame dpi: %v", err)
	}
}

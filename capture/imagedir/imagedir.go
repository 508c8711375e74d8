// Package imagedir implements a capture backend that replays the image
// files of a directory as scanner frames, one file per capture call.
// It stands in for real hardware in tests and dry runs.
package imagedir

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg" // register decoders
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"scankit/capture"
	"scankit/device"
)

var frameExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true, ".bmp": true,
}

// Backend serves frames from one directory. The zero value is not
// usable; construct with New.
type Backend struct {
	dir string
}

func New(dir string) *Backend { return &Backend{dir: dir} }

// Code returns the device code this backend enumerates itself under.
func (b *Backend) Code() string { return "dir:" + b.dir }

func (b *Backend) ListDevices(ctx context.Context) ([]device.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(b.dir); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return []device.Descriptor{{Name: "Image directory " + b.dir, Code: b.Code()}}, nil
}

// Open returns a session replaying the directory's image files in
// lexical name order. The source setting does not change behavior: the
// directory acts as a feeder stack either way, which also gives
// flatbed-style single captures a deterministic first page.
func (b *Backend) Open(ctx context.Context, code string, src capture.Source) (capture.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if code != b.Code() {
		return nil, fmt.Errorf("open %q: unknown device", code)
	}
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", code, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(b.dir, e.Name()))
		}
	}
	sort.Strings(files)
	return &session{files: files}, nil
}

type session struct {
	files []string
	pos   int
}

func (s *session) Capture(ctx context.Context, dpi capture.Resolution) (capture.Result, error) {
	if err := ctx.Err(); err != nil {
		return capture.Result{}, err
	}
	if s.pos >= len(s.files) {
		return capture.Exhausted(), nil
	}
	path := s.files[s.pos]
	s.pos++
	f, err := os.Open(path)
	if err != nil {
		return capture.Result{}, fmt.Errorf("capture %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return capture.Result{}, fmt.Errorf("capture %s: %w", path, err)
	}
	// Replayed files carry no physical resolution of their own; report
	// the requested one, as a scanner honoring the request would.
	return capture.Frame(&capture.RawFrame{Image: img, DPI: dpi}), nil
}

func (s *session) Close() error { return nil }

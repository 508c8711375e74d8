// Package assemble serializes a page collection into its final
// artifact: one multi-page PDF, or a numbered set of PNG files.
package assemble

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scankit/pages"
)

// Format selects the output artifact type.
type Format int

const (
	PDF Format = iota
	PNGSet
)

func (f Format) String() string {
	switch f {
	case PDF:
		return "pdf"
	case PNGSet:
		return "png"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// OutputSpec describes one assembly call. Paper size, orientation and
// resolution are already baked into the pages by the normalizer.
type OutputSpec struct {
	Format Format
	Path   string
}

// ErrEmptyCollection reports an assembly attempt on zero pages.
var ErrEmptyCollection = errors.New("no pages to assemble")

// WriteError reports a filesystem failure during assembly. Partially
// written output has been removed by the time it surfaces.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Assemble writes the collection to spec.Path in collection order.
// Assembly is all-or-nothing: on failure no partial output remains.
func Assemble(coll *pages.Collection, spec OutputSpec) error {
	list := coll.Snapshot()
	if len(list) == 0 {
		return ErrEmptyCollection
	}
	switch spec.Format {
	case PNGSet:
		return writePNGSet(list, spec.Path)
	case PDF:
		return writePDF(list, spec.Path)
	}
	return fmt.Errorf("unknown output format %d", int(spec.Format))
}

// suffixWidth is the zero-pad width for PNG-set page indices: three
// digits, or more when the page count needs them.
func suffixWidth(n int) int {
	if w := len(strconv.Itoa(n - 1)); w > 3 {
		return w
	}
	return 3
}

// PNGName returns the file name of page index i in an n-page PNG set
// assembled to path.
func PNGName(path string, i, n int) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return fmt.Sprintf("%s_%0*d.png", base, suffixWidth(n), i)
}

func writePNGSet(list []*pages.Page, path string) error {
	var written []string
	for i, p := range list {
		name := PNGName(path, i, len(list))
		if err := writePNG(name, p); err != nil {
			for _, w := range written {
				os.Remove(w)
			}
			return &WriteError{Path: name, Err: err}
		}
		written = append(written, name)
	}
	return nil
}

func writePNG(name string, p *pages.Page) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, p.Image); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

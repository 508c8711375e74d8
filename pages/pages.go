// Package pages holds the ordered collection of acquired pages. The
// collection owns page lifetime: a removed page is gone, nothing else
// retains it.
package pages

import (
	"errors"
	"fmt"
	"image"

	"scankit/capture"
)

// Page is one normalized page. Ordinal always equals the page's current
// position in its collection; only the collection mutates it.
type Page struct {
	Image      image.Image
	Resolution capture.Resolution
	Ordinal    int
}

// ErrIndexOutOfRange is the common ancestor of every index failure.
var ErrIndexOutOfRange = errors.New("page index out of range")

// IndexError reports an invalid ordinal passed to a collection operation.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range for %d pages", e.Op, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// Collection is an ordered, mutable list of pages. Not safe for
// concurrent use; the owning session serializes access.
type Collection struct {
	list []*Page
}

func (c *Collection) Len() int { return len(c.list) }

// Append adds the page at the end and stamps its ordinal.
func (c *Collection) Append(p *Page) {
	p.Ordinal = len(c.list)
	c.list = append(c.list, p)
	c.checkInvariant()
}

// At returns the page at the given position.
func (c *Collection) At(i int) (*Page, error) {
	if i < 0 || i >= len(c.list) {
		return nil, &IndexError{Op: "at", Index: i, Len: len(c.list)}
	}
	return c.list[i], nil
}

// Remove drops the page at the given position; following pages shift
// down by one.
func (c *Collection) Remove(i int) error {
	if i < 0 || i >= len(c.list) {
		return &IndexError{Op: "remove", Index: i, Len: len(c.list)}
	}
	c.list = append(c.list[:i], c.list[i+1:]...)
	c.restamp()
	c.checkInvariant()
	return nil
}

// Move relocates the page at from to position to, shifting the pages in
// between. Move(a, b) followed by Move(b, a) restores the previous order.
func (c *Collection) Move(from, to int) error {
	n := len(c.list)
	if from < 0 || from >= n {
		return &IndexError{Op: "move", Index: from, Len: n}
	}
	if to < 0 || to >= n {
		return &IndexError{Op: "move", Index: to, Len: n}
	}
	if from == to {
		return nil
	}
	p := c.list[from]
	c.list = append(c.list[:from], c.list[from+1:]...)
	c.list = append(c.list[:to], append([]*Page{p}, c.list[to:]...)...)
	c.restamp()
	c.checkInvariant()
	return nil
}

// Clear empties the collection, e.g. when a fresh session starts.
func (c *Collection) Clear() {
	c.list = nil
}

// Snapshot returns the pages in order. The slice is a copy; the pages
// are not.
func (c *Collection) Snapshot() []*Page {
	out := make([]*Page, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Collection) restamp() {
	for i, p := range c.list {
		p.Ordinal = i
	}
}

// checkInvariant verifies the dense 0..N-1 ordinal property. A
// violation is a programmer error in this package, hence panic.
func (c *Collection) checkInvariant() {
	for i, p := range c.list {
		if p.Ordinal != i {
			panic(fmt.Sprintf("pages: ordinal %d at position %d", p.Ordinal, i))
		}
	}
}

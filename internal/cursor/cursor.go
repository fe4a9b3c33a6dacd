// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package cursor unifies random-access (memory-mapped) and forward-only
// (streamed) byte access behind one interface, so the Scanner and Carver are
// written once against Cursor instead of duplicating a mapped and a
// streamed code path.
package cursor

import (
	"bytes"
	"io"
)

// Cursor exposes the two operations the scan and carve algorithms need,
// regardless of whether the underlying source is fully addressable or only
// readable forward from the last-seen position.
type Cursor interface {
	// Find returns the absolute offset of the first occurrence of pattern
	// within [from, to), or ok=false if it does not occur there. to may
	// exceed what is currently available; Find reads forward as needed on
	// a streamed cursor and is clamped to the cursor's length otherwise.
	Find(pattern []byte, from, to int64) (offset int64, ok bool, err error)

	// Slice returns exactly the bytes in [start, end), reading forward as
	// needed on a streamed cursor. If the source ends before end, the
	// returned slice is shorter than requested and err is nil: callers
	// that need to know whether truncation happened compare len(result)
	// to end-start.
	Slice(start, end int64) ([]byte, error)

	// Len reports the cursor's total known length, or -1 if unknown (a
	// streamed cursor over a source of unknown size).
	Len() int64
}

// mappedCursor is backed by the full in-memory byte slice of a Mapped
// Source. Find and Slice are O(1) beyond the cost of the search itself.
type mappedCursor struct {
	data []byte
}

// NewMapped returns a Cursor over an already-mapped byte slice.
func NewMapped(data []byte) Cursor {
	return &mappedCursor{data: data}
}

func (c *mappedCursor) Len() int64 { return int64(len(c.data)) }

func (c *mappedCursor) Find(pattern []byte, from, to int64) (int64, bool, error) {
	if from < 0 {
		from = 0
	}
	if to > int64(len(c.data)) {
		to = int64(len(c.data))
	}
	if from >= to {
		return 0, false, nil
	}
	idx := indexOf(c.data[from:to], pattern)
	if idx < 0 {
		return 0, false, nil
	}
	return from + int64(idx), true, nil
}

func (c *mappedCursor) Slice(start, end int64) ([]byte, error) {
	if start < 0 {
		start = 0
	}
	if end > int64(len(c.data)) {
		end = int64(len(c.data))
	}
	if start >= end {
		return nil, nil
	}
	return c.data[start:end], nil
}

// streamedCursor is backed by an io.ReaderAt and an accumulating buffer
// representing [base, base+len(buf)). It grows the buffer forward on
// demand and can drop bytes before a given offset once the scanner no
// longer needs them, bounding resident memory the way ChunkBuffer does in
// the teacher's block-advance scanner.
type streamedCursor struct {
	r    io.ReaderAt
	size int64 // -1 if unknown

	base int64
	buf  []byte
	eof  bool // true once r.ReadAt has returned io.EOF at the current end
}

// NewStreamed returns a Cursor that reads forward from r on demand. size is
// the source's total length if known, or -1 otherwise.
func NewStreamed(r io.ReaderAt, size int64) Cursor {
	return &streamedCursor{r: r, size: size}
}

func (c *streamedCursor) Len() int64 { return c.size }

// ensure grows the buffer so that it covers up to absolute offset end
// (exclusive), short of EOF.
func (c *streamedCursor) ensure(end int64) error {
	bufEnd := c.base + int64(len(c.buf))
	if end <= bufEnd || c.eof {
		return nil
	}

	want := end - bufEnd
	const readChunk = 4 << 20 // read forward in up to 4MiB increments, per spec streamed footer search

	grown := make([]byte, len(c.buf), len(c.buf)+int(want))
	copy(grown, c.buf)
	c.buf = grown

	for int64(len(c.buf)) < end-c.base {
		step := readChunk
		remaining := end - (c.base + int64(len(c.buf)))
		if remaining < int64(step) {
			step = int(remaining)
		}
		tmp := make([]byte, step)
		n, err := c.r.ReadAt(tmp, c.base+int64(len(c.buf)))
		if n > 0 {
			c.buf = append(c.buf, tmp[:n]...)
		}
		if err == io.EOF {
			c.eof = true
			break
		}
		if err != nil {
			return err
		}
		if n == 0 {
			c.eof = true
			break
		}
	}
	return nil
}

func (c *streamedCursor) Find(pattern []byte, from, to int64) (int64, bool, error) {
	if err := c.ensure(to); err != nil {
		return 0, false, err
	}

	lo := from - c.base
	if lo < 0 {
		lo = 0
	}
	hi := to - c.base
	if hi > int64(len(c.buf)) {
		hi = int64(len(c.buf))
	}
	if lo >= hi {
		return 0, false, nil
	}

	idx := indexOf(c.buf[lo:hi], pattern)
	if idx < 0 {
		return 0, false, nil
	}
	return c.base + lo + int64(idx), true, nil
}

func (c *streamedCursor) Slice(start, end int64) ([]byte, error) {
	if err := c.ensure(end); err != nil {
		return nil, err
	}

	lo := start - c.base
	if lo < 0 {
		lo = 0
	}
	hi := end - c.base
	if hi > int64(len(c.buf)) {
		hi = int64(len(c.buf))
	}
	if lo >= hi {
		return nil, nil
	}
	return c.buf[lo:hi], nil
}

// Discard drops every buffered byte before absolute offset before,
// advancing the logical base. The scanner calls this once a chunk has been
// fully processed so resident memory stays bounded by FOOTER_WINDOW plus
// the active chunk, as required by §5's memory bounds.
func (c *streamedCursor) Discard(before int64) {
	cut := before - c.base
	if cut <= 0 {
		return
	}
	if cut >= int64(len(c.buf)) {
		c.base += int64(len(c.buf))
		c.buf = c.buf[:0]
		return
	}
	c.buf = append(c.buf[:0], c.buf[cut:]...)
	c.base += cut
}

// Streamed exposes the concrete type to callers (the Scanner) that need
// Discard, which is not part of the Cursor interface since mapped cursors
// have no use for it.
type Streamed interface {
	Cursor
	Discard(before int64)
}

// NewStreamedWithDiscard is equivalent to NewStreamed but returns the
// richer Streamed interface.
func NewStreamedWithDiscard(r io.ReaderAt, size int64) Streamed {
	return &streamedCursor{r: r, size: size}
}

func indexOf(haystack, needle []byte) int {
	return bytes.Index(haystack, needle)
}

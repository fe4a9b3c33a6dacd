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

// Package bytesource abstracts a raw block device or disk image as either a
// memory-mapped byte slice or a forward-only streamed handle, whichever the
// platform and backing object allow.
package bytesource

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Mode is the access discipline chosen for a Source.
type Mode int

const (
	// Mapped means the entire length is addressable as a byte slice.
	Mapped Mode = iota
	// Streamed means only a forward-only sliding window is addressable.
	Streamed
)

// ErrSourceUnavailable wraps failures to open or stat the backing device or
// file: missing path, permission denial, or any other unreadable source.
var ErrSourceUnavailable = errors.New("bytesource: source unavailable")

// Source is a uniform read interface over either a memory-mapped file or a
// streamed file handle, as described by the core's Byte Source component.
type Source struct {
	path string
	mode Mode
	size int64 // -1 when unknown

	file   *os.File
	mapped *mapping // nil when mode == Streamed
}

// Open opens path for read, choosing Mapped mode when the backing object
// has a known length and can be mapped, falling back to Streamed otherwise.
func Open(path string) (*Source, error) {
	f, err := openRaw(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}

	size, sizeKnown := statSize(f)

	src := &Source{
		path: path,
		size: -1,
		file: f,
	}

	if sizeKnown {
		src.size = size
		if m, err := newMapping(f, size); err == nil {
			src.mapped = m
			src.mode = Mapped
			return src, nil
		}
	}

	src.mode = Streamed
	return src, nil
}

// Path returns the path the source was opened from.
func (s *Source) Path() string { return s.path }

// Mode reports whether the source is addressable as a mapped slice or must
// be consumed as a forward-only stream.
func (s *Source) Mode() Mode { return s.mode }

// Size returns the source's total length and whether it is known. A
// streamed source may still report a known size (e.g. a regular file too
// large to map) without being randomly addressable.
func (s *Source) Size() (int64, bool) {
	return s.size, s.size >= 0
}

// Bytes returns the memory-mapped view of the entire source. Valid only
// when Mode() == Mapped.
func (s *Source) Bytes() []byte {
	if s.mapped == nil {
		return nil
	}
	return s.mapped.data
}

// Reader returns an io.ReaderAt/io.Reader usable to pull bytes forward in
// Streamed mode (and, incidentally, works in Mapped mode too, since the
// underlying file handle stays open either way).
func (s *Source) Reader() io.ReaderAt {
	return s.file
}

// File exposes the underlying OS handle for callers (e.g. the streamed
// cursor) that need to wrap it in their own buffering discipline.
func (s *Source) File() *os.File {
	return s.file
}

// Close releases the mapping, if any, and the underlying file handle. It is
// safe to call once; all exit paths must reach it.
func (s *Source) Close() error {
	var errs []error
	if s.mapped != nil {
		if err := s.mapped.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

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

// Package dedup suppresses header hits clustered close to an already
// accepted offset.
package dedup

import "sort"

// MinOffsetGap is the minimum distance, in bytes, a new offset must keep
// from every previously accepted offset to be admitted.
const MinOffsetGap = 1024

// Set tracks accepted absolute offsets in ascending order, gating new
// candidates against MinOffsetGap. It is kept as a sorted slice with a
// binary-search gate rather than the naive O(n^2) linear scan: the design
// notes explicitly allow this, provided the MinOffsetGap law still holds.
type Set struct {
	offsets []int64
}

// New returns an empty Set.
func New() *Set {
	return &Set{}
}

// Admit reports whether offset lies at least MinOffsetGap away from every
// offset already in the set. It does not insert offset; callers insert
// unconditionally via Insert once they decide to (the scanner records an
// offset even when the subsequent carve fails, per §4.6 step 2).
func (s *Set) Admit(offset int64) bool {
	i := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] >= offset })

	if i < len(s.offsets) && s.offsets[i]-offset < MinOffsetGap {
		return false
	}
	if i > 0 && offset-s.offsets[i-1] < MinOffsetGap {
		return false
	}
	return true
}

// Insert records offset as accepted. Callers must not insert an offset
// Admit rejected for the set's invariant to hold, but Insert itself does
// not re-check: the scanner calls Admit then Insert unconditionally so
// clustered junk headers are silenced even when carving then fails.
func (s *Set) Insert(offset int64) {
	i := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] >= offset })
	if i < len(s.offsets) && s.offsets[i] == offset {
		return
	}
	s.offsets = append(s.offsets, 0)
	copy(s.offsets[i+1:], s.offsets[i:])
	s.offsets[i] = offset
}

// Len returns the number of accepted offsets.
func (s *Set) Len() int { return len(s.offsets) }

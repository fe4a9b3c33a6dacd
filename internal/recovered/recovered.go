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

// Package recovered defines the manifest entry the Scanner emits for every
// accepted candidate, and the ordering rule that keeps a manifest
// deterministic across mapped and streamed scans.
package recovered

import "sort"

// Record is one accepted carve: the written file's path, the signature that
// produced it, its size, and the absolute offset it was carved from.
type Record struct {
	Path      string
	Type      string
	Size      int64
	Offset    int64
	signature int // catalog index, used only to break offset ties deterministically
}

// New builds a Record, tagging it with the signature's catalog position so
// the manifest can be sorted by (offset, catalog order) as §4.6 requires.
func New(path, sigName string, size, offset int64, sigIndex int) Record {
	return Record{
		Path:      path,
		Type:      sigName,
		Size:      size,
		Offset:    offset,
		signature: sigIndex,
	}
}

// Manifest is an ordered collection of Records: primary key accepted
// absolute offset, secondary key catalog order of the producing signature.
type Manifest []Record

// Sort orders the manifest in place per the ordering guarantee in §5.
func (m Manifest) Sort() {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].Offset != m[j].Offset {
			return m[i].Offset < m[j].Offset
		}
		return m[i].signature < m[j].signature
	})
}

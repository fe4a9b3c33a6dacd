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

// Package carve turns a header hit into a candidate byte range, using
// either a footer-bounded search or a fixed-size window, depending on the
// signature's compiled strategy. It runs identically over a mapped or a
// streamed cursor.Cursor.
package carve

import (
	"errors"

	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/kesslerlabs/carvex/internal/cursor"
)

// FooterWindow bounds how far past the header a footer search may look.
const FooterWindow = 32 << 20 // 32 MiB

// MinValidSize is the minimum candidate size accepted; anything shorter is
// rejected regardless of strategy.
const MinValidSize = 512

// FallbackOnNoFooter governs what happens when a footer-bounded signature's
// footer does not appear within min(MaxSize, FooterWindow) of the header
// start. It is a compile-time
// constant, not a per-scan parameter, per the design notes.
const FallbackOnNoFooter = true

// ErrNoFooter is returned when FallbackOnNoFooter is false and no footer
// was found; it is otherwise swallowed and the fallback fixed window is
// emitted instead.
var ErrNoFooter = errors.New("carve: footer not found within window")

// ErrTooShort is returned when the resulting candidate is shorter than
// MinValidSize.
var ErrTooShort = errors.New("carve: candidate shorter than minimum valid size")

// Candidate is a carved byte range, still owned by the caller that
// produced it until handed to the Validator/Writer or discarded.
type Candidate struct {
	Signature catalog.Signature
	Start     int64
	End       int64
	Payload   []byte
}

// Size reports the candidate's byte length.
func (c *Candidate) Size() int64 { return c.End - c.Start }

// Carve produces a Candidate for a header match of sig at absolute offset
// start, reading through cur. header is assumed to already be confirmed
// present at start; Carve begins its footer search at start+len(header) so
// a header can never satisfy its own footer.
func Carve(cur cursor.Cursor, sig catalog.Signature, start int64) (*Candidate, error) {
	var end int64
	var err error

	switch sig.Strategy {
	case catalog.FooterBounded:
		end, err = carveFooterBounded(cur, sig, start)
	default:
		end = fixedSizeEnd(cur, sig, start)
	}
	if err != nil {
		return nil, err
	}

	payload, err := cur.Slice(start, end)
	if err != nil {
		return nil, err
	}

	actualEnd := start + int64(len(payload))
	if actualEnd-start < MinValidSize {
		return nil, ErrTooShort
	}

	return &Candidate{
		Signature: sig,
		Start:     start,
		End:       actualEnd,
		Payload:   payload,
	}, nil
}

func carveFooterBounded(cur cursor.Cursor, sig catalog.Signature, start int64) (int64, error) {
	window := sig.MaxSize
	if window > FooterWindow {
		window = FooterWindow
	}

	searchFrom := start + int64(len(sig.Header))
	searchTo := clampToSourceEnd(cur, start+window)

	foundOff, ok, err := cur.Find(sig.Footer, searchFrom, searchTo)
	if err != nil {
		return 0, err
	}
	if ok {
		return foundOff + int64(len(sig.Footer)), nil
	}

	if !FallbackOnNoFooter {
		return 0, ErrNoFooter
	}
	return fixedSizeEnd(cur, sig, start), nil
}

// fixedSizeEnd computes the unconditional fixed-size window end, per both
// the FixedSize strategy and the footer fallback: min(start+MaxSize,
// source end). Unlike the footer search window, this is never bounded by
// FooterWindow (see the Open Question decision on cap asymmetry).
func fixedSizeEnd(cur cursor.Cursor, sig catalog.Signature, start int64) int64 {
	return clampToSourceEnd(cur, start+sig.MaxSize)
}

func clampToSourceEnd(cur cursor.Cursor, end int64) int64 {
	if length := cur.Len(); length >= 0 && end > length {
		return length
	}
	return end
}

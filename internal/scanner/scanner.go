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

// Package scanner is the top-level carving driver: it walks a Byte Source
// window by window, locates signature headers, gates them through dedup,
// dispatches the Carver, refines and validates the result, and writes
// accepted candidates through the Writer. It is written once against
// cursor.Cursor so the mapped and streamed Byte Source modes share one
// code path, per the design notes in spec.md §9.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kesslerlabs/carvex/internal/bytesource"
	"github.com/kesslerlabs/carvex/internal/carve"
	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/kesslerlabs/carvex/internal/cursor"
	"github.com/kesslerlabs/carvex/internal/dedup"
	"github.com/kesslerlabs/carvex/internal/recovered"
	"github.com/kesslerlabs/carvex/internal/validate"
	"github.com/kesslerlabs/carvex/internal/writer"
)

// ChunkLogBytes is the window size the scanner advances by in mapped mode
// and the read size it pulls per iteration in streamed mode.
const ChunkLogBytes = 64 << 20 // 64 MiB

// Scan walks source for every signature selected from catalog by fileType
// (nil or empty means "match every signature", per the Open Question
// decision in SPEC_FULL.md §14), writing accepted candidates under
// outputDir and returning the manifest in (offset, catalog order).
//
// ctx is checked once per chunk boundary (§5): on cancellation, Scan
// returns the manifest accumulated so far and a nil error, exactly as
// spec.md §5 requires. logger receives a Warn for each candidate discarded
// because its write or its validation returned an error, and a Debug record
// for carve rejections and images that fail validation; pass
// slog.New(slog.NewTextHandler(io.Discard, nil)) to silence it.
func Scan(ctx context.Context, source *bytesource.Source, cat *catalog.Catalog, fileType []string, outputDir string, logger *slog.Logger) (recovered.Manifest, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sigs := cat.Select(fileType...)
	sigIndex := make(map[string]int, len(sigs))
	for i, s := range sigs {
		sigIndex[s.Name] = i
	}

	var cur cursor.Cursor
	var discard func(before int64)

	switch source.Mode() {
	case bytesource.Mapped:
		cur = cursor.NewMapped(source.Bytes())
	default:
		size, known := source.Size()
		if !known {
			size = -1
		}
		streamed := cursor.NewStreamedWithDiscard(source.Reader(), size)
		cur = streamed
		discard = streamed.Discard
	}

	s := &scan{
		cur:      cur,
		discard:  discard,
		sigs:     sigs,
		sigIndex: sigIndex,
		dedup:    dedup.New(),
		logger:   logger,
	}
	return s.run(ctx, outputDir)
}

type scan struct {
	cur      cursor.Cursor
	discard  func(before int64)
	sigs     []catalog.Signature
	sigIndex map[string]int
	dedup    *dedup.Set
	logger   *slog.Logger

	manifest recovered.Manifest
}

func (s *scan) run(ctx context.Context, outputDir string) (recovered.Manifest, error) {
	length := s.cur.Len()

	for winStart := int64(0); ; winStart += ChunkLogBytes {
		if err := ctx.Err(); err != nil {
			s.manifest.Sort()
			return s.manifest, nil
		}

		if length >= 0 && winStart >= length {
			break
		}

		winEnd := winStart + ChunkLogBytes
		if length >= 0 && winEnd > length {
			winEnd = length
		}
		if length < 0 {
			// Unknown length (streamed, unseekable source): peek one byte
			// to detect end of stream before committing to a window.
			probe, err := s.cur.Slice(winStart, winStart+1)
			if err != nil {
				return s.manifest, fmt.Errorf("scanner: %w", err)
			}
			if len(probe) == 0 {
				break
			}
		}

		if err := s.scanWindow(winStart, winEnd, outputDir); err != nil {
			return s.manifest, err
		}

		if s.discard != nil {
			before := winEnd - carve.FooterWindow
			if before > 0 {
				s.discard(before)
			}
		}
	}

	s.manifest.Sort()
	return s.manifest, nil
}

// scanWindow tries every signature's header in ascending-offset order
// within [winStart, winEnd), matching §4.6's determinism rule: for a given
// window, signatures are tried in catalog order and, within a signature,
// headers in ascending-offset order.
func (s *scan) scanWindow(winStart, winEnd int64, outputDir string) error {
	for _, sig := range s.sigs {
		searchFrom := winStart
		for searchFrom < winEnd {
			idx, ok, err := s.cur.Find(sig.Header, searchFrom, winEnd)
			if err != nil {
				return fmt.Errorf("scanner: source read failed: %w", err)
			}
			if !ok {
				break
			}

			if err := s.handleHit(idx, sig, outputDir); err != nil {
				return err
			}
			searchFrom = idx + int64(len(sig.Header))
		}
	}
	return nil
}

func (s *scan) handleHit(offset int64, sig catalog.Signature, outputDir string) error {
	if !s.dedup.Admit(offset) {
		return nil
	}
	// Recorded even if the subsequent carve fails: this silences repeated
	// near-duplicate junk headers clustered around the same offset.
	s.dedup.Insert(offset)

	candidate, err := carve.Carve(s.cur, sig, offset)
	if err != nil {
		if errors.Is(err, carve.ErrTooShort) || errors.Is(err, carve.ErrNoFooter) {
			s.logger.Debug("carve rejected", "signature", sig.Name, "offset", offset, "err", err)
			return nil
		}
		return fmt.Errorf("scanner: source read failed during carve: %w", err)
	}

	ext := validate.RefineExtension(sig.Extension, candidate.Payload)
	name := writer.Name(sig.Name, candidate.Start, ext)

	path, err := writer.Write(outputDir, name, candidate.Payload)
	if err != nil {
		s.logger.Warn("discarding candidate: write failed", "signature", sig.Name, "offset", offset, "err", err)
		return nil
	}

	if validate.IsImage(ext) {
		ok, err := validate.VerifyFile(ext, path)
		if err != nil {
			s.logger.Warn("discarding candidate: validation error", "signature", sig.Name, "offset", offset, "err", err)
			_ = writer.Remove(path)
			return nil
		}
		if !ok {
			s.logger.Debug("discarding candidate: failed image validation", "signature", sig.Name, "offset", offset)
			_ = writer.Remove(path)
			return nil
		}
	}

	s.manifest = append(s.manifest, recovered.New(path, sig.Name, candidate.Size(), candidate.Start, s.sigIndex[sig.Name]))
	return nil
}

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

// Package writer sanitizes carved-file names and confines every write to a
// configured output directory, refusing anything that would escape it.
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	osutil "github.com/kesslerlabs/carvex/pkg/util/os"
)

// ErrUnsafePath is returned when the resolved output path would not remain
// a descendant of the configured base directory.
var ErrUnsafePath = errors.New("writer: refusing to write outside base directory")

// Name builds the on-disk filename for a carved candidate, following the
// recovered_{signature}_{offset}.{extension} convention. Name does not
// sanitize; Write sanitizes the name before using it.
func Name(signature string, offset int64, extension string) string {
	if extension == "" {
		extension = "bin"
	}
	return fmt.Sprintf("recovered_%s_%d.%s", signature, offset, extension)
}

// Sanitize keeps [A-Za-z0-9._-] and replaces every other character with '_', so a
// signature name or extension pulled from an untrusted catalog document can
// never inject path separators or traversal sequences into the output name.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Write ensures baseDir exists, sanitizes name, confines the resolved path to
// baseDir, and writes data with a truncate-create-write open (fsync is not
// required for the scan's purposes). It returns the path written to.
func Write(baseDir, name string, data []byte) (string, error) {
	if _, err := osutil.EnsureDir(baseDir, false); err != nil {
		return "", fmt.Errorf("writer: %w", err)
	}

	safeName := Sanitize(name)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("writer: %w", err)
	}
	absBase = filepath.Clean(absBase)

	target := filepath.Join(absBase, safeName)
	if target != absBase && !strings.HasPrefix(target, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("writer: %w", err)
	}
	return target, nil
}

// Remove deletes a previously written artifact, used when post-write image
// validation rejects it. Removal is best-effort: a missing file is not an
// error, since the caller only cares that it no longer exists.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("writer: %w", err)
	}
	return nil
}

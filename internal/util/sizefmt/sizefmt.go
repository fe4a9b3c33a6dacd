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

// Package sizefmt parses human-readable size flags (e.g. "64K", "256MB")
// back into a byte count, for the CLI layer's size-valued flags.
package sizefmt

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBytes parses a size flag such as "512", "64K", "256MB", or "2gb"
// into a byte count. The unit suffix is case-insensitive and the trailing
// "B" is optional.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("sizefmt: empty size")
	}

	upper := strings.ToUpper(s)
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "TB"):
		multiplier = 1 << 40
		upper = strings.TrimSuffix(upper, "TB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1 << 30
		upper = strings.TrimSuffix(upper, "GB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1 << 20
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1 << 10
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "T"):
		multiplier = 1 << 40
		upper = strings.TrimSuffix(upper, "T")
	case strings.HasSuffix(upper, "G"):
		multiplier = 1 << 30
		upper = strings.TrimSuffix(upper, "G")
	case strings.HasSuffix(upper, "M"):
		multiplier = 1 << 20
		upper = strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "K"):
		multiplier = 1 << 10
		upper = strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "B"):
		upper = strings.TrimSuffix(upper, "B")
	}

	upper = strings.TrimSpace(upper)
	n, err := strconv.ParseFloat(upper, 64)
	if err != nil {
		return 0, fmt.Errorf("sizefmt: invalid size %q: %w", s, err)
	}
	return int64(n * float64(multiplier)), nil
}

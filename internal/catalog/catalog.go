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

// Package catalog loads and compiles signature definitions used to carve
// files out of a raw byte stream.
package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxFileSize is the global cap a signature's MaxSize may never exceed.
const MaxFileSize = 256 << 20 // 256 MiB

// ErrCatalogInvalid is returned when a signature document is malformed.
var ErrCatalogInvalid = errors.New("catalog: invalid signature document")

// Strategy distinguishes how a Signature's upper boundary is located.
type Strategy int

const (
	// FooterBounded carves up to the first occurrence of Footer within a
	// bounded search window, falling back to a fixed window when configured.
	FooterBounded Strategy = iota
	// FixedSize carves exactly MaxSize bytes (or to end of source).
	FixedSize
)

// Signature is the compiled, closed-variant form of one catalog entry.
// Only one of the two strategies applies to a given Signature: Footer is
// non-empty only when Strategy is FooterBounded.
type Signature struct {
	Name      string
	Extension string
	Header    []byte
	Footer    []byte // nil for FixedSize
	MaxSize   int64
	Strategy  Strategy
}

// document is the on-disk shape of a signature entry, as described in the
// external signature document (§6): header is required, everything else is
// optional.
type document struct {
	Header    string `yaml:"header"`
	Footer    string `yaml:"footer,omitempty"`
	Extension string `yaml:"extension,omitempty"`
	MaxSize   int64  `yaml:"max_size,omitempty"`
}

// Catalog is an ordered, immutable sequence of compiled signatures. Order
// mirrors the input document and is preserved across Select calls so that
// scan determinism (§4.6) holds.
type Catalog struct {
	signatures []Signature
}

// Load reads a signature document from path and compiles it into a Catalog.
// The document is a YAML mapping of name -> entry; a JSON document also
// parses correctly since YAML is a superset of JSON.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogInvalid, path, err)
	}
	return Parse(data)
}

// Parse compiles a Catalog from raw document bytes, preserving the order in
// which entries appear in the source document.
func Parse(data []byte) (*Catalog, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogInvalid, err)
	}

	if raw.Kind == 0 {
		return &Catalog{}, nil
	}

	if raw.Kind != yaml.DocumentNode || len(raw.Content) != 1 || raw.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document must be a mapping of name to signature entry", ErrCatalogInvalid)
	}

	mapping := raw.Content[0]

	sigs := make([]Signature, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value

		var doc document
		if err := mapping.Content[i+1].Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: signature %q: %v", ErrCatalogInvalid, name, err)
		}

		sig, err := compile(name, doc)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	return &Catalog{signatures: sigs}, nil
}

func compile(name string, doc document) (Signature, error) {
	header, err := decodeHex(doc.Header)
	if err != nil || len(header) == 0 {
		return Signature{}, fmt.Errorf("%w: signature %q: header must be non-empty valid hex", ErrCatalogInvalid, name)
	}

	maxSize := doc.MaxSize
	if maxSize == 0 {
		maxSize = MaxFileSize
	}
	if maxSize <= 0 || maxSize > MaxFileSize {
		return Signature{}, fmt.Errorf("%w: signature %q: max_size must be positive and <= %d", ErrCatalogInvalid, name, MaxFileSize)
	}

	sig := Signature{
		Name:      name,
		Extension: strings.ToLower(doc.Extension),
		Header:    header,
		MaxSize:   maxSize,
	}

	if doc.Footer == "" {
		sig.Strategy = FixedSize
		return sig, nil
	}

	footer, err := decodeHex(doc.Footer)
	if err != nil || len(footer) == 0 {
		return Signature{}, fmt.Errorf("%w: signature %q: footer must be valid hex when present", ErrCatalogInvalid, name)
	}
	sig.Strategy = FooterBounded
	sig.Footer = footer
	return sig, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	return hex.DecodeString(s)
}

// Signatures returns every compiled signature, in catalog order.
func (c *Catalog) Signatures() []Signature {
	return c.signatures
}

// Len reports the number of compiled signatures in the catalog.
func (c *Catalog) Len() int {
	return len(c.signatures)
}

// Capped returns a Catalog identical to c except every signature's MaxSize
// is clamped to at most maxSize. It never raises a signature's MaxSize, and
// a non-positive maxSize returns c unchanged (no cap requested).
func (c *Catalog) Capped(maxSize int64) *Catalog {
	if maxSize <= 0 {
		return c
	}

	capped := make([]Signature, len(c.signatures))
	for i, sig := range c.signatures {
		if sig.MaxSize > maxSize {
			sig.MaxSize = maxSize
		}
		capped[i] = sig
	}
	return &Catalog{signatures: capped}
}

// Select returns the signatures matching one of the given file types
// (extension or signature name, case-insensitive). Called with no
// arguments, Select returns every signature in the catalog: an absent
// filter means "match all", not "match none" (see Open Question in
// SPEC_FULL.md).
func (c *Catalog) Select(fileType ...string) []Signature {
	if len(fileType) == 0 {
		return c.signatures
	}

	want := make(map[string]bool, len(fileType))
	for _, ft := range fileType {
		want[strings.ToLower(ft)] = true
	}

	selected := make([]Signature, 0, len(c.signatures))
	for _, sig := range c.signatures {
		if want[sig.Extension] || want[strings.ToLower(sig.Name)] {
			selected = append(selected, sig)
		}
	}
	return selected
}

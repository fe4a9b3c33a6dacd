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
package writer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kesslerlabs/carvex/internal/writer"
	"github.com/stretchr/testify/require"
)

func TestSanitizeReplacesUnsafeBytes(t *testing.T) {
	require.Equal(t, "evil_.._name_..", writer.Sanitize("evil/../name/.."))
	require.Equal(t, "plain-name.jpg", writer.Sanitize("plain-name.jpg"))
}

func TestNameFormat(t *testing.T) {
	require.Equal(t, "recovered_JPEG_4096.jpg", writer.Name("JPEG", 4096, "jpg"))
	require.Equal(t, "recovered_MP4_0.bin", writer.Name("MP4", 0, ""))
}

func TestWriteConfinesToBaseDir(t *testing.T) {
	dir := t.TempDir()

	path, err := writer.Write(dir, "recovered_JPEG_0.jpg", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, filepath.Clean(dir), filepath.Dir(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestWriteSanitizesTraversalName(t *testing.T) {
	dir := t.TempDir()

	path, err := writer.Write(dir, "evil/../../etc/passwd", []byte("x"))
	require.NoError(t, err)

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	require.True(t, len(path) > len(absDir) && path[:len(absDir)] == absDir)
}

func TestRemoveMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writer.Remove(filepath.Join(dir, "does-not-exist")))
}

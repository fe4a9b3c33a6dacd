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
package validate_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/kesslerlabs/carvex/internal/validate"
	"github.com/stretchr/testify/require"
)

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	require.Equal(t, "jpg", validate.DetectFormat(encodeJPEG(t)))
	require.Equal(t, "png", validate.DetectFormat(encodePNG(t)))
	require.Equal(t, "bin", validate.DetectFormat([]byte("not an image")))

	webp := riffWebP(t, []byte("VP8 "), 16)
	require.Equal(t, "webp", validate.DetectFormat(webp))
}

func TestRefineExtensionOnlyAppliesToImageDeclarations(t *testing.T) {
	require.Equal(t, "jpg", validate.RefineExtension("jpg", encodeJPEG(t)))
	require.Equal(t, "mp4", validate.RefineExtension("mp4", []byte{0, 0, 0, 0x18}))
}

func TestVerifyBytesAcceptsWellFormedImages(t *testing.T) {
	require.True(t, validate.VerifyBytes("jpg", encodeJPEG(t)))
	require.True(t, validate.VerifyBytes("png", encodePNG(t)))
}

func TestVerifyBytesRejectsTruncatedImage(t *testing.T) {
	jpg := encodeJPEG(t)
	require.False(t, validate.VerifyBytes("jpg", jpg[:len(jpg)-20]))
}

func TestVerifyFileAcceptsNonImageExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recovered_MP4_0.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not an image at all"), 0644))

	ok, err := validate.VerifyFile("mp4", path)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyWebPAcceptsWellFormedContainer(t *testing.T) {
	webp := riffWebP(t, []byte("VP8 "), 16)
	require.True(t, validate.VerifyBytes("webp", webp))
}

func TestVerifyWebPRejectsBadMagic(t *testing.T) {
	require.False(t, validate.VerifyBytes("webp", []byte("not a riff container at all")))
}

// riffWebP builds a minimal single-chunk RIFF/WEBP container with a
// payload of payloadLen zero bytes under the given FourCC.
func riffWebP(t *testing.T, fourCC []byte, payloadLen int) []byte {
	t.Helper()

	payload := make([]byte, payloadLen)
	chunkSize := 8 + len(payload)
	if len(payload)%2 != 0 {
		chunkSize++
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	riffSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(riffSize, uint32(4+chunkSize))
	buf.Write(riffSize)
	buf.WriteString("WEBP")
	buf.Write(fourCC)
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(len(payload)))
	buf.Write(size)
	buf.Write(payload)
	if len(payload)%2 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

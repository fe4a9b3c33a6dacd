package scanner_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kesslerlabs/carvex/internal/bytesource"
	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/kesslerlabs/carvex/internal/scanner"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
jpeg:
  header: "ffd8ff"
  footer: "ffd9"
  extension: "jpg"
mp4:
  header: "000000186674797069736f6d"
  extension: "mp4"
  max_size: 65536
`

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	img.Set(2, 2, color.RGBA{R: 50, G: 60, B: 70, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func buildImage(t *testing.T, jpegOffset int64, mp4Offset int64) ([]byte, []byte) {
	t.Helper()
	jpegBytes := encodeJPEG(t)

	total := mp4Offset + 4096
	if int64(len(jpegBytes))+jpegOffset > total {
		total = jpegOffset + int64(len(jpegBytes)) + 1024
	}
	data := bytes.Repeat([]byte{0x00}, int(total))
	copy(data[jpegOffset:], jpegBytes)

	mp4Header := []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70, 0x69, 0x73, 0x6f, 0x6d}
	copy(data[mp4Offset:], mp4Header)
	copy(data[mp4Offset+int64(len(mp4Header)):], bytes.Repeat([]byte{0x7a}, 700))

	return data, jpegBytes
}

func openSource(t *testing.T, data []byte) *bytesource.Source {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))

	src, err := bytesource.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestScanFindsBothSignatures(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	data, _ := buildImage(t, 8192, 100000)
	src := openSource(t, data)

	outDir := t.TempDir()
	manifest, err := scanner.Scan(context.Background(), src, cat, nil, outDir, silentLogger())
	require.NoError(t, err)
	require.Len(t, manifest, 2)

	require.Equal(t, int64(8192), manifest[0].Offset)
	require.Equal(t, "jpeg", manifest[0].Type)
	require.Equal(t, int64(100000), manifest[1].Offset)
	require.Equal(t, "mp4", manifest[1].Type)

	for _, rec := range manifest {
		_, err := os.Stat(rec.Path)
		require.NoError(t, err)
	}
}

func TestScanFileTypeFilter(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	data, _ := buildImage(t, 2048, 50000)
	src := openSource(t, data)

	outDir := t.TempDir()
	manifest, err := scanner.Scan(context.Background(), src, cat, []string{"mp4"}, outDir, silentLogger())
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	require.Equal(t, "mp4", manifest[0].Type)
}

func TestScanRejectsTruncatedImage(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	jpegBytes := encodeJPEG(t)
	corrupt := append(append([]byte{}, jpegBytes[:len(jpegBytes)-20]...), 0xFF, 0xD9)

	data := bytes.Repeat([]byte{0x00}, 4096)
	data = append(data, corrupt...)
	src := openSource(t, data)

	outDir := t.TempDir()
	manifest, err := scanner.Scan(context.Background(), src, cat, nil, outDir, silentLogger())
	require.NoError(t, err)
	require.Empty(t, manifest)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestScanHonorsCancellation(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	data, _ := buildImage(t, 1024, 20000)
	src := openSource(t, data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manifest, err := scanner.Scan(ctx, src, cat, nil, t.TempDir(), silentLogger())
	require.NoError(t, err)
	require.Empty(t, manifest)
}

func TestScanDedupSuppressesAdjacentHeaders(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
mp4:
  header: "0000001866747970"
  extension: "mp4"
  max_size: 2048
`))
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0x00}, 4096)
	header := []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70}
	copy(data[100:], header)
	copy(data[150:], header) // within MinOffsetGap of the first hit

	src := openSource(t, data)
	manifest, err := scanner.Scan(context.Background(), src, cat, nil, t.TempDir(), silentLogger())
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	require.Equal(t, int64(100), manifest[0].Offset)
}

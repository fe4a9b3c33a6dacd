package bytesource_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kesslerlabs/carvex/internal/bytesource"
	"github.com/stretchr/testify/require"
)

func TestOpenRegularFileIsMapped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.bin")
	data := []byte("hello world, this is a carved source of bytes")
	require.NoError(t, os.WriteFile(path, data, 0644))

	src, err := bytesource.Open(path)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, bytesource.Mapped, src.Mode())

	size, known := src.Size()
	require.True(t, known)
	require.Equal(t, int64(len(data)), size)
	require.Equal(t, data, src.Bytes())
}

func TestOpenMissingPathFails(t *testing.T) {
	_, err := bytesource.Open(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, bytesource.ErrSourceUnavailable)
}

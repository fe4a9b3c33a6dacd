package scanner

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/kesslerlabs/carvex/internal/cursor"
	"github.com/kesslerlabs/carvex/internal/dedup"
	"github.com/stretchr/testify/require"
)

// TestMappedAndStreamedProduceIdenticalManifests exercises the scan driver
// directly against both cursor implementations over identical bytes,
// bypassing bytesource (which always maps a regular file on this platform)
// to confirm the critical property in spec.md §9: the two Byte Source
// modes must never disagree on what gets recovered.
func TestMappedAndStreamedProduceIdenticalManifests(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
mp4:
  header: "000000186674797069736f6d"
  extension: "mp4"
  max_size: 16384
jpeg:
  header: "ffd8ff"
  footer: "ffd9"
  extension: "bin"
`))
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0x11}, 5000)
	mp4Header := []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70, 0x69, 0x73, 0x6f, 0x6d}
	copy(data[500:], mp4Header)
	copy(data[3000:], []byte{0xFF, 0xD8, 0xFF})
	copy(data[3900:], []byte{0xFF, 0xD9})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sigs := cat.Select()
	sigIndex := map[string]int{}
	for i, s := range sigs {
		sigIndex[s.Name] = i
	}

	outA, outB := t.TempDir(), t.TempDir()

	mappedScan := &scan{
		cur:      cursor.NewMapped(data),
		sigs:     sigs,
		sigIndex: sigIndex,
		dedup:    dedup.New(),
		logger:   logger,
	}
	mappedManifest, err := mappedScan.run(context.Background(), outA)
	require.NoError(t, err)

	streamedCur := cursor.NewStreamedWithDiscard(bytes.NewReader(data), int64(len(data)))
	streamedScan := &scan{
		cur:      streamedCur,
		discard:  streamedCur.Discard,
		sigs:     sigs,
		sigIndex: sigIndex,
		dedup:    dedup.New(),
		logger:   logger,
	}
	streamedManifest, err := streamedScan.run(context.Background(), outB)
	require.NoError(t, err)

	require.Equal(t, len(mappedManifest), len(streamedManifest))
	require.Len(t, mappedManifest, 2)
	for i := range mappedManifest {
		require.Equal(t, mappedManifest[i].Offset, streamedManifest[i].Offset)
		require.Equal(t, mappedManifest[i].Type, streamedManifest[i].Type)
		require.Equal(t, mappedManifest[i].Size, streamedManifest[i].Size)
	}
}

package cursor_test

import (
	"bytes"
	"testing"

	"github.com/kesslerlabs/carvex/internal/cursor"
	"github.com/stretchr/testify/require"
)

func buildSource() []byte {
	data := make([]byte, 0, 200)
	data = append(data, bytes.Repeat([]byte{0x00}, 50)...)
	data = append(data, []byte("HEADER")...)
	data = append(data, bytes.Repeat([]byte{0x01}, 40)...)
	data = append(data, []byte("FOOTER")...)
	data = append(data, bytes.Repeat([]byte{0x02}, 50)...)
	return data
}

func TestMappedFindAndSlice(t *testing.T) {
	data := buildSource()
	c := cursor.NewMapped(data)

	off, ok, err := c.Find([]byte("HEADER"), 0, int64(len(data)))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(50), off)

	footerOff, ok, err := c.Find([]byte("FOOTER"), off+6, int64(len(data)))
	require.NoError(t, err)
	require.True(t, ok)

	slice, err := c.Slice(off, footerOff+6)
	require.NoError(t, err)
	require.Equal(t, data[off:footerOff+6], slice)
}

func TestStreamedMatchesMapped(t *testing.T) {
	data := buildSource()

	mapped := cursor.NewMapped(data)
	streamed := cursor.NewStreamed(bytes.NewReader(data), int64(len(data)))

	mOff, mOk, err := mapped.Find([]byte("HEADER"), 0, int64(len(data)))
	require.NoError(t, err)
	sOff, sOk, err := streamed.Find([]byte("HEADER"), 0, int64(len(data)))
	require.NoError(t, err)

	require.Equal(t, mOk, sOk)
	require.Equal(t, mOff, sOff)

	mSlice, _ := mapped.Slice(mOff, mOff+6)
	sSlice, _ := streamed.Slice(sOff, sOff+6)
	require.Equal(t, mSlice, sSlice)
}

func TestStreamedDiscardAdvancesBase(t *testing.T) {
	data := buildSource()
	c := cursor.NewStreamedWithDiscard(bytes.NewReader(data), int64(len(data)))

	_, err := c.Slice(0, 60)
	require.NoError(t, err)

	c.Discard(50)

	off, ok, err := c.Find([]byte("HEADER"), 50, int64(len(data)))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(50), off)
}

func TestStreamedTruncatesAtEOF(t *testing.T) {
	data := []byte("short")
	c := cursor.NewStreamed(bytes.NewReader(data), int64(len(data)))

	slice, err := c.Slice(0, 1000)
	require.NoError(t, err)
	require.Equal(t, data, slice)
}

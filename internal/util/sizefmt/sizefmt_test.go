package sizefmt_test

import (
	"testing"

	"github.com/kesslerlabs/carvex/internal/util/sizefmt"
	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	cases := map[string]int64{
		"512":   512,
		"64K":   64 << 10,
		"64KB":  64 << 10,
		"256mb": 256 << 20,
		"2GB":   2 << 30,
		"1T":    1 << 40,
	}
	for in, want := range cases {
		got, err := sizefmt.ParseBytes(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestParseBytesRejectsGarbage(t *testing.T) {
	_, err := sizefmt.ParseBytes("not-a-size")
	require.Error(t, err)
}

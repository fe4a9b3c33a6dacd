package catalog_test

import (
	"testing"

	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
JPEG:
  header: "FFD8FF"
  footer: "FFD9"
  extension: "jpg"
  max_size: 16777216
MP4:
  header: "000000186674797024D24200"
  extension: "mp4"
  max_size: 1048576
`

func TestParse(t *testing.T) {
	c, err := catalog.Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	sigs := c.Signatures()
	require.Equal(t, "JPEG", sigs[0].Name)
	require.Equal(t, catalog.FooterBounded, sigs[0].Strategy)
	require.Equal(t, []byte{0xFF, 0xD8, 0xFF}, sigs[0].Header)
	require.Equal(t, []byte{0xFF, 0xD9}, sigs[0].Footer)
	require.Equal(t, int64(16777216), sigs[0].MaxSize)

	require.Equal(t, "MP4", sigs[1].Name)
	require.Equal(t, catalog.FixedSize, sigs[1].Strategy)
	require.Nil(t, sigs[1].Footer)
}

func TestParseDefaultsMaxSize(t *testing.T) {
	c, err := catalog.Parse([]byte("X:\n  header: \"AA\"\n"))
	require.NoError(t, err)
	require.Equal(t, int64(catalog.MaxFileSize), c.Signatures()[0].MaxSize)
}

func TestParseRejectsEmptyHeader(t *testing.T) {
	_, err := catalog.Parse([]byte("X:\n  header: \"\"\n"))
	require.ErrorIs(t, err, catalog.ErrCatalogInvalid)
}

func TestParseRejectsOddLengthHex(t *testing.T) {
	_, err := catalog.Parse([]byte("X:\n  header: \"ABC\"\n"))
	require.ErrorIs(t, err, catalog.ErrCatalogInvalid)
}

func TestParseRejectsOversizedMaxSize(t *testing.T) {
	_, err := catalog.Parse([]byte("X:\n  header: \"AA\"\n  max_size: 999999999999\n"))
	require.ErrorIs(t, err, catalog.ErrCatalogInvalid)
}

func TestSelectNoFilterMatchesAll(t *testing.T) {
	c, err := catalog.Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, c.Select(), 2)
}

func TestSelectByExtensionOrName(t *testing.T) {
	c, err := catalog.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	byExt := c.Select("jpg")
	require.Len(t, byExt, 1)
	require.Equal(t, "JPEG", byExt[0].Name)

	byName := c.Select("mp4")
	require.Len(t, byName, 1)
	require.Equal(t, "MP4", byName[0].Name)

	require.Empty(t, c.Select("doesnotexist"))
}

func TestCappedClampsOnlyLargerSignatures(t *testing.T) {
	c, err := catalog.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	capped := c.Capped(2 << 20)
	sigs := capped.Signatures()
	require.Equal(t, int64(2<<20), sigs[0].MaxSize) // JPEG's 16MiB clamped down
	require.Equal(t, int64(1048576), sigs[1].MaxSize) // MP4's 1MiB left untouched

	require.Equal(t, int64(16777216), c.Signatures()[0].MaxSize, "original catalog left unmodified")
}

func TestCappedNoOpForNonPositiveCap(t *testing.T) {
	c, err := catalog.Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Same(t, c, c.Capped(0))
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clublg/utymap/pkg/geo"
)

func TestParseTile(t *testing.T) {
	q, err := parseTile("14/8800/5373")
	require.NoError(t, err)
	assert.Equal(t, geo.QuadKey{LevelOfDetail: 14, TileX: 8800, TileY: 5373}, q)

	for _, bad := range []string{"", "14", "14/8800", "14/8800/5373/2", "z/x/y", "14/-1/5373"} {
		_, err := parseTile(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseLodRange(t *testing.T) {
	r, err := parseLodRange("1:16")
	require.NoError(t, err)
	assert.Equal(t, geo.LodRange{Min: 1, Max: 16}, r)

	// A single level is a degenerate range.
	r, err = parseLodRange("14")
	require.NoError(t, err)
	assert.Equal(t, geo.LodRange{Min: 14, Max: 14}, r)

	// Swapped ends are normalized.
	r, err = parseLodRange("16:1")
	require.NoError(t, err)
	assert.Equal(t, geo.LodRange{Min: 1, Max: 16}, r)

	for _, bad := range []string{"", "a:b", "1:b", "-3:-1"} {
		_, err := parseLodRange(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseBoundingBox(t *testing.T) {
	box, err := parseBoundingBox("13.0,52.0,14.0,53.0")
	require.NoError(t, err)
	assert.Equal(t, geo.BoundingBox{MinLon: 13.0, MinLat: 52.0, MaxLon: 14.0, MaxLat: 53.0}, box)

	// Whitespace around components is tolerated.
	box, err = parseBoundingBox(" 13.0, 52.0, 14.0, 53.0 ")
	require.NoError(t, err)
	assert.True(t, box.IsValid())

	for _, bad := range []string{"", "13.0,52.0,14.0", "a,b,c,d", "14.0,52.0,13.0,53.0"} {
		_, err := parseBoundingBox(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

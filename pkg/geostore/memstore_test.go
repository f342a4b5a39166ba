package geostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clublg/utymap/pkg/geo"
)

var (
	berlin = geo.GeoCoordinate{Latitude: 52.52, Longitude: 13.40}
	sydney = geo.GeoCoordinate{Latitude: -33.87, Longitude: 151.21}
)

func collectElements(out *[]*geo.Element) geo.ElementVisitor {
	return geo.ElementVisitorFunc(func(e *geo.Element) {
		*out = append(*out, e)
	})
}

func TestInMemoryStoreInTile(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	q := geo.NewQuadKey(berlin, 14)

	accepted, err := s.StoreInTile(nodeAt(table, 1, berlin, "amenity", "cafe"), q, AllStyles)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.True(t, s.HasData(q))

	var visited []*geo.Element
	require.NoError(t, s.SearchTile(q, collectElements(&visited), nil))
	require.Len(t, visited, 1)
	assert.Equal(t, int64(1), visited[0].ID)
}

func TestInMemoryStoreInTileRejectsWrongExtent(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	q := geo.NewQuadKey(sydney, 14)

	accepted, err := s.StoreInTile(nodeAt(table, 1, berlin), q, AllStyles)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.False(t, s.HasData(q))
}

func TestInMemoryStoreInTileRejectsByStyle(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	q := geo.NewQuadKey(berlin, 14)
	noStyle := StyleProviderFunc(func(*geo.Element, int) bool { return false })

	accepted, err := s.StoreInTile(nodeAt(table, 1, berlin), q, noStyle)
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestInMemoryStoreRangeIndexesEveryLevel(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)

	require.NoError(t, s.Store(nodeAt(table, 1, berlin), geo.LodRange{Min: 12, Max: 14}, AllStyles))

	for lod := 12; lod <= 14; lod++ {
		assert.True(t, s.HasData(geo.NewQuadKey(berlin, lod)), "lod %d", lod)
	}
	assert.False(t, s.HasData(geo.NewQuadKey(berlin, 15)))
}

func TestInMemoryStoreInBounds(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	box := geo.BoundingBox{MinLon: 13.0, MaxLon: 14.0, MinLat: 52.0, MaxLat: 53.0}
	r := geo.LodRange{Min: 14, Max: 14}

	accepted, err := s.StoreInBounds(nodeAt(table, 1, berlin), box, r, AllStyles)
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = s.StoreInBounds(nodeAt(table, 2, sydney), box, r, AllStyles)
	require.NoError(t, err)
	assert.False(t, accepted, "element outside the scope box is rejected")
}

func TestInMemorySearchByTerms(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	r := geo.LodRange{Min: 13, Max: 14}

	require.NoError(t, s.Store(nodeAt(table, 1, berlin, "amenity", "cafe"), r, AllStyles))
	require.NoError(t, s.Store(nodeAt(table, 2, berlin, "amenity", "bank"), r, AllStyles))

	query := SearchQuery{
		AndTerms: []string{"cafe"},
		Bounds:   geo.BoundingBox{MinLon: 13.0, MaxLon: 14.0, MinLat: 52.0, MaxLat: 53.0},
		Range:    r,
	}

	var visited []*geo.Element
	require.NoError(t, s.Search(query, collectElements(&visited), nil))

	// Indexed at two levels but visited once.
	require.Len(t, visited, 1)
	assert.Equal(t, int64(1), visited[0].ID)
}

func TestInMemorySearchEmptyBounds(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	require.NoError(t, s.Store(nodeAt(table, 1, berlin), geo.LodRange{Min: 14, Max: 14}, AllStyles))

	query := SearchQuery{Bounds: geo.EmptyBoundingBox(), Range: geo.LodRange{Min: 14, Max: 14}}
	var visited []*geo.Element
	require.NoError(t, s.Search(query, collectElements(&visited), nil))
	assert.Empty(t, visited)
}

func TestInMemorySearchKeepsDistinctKindsWithSameID(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	r := geo.LodRange{Min: 14, Max: 14}

	// Node and way ID spaces are independent: the same numeric ID names
	// two different elements.
	node := nodeAt(table, 7, berlin, "amenity", "cafe")
	way := &geo.Element{
		ID:   7,
		Kind: geo.ElementWay,
		Geometry: []geo.GeoCoordinate{
			{Latitude: berlin.Latitude - 0.001, Longitude: berlin.Longitude - 0.001},
			{Latitude: berlin.Latitude + 0.001, Longitude: berlin.Longitude + 0.001},
		},
	}
	require.NoError(t, s.Store(node, r, AllStyles))
	require.NoError(t, s.Store(way, r, AllStyles))

	query := SearchQuery{
		Bounds: geo.BoundingBox{MinLon: 13.0, MaxLon: 14.0, MinLat: 52.0, MaxLat: 53.0},
		Range:  r,
	}
	var visited []*geo.Element
	require.NoError(t, s.Search(query, collectElements(&visited), nil))
	assert.Len(t, visited, 2)
}

func TestInMemoryStoreOriginNode(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	origin := geo.GeoCoordinate{}
	q := geo.NewQuadKey(origin, 14)

	accepted, err := s.StoreInTile(nodeAt(table, 1, origin), q, AllStyles)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.True(t, s.HasData(q))
}

func TestInMemoryEraseTile(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	q := geo.NewQuadKey(berlin, 14)

	_, err := s.StoreInTile(nodeAt(table, 1, berlin), q, AllStyles)
	require.NoError(t, err)
	require.True(t, s.HasData(q))

	require.NoError(t, s.EraseTile(q, geo.LodRange{Min: 14, Max: 14}))
	assert.False(t, s.HasData(q))
}

func TestInMemoryEraseBounds(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	r := geo.LodRange{Min: 14, Max: 14}

	require.NoError(t, s.Store(nodeAt(table, 1, berlin), r, AllStyles))
	require.NoError(t, s.Store(nodeAt(table, 2, sydney), r, AllStyles))

	erased := geo.BoundingBox{MinLon: 13.0, MaxLon: 14.0, MinLat: 52.0, MaxLat: 53.0}
	require.NoError(t, s.EraseBounds(erased, r))

	assert.False(t, s.HasData(geo.NewQuadKey(berlin, 14)))
	assert.True(t, s.HasData(geo.NewQuadKey(sydney, 14)), "elements outside the box survive")
}

func TestInMemoryEraseBoundsEmptyBoxIsNoop(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	r := geo.LodRange{Min: 14, Max: 14}
	require.NoError(t, s.Store(nodeAt(table, 1, berlin), r, AllStyles))

	require.NoError(t, s.EraseBounds(geo.EmptyBoundingBox(), r))
	assert.True(t, s.HasData(geo.NewQuadKey(berlin, 14)))
}

func TestInMemorySearchTileCancellation(t *testing.T) {
	table := geo.NewStringTable()
	s := NewInMemoryStore(table)
	q := geo.NewQuadKey(berlin, 14)
	_, err := s.StoreInTile(nodeAt(table, 1, berlin), q, AllStyles)
	require.NoError(t, err)

	token := &geo.CancelToken{}
	token.Cancel()

	var visited []*geo.Element
	require.NoError(t, s.SearchTile(q, collectElements(&visited), token))
	assert.Empty(t, visited)
}

package geo

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
)

// QuadKey identifies one tile of the quad-tree spatial partition: a level
// of detail plus the tile coordinates at that level.
type QuadKey struct {
	LevelOfDetail int
	TileX         int
	TileY         int
}

// NewQuadKey returns the quad key of the tile containing the coordinate
// at the given level of detail.
func NewQuadKey(c GeoCoordinate, levelOfDetail int) QuadKey {
	t := maptile.At(orb.Point{c.Longitude, c.Latitude}, maptile.Zoom(levelOfDetail))
	return FromTile(t)
}

// FromTile converts a maptile.Tile to a QuadKey.
func FromTile(t maptile.Tile) QuadKey {
	return QuadKey{
		LevelOfDetail: int(t.Z),
		TileX:         int(t.X),
		TileY:         int(t.Y),
	}
}

// Tile converts the quad key to a maptile.Tile.
func (q QuadKey) Tile() maptile.Tile {
	return maptile.New(uint32(q.TileX), uint32(q.TileY), maptile.Zoom(q.LevelOfDetail))
}

// BoundingBox returns the geographic extent of the tile.
func (q QuadKey) BoundingBox() BoundingBox {
	return FromBound(q.Tile().Bound())
}

// Parent returns the containing tile one level up. The parent of a
// level-zero tile is the tile itself.
func (q QuadKey) Parent() QuadKey {
	if q.LevelOfDetail == 0 {
		return q
	}
	return QuadKey{
		LevelOfDetail: q.LevelOfDetail - 1,
		TileX:         q.TileX / 2,
		TileY:         q.TileY / 2,
	}
}

// String returns the Bing-style quadkey path encoding, one digit per
// level. A level-zero key encodes as the empty string.
func (q QuadKey) String() string {
	var sb strings.Builder
	for lod := q.LevelOfDetail; lod > 0; lod-- {
		digit := byte('0')
		mask := 1 << (lod - 1)
		if q.TileX&mask != 0 {
			digit++
		}
		if q.TileY&mask != 0 {
			digit += 2
		}
		sb.WriteByte(digit)
	}
	return sb.String()
}

// QuadKeysIn returns the quad keys of every tile at the given level of
// detail that intersects the bounding box. An invalid box covers nothing.
func QuadKeysIn(box BoundingBox, levelOfDetail int) []QuadKey {
	if !box.IsValid() {
		return nil
	}
	set := tilecover.Bound(box.Bound(), maptile.Zoom(levelOfDetail))
	keys := make([]QuadKey, 0, len(set))
	for t := range set {
		keys = append(keys, FromTile(t))
	}
	return keys
}

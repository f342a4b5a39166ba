package geo

import "github.com/paulmach/orb"

// BoundingBox is a geographic min/max extent in WGS-84 decimal degrees.
//
// An inverted box (min above max on either axis) is empty: it is not
// valid, intersects nothing, and acts as the identity for Union. Parsers
// seed extent folds with EmptyBoundingBox. The zero value is a valid
// degenerate box covering the origin point.
type BoundingBox struct {
	MinLon float64 // Western edge
	MaxLon float64 // Eastern edge
	MinLat float64 // Southern edge
	MaxLat float64 // Northern edge
}

// NewBoundingBox builds a box from two corner coordinates.
func NewBoundingBox(min, max GeoCoordinate) BoundingBox {
	return BoundingBox{
		MinLon: min.Longitude,
		MaxLon: max.Longitude,
		MinLat: min.Latitude,
		MaxLat: max.Latitude,
	}
}

// EmptyBoundingBox returns the canonical empty box, the identity for
// Union and ExpandToInclude.
func EmptyBoundingBox() BoundingBox {
	return BoundingBox{MinLon: 180, MaxLon: -180, MinLat: 90, MaxLat: -90}
}

// IsValid reports whether the box spans a real extent. Empty (inverted)
// boxes are invalid; a single-point box is valid.
func (b BoundingBox) IsValid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat
}

// Contains returns true if the coordinate lies within the box.
func (b BoundingBox) Contains(c GeoCoordinate) bool {
	return c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon &&
		c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat
}

// Intersects returns true if the two boxes overlap. Invalid boxes
// intersect nothing.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	if !b.IsValid() || !other.IsValid() {
		return false
	}
	return !(other.MaxLon < b.MinLon ||
		other.MinLon > b.MaxLon ||
		other.MaxLat < b.MinLat ||
		other.MinLat > b.MaxLat)
}

// Union returns the smallest box covering both boxes. Either side may be
// the empty box, which is ignored.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	if !other.IsValid() {
		return b
	}
	if !b.IsValid() {
		return other
	}
	out := b
	if other.MinLon < out.MinLon {
		out.MinLon = other.MinLon
	}
	if other.MaxLon > out.MaxLon {
		out.MaxLon = other.MaxLon
	}
	if other.MinLat < out.MinLat {
		out.MinLat = other.MinLat
	}
	if other.MaxLat > out.MaxLat {
		out.MaxLat = other.MaxLat
	}
	return out
}

// ExpandToInclude returns the box grown to cover the coordinate.
func (b BoundingBox) ExpandToInclude(c GeoCoordinate) BoundingBox {
	point := BoundingBox{
		MinLon: c.Longitude, MaxLon: c.Longitude,
		MinLat: c.Latitude, MaxLat: c.Latitude,
	}
	return b.Union(point)
}

// Expand returns a new box grown by the given margin, in decimal degrees,
// in all directions.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		MinLon: b.MinLon - margin,
		MaxLon: b.MaxLon + margin,
		MinLat: b.MinLat - margin,
		MaxLat: b.MaxLat + margin,
	}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() GeoCoordinate {
	return GeoCoordinate{
		Latitude:  (b.MinLat + b.MaxLat) / 2,
		Longitude: (b.MinLon + b.MaxLon) / 2,
	}
}

// Bound converts the box to an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// FromBound converts an orb.Bound to a BoundingBox.
func FromBound(b orb.Bound) BoundingBox {
	return BoundingBox{
		MinLon: b.Min[0], MaxLon: b.Max[0],
		MinLat: b.Min[1], MaxLat: b.Max[1],
	}
}

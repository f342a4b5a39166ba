// Package geo holds the core geospatial model shared by parsers, stores
// and the coordinator: elements, coordinates, bounding boxes, quad-tree
// tiles, level-of-detail ranges, the string table and the cancellation
// token.
package geo

// GeoCoordinate is a WGS-84 position in decimal degrees.
type GeoCoordinate struct {
	Latitude  float64
	Longitude float64
}

// ElementKind identifies the shape of an element's geometry.
type ElementKind int

const (
	// ElementNode is a single point.
	ElementNode ElementKind = iota

	// ElementWay is an open sequence of points.
	ElementWay

	// ElementArea is a closed ring of points.
	ElementArea

	// ElementRelation groups other elements.
	ElementRelation
)

// String returns the human-readable name of the element kind.
func (k ElementKind) String() string {
	switch k {
	case ElementNode:
		return "Node"
	case ElementWay:
		return "Way"
	case ElementArea:
		return "Area"
	case ElementRelation:
		return "Relation"
	default:
		return "Unknown"
	}
}

// Tag is a key/value attribute pair. Both halves are string table IDs;
// resolve them through the StringTable the element was parsed with.
type Tag struct {
	Key   uint32
	Value uint32
}

// Element is an immutable parsed geographic feature.
//
// An element is produced once by a parser and offered by reference to an
// element store; the store owns it after acceptance. Nodes carry a single
// coordinate in Geometry, ways and areas carry the full vertex sequence,
// relations carry Members and leave Geometry empty.
type Element struct {
	ID       int64
	Kind     ElementKind
	Tags     []Tag
	Geometry []GeoCoordinate
	Members  []*Element
}

// BoundingBox returns the union extent of the element's geometry.
// For relations the extent is folded over all members. An element with
// no geometry at all yields the empty box.
func (e *Element) BoundingBox() BoundingBox {
	box := EmptyBoundingBox()
	for _, c := range e.Geometry {
		box = box.ExpandToInclude(c)
	}
	for _, m := range e.Members {
		box = box.Union(m.BoundingBox())
	}
	return box
}

// HasTag reports whether the element carries a tag with the given
// interned key.
func (e *Element) HasTag(key uint32) bool {
	for _, t := range e.Tags {
		if t.Key == key {
			return true
		}
	}
	return false
}

// ElementVisitor receives elements produced by a search.
type ElementVisitor interface {
	VisitElement(e *Element)
}

// ElementVisitorFunc adapts a function to the ElementVisitor interface.
type ElementVisitorFunc func(e *Element)

// VisitElement calls f(e).
func (f ElementVisitorFunc) VisitElement(e *Element) { f(e) }

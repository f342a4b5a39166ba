// Package geostore coordinates ingestion and search across named element
// stores.
//
// A GeoStore owns an ordered registry of ElementStore instances. Ingestion
// detects the file format, streams parsed elements into the target store
// under a tile or LOD scope, and performs best-effort rollback when the
// caller cancels. Search broadcasts to every registered store in key-sorted
// order.
package geostore

import "github.com/clublg/utymap/pkg/geo"

// ElementStore is a named, independently owned spatial index.
//
// Implementations decide acceptance themselves: an element offered under a
// tile or bounds scope may be rejected (wrong extent, no style at that
// level of detail) without that being an error. Each store manages its own
// internal concurrency contract; the coordinator adds no locking on top.
type ElementStore interface {
	// Store indexes the element for every level of detail in the range.
	Store(e *geo.Element, r geo.LodRange, style StyleProvider) error

	// StoreInTile offers the element scoped to a single tile and reports
	// whether the store accepted it.
	StoreInTile(e *geo.Element, q geo.QuadKey, style StyleProvider) (bool, error)

	// StoreInBounds offers the element scoped to a bounding box and LOD
	// range and reports whether the store accepted it.
	StoreInBounds(e *geo.Element, b geo.BoundingBox, r geo.LodRange, style StyleProvider) (bool, error)

	// EraseTile removes everything stored for the tile within the range.
	EraseTile(q geo.QuadKey, r geo.LodRange) error

	// EraseBounds removes everything intersecting the box within the range.
	EraseBounds(b geo.BoundingBox, r geo.LodRange) error

	// SearchTile visits every element stored for the tile. The token is
	// polled inside the store's own loop.
	SearchTile(q geo.QuadKey, visitor geo.ElementVisitor, token *geo.CancelToken) error

	// Search visits every element matching the query terms inside the
	// query's spatial and LOD scope.
	Search(query SearchQuery, visitor geo.ElementVisitor, token *geo.CancelToken) error

	// HasData reports whether the store holds any content for the tile.
	HasData(q geo.QuadKey) bool
}

// SearchQuery is an attribute/boolean-term query with spatial scope.
//
// An element matches when none of NotTerms, all of AndTerms and, if
// OrTerms is non-empty, at least one of OrTerms match it. A term matches
// an element when it equals one of the element's tag keys or values.
type SearchQuery struct {
	NotTerms []string
	AndTerms []string
	OrTerms  []string
	Bounds   geo.BoundingBox
	Range    geo.LodRange
}

// Matches reports whether the element satisfies the query's term sets.
// Terms are resolved against the string table the element was interned
// with; a term the table has never seen cannot match anything.
func (q SearchQuery) Matches(e *geo.Element, table *geo.StringTable) bool {
	ids := make(map[uint32]struct{}, len(e.Tags)*2)
	for _, t := range e.Tags {
		ids[t.Key] = struct{}{}
		ids[t.Value] = struct{}{}
	}
	has := func(term string) bool {
		id, ok := table.ID(term)
		if !ok {
			return false
		}
		_, ok = ids[id]
		return ok
	}

	for _, term := range q.NotTerms {
		if has(term) {
			return false
		}
	}
	for _, term := range q.AndTerms {
		if !has(term) {
			return false
		}
	}
	if len(q.OrTerms) > 0 {
		matched := false
		for _, term := range q.OrTerms {
			if has(term) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// elementKey identifies an element across the independent per-kind ID
// spaces: a node and a way may legitimately share a numeric ID.
type elementKey struct {
	kind geo.ElementKind
	id   int64
}

// StyleProvider resolves whether an element participates at a level of
// detail. It is passed through to stores, never interpreted by the
// coordinator.
type StyleProvider interface {
	HasStyle(e *geo.Element, levelOfDetail int) bool
}

// StyleProviderFunc adapts a function to the StyleProvider interface.
type StyleProviderFunc func(e *geo.Element, levelOfDetail int) bool

// HasStyle calls f(e, levelOfDetail).
func (f StyleProviderFunc) HasStyle(e *geo.Element, levelOfDetail int) bool {
	return f(e, levelOfDetail)
}

// AllStyles accepts every element at every level of detail.
var AllStyles StyleProvider = StyleProviderFunc(func(*geo.Element, int) bool { return true })

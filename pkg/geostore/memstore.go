package geostore

import (
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/clublg/utymap/pkg/geo"
)

// InMemoryStore is an ElementStore backed by one R-tree per quad-tree
// tile.
//
// Elements stored under an LOD range are duplicated into every tile they
// intersect at every level in the band, so tile search is a single R-tree
// scan. Term search deduplicates by element ID within one query. All
// methods are safe for concurrent use.
type InMemoryStore struct {
	table *geo.StringTable
	mu    sync.RWMutex
	tiles map[geo.QuadKey]*rtreego.Rtree
}

// NewInMemoryStore creates an empty in-memory store sharing the given
// string table.
func NewInMemoryStore(table *geo.StringTable) *InMemoryStore {
	return &InMemoryStore{
		table: table,
		tiles: make(map[geo.QuadKey]*rtreego.Rtree),
	}
}

// indexedElement wraps an element for R-tree storage.
type indexedElement struct {
	element *geo.Element
	bounds  geo.BoundingBox
}

// Bounds implements rtreego.Spatial.
func (ie *indexedElement) Bounds() rtreego.Rect {
	return rectFor(ie.bounds)
}

// rectFor converts a bounding box to an rtreego rect, padding degenerate
// extents: the R-tree requires non-zero dimensions, so point features get
// a small epsilon (~11 meters at the equator).
func rectFor(b geo.BoundingBox) rtreego.Rect {
	const epsilon = 0.0001
	lonLength := b.MaxLon - b.MinLon
	latLength := b.MaxLat - b.MinLat
	if lonLength < epsilon {
		lonLength = epsilon
	}
	if latLength < epsilon {
		latLength = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.MinLon, b.MinLat}, []float64{lonLength, latLength})
	return rect
}

// Store indexes the element into every tile it intersects at every level
// of detail in the range for which the style provider includes it.
func (s *InMemoryStore) Store(e *geo.Element, r geo.LodRange, style StyleProvider) error {
	box := e.BoundingBox()

	s.mu.Lock()
	defer s.mu.Unlock()
	for lod := r.Min; lod <= r.Max; lod++ {
		if style != nil && !style.HasStyle(e, lod) {
			continue
		}
		for _, q := range geo.QuadKeysIn(box, lod) {
			s.insertLocked(q, e, box)
		}
	}
	return nil
}

// StoreInTile offers the element scoped to a single tile. The element is
// rejected when its extent misses the tile or the style provider excludes
// it at the tile's level of detail.
func (s *InMemoryStore) StoreInTile(e *geo.Element, q geo.QuadKey, style StyleProvider) (bool, error) {
	if style != nil && !style.HasStyle(e, q.LevelOfDetail) {
		return false, nil
	}
	box := e.BoundingBox()
	if !box.Intersects(q.BoundingBox()) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(q, e, box)
	return true, nil
}

// StoreInBounds offers the element scoped to a bounding box and LOD
// range. Only tiles inside the scope box are touched.
func (s *InMemoryStore) StoreInBounds(e *geo.Element, b geo.BoundingBox, r geo.LodRange, style StyleProvider) (bool, error) {
	box := e.BoundingBox()
	if !box.Intersects(b) {
		return false, nil
	}

	accepted := false
	s.mu.Lock()
	defer s.mu.Unlock()
	for lod := r.Min; lod <= r.Max; lod++ {
		if style != nil && !style.HasStyle(e, lod) {
			continue
		}
		for _, q := range geo.QuadKeysIn(box, lod) {
			if !q.BoundingBox().Intersects(b) {
				continue
			}
			s.insertLocked(q, e, box)
			accepted = true
		}
	}
	return accepted, nil
}

func (s *InMemoryStore) insertLocked(q geo.QuadKey, e *geo.Element, box geo.BoundingBox) {
	tree, ok := s.tiles[q]
	if !ok {
		tree = rtreego.NewTree(2, 25, 50)
		s.tiles[q] = tree
	}
	tree.Insert(&indexedElement{element: e, bounds: box})
}

// EraseTile drops everything stored for the tile.
func (s *InMemoryStore) EraseTile(q geo.QuadKey, _ geo.LodRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tiles, q)
	return nil
}

// EraseBounds removes every element whose extent intersects the box from
// every tile in the LOD range.
func (s *InMemoryStore) EraseBounds(b geo.BoundingBox, r geo.LodRange) error {
	if !b.IsValid() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rect := rectFor(b)
	for lod := r.Min; lod <= r.Max; lod++ {
		for _, q := range geo.QuadKeysIn(b, lod) {
			tree, ok := s.tiles[q]
			if !ok {
				continue
			}
			for _, hit := range tree.SearchIntersect(rect) {
				tree.Delete(hit.(*indexedElement))
			}
			if tree.Size() == 0 {
				delete(s.tiles, q)
			}
		}
	}
	return nil
}

// SearchTile visits every element stored for the tile, polling the token
// between elements.
func (s *InMemoryStore) SearchTile(q geo.QuadKey, visitor geo.ElementVisitor, token *geo.CancelToken) error {
	s.mu.RLock()
	tree, ok := s.tiles[q]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	hits := tree.SearchIntersect(rectFor(q.BoundingBox()))
	s.mu.RUnlock()

	for _, hit := range hits {
		if token.IsCancelled() {
			return nil
		}
		visitor.VisitElement(hit.(*indexedElement).element)
	}
	return nil
}

// Search visits every element inside the query's spatial and LOD scope
// whose tags satisfy the term sets. An element duplicated across tiles or
// levels is visited once.
func (s *InMemoryStore) Search(query SearchQuery, visitor geo.ElementVisitor, token *geo.CancelToken) error {
	if !query.Bounds.IsValid() {
		return nil
	}

	s.mu.RLock()
	rect := rectFor(query.Bounds)
	var candidates []*indexedElement
	for lod := query.Range.Min; lod <= query.Range.Max; lod++ {
		for _, q := range geo.QuadKeysIn(query.Bounds, lod) {
			tree, ok := s.tiles[q]
			if !ok {
				continue
			}
			for _, hit := range tree.SearchIntersect(rect) {
				candidates = append(candidates, hit.(*indexedElement))
			}
		}
	}
	s.mu.RUnlock()

	seen := make(map[elementKey]struct{})
	for _, ie := range candidates {
		if token.IsCancelled() {
			return nil
		}
		key := elementKey{kind: ie.element.Kind, id: ie.element.ID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if !ie.bounds.Intersects(query.Bounds) {
			continue
		}
		if !query.Matches(ie.element, s.table) {
			continue
		}
		visitor.VisitElement(ie.element)
	}
	return nil
}

// HasData reports whether the tile holds any elements.
func (s *InMemoryStore) HasData(q geo.QuadKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.tiles[q]
	return ok && tree.Size() > 0
}

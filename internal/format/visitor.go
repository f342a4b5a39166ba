package format

import (
	"log/slog"

	"github.com/clublg/utymap/pkg/geo"
)

// AcceptFunc is the offer-element-to-store strategy supplied by the
// dispatcher. It reports whether the store accepted the element. An error
// aborts the whole parse; a rejection does not.
type AcceptFunc func(e *geo.Element) (bool, error)

// dataVisitor receives raw records from a parser, converts them to
// elements and offers each one through the accept callback.
//
// The cancellation token is polled once per record; after cancellation
// every remaining record is dropped without conversion. Extents of
// accepted elements are folded into a running union bounding box, which
// complete returns.
//
// Node coordinates and converted elements are remembered so that ways and
// relations appearing later in the stream can resolve their references.
// References to objects missing from the source are skipped and counted.
type dataVisitor struct {
	table  *geo.StringTable
	accept AcceptFunc
	token  *geo.CancelToken

	bounds geo.BoundingBox

	nodes    map[int64]geo.GeoCoordinate
	elements map[elementRef]*geo.Element

	visited    int
	acceptedN  int
	unresolved int
}

// elementRef identifies a previously converted element for relation
// member resolution.
type elementRef struct {
	kind geo.ElementKind
	id   int64
}

func newDataVisitor(table *geo.StringTable, token *geo.CancelToken, accept AcceptFunc) *dataVisitor {
	return &dataVisitor{
		table:    table,
		accept:   accept,
		token:    token,
		bounds:   geo.EmptyBoundingBox(),
		nodes:    make(map[int64]geo.GeoCoordinate),
		elements: make(map[elementRef]*geo.Element),
	}
}

// visit offers one converted element. Returns false when the parse should
// stop (cancellation); a non-nil error aborts the parse entirely.
func (v *dataVisitor) visit(e *geo.Element) (bool, error) {
	if v.token.IsCancelled() {
		return false, nil
	}
	v.visited++
	v.elements[elementRef{kind: e.Kind, id: e.ID}] = e

	accepted, err := v.accept(e)
	if err != nil {
		return false, err
	}
	if accepted {
		v.acceptedN++
		v.bounds = v.bounds.Union(e.BoundingBox())
	}
	return true, nil
}

// resolveCoordinates maps node references to remembered coordinates.
// Returns nil if any reference is unresolved.
func (v *dataVisitor) resolveCoordinates(refs []int64) []geo.GeoCoordinate {
	coords := make([]geo.GeoCoordinate, 0, len(refs))
	for _, ref := range refs {
		c, ok := v.nodes[ref]
		if !ok {
			v.unresolved++
			return nil
		}
		coords = append(coords, c)
	}
	return coords
}

// complete returns the accumulated union bounding box of accepted
// elements and logs a summary of the pass.
func (v *dataVisitor) complete() geo.BoundingBox {
	if v.unresolved > 0 {
		slog.Debug("parse pass finished with unresolved references",
			"visited", v.visited, "accepted", v.acceptedN, "unresolved", v.unresolved)
	}
	return v.bounds
}

// wayKind distinguishes closed rings from open ways.
func wayKind(coords []geo.GeoCoordinate) geo.ElementKind {
	if len(coords) >= 4 && coords[0] == coords[len(coords)-1] {
		return geo.ElementArea
	}
	return geo.ElementWay
}

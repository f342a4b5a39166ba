package format

import (
	"github.com/clublg/utymap/pkg/geo"
)

// Parse detects the format of the file at path, streams its records
// through a visitor bound to accept, and returns the union bounding box
// of the elements the callback accepted.
//
// The token is polled at per-element granularity; after cancellation the
// remaining records are discarded and Parse returns normally with the
// extent accumulated so far. Parser-level failures (I/O, malformed data)
// propagate unmodified.
func Parse(path string, table *geo.StringTable, token *geo.CancelToken, accept AcceptFunc) (geo.BoundingBox, error) {
	visitor := newDataVisitor(table, token, accept)
	kind := Detect(path)

	switch kind {
	case KindShape:
		if err := parseShape(path, visitor); err != nil {
			return geo.EmptyBoundingBox(), err
		}
	case KindXML:
		f, err := openSource(path)
		if err != nil {
			return geo.EmptyBoundingBox(), err
		}
		defer f.Close()
		if err := parseOSMXML(f, visitor); err != nil {
			return geo.EmptyBoundingBox(), err
		}
	case KindJSON:
		f, err := openSource(path)
		if err != nil {
			return geo.EmptyBoundingBox(), err
		}
		defer f.Close()
		if err := parseOSMJSON(f, visitor); err != nil {
			return geo.EmptyBoundingBox(), err
		}
	case KindPbf:
		f, err := openSource(path)
		if err != nil {
			return geo.EmptyBoundingBox(), err
		}
		defer f.Close()
		if err := parseOSMPbf(f, visitor); err != nil {
			return geo.EmptyBoundingBox(), err
		}
	default:
		return geo.EmptyBoundingBox(), &UnsupportedFormatError{Path: path, Kind: kind}
	}

	return visitor.complete(), nil
}

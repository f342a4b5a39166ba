// Package format detects map-data file formats and streams parsed
// elements into an acceptance callback.
package format

import (
	"fmt"
	"strings"
)

// Kind is a detected file-format category.
type Kind int

const (
	// KindShape is the ESRI shapefile format. It is also the fallback for
	// unrecognized suffixes.
	KindShape Kind = iota

	// KindXML is OSM XML.
	KindXML

	// KindJSON is OSM JSON in the Overpass format.
	KindJSON

	// KindPbf is the OSM protocolbuffer binary format.
	KindPbf
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindShape:
		return "Shape"
	case KindXML:
		return "Xml"
	case KindJSON:
		return "Json"
	case KindPbf:
		return "Pbf"
	default:
		return "Unknown"
	}
}

// Detect maps a file path to a format kind by case-sensitive suffix
// inspection, in precedence order pbf, xml, json. Anything else,
// including paths with no extension at all, falls back to Shape.
// There is no content sniffing.
func Detect(path string) Kind {
	switch {
	case strings.HasSuffix(path, "pbf"):
		return KindPbf
	case strings.HasSuffix(path, "xml"):
		return KindXML
	case strings.HasSuffix(path, "json"):
		return KindJSON
	default:
		return KindShape
	}
}

// UnsupportedFormatError indicates a parse was requested for a format
// kind with no parser bound. With the Shape fallback in place every
// suffix maps to a parser, so this is only reachable through an
// out-of-range Kind value.
type UnsupportedFormatError struct {
	Path string
	Kind Kind
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %s for %q", e.Kind, e.Path)
}

package format

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"github.com/clublg/utymap/pkg/geo"
)

// parseOSMXML streams an OSM XML document through the visitor.
func parseOSMXML(r io.Reader, v *dataVisitor) error {
	return scanOSM(osmxml.New(context.Background(), r), v)
}

// parseOSMPbf streams an OSM PBF extract through the visitor. Decoding
// runs on all cores; element delivery stays sequential in this goroutine.
func parseOSMPbf(r io.Reader, v *dataVisitor) error {
	return scanOSM(osmpbf.New(context.Background(), r, runtime.GOMAXPROCS(0)), v)
}

// parseOSMJSON reads a whole OSM JSON (Overpass format) document and
// feeds its objects through the visitor. The format is not streamable:
// it is a single JSON object with one elements array.
func parseOSMJSON(r io.Reader, v *dataVisitor) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read json: %w", err)
	}

	var doc osm.OSM
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	for _, obj := range doc.Objects() {
		cont, err := visitOSMObject(v, obj)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// scanOSM drains an osm.Scanner into the visitor, polling the token
// between records.
func scanOSM(scanner osm.Scanner, v *dataVisitor) error {
	defer scanner.Close()

	for scanner.Scan() {
		cont, err := visitOSMObject(v, scanner.Object())
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return scanner.Err()
}

// visitOSMObject converts one OSM object to an element and offers it.
// Objects that cannot be resolved against earlier records (ways whose
// nodes are missing from the source, relations with no known members)
// are skipped, not fatal.
func visitOSMObject(v *dataVisitor, obj osm.Object) (bool, error) {
	if v.token.IsCancelled() {
		return false, nil
	}

	switch o := obj.(type) {
	case *osm.Node:
		coord := geo.GeoCoordinate{Latitude: o.Lat, Longitude: o.Lon}
		v.nodes[int64(o.ID)] = coord
		return v.visit(&geo.Element{
			ID:       int64(o.ID),
			Kind:     geo.ElementNode,
			Tags:     internOSMTags(v, o.Tags),
			Geometry: []geo.GeoCoordinate{coord},
		})

	case *osm.Way:
		refs := make([]int64, 0, len(o.Nodes))
		for _, wn := range o.Nodes {
			refs = append(refs, int64(wn.ID))
		}
		coords := v.resolveCoordinates(refs)
		if coords == nil {
			return true, nil
		}
		return v.visit(&geo.Element{
			ID:       int64(o.ID),
			Kind:     wayKind(coords),
			Tags:     internOSMTags(v, o.Tags),
			Geometry: coords,
		})

	case *osm.Relation:
		var members []*geo.Element
		for _, m := range o.Members {
			ref := elementRef{id: m.Ref}
			switch m.Type {
			case osm.TypeNode:
				ref.kind = geo.ElementNode
			case osm.TypeWay:
				ref.kind = geo.ElementWay
			case osm.TypeRelation:
				ref.kind = geo.ElementRelation
			default:
				continue
			}
			member, ok := v.elements[ref]
			if !ok && ref.kind == geo.ElementWay {
				// Closed ways are remembered as areas.
				member, ok = v.elements[elementRef{kind: geo.ElementArea, id: m.Ref}]
			}
			if !ok {
				v.unresolved++
				continue
			}
			members = append(members, member)
		}
		if len(members) == 0 {
			return true, nil
		}
		return v.visit(&geo.Element{
			ID:      int64(o.ID),
			Kind:    geo.ElementRelation,
			Tags:    internOSMTags(v, o.Tags),
			Members: members,
		})

	default:
		// Bounds, changesets, notes and users carry no map geometry.
		return true, nil
	}
}

func internOSMTags(v *dataVisitor, tags osm.Tags) []geo.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]geo.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, geo.Tag{
			Key:   v.table.Intern(t.Key),
			Value: v.table.Intern(t.Value),
		})
	}
	return out
}

// openSource opens the file backing a parse pass.
func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return f, nil
}

package format

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/clublg/utymap/pkg/geo"
)

// ESRI shapefile shape types, per the ESRI Shapefile Technical
// Description (July 1998), table 1. Only the 2D types carrying map
// geometry are converted; everything else is skipped.
const (
	shapeNull       = 0
	shapePoint      = 1
	shapePolyLine   = 3
	shapePolygon    = 5
	shapeMultiPoint = 8
)

const shapeFileCode = 9994 // .shp header magic, big-endian at offset 0

// parseShape reads an ESRI shapefile and feeds its records through the
// visitor. Attributes come from the .dbf sidecar next to the .shp file
// when one exists; a missing sidecar simply yields untagged elements.
//
// Multi-part records produce one element per part, all sharing the
// record's attributes. Part elements get synthetic IDs composed from the
// record number and part index so they stay unique within the file.
func parseShape(path string, v *dataVisitor) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	if len(data) < 100 {
		return fmt.Errorf("shapefile %s: truncated header (%d bytes)", path, len(data))
	}
	if binary.BigEndian.Uint32(data[0:4]) != shapeFileCode {
		return fmt.Errorf("shapefile %s: bad file code", path)
	}

	attrs := readDBF(attributePath(path))

	// Records start right after the 100-byte header. Each record is an
	// 8-byte header (record number, content length in 16-bit words, both
	// big-endian) followed by the content.
	offset := 100
	record := 0
	for offset+8 <= len(data) {
		recordNum := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		contentLen := int(binary.BigEndian.Uint32(data[offset+4:offset+8])) * 2
		offset += 8
		if offset+contentLen > len(data) {
			return fmt.Errorf("shapefile %s: record %d overruns file", path, recordNum)
		}
		content := data[offset : offset+contentLen]
		offset += contentLen

		var tags []geo.Tag
		if record < len(attrs) {
			tags = internShapeTags(v, attrs[record])
		}
		record++

		cont, err := visitShapeRecord(v, recordNum, content, tags)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// visitShapeRecord decodes one .shp record and offers the resulting
// elements. Record content is little-endian: shape type at offset 0,
// geometry after.
func visitShapeRecord(v *dataVisitor, recordNum int, content []byte, tags []geo.Tag) (bool, error) {
	if len(content) < 4 {
		return true, nil
	}
	shapeType := int(binary.LittleEndian.Uint32(content[0:4]))
	body := content[4:]

	switch shapeType {
	case shapeNull:
		return true, nil

	case shapePoint:
		// X, Y as two doubles at offsets 4 and 12.
		if len(body) < 16 {
			return true, nil
		}
		coord := readShapeCoordinate(body, 0)
		return v.visit(&geo.Element{
			ID:       int64(recordNum),
			Kind:     geo.ElementNode,
			Tags:     tags,
			Geometry: []geo.GeoCoordinate{coord},
		})

	case shapeMultiPoint:
		// Box (4 doubles), NumPoints, then the points.
		if len(body) < 36 {
			return true, nil
		}
		numPoints := int(binary.LittleEndian.Uint32(body[32:36]))
		points := body[36:]
		if len(points) < numPoints*16 {
			return true, nil
		}
		for i := 0; i < numPoints; i++ {
			coord := readShapeCoordinate(points, i*16)
			cont, err := v.visit(&geo.Element{
				ID:       partID(recordNum, i),
				Kind:     geo.ElementNode,
				Tags:     tags,
				Geometry: []geo.GeoCoordinate{coord},
			})
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil

	case shapePolyLine, shapePolygon:
		return visitShapeParts(v, recordNum, shapeType, body, tags)

	default:
		slog.Debug("skipping unsupported shape type", "type", shapeType, "record", recordNum)
		return true, nil
	}
}

// visitShapeParts decodes the shared PolyLine/Polygon layout: box
// (4 doubles), NumParts, NumPoints, the part start indexes, then the
// point array. Polygon parts become areas, polyline parts become ways.
func visitShapeParts(v *dataVisitor, recordNum, shapeType int, body []byte, tags []geo.Tag) (bool, error) {
	if len(body) < 40 {
		return true, nil
	}
	numParts := int(binary.LittleEndian.Uint32(body[32:36]))
	numPoints := int(binary.LittleEndian.Uint32(body[36:40]))
	if numParts <= 0 || numPoints <= 0 {
		return true, nil
	}
	partsEnd := 40 + numParts*4
	pointsEnd := partsEnd + numPoints*16
	if len(body) < pointsEnd {
		return true, nil
	}

	starts := make([]int, numParts+1)
	for i := 0; i < numParts; i++ {
		starts[i] = int(binary.LittleEndian.Uint32(body[40+i*4 : 44+i*4]))
	}
	starts[numParts] = numPoints

	kind := geo.ElementWay
	if shapeType == shapePolygon {
		kind = geo.ElementArea
	}

	points := body[partsEnd:pointsEnd]
	for part := 0; part < numParts; part++ {
		from, to := starts[part], starts[part+1]
		if from < 0 || to > numPoints || from >= to {
			continue
		}
		coords := make([]geo.GeoCoordinate, 0, to-from)
		for i := from; i < to; i++ {
			coords = append(coords, readShapeCoordinate(points, i*16))
		}
		id := int64(recordNum)
		if numParts > 1 {
			id = partID(recordNum, part)
		}
		cont, err := v.visit(&geo.Element{
			ID:       id,
			Kind:     kind,
			Tags:     tags,
			Geometry: coords,
		})
		if err != nil || !cont {
			return cont, err
		}
	}
	return true, nil
}

// readShapeCoordinate reads an X,Y double pair at the given offset.
// Shapefile X is longitude, Y is latitude.
func readShapeCoordinate(data []byte, offset int) geo.GeoCoordinate {
	x := math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
	y := math.Float64frombits(binary.LittleEndian.Uint64(data[offset+8 : offset+16]))
	return geo.GeoCoordinate{Latitude: y, Longitude: x}
}

// partID builds a synthetic element ID for one part of a multi-part
// record.
func partID(recordNum, part int) int64 {
	return int64(recordNum)<<16 | int64(part&0xffff)
}

// attributePath maps a .shp path to its .dbf sidecar.
func attributePath(path string) string {
	if strings.HasSuffix(path, ".shp") {
		return strings.TrimSuffix(path, ".shp") + ".dbf"
	}
	return path + ".dbf"
}

// shapeAttribute is one named .dbf column value.
type shapeAttribute struct {
	name  string
	value string
}

// readDBF reads the dBASE attribute table next to a shapefile and returns
// per-record attribute lists. Any failure yields no attributes; the
// sidecar is optional and never fails a parse.
//
// dBASE III layout: 32-byte header (record count as uint32 at offset 4,
// header size at offset 8, record size at offset 10), then 32-byte field
// descriptors (name in bytes 0-10, length at byte 16) terminated by 0x0D,
// then fixed-width records each starting with a deletion flag byte.
func readDBF(path string) [][]shapeAttribute {
	data, err := os.ReadFile(path)
	if err != nil || len(data) < 32 {
		return nil
	}

	recordCount := int(binary.LittleEndian.Uint32(data[4:8]))
	headerSize := int(binary.LittleEndian.Uint16(data[8:10]))
	recordSize := int(binary.LittleEndian.Uint16(data[10:12]))
	if headerSize > len(data) || recordSize <= 0 {
		return nil
	}
	// Never trust the claimed count past what the file can hold.
	if maxRecords := (len(data) - headerSize) / recordSize; recordCount > maxRecords {
		recordCount = maxRecords
	}

	type dbfField struct {
		name   string
		length int
	}
	var fields []dbfField
	for off := 32; off+32 <= headerSize && data[off] != 0x0d; off += 32 {
		name := strings.TrimRight(string(data[off:off+11]), "\x00 ")
		fields = append(fields, dbfField{name: name, length: int(data[off+16])})
	}

	records := make([][]shapeAttribute, 0, recordCount)
	for i := 0; i < recordCount; i++ {
		off := headerSize + i*recordSize
		if off+recordSize > len(data) {
			break
		}
		if data[off] == '*' { // deleted record
			records = append(records, nil)
			continue
		}
		var attrs []shapeAttribute
		fieldOff := off + 1
		for _, f := range fields {
			if fieldOff+f.length > len(data) {
				break
			}
			value := strings.TrimSpace(strings.TrimRight(string(data[fieldOff:fieldOff+f.length]), "\x00"))
			if value != "" {
				attrs = append(attrs, shapeAttribute{name: f.name, value: value})
			}
			fieldOff += f.length
		}
		records = append(records, attrs)
	}
	return records
}

func internShapeTags(v *dataVisitor, attrs []shapeAttribute) []geo.Tag {
	if len(attrs) == 0 {
		return nil
	}
	tags := make([]geo.Tag, 0, len(attrs))
	for _, a := range attrs {
		tags = append(tags, geo.Tag{
			Key:   v.table.Intern(a.name),
			Value: v.table.Intern(a.value),
		})
	}
	return tags
}

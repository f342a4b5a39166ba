package format

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clublg/utymap/pkg/geo"
)

// shpWriter assembles a minimal .shp file in memory.
type shpWriter struct {
	records bytes.Buffer
	number  int
}

func (w *shpWriter) addRecord(content []byte) {
	w.number++
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(w.number))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(content)/2))
	w.records.Write(header[:])
	w.records.Write(content)
}

func (w *shpWriter) addPoint(lon, lat float64) {
	var buf bytes.Buffer
	writeLE(&buf, uint32(shapePoint))
	writeDouble(&buf, lon)
	writeDouble(&buf, lat)
	w.addRecord(buf.Bytes())
}

func (w *shpWriter) addPoly(shapeType int, parts [][][2]float64) {
	var buf bytes.Buffer
	writeLE(&buf, uint32(shapeType))
	for i := 0; i < 4; i++ { // box, ignored by the reader
		writeDouble(&buf, 0)
	}
	total := 0
	for _, part := range parts {
		total += len(part)
	}
	writeLE(&buf, uint32(len(parts)))
	writeLE(&buf, uint32(total))
	start := 0
	for _, part := range parts {
		writeLE(&buf, uint32(start))
		start += len(part)
	}
	for _, part := range parts {
		for _, p := range part {
			writeDouble(&buf, p[0])
			writeDouble(&buf, p[1])
		}
	}
	w.addRecord(buf.Bytes())
}

func (w *shpWriter) bytes() []byte {
	var out bytes.Buffer
	header := make([]byte, 100)
	binary.BigEndian.PutUint32(header[0:4], shapeFileCode)
	binary.BigEndian.PutUint32(header[24:28], uint32((100+w.records.Len())/2))
	binary.LittleEndian.PutUint32(header[28:32], 1000) // version
	out.Write(header)
	out.Write(w.records.Bytes())
	return out.Bytes()
}

func writeLE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeDouble(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

// buildDBF assembles a single-column dBASE attribute table.
func buildDBF(field string, values []string, width int) []byte {
	var out bytes.Buffer
	headerSize := 32 + 32 + 1
	recordSize := 1 + width

	header := make([]byte, 32)
	header[0] = 0x03
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(values)))
	binary.LittleEndian.PutUint16(header[8:10], uint16(headerSize))
	binary.LittleEndian.PutUint16(header[10:12], uint16(recordSize))
	out.Write(header)

	descriptor := make([]byte, 32)
	copy(descriptor[0:11], field)
	descriptor[11] = 'C'
	descriptor[16] = byte(width)
	out.Write(descriptor)
	out.WriteByte(0x0d)

	for _, v := range values {
		out.WriteByte(' ')
		padded := make([]byte, width)
		for i := range padded {
			padded[i] = ' '
		}
		copy(padded, v)
		out.Write(padded)
	}
	return out.Bytes()
}

func TestParseShapePoints(t *testing.T) {
	w := &shpWriter{}
	w.addPoint(13.30, 52.50)
	w.addPoint(13.40, 52.60)

	dir := t.TempDir()
	path := filepath.Join(dir, "region.shp")
	require.NoError(t, os.WriteFile(path, w.bytes(), 0o644))

	table := geo.NewStringTable()
	var elements []*geo.Element
	box, err := Parse(path, table, nil, acceptAll(&elements))
	require.NoError(t, err)

	require.Len(t, elements, 2)
	assert.Equal(t, geo.ElementNode, elements[0].Kind)
	assert.Equal(t, geo.GeoCoordinate{Latitude: 52.50, Longitude: 13.30}, elements[0].Geometry[0])
	assert.Equal(t, geo.BoundingBox{MinLon: 13.30, MaxLon: 13.40, MinLat: 52.50, MaxLat: 52.60}, box)
}

func TestParseShapePolygonAndPolyline(t *testing.T) {
	w := &shpWriter{}
	w.addPoly(shapePolyLine, [][][2]float64{{{13.0, 52.0}, {13.1, 52.1}}})
	w.addPoly(shapePolygon, [][][2]float64{{{13.0, 52.0}, {13.1, 52.0}, {13.1, 52.1}, {13.0, 52.0}}})

	path := filepath.Join(t.TempDir(), "region.shp")
	require.NoError(t, os.WriteFile(path, w.bytes(), 0o644))

	table := geo.NewStringTable()
	var elements []*geo.Element
	_, err := Parse(path, table, nil, acceptAll(&elements))
	require.NoError(t, err)

	require.Len(t, elements, 2)
	assert.Equal(t, geo.ElementWay, elements[0].Kind)
	assert.Len(t, elements[0].Geometry, 2)
	assert.Equal(t, geo.ElementArea, elements[1].Kind)
	assert.Len(t, elements[1].Geometry, 4)
}

func TestParseShapeMultiPartRecord(t *testing.T) {
	w := &shpWriter{}
	w.addPoly(shapePolyLine, [][][2]float64{
		{{13.0, 52.0}, {13.1, 52.1}},
		{{14.0, 53.0}, {14.1, 53.1}, {14.2, 53.2}},
	})

	path := filepath.Join(t.TempDir(), "region.shp")
	require.NoError(t, os.WriteFile(path, w.bytes(), 0o644))

	table := geo.NewStringTable()
	var elements []*geo.Element
	_, err := Parse(path, table, nil, acceptAll(&elements))
	require.NoError(t, err)

	// One element per part, with distinct synthetic IDs.
	require.Len(t, elements, 2)
	assert.NotEqual(t, elements[0].ID, elements[1].ID)
	assert.Len(t, elements[0].Geometry, 2)
	assert.Len(t, elements[1].Geometry, 3)
}

func TestParseShapeWithAttributes(t *testing.T) {
	w := &shpWriter{}
	w.addPoint(13.30, 52.50)
	w.addPoint(13.40, 52.60)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region.shp"), w.bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region.dbf"),
		buildDBF("NAME", []string{"alpha", "beta"}, 10), 0o644))

	table := geo.NewStringTable()
	var elements []*geo.Element
	_, err := Parse(filepath.Join(dir, "region.shp"), table, nil, acceptAll(&elements))
	require.NoError(t, err)
	require.Len(t, elements, 2)

	name, ok := table.ID("NAME")
	require.True(t, ok)
	assert.True(t, elements[0].HasTag(name))

	alpha, ok := table.ID("alpha")
	require.True(t, ok)
	assert.Equal(t, alpha, elements[0].Tags[0].Value)
	beta, ok := table.ID("beta")
	require.True(t, ok)
	assert.Equal(t, beta, elements[1].Tags[0].Value)
}

func TestParseShapeOversizedAttributeCount(t *testing.T) {
	w := &shpWriter{}
	w.addPoint(13.30, 52.50)
	w.addPoint(13.40, 52.60)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region.shp"), w.bytes(), 0o644))

	// The header claims ~4G records; the reader must clamp to what the
	// file actually holds instead of allocating for the claim.
	dbf := buildDBF("NAME", []string{"alpha", "beta"}, 10)
	binary.LittleEndian.PutUint32(dbf[4:8], 0xfffffff0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region.dbf"), dbf, 0o644))

	table := geo.NewStringTable()
	var elements []*geo.Element
	_, err := Parse(filepath.Join(dir, "region.shp"), table, nil, acceptAll(&elements))
	require.NoError(t, err)
	require.Len(t, elements, 2)

	name, ok := table.ID("NAME")
	require.True(t, ok)
	assert.True(t, elements[0].HasTag(name))
	assert.True(t, elements[1].HasTag(name))
}

func TestParseShapeBadFileCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.shp")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	table := geo.NewStringTable()
	_, err := Parse(path, table, nil, func(*geo.Element) (bool, error) { return true, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad file code")
}

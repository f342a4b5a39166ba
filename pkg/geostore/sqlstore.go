package geostore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/clublg/utymap/pkg/geo"
)

// SQLiteStore is a persistent ElementStore on a single SQLite database.
//
// Rows are keyed by (lod, tile, kind, element), so an element indexed for a
// whole LOD range occupies one row per tile per level. Geometry is a
// packed coordinate blob; tags are stored resolved, as JSON pairs, and
// re-interned on read. Relations are persisted flat: member geometry is
// folded into the row, member structure is not reconstructed.
type SQLiteStore struct {
	db    *sql.DB
	table *geo.StringTable
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, table *geo.StringTable) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db, table: table}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS elements (
		element_id INTEGER NOT NULL,
		lod        INTEGER NOT NULL,
		tile_x     INTEGER NOT NULL,
		tile_y     INTEGER NOT NULL,
		kind       INTEGER NOT NULL,
		min_lon    REAL NOT NULL,
		min_lat    REAL NOT NULL,
		max_lon    REAL NOT NULL,
		max_lat    REAL NOT NULL,
		tags       TEXT NOT NULL,
		geometry   BLOB NOT NULL,
		PRIMARY KEY (lod, tile_x, tile_y, kind, element_id)
	);

	CREATE INDEX IF NOT EXISTS idx_elements_extent
		ON elements(lod, min_lon, max_lon, min_lat, max_lat);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Store indexes the element into every tile it intersects at every level
// of detail in the range for which the style provider includes it.
func (s *SQLiteStore) Store(e *geo.Element, r geo.LodRange, style StyleProvider) error {
	box := e.BoundingBox()
	for lod := r.Min; lod <= r.Max; lod++ {
		if style != nil && !style.HasStyle(e, lod) {
			continue
		}
		for _, q := range geo.QuadKeysIn(box, lod) {
			if err := s.insert(e, q, box); err != nil {
				return err
			}
		}
	}
	return nil
}

// StoreInTile offers the element scoped to a single tile.
func (s *SQLiteStore) StoreInTile(e *geo.Element, q geo.QuadKey, style StyleProvider) (bool, error) {
	if style != nil && !style.HasStyle(e, q.LevelOfDetail) {
		return false, nil
	}
	box := e.BoundingBox()
	if !box.Intersects(q.BoundingBox()) {
		return false, nil
	}
	if err := s.insert(e, q, box); err != nil {
		return false, err
	}
	return true, nil
}

// StoreInBounds offers the element scoped to a bounding box and LOD
// range.
func (s *SQLiteStore) StoreInBounds(e *geo.Element, b geo.BoundingBox, r geo.LodRange, style StyleProvider) (bool, error) {
	box := e.BoundingBox()
	if !box.Intersects(b) {
		return false, nil
	}

	accepted := false
	for lod := r.Min; lod <= r.Max; lod++ {
		if style != nil && !style.HasStyle(e, lod) {
			continue
		}
		for _, q := range geo.QuadKeysIn(box, lod) {
			if !q.BoundingBox().Intersects(b) {
				continue
			}
			if err := s.insert(e, q, box); err != nil {
				return false, err
			}
			accepted = true
		}
	}
	return accepted, nil
}

func (s *SQLiteStore) insert(e *geo.Element, q geo.QuadKey, box geo.BoundingBox) error {
	tags, err := s.encodeTags(e.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO elements
			(element_id, lod, tile_x, tile_y, kind,
			 min_lon, min_lat, max_lon, max_lat, tags, geometry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, q.LevelOfDetail, q.TileX, q.TileY, int(e.Kind),
		box.MinLon, box.MinLat, box.MaxLon, box.MaxLat,
		tags, encodeGeometry(e))
	if err != nil {
		return fmt.Errorf("store element %d: %w", e.ID, err)
	}
	return nil
}

// EraseTile deletes every row stored for the tile.
func (s *SQLiteStore) EraseTile(q geo.QuadKey, _ geo.LodRange) error {
	_, err := s.db.Exec(
		`DELETE FROM elements WHERE lod = ? AND tile_x = ? AND tile_y = ?`,
		q.LevelOfDetail, q.TileX, q.TileY)
	if err != nil {
		return fmt.Errorf("erase tile %s: %w", q.String(), err)
	}
	return nil
}

// EraseBounds deletes every row whose extent intersects the box within
// the LOD range.
func (s *SQLiteStore) EraseBounds(b geo.BoundingBox, r geo.LodRange) error {
	if !b.IsValid() {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM elements
		WHERE lod BETWEEN ? AND ?
		  AND max_lon >= ? AND min_lon <= ?
		  AND max_lat >= ? AND min_lat <= ?`,
		r.Min, r.Max, b.MinLon, b.MaxLon, b.MinLat, b.MaxLat)
	if err != nil {
		return fmt.Errorf("erase bounds: %w", err)
	}
	return nil
}

// SearchTile visits every element stored for the tile.
func (s *SQLiteStore) SearchTile(q geo.QuadKey, visitor geo.ElementVisitor, token *geo.CancelToken) error {
	rows, err := s.db.Query(`
		SELECT element_id, kind, tags, geometry FROM elements
		WHERE lod = ? AND tile_x = ? AND tile_y = ?`,
		q.LevelOfDetail, q.TileX, q.TileY)
	if err != nil {
		return fmt.Errorf("search tile %s: %w", q.String(), err)
	}
	defer rows.Close()

	return s.visitRows(rows, visitor, token, nil, nil)
}

// Search visits every element inside the query's scope whose tags satisfy
// the term sets. Rows duplicated across tiles or levels are visited once.
func (s *SQLiteStore) Search(query SearchQuery, visitor geo.ElementVisitor, token *geo.CancelToken) error {
	if !query.Bounds.IsValid() {
		return nil
	}
	rows, err := s.db.Query(`
		SELECT element_id, kind, tags, geometry FROM elements
		WHERE lod BETWEEN ? AND ?
		  AND max_lon >= ? AND min_lon <= ?
		  AND max_lat >= ? AND min_lat <= ?`,
		query.Range.Min, query.Range.Max,
		query.Bounds.MinLon, query.Bounds.MaxLon,
		query.Bounds.MinLat, query.Bounds.MaxLat)
	if err != nil {
		return fmt.Errorf("search elements: %w", err)
	}
	defer rows.Close()

	seen := make(map[elementKey]struct{})
	return s.visitRows(rows, visitor, token, seen, &query)
}

// visitRows decodes result rows into elements and feeds the visitor,
// polling the token per row. seen deduplicates by kind and element ID
// when non-nil; query term-filters when non-nil.
func (s *SQLiteStore) visitRows(rows *sql.Rows, visitor geo.ElementVisitor, token *geo.CancelToken, seen map[elementKey]struct{}, query *SearchQuery) error {
	for rows.Next() {
		if token.IsCancelled() {
			return nil
		}
		var (
			id       int64
			kind     int
			tags     string
			geometry []byte
		)
		if err := rows.Scan(&id, &kind, &tags, &geometry); err != nil {
			return fmt.Errorf("scan element: %w", err)
		}
		if seen != nil {
			key := elementKey{kind: geo.ElementKind(kind), id: id}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}

		e := &geo.Element{
			ID:       id,
			Kind:     geo.ElementKind(kind),
			Geometry: decodeGeometry(geometry),
		}
		decoded, err := s.decodeTags(tags)
		if err != nil {
			return err
		}
		e.Tags = decoded

		if query != nil && !query.Matches(e, s.table) {
			continue
		}
		visitor.VisitElement(e)
	}
	return rows.Err()
}

// HasData reports whether any row exists for the tile.
func (s *SQLiteStore) HasData(q geo.QuadKey) bool {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM elements WHERE lod = ? AND tile_x = ? AND tile_y = ? LIMIT 1`,
		q.LevelOfDetail, q.TileX, q.TileY).Scan(&one)
	return err == nil
}

// encodeTags resolves interned tags to strings and packs them as JSON
// pairs, so the database stays readable without the string table.
func (s *SQLiteStore) encodeTags(tags []geo.Tag) (string, error) {
	pairs := make([][2]string, 0, len(tags))
	for _, t := range tags {
		key, ok := s.table.Lookup(t.Key)
		if !ok {
			return "", fmt.Errorf("tag key %d not in string table", t.Key)
		}
		value, ok := s.table.Lookup(t.Value)
		if !ok {
			return "", fmt.Errorf("tag value %d not in string table", t.Value)
		}
		pairs = append(pairs, [2]string{key, value})
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func (s *SQLiteStore) decodeTags(data string) ([]geo.Tag, error) {
	var pairs [][2]string
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make([]geo.Tag, 0, len(pairs))
	for _, p := range pairs {
		tags = append(tags, geo.Tag{
			Key:   s.table.Intern(p[0]),
			Value: s.table.Intern(p[1]),
		})
	}
	return tags, nil
}

// encodeGeometry packs coordinates as little-endian float64 lat/lon
// pairs behind a uint32 count. Relation member geometry is flattened in.
func encodeGeometry(e *geo.Element) []byte {
	coords := flattenCoordinates(e, nil)
	buf := make([]byte, 4+len(coords)*16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(coords)))
	for i, c := range coords {
		off := 4 + i*16
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(c.Latitude))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], math.Float64bits(c.Longitude))
	}
	return buf
}

func flattenCoordinates(e *geo.Element, out []geo.GeoCoordinate) []geo.GeoCoordinate {
	out = append(out, e.Geometry...)
	for _, m := range e.Members {
		out = flattenCoordinates(m, out)
	}
	return out
}

func decodeGeometry(data []byte) []geo.GeoCoordinate {
	if len(data) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	if len(data) < 4+count*16 {
		return nil
	}
	coords := make([]geo.GeoCoordinate, 0, count)
	for i := 0; i < count; i++ {
		off := 4 + i*16
		coords = append(coords, geo.GeoCoordinate{
			Latitude:  math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8])),
			Longitude: math.Float64frombits(binary.LittleEndian.Uint64(data[off+8 : off+16])),
		})
	}
	return coords
}

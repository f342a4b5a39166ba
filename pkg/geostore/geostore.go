package geostore

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/clublg/utymap/internal/format"
	"github.com/clublg/utymap/pkg/geo"
)

// GeoStore is the federated ingestion-and-search coordinator.
//
// Every method executes fully in the caller's goroutine: there is no
// internal queuing, no worker pool and no parallelism across stores.
// Long parses block the caller; running an ingest in the background or
// bounding its runtime is the caller's job, expressed solely through the
// shared CancelToken.
//
// Store registration is expected to happen during a setup phase, strictly
// before concurrent add/search traffic starts; RegisterStore racing an
// in-flight add or search must be serialized by the caller.
type GeoStore struct {
	strings *geo.StringTable
	stores  map[string]ElementStore
	keys    []string // registry keys, kept sorted for deterministic broadcast
	logger  *slog.Logger
}

// Option configures a GeoStore.
type Option func(*GeoStore)

// WithLogger sets the logger used for registration and rollback events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *GeoStore) { g.logger = logger }
}

// New creates a coordinator around a shared string table.
func New(strings *geo.StringTable, opts ...Option) *GeoStore {
	g := &GeoStore{
		strings: strings,
		stores:  make(map[string]ElementStore),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterStore binds a store instance to key.
//
// The first registration for a key wins: a duplicate registration is
// discarded, the existing binding is retained and no error is raised.
// The discard is logged so it does not pass silently.
func (g *GeoStore) RegisterStore(key string, store ElementStore) {
	if _, ok := g.stores[key]; ok {
		g.logger.Warn("duplicate store registration discarded", "key", key)
		return
	}
	g.stores[key] = store
	g.keys = append(g.keys, key)
	sort.Strings(g.keys)
}

// StoreKeys returns the registered keys in their broadcast order.
func (g *GeoStore) StoreKeys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

func (g *GeoStore) lookup(key string) (ElementStore, error) {
	store, ok := g.stores[key]
	if !ok {
		return nil, &StoreNotFoundError{Key: key}
	}
	return store, nil
}

// AddElement offers a single in-memory element to the store registered
// under key, scoped to the LOD range. No parsing and no rollback are
// involved; the store alone decides acceptance.
func (g *GeoStore) AddElement(key string, e *geo.Element, r geo.LodRange, style StyleProvider, token *geo.CancelToken) error {
	store, err := g.lookup(key)
	if err != nil {
		return err
	}
	return store.Store(e, r, style)
}

// AddToTile parses the file at path and offers every parsed element to the
// store scoped to the given tile.
//
// If the token reports cancellation after the parse, the whole tile is
// erased: rollback is tile-exact. Elements committed before cancellation
// was observed remain visible until the erase completes.
func (g *GeoStore) AddToTile(key, path string, q geo.QuadKey, style StyleProvider, token *geo.CancelToken) error {
	store, err := g.lookup(key)
	if err != nil {
		return err
	}

	_, err = g.parse(path, token, func(e *geo.Element) (bool, error) {
		return store.StoreInTile(e, q, style)
	})
	if err != nil {
		return err
	}

	if token.IsCancelled() {
		g.logger.Info("ingest cancelled, erasing tile", "key", key, "path", path, "quadkey", q.String())
		return store.EraseTile(q, geo.LodRange{Min: q.LevelOfDetail, Max: q.LevelOfDetail})
	}
	return nil
}

// AddInRange parses the file at path and offers every parsed element to
// the store scoped to the LOD range.
//
// If the token reports cancellation after the parse, the store erases the
// union bounding box of the elements it accepted: rollback is only as
// precise as the touched extent, not an element-exact undo.
func (g *GeoStore) AddInRange(key, path string, r geo.LodRange, style StyleProvider, token *geo.CancelToken) error {
	store, err := g.lookup(key)
	if err != nil {
		return err
	}

	box, err := g.parse(path, token, func(e *geo.Element) (bool, error) {
		return true, store.Store(e, r, style)
	})
	if err != nil {
		return err
	}

	if token.IsCancelled() {
		g.logger.Info("ingest cancelled, erasing accepted extent", "key", key, "path", path, "range", r.String())
		return store.EraseBounds(box, r)
	}
	return nil
}

// AddInBounds parses the file at path and offers every parsed element to
// the store scoped to the caller-supplied bounding box and LOD range. The
// box also bounds the rollback erase when the token reports cancellation.
func (g *GeoStore) AddInBounds(key, path string, b geo.BoundingBox, r geo.LodRange, style StyleProvider, token *geo.CancelToken) error {
	store, err := g.lookup(key)
	if err != nil {
		return err
	}

	_, err = g.parse(path, token, func(e *geo.Element) (bool, error) {
		return store.StoreInBounds(e, b, r, style)
	})
	if err != nil {
		return err
	}

	if token.IsCancelled() {
		g.logger.Info("ingest cancelled, erasing bounds", "key", key, "path", path, "range", r.String())
		return store.EraseBounds(b, r)
	}
	return nil
}

// parse runs the format-detected parser over path, offering each element
// through accept, and returns the union bounding box of accepted elements.
func (g *GeoStore) parse(path string, token *geo.CancelToken, accept format.AcceptFunc) (geo.BoundingBox, error) {
	box, err := format.Parse(path, g.strings, token, accept)
	if err != nil {
		return geo.EmptyBoundingBox(), fmt.Errorf("parse %s: %w", path, err)
	}
	return box, nil
}

// Search broadcasts the query to every registered store in key-sorted
// order. Each store independently decides relevance and feeds matches to
// the visitor; the coordinator neither pre-filters nor deduplicates, so an
// element present in two stores is reported twice. Cancellation is polled
// by each store's own search loop.
func (g *GeoStore) Search(query SearchQuery, visitor geo.ElementVisitor, token *geo.CancelToken) error {
	for _, key := range g.keys {
		if err := g.stores[key].Search(query, visitor, token); err != nil {
			return fmt.Errorf("search store %q: %w", key, err)
		}
	}
	return nil
}

// SearchTile visits every element stored for the tile across all
// registered stores in key-sorted order. Stores reporting no data for the
// tile are skipped entirely, so an empty tile costs one existence probe
// per store.
func (g *GeoStore) SearchTile(q geo.QuadKey, style StyleProvider, visitor geo.ElementVisitor, token *geo.CancelToken) error {
	for _, key := range g.keys {
		store := g.stores[key]
		if !store.HasData(q) {
			continue
		}
		if err := store.SearchTile(q, visitor, token); err != nil {
			return fmt.Errorf("search store %q: %w", key, err)
		}
	}
	return nil
}

// HasData reports whether at least one registered store has content for
// the tile. With zero registered stores it is always false.
func (g *GeoStore) HasData(q geo.QuadKey) bool {
	for _, key := range g.keys {
		if g.stores[key].HasData(q) {
			return true
		}
	}
	return false
}

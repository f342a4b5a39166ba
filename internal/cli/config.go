package cli

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clublg/utymap/pkg/geo"
	"github.com/clublg/utymap/pkg/geostore"
)

// Config describes the element stores a command operates on.
type Config struct {
	Stores []StoreConfig `yaml:"stores"`
}

// StoreConfig declares one named element store.
type StoreConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "memory" or "sqlite"
	Path string `yaml:"path"` // database path, sqlite only
}

// DefaultConfig is used when no config file is given: a single SQLite
// store named "default" in the working directory.
func DefaultConfig() *Config {
	return &Config{
		Stores: []StoreConfig{
			{Name: "default", Type: "sqlite", Path: "utymap.db"},
		},
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Stores) == 0 {
		return nil, fmt.Errorf("config %s declares no stores", path)
	}
	return &cfg, nil
}

// Build constructs a coordinator with every configured store registered.
// The returned closer releases persistent stores.
func (c *Config) Build(table *geo.StringTable, logger *slog.Logger) (*geostore.GeoStore, func() error, error) {
	store := geostore.New(table, geostore.WithLogger(logger))

	var closers []func() error
	closeAll := func() error {
		var first error
		for _, close := range closers {
			if err := close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, sc := range c.Stores {
		switch sc.Type {
		case "memory":
			store.RegisterStore(sc.Name, geostore.NewInMemoryStore(table))
		case "sqlite":
			if sc.Path == "" {
				closeAll()
				return nil, nil, fmt.Errorf("store %q: sqlite store needs a path", sc.Name)
			}
			sqlStore, err := geostore.NewSQLiteStore(sc.Path, table)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("store %q: %w", sc.Name, err)
			}
			closers = append(closers, sqlStore.Close)
			store.RegisterStore(sc.Name, sqlStore)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("store %q: unknown type %q", sc.Name, sc.Type)
		}
	}
	return store, closeAll, nil
}

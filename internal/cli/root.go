// Package cli implements the utymap command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clublg/utymap/pkg/geo"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand builds the utymap command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "utymap",
		Short: "Ingest and search map data across element stores",
		Long: `utymap ingests map data files (shapefile, OSM XML, OSM JSON, OSM PBF)
into named element stores partitioned by quad-tree tile and level of
detail, and searches across all of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "store config file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewStoresCommand(opts))

	return cmd
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// loadConfig resolves the configured or default store setup.
func loadConfig(opts *RootOptions) (*Config, error) {
	if opts.ConfigPath == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(opts.ConfigPath)
}

// parseTile parses "z/x/y" into a quad key.
func parseTile(s string) (geo.QuadKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return geo.QuadKey{}, fmt.Errorf("invalid tile %q (expected z/x/y)", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return geo.QuadKey{}, fmt.Errorf("invalid tile %q (expected z/x/y)", s)
		}
		vals[i] = v
	}
	return geo.QuadKey{LevelOfDetail: vals[0], TileX: vals[1], TileY: vals[2]}, nil
}

// parseLodRange parses "min:max" (or a single level) into a range.
func parseLodRange(s string) (geo.LodRange, error) {
	parts := strings.SplitN(s, ":", 2)
	min, err := strconv.Atoi(parts[0])
	if err != nil {
		return geo.LodRange{}, fmt.Errorf("invalid lod range %q", s)
	}
	max := min
	if len(parts) == 2 {
		max, err = strconv.Atoi(parts[1])
		if err != nil {
			return geo.LodRange{}, fmt.Errorf("invalid lod range %q", s)
		}
	}
	r := geo.NewLodRange(min, max)
	if !r.IsValid() {
		return geo.LodRange{}, fmt.Errorf("invalid lod range %q", s)
	}
	return r, nil
}

// parseBoundingBox parses "minLon,minLat,maxLon,maxLat".
func parseBoundingBox(s string) (geo.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("invalid bbox %q (expected minLon,minLat,maxLon,maxLat)", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	box := geo.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if !box.IsValid() {
		return geo.BoundingBox{}, fmt.Errorf("invalid bbox %q: min exceeds max", s)
	}
	return box, nil
}

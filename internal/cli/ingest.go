package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clublg/utymap/pkg/geo"
	"github.com/clublg/utymap/pkg/geostore"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Store string
	Tile  string
	Lod   string
	BBox  string
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a map data file or directory into a store",
		Long: `Ingest parses the file at <path> (format detected by suffix: .pbf,
.xml, .json, anything else is treated as a shapefile) and stores its
elements under the given scope. A directory is walked recursively and
every regular file in it is ingested.

Exactly one scope applies per file: --tile stores into a single
quad-tree tile, --bbox (with --lod) constrains the indexed extent,
plain --lod indexes the whole file across the level band.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Store, "store", "s", "default", "target store key")
	cmd.Flags().StringVar(&opts.Tile, "tile", "", "target tile as z/x/y")
	cmd.Flags().StringVar(&opts.Lod, "lod", "1:16", "level of detail band as min:max")
	cmd.Flags().StringVar(&opts.BBox, "bbox", "", "scope box as minLon,minLat,maxLon,maxLat")

	return cmd
}

func runIngest(opts *IngestOptions, path string) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	table := geo.NewStringTable()
	store, closeStores, err := cfg.Build(table, slog.Default())
	if err != nil {
		return err
	}
	defer closeStores()

	paths, err := collectInputs(path)
	if err != nil {
		return err
	}

	token := &geo.CancelToken{}
	start := time.Now()
	for _, p := range paths {
		if err := ingestFile(opts, store, p, token); err != nil {
			return fmt.Errorf("ingest %s: %w", p, err)
		}
		slog.Info("ingested", "path", p)
	}
	slog.Info("ingest finished", "files", len(paths), "elapsed", time.Since(start))
	return nil
}

func ingestFile(opts *IngestOptions, store *geostore.GeoStore, path string, token *geo.CancelToken) error {
	switch {
	case opts.Tile != "":
		tile, err := parseTile(opts.Tile)
		if err != nil {
			return err
		}
		return store.AddToTile(opts.Store, path, tile, geostore.AllStyles, token)

	case opts.BBox != "":
		box, err := parseBoundingBox(opts.BBox)
		if err != nil {
			return err
		}
		r, err := parseLodRange(opts.Lod)
		if err != nil {
			return err
		}
		return store.AddInBounds(opts.Store, path, box, r, geostore.AllStyles, token)

	default:
		r, err := parseLodRange(opts.Lod)
		if err != nil {
			return err
		}
		return store.AddInRange(opts.Store, path, r, geostore.AllStyles, token)
	}
}

// collectInputs expands a directory argument into the regular files under
// it; shapefile sidecars (.dbf, .shx, .prj, .cpg) are skipped since the
// .shp parse picks them up itself.
func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var paths []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || isSidecar(p) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files found in %s", path)
	}
	return paths, nil
}

func isSidecar(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dbf", ".shx", ".prj", ".cpg", ".sbn", ".sbx":
		return true
	}
	return false
}

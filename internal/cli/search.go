package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clublg/utymap/pkg/geo"
	"github.com/clublg/utymap/pkg/geostore"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Tile     string
	BBox     string
	Lod      string
	AndTerms []string
	OrTerms  []string
	NotTerms []string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search elements across all configured stores",
		Long: `Search broadcasts a query to every configured store and prints each
match as one line. With --tile the whole tile is listed; otherwise
--bbox and --lod scope a term query (--and terms must all match,
--or at least one, --not none).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Tile, "tile", "", "tile to list as z/x/y")
	cmd.Flags().StringVar(&opts.BBox, "bbox", "", "search box as minLon,minLat,maxLon,maxLat")
	cmd.Flags().StringVar(&opts.Lod, "lod", "1:16", "level of detail band as min:max")
	cmd.Flags().StringSliceVar(&opts.AndTerms, "and", nil, "terms that must all match")
	cmd.Flags().StringSliceVar(&opts.OrTerms, "or", nil, "terms of which at least one must match")
	cmd.Flags().StringSliceVar(&opts.NotTerms, "not", nil, "terms that must not match")

	return cmd
}

func runSearch(opts *SearchOptions, out io.Writer) error {
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

	count := 0
	visitor := geo.ElementVisitorFunc(func(e *geo.Element) {
		count++
		fmt.Fprintln(out, formatElement(e, table))
	})

	token := &geo.CancelToken{}
	if opts.Tile != "" {
		tile, err := parseTile(opts.Tile)
		if err != nil {
			return err
		}
		if err := store.SearchTile(tile, geostore.AllStyles, visitor, token); err != nil {
			return err
		}
	} else {
		if opts.BBox == "" {
			return fmt.Errorf("either --tile or --bbox is required")
		}
		box, err := parseBoundingBox(opts.BBox)
		if err != nil {
			return err
		}
		r, err := parseLodRange(opts.Lod)
		if err != nil {
			return err
		}
		query := geostore.SearchQuery{
			NotTerms: opts.NotTerms,
			AndTerms: opts.AndTerms,
			OrTerms:  opts.OrTerms,
			Bounds:   box,
			Range:    r,
		}
		if err := store.Search(query, visitor, token); err != nil {
			return err
		}
	}

	slog.Info("search finished", "results", count)
	return nil
}

// formatElement renders one element as "Kind id [lon,lat..lon,lat] k=v ...".
func formatElement(e *geo.Element, table *geo.StringTable) string {
	var sb strings.Builder
	box := e.BoundingBox()
	fmt.Fprintf(&sb, "%s %d [%.5f,%.5f..%.5f,%.5f]",
		e.Kind, e.ID, box.MinLon, box.MinLat, box.MaxLon, box.MaxLat)
	for _, t := range e.Tags {
		key, _ := table.Lookup(t.Key)
		value, _ := table.Lookup(t.Value)
		fmt.Fprintf(&sb, " %s=%s", key, value)
	}
	return sb.String()
}

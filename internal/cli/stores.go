package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/clublg/utymap/pkg/geo"
)

// StoresOptions holds flags for the stores command.
type StoresOptions struct {
	*RootOptions
	Tile string
}

// NewStoresCommand creates the stores command.
func NewStoresCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoresOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "stores",
		Short:         "List configured stores",
		Long:          `Stores lists every configured store key. With --tile it also probes each store for content in that tile.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStores(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Tile, "tile", "", "probe tile as z/x/y")

	return cmd
}

func runStores(opts *StoresOptions, out io.Writer) error {
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

	var tile geo.QuadKey
	probe := opts.Tile != ""
	if probe {
		if tile, err = parseTile(opts.Tile); err != nil {
			return err
		}
		fmt.Fprintf(out, "tile %s has data: %v\n", opts.Tile, store.HasData(tile))
	}

	for _, key := range store.StoreKeys() {
		fmt.Fprintln(out, key)
	}
	return nil
}

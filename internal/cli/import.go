package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/store"
)

// importOpts holds the command-line flags for the import command.
type importOpts struct {
	configPath string // config file path
	name       string // document name
}

// newImportCmd creates the import command for loading JSON document files
// into the store.
func newImportCmd() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSON document file into the store",
		Long: `Load a JSON document file into the store.

The document is re-validated on the way in: connections with missing
endpoints, duplicates, or cycle-closing edges are dropped and counted.
Invalid blocks fail the import.

Examples:
  strategraph import momentum.json -n "Momentum v2"
  strategraph import exported.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "document name")

	return cmd
}

func runImport(ctx context.Context, file string, opts *importOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	doc, err := graph.ReadDocumentFile(file)
	if err != nil {
		return err
	}
	normalized, dropped, err := normalizeDocument(doc)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stored := store.New(opts.name, normalized)
	if err := st.Put(ctx, stored); err != nil {
		return err
	}

	printSuccess("Imported document %s", stored.ID)
	printStats(len(normalized.Nodes), len(normalized.Connections), false)
	if dropped > 0 {
		printWarning("Dropped %d invalid connection(s)", dropped)
	}
	printNextStep("Edit it", "strategraph edit "+stored.ID)
	return nil
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/graph"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	configPath string // config file path
	output     string // output file (default: stdout)
}

// newExportCmd creates the export command for writing stored documents
// out as JSON files.
func newExportCmd() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored document to a JSON file",
		Long: `Write a stored document to a JSON file.

The output is the document wire format: blocks with positions, connections,
and the canvas view. Without --output the JSON goes to stdout, so it can be
piped or redirected.

Examples:
  strategraph export 4f1c2a8e-0b7d-4c5e-9f2a-1d3e5f7a9b0c -o momentum.json
  strategraph export 4f1c2a8e-0b7d-4c5e-9f2a-1d3e5f7a9b0c | jq .connections`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runExport(ctx context.Context, docID string, opts *exportOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stored, err := st.Get(ctx, docID)
	if err != nil {
		return err
	}

	data, err := graph.MarshalDocument(stored.Graph)
	if err != nil {
		return err
	}

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(append(data, '\n')); err != nil {
		return err
	}

	if opts.output != "" {
		name := stored.Name
		if name == "" {
			name = shortID(stored.ID)
		}
		printSuccess("Exported %s", name)
		printFile(opts.output)
		printStats(len(stored.Graph.Nodes), len(stored.Graph.Connections), false)
	}
	return nil
}

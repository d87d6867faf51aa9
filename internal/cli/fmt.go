package cli

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/pkg/graph"
)

// fmtOpts holds the command-line flags for the fmt command.
type fmtOpts struct {
	write bool // rewrite the file instead of printing
}

// newFmtCmd creates the fmt command for normalizing document files.
func newFmtCmd() *cobra.Command {
	var opts fmtOpts

	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Normalize a document file",
		Long: `Normalize a document file.

The document is replayed through the validation rules and re-serialized in
canonical form: handle roles forced to output→input, missing IDs and
timestamps stamped, zoom clamped, invalid connections dropped, fields in a
stable order. Running fmt on an already-canonical file changes nothing.

Like gofmt, the result goes to stdout unless -w rewrites the file in place.

Examples:
  strategraph fmt strategy.json
  strategraph fmt -w strategy.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(args[0], &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "rewrite the file instead of printing")

	return cmd
}

func runFmt(file string, opts *fmtOpts) error {
	original, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	doc, err := graph.UnmarshalDocument(original)
	if err != nil {
		return err
	}

	normalized, dropped, err := normalizeDocument(doc)
	if err != nil {
		return err
	}
	data, err := graph.MarshalDocument(normalized)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if !opts.write {
		_, err := os.Stdout.Write(data)
		return err
	}

	if bytes.Equal(original, data) {
		printInfo("%s is already canonical", file)
		return nil
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return err
	}
	printSuccess("Formatted %s", file)
	if dropped > 0 {
		printWarning("Dropped %d invalid connection(s)", dropped)
	}
	return nil
}

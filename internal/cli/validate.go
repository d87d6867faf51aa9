package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/strategy"
)

// validateOpts holds the command-line flags for the validate command.
type validateOpts struct {
	configPath string // config file path
	docID      string // validate a stored document instead of a file
}

// newValidateCmd creates the validate command.
func newValidateCmd() *cobra.Command {
	var opts validateOpts

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a document's structure and connections",
		Long: `Check a document's structure and connections.

Every connection is re-validated against the full rule set: endpoints must
exist, no self-loops, no duplicate pairs, no cycles. Incompatible block
pairings are reported as warnings. The command fails when any violation is
found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runValidate(cmd.Context(), file, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.docID, "doc", "d", "", "validate a stored document by ID")

	return cmd
}

// runValidate replays the document through the validation rules and
// reports every violation.
func runValidate(ctx context.Context, file string, opts *validateOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	doc, name, err := loadDocument(ctx, cfg, file, opts.docID)
	if err != nil {
		return err
	}

	violations, warnings := validateDocument(doc)

	printStats(len(doc.Nodes), len(doc.Connections), false)
	if len(violations) == 0 && len(warnings) == 0 {
		printSuccess("%s is valid", name)
		return nil
	}
	for _, w := range warnings {
		printWarning("%s", w)
	}
	for _, v := range violations {
		printError("%s", v)
	}
	if len(violations) > 0 {
		return fmt.Errorf("%s: %d violation(s)", name, len(violations))
	}
	printSuccess("%s is valid (%d warning(s))", name, len(warnings))
	return nil
}

// validateDocument rebuilds the document block by block and connection by
// connection, collecting violations and warnings instead of dropping bad
// edges the way a plain load does.
func validateDocument(doc graph.Document) (violations, warnings []string) {
	mgr := graph.New(
		graph.WithCompatibilityChecker(strategy.Checker{}),
		graph.WithDimensions(strategy.Dimensions),
	)

	for _, n := range doc.Nodes {
		if _, known := strategy.Lookup(strategy.BlockType(n.Type)); !known {
			warnings = append(warnings, fmt.Sprintf("block %q has unknown type %q", n.DisplayLabel(), n.Type))
		}
		if err := mgr.AddNode(n); err != nil {
			violations = append(violations, err.Error())
		}
	}

	if err := doc.Canvas.Validate(); err != nil {
		warnings = append(warnings, fmt.Sprintf("canvas state will be normalized: %v", err))
	}

	for _, c := range doc.Connections {
		res := mgr.ValidateConnection(c.Source, geometry.HandleOutput, c.Target, geometry.HandleInput)
		for _, e := range res.Errors {
			violations = append(violations, fmt.Sprintf("connection %s: %s", shortID(c.ID), e))
		}
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("connection %s: %s", shortID(c.ID), w))
		}
		if !res.IsValid {
			continue
		}
		// Commit the edge so later duplicate and cycle checks see it.
		src, ok := mgr.Node(c.Source)
		if !ok {
			continue
		}
		start, err := geometry.HandleScreenPosition(
			src.Position, geometry.HandleOutput, strategy.Dimensions(src.Type), mgr.CanvasState())
		if err != nil {
			continue
		}
		if err := mgr.StartConnection(c.Source, geometry.HandleOutput, start); err != nil {
			continue
		}
		mgr.CompleteConnection(c.Target, geometry.HandleInput)
	}
	return violations, warnings
}

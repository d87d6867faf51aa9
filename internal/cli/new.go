package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/editor"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/store"
)

// newOpts holds the command-line flags for the new command.
type newOpts struct {
	configPath string // config file path
	template   string // built-in template to start from
	name       string // document name
	output     string // write to a file instead of the store
	list       bool   // list templates and exit
}

// newNewCmd creates the new command for creating documents.
func newNewCmd() *cobra.Command {
	var opts newOpts

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a strategy document, optionally from a template",
		Long: `Create a strategy document, optionally from a built-in template.

Without --output the document is saved to the configured store and its ID
printed. Use --list to see the available templates.

Examples:
  strategraph new --list
  strategraph new -t rsi-reversal -n "BTC dip buyer"
  strategraph new -t sma-crossover -o crossover.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				return listTemplates()
			}
			return runNew(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "built-in template name")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "document name")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of the store")
	cmd.Flags().BoolVar(&opts.list, "list", false, "list available templates")

	return cmd
}

// listTemplates prints the built-in template catalog.
func listTemplates() error {
	printInfo("Built-in templates")
	for _, tpl := range editor.BuiltinTemplates() {
		printKeyValue(tpl.Name, fmt.Sprintf("%d blocks · %s", len(tpl.Blocks), tpl.Description))
	}
	printNewline()
	printNextStep("Create one", "strategraph new -t "+editor.BuiltinTemplates()[0].Name)
	return nil
}

// runNew builds the document and writes it to the store or a file.
func runNew(ctx context.Context, opts *newOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	ed, err := newConfiguredEditor(cfg)
	if err != nil {
		return err
	}
	defer ed.Close()

	if opts.template != "" {
		tpl, ok := editor.TemplateByName(opts.template)
		if !ok {
			return fmt.Errorf("unknown template %q (try --list)", opts.template)
		}
		if _, err := ed.ApplyTemplate(tpl); err != nil {
			return err
		}
	}
	doc := ed.Manager().ExportDocument()

	if opts.output != "" {
		if err := graph.WriteDocumentFile(doc, opts.output); err != nil {
			return err
		}
		printSuccess("Created %s", opts.output)
		printStats(len(doc.Nodes), len(doc.Connections), false)
		return nil
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stored := store.New(opts.name, doc)
	if err := st.Put(ctx, stored); err != nil {
		return err
	}
	printSuccess("Created document %s", stored.ID)
	printStats(len(doc.Nodes), len(doc.Connections), false)
	printNextStep("Edit it", "strategraph edit "+stored.ID)
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/editor"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/placement"
	"github.com/fbecker/strategraph/pkg/store"
)

// editOpts holds the command-line flags for the edit command.
type editOpts struct {
	configPath string // config file path ("" = default location)
	file       string // edit a document file instead of the store
	name       string // name assigned when the document is first saved
}

// newEditCmd creates the edit command, the interactive canvas editor.
func newEditCmd() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [document-id]",
		Short: "Open a strategy document in the interactive canvas editor",
		Long: `Open a strategy document in the interactive canvas editor.

Without arguments a fresh draft is opened and saved to the document store
on ctrl+s or quit. With a document ID the stored document is loaded. With
--file the document is read from and written back to a JSON file instead.

The editor uses the mouse: drag blocks to move them, drag from a handle
to connect two blocks, drag the background to pan, scroll to zoom.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runEdit(cmd.Context(), id, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "edit a document file instead of the store")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "document name for new documents")

	return cmd
}

// runEdit loads the document, runs the editor program, and persists the
// result.
func runEdit(ctx context.Context, id string, opts *editOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if id != "" && opts.file != "" {
		return fmt.Errorf("pass a document ID or --file, not both")
	}

	ed, err := newConfiguredEditor(cfg)
	if err != nil {
		return err
	}
	defer ed.Close()

	var (
		save    SaveFunc
		docName string
		closeFn func() error
	)

	switch {
	case opts.file != "":
		doc, err := graph.ReadDocumentFile(opts.file)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			doc = graph.Document{Canvas: geometry.DefaultCanvasState()}
		}
		if err := ed.Manager().LoadDocument(doc); err != nil {
			return err
		}
		docName = opts.file
		save = func(d graph.Document) error {
			return graph.WriteDocumentFile(d, opts.file)
		}

	default:
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		closeFn = st.Close

		var doc *store.Document
		if id != "" {
			doc, err = st.Get(ctx, id)
			if err != nil {
				return err
			}
			if err := ed.Manager().LoadDocument(doc.Graph); err != nil {
				return err
			}
		} else {
			doc = store.New(opts.name, graph.Document{Canvas: geometry.DefaultCanvasState()})
		}
		docName = doc.Name
		if docName == "" {
			docName = shortID(doc.ID)
		}
		save = func(d graph.Document) error {
			doc.Graph = d
			return st.Put(ctx, doc)
		}
	}
	if closeFn != nil {
		defer closeFn()
	}

	model := NewEditorModel(ed, docName, save)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion())

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}

	// Persist whatever the session left behind.
	fm, ok := final.(EditorModel)
	if !ok {
		return nil
	}
	if fm.Dirty() {
		if err := save(fm.Document()); err != nil {
			return fmt.Errorf("save on exit: %w", err)
		}
		printSuccess("Saved %s", docName)
	}
	return nil
}

// newConfiguredEditor builds an editor from the configured canvas,
// placement, and input settings.
func newConfiguredEditor(cfg config.Config) (*editor.Editor, error) {
	return editor.New(
		editor.WithViewport(geometry.Rect{
			Width:  cfg.Canvas.ViewportWidth,
			Height: cfg.Canvas.ViewportHeight,
		}),
		editor.WithPlacement(placement.Options{
			Margin:      cfg.Placement.Margin,
			NodeSpacing: cfg.Placement.NodeSpacing,
			GridSize:    cfg.Placement.GridSize,
			MaxAttempts: cfg.Placement.MaxAttempts,
		}),
		editor.WithDragThreshold(cfg.Input.DragThreshold),
	)
}

// shortID abbreviates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

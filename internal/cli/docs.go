package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/graph"
)

// newDocsCmd creates the docs command group for managing stored documents.
func newDocsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage stored strategy documents",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: XDG config dir)")

	cmd.AddCommand(newDocsListCmd(&configPath))
	cmd.AddCommand(newDocsShowCmd(&configPath))
	cmd.AddCommand(newDocsDeleteCmd(&configPath))
	cmd.AddCommand(newDocsCleanupCmd(&configPath))

	return cmd
}

// newDocsListCmd creates the "docs list" subcommand.
func newDocsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			summaries, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				printInfo("No documents stored")
				printNextStep("Create one", "strategraph new -t sma-crossover")
				return nil
			}

			headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				name := s.Name
				if name == "" {
					name = StyleDim.Render("(draft)")
				}
				rows = append(rows, []string{
					shortID(s.ID),
					name,
					fmt.Sprintf("%d", s.Nodes),
					fmt.Sprintf("%d", s.Connections),
					formatRelativeTime(s.UpdatedAt),
				})
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("ID", "Name", "Blocks", "Connections", "Updated").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return headerStyle
					}
					base := lipgloss.NewStyle().Padding(0, 1)
					if col == 0 || col == 4 {
						return base.Foreground(colorGray)
					}
					return base
				})

			fmt.Println(t)
			printDetail("%d document(s)", len(summaries))
			return nil
		},
	}
}

// newDocsShowCmd creates the "docs show" subcommand.
func newDocsShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <document-id>",
		Short: "Show details of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			name := doc.Name
			if name == "" {
				name = "(draft)"
			}
			printKeyValue("ID", doc.ID)
			printKeyValue("Name", name)
			printKeyValue("Blocks", fmt.Sprintf("%d", len(doc.Graph.Nodes)))
			printKeyValue("Connections", fmt.Sprintf("%d", len(doc.Graph.Connections)))
			printKeyValue("Zoom", fmt.Sprintf("%.0f%%", doc.Graph.Canvas.Zoom*100))
			printKeyValue("Created", doc.CreatedAt.Format(time.RFC3339))
			printKeyValue("Updated", doc.UpdatedAt.Format(time.RFC3339))

			byType := blockCounts(doc.Graph)
			if len(byType) > 0 {
				printNewline()
				for _, tc := range byType {
					printDetail("%s: %d", tc.blockType, tc.count)
				}
			}

			printNextStep("Edit it", "strategraph edit "+doc.ID)
			return nil
		},
	}
}

// newDocsDeleteCmd creates the "docs delete" subcommand.
func newDocsDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			// Confirm the document exists so the success message is honest.
			if _, err := st.Get(cmd.Context(), args[0]); err != nil {
				if errors.GetCode(err) == errors.ErrCodeDocumentNotFound {
					printInfo("No document with ID %s", args[0])
					return nil
				}
				return err
			}
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", shortID(args[0]))
			return nil
		},
	}
}

// newDocsCleanupCmd creates the "docs cleanup" subcommand. It removes
// unnamed drafts older than the configured retention window.
func newDocsCleanupCmd(configPath *string) *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale unnamed drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if retention == 0 {
				retention = cfg.Store.DraftRetention.Duration
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			before, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if err := st.Cleanup(cmd.Context(), retention); err != nil {
				return err
			}
			after, err := st.List(cmd.Context())
			if err != nil {
				return err
			}

			removed := len(before) - len(after)
			if removed <= 0 {
				printInfo("No stale drafts")
				return nil
			}
			printSuccess("Removed %d stale draft(s)", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "older-than", 0, "retention window (default: config draft_retention)")
	return cmd
}

// typeCount pairs a block type with how many blocks of that type a
// document contains.
type typeCount struct {
	blockType string
	count     int
}

// blockCounts tallies blocks by type, ordered by first appearance.
func blockCounts(g graph.Document) []typeCount {
	index := make(map[string]int)
	var counts []typeCount
	for _, n := range g.Nodes {
		if i, ok := index[n.Type]; ok {
			counts[i].count++
			continue
		}
		index[n.Type] = len(counts)
		counts = append(counts, typeCount{blockType: n.Type, count: 1})
	}
	return counts
}

// formatRelativeTime renders a timestamp as a relative duration for
// recent times, falling back to a date for older ones.
func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

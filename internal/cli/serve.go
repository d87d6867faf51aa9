package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/internal/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	configPath string // config file path
	docID      string // stored document to serve
	address    string // listen address override
}

// newServeCmd creates the serve command exposing the editor API over HTTP.
func newServeCmd() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a strategy document over HTTP",
		Long: `Serve a strategy document over HTTP for external collaborators.

Routes:
  GET  /api/graph           export the current document
  POST /api/graph           replace the document (connections re-validated)
  POST /api/graph/validate  dry-run a connection check
  GET  /api/render/svg      rendered SVG (view=canvas|diagram)
  GET  /healthz             liveness probe
  GET  /metrics             Prometheus metrics

Unnamed drafts are cleaned up and the artifact cache swept on the
configured cron schedule.

Examples:
  strategraph serve
  strategraph serve --doc 4f1c2a8e-... --address :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: XDG config dir)")
	cmd.Flags().StringVarP(&opts.docID, "doc", "d", "", "stored document to serve (default: fresh draft)")
	cmd.Flags().StringVarP(&opts.address, "address", "a", "", "listen address (default: config)")

	return cmd
}

func runServe(ctx context.Context, opts *serveOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	artifacts := newArtifactCache(cfg, false)
	defer artifacts.Close()

	address := opts.address
	if address == "" {
		address = cfg.Server.Address
	}

	srv, err := server.New(server.Config{
		Address:         address,
		Store:           st,
		DocID:           opts.docID,
		Artifacts:       artifacts,
		ArtifactTTL:     cfg.Cache.TTL.Duration,
		CleanupSchedule: cfg.Server.CleanupSchedule,
		DraftRetention:  cfg.Store.DraftRetention.Duration,
		Logger:          loggerFromContext(ctx),
	})
	if err != nil {
		return err
	}

	printInfo("Serving on %s", address)
	printDetail("store: %s", cfg.Store.Backend)
	if opts.docID != "" {
		printDetail("document: %s", shortID(opts.docID))
	}
	return srv.Run(ctx)
}

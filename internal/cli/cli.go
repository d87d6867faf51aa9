package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/fbecker/strategraph/internal/config"
	"github.com/fbecker/strategraph/pkg/cache"
	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/store"
	"github.com/fbecker/strategraph/pkg/strategy"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "strategraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// Store Factory
// =============================================================================

// openStore builds the document store named by the configuration. The
// caller owns the returned store and must Close it.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	st, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store.NewInstrumentedStore(st, cfg.Store.Backend), nil
}

func openBackend(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendFile:
		return store.NewFileStore(cfg.Store.Path)
	case config.BackendRedis:
		return store.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB), nil
	case config.BackendMongo:
		return store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.MongoCollection)
	case config.BackendSQLite:
		return store.NewSQLiteStore(cfg.Store.Path)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Store.Backend)
	}
}

// =============================================================================
// Artifact Cache Factory
// =============================================================================

// newArtifactCache builds the rendered-artifact cache from the
// configuration. Disabled caching, or a cache directory that cannot be
// resolved, degrades to a no-op cache rather than failing the command.
func newArtifactCache(cfg config.Config, noCache bool) cache.Cache {
	if noCache || !cfg.Cache.Enabled {
		return cache.NewNullCache()
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		dir, err = config.CacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
	}
	c, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return c
}

// =============================================================================
// Document Loading
// =============================================================================

// normalizeDocument replays a document through a fresh manager: handle
// roles are forced to output→input, missing IDs and timestamps are
// stamped, the zoom is clamped, and connections that fail validation are
// dropped. Returns the dropped-connection count alongside the result.
func normalizeDocument(doc graph.Document) (graph.Document, int, error) {
	mgr := graph.New(
		graph.WithCompatibilityChecker(strategy.Checker{}),
		graph.WithDimensions(strategy.Dimensions),
	)
	if err := mgr.LoadDocument(doc); err != nil {
		return graph.Document{}, 0, err
	}
	normalized := mgr.ExportDocument()
	return normalized, len(doc.Connections) - len(normalized.Connections), nil
}

// loadDocument reads a document either from a file path or from the
// configured store by ID. Exactly one of file and docID must be set. The
// returned name is a short human label for output.
func loadDocument(ctx context.Context, cfg config.Config, file, docID string) (graph.Document, string, error) {
	switch {
	case file != "" && docID != "":
		return graph.Document{}, "", errors.New(errors.ErrCodeInvalidInput, "pass a file or --doc, not both")
	case file != "":
		doc, err := graph.ReadDocumentFile(file)
		return doc, file, err
	case docID != "":
		st, err := openStore(ctx, cfg)
		if err != nil {
			return graph.Document{}, "", err
		}
		defer st.Close()
		stored, err := st.Get(ctx, docID)
		if err != nil {
			return graph.Document{}, "", err
		}
		name := stored.Name
		if name == "" {
			name = shortID(stored.ID)
		}
		return stored.Graph, name, nil
	default:
		return graph.Document{}, "", errors.New(errors.ErrCodeInvalidInput, "pass a document file or --doc <id>")
	}
}

// =============================================================================
// Output Helpers
// =============================================================================

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

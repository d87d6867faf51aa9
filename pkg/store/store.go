// Package store persists strategy documents.
//
// This package defines the storage interface for saved strategies, with
// implementations for different backends:
//   - memory: In-memory storage for development/testing
//   - file: JSON files under the config directory for CLI usage
//   - redis: Redis-backed storage for multi-instance deployments
//   - mongo: MongoDB-backed storage
//   - sqlite: Single-file SQLite storage
//
// # Architecture
//
// A stored [Document] wraps the graph export format as an opaque payload
// and adds identity and bookkeeping: ID, display name, and timestamps.
// The [Store] interface supports:
//   - Get/Put/Delete by document ID
//   - List returning lightweight summaries, newest first
//   - Cleanup of stale unnamed drafts
//
// Documents without a name are drafts (autosaves). Cleanup prunes drafts
// whose last update is older than the given window; named documents are
// never pruned.
//
// # Usage
//
// Create a store:
//
//	// Development
//	s := store.NewMemoryStore()
//
//	// CLI
//	s, err := store.NewFileStore("") // uses ~/.config/strategraph/documents/
//
//	// Multi-instance
//	s := store.NewRedisStore("localhost:6379", "", 0)
//
// Save and load:
//
//	doc := store.New("momentum", editor.Manager().ExportDocument())
//	if err := s.Put(ctx, doc); err != nil {
//	    return err
//	}
//
//	doc, err := s.Get(ctx, id)
//	if store.IsNotFound(err) {
//	    // No such document.
//	}
package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/graph"
)

// Document is a stored strategy. Graph carries the full export format,
// including canvas state; the store never interprets it.
type Document struct {
	ID        string         `json:"id" bson:"_id"`
	Name      string         `json:"name,omitempty" bson:"name,omitempty"`
	Graph     graph.Document `json:"graph" bson:"graph"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

// Draft reports whether the document is an unnamed autosave.
func (d *Document) Draft() bool { return d.Name == "" }

// Summary is the listing projection of a document.
type Summary struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name,omitempty" bson:"name,omitempty"`
	Nodes       int       `json:"nodes" bson:"nodes"`
	Connections int       `json:"connections" bson:"connections"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for document storage backends.
type Store interface {
	// Get retrieves a document by ID. Returns an error with code
	// DOCUMENT_NOT_FOUND when no such document exists.
	Get(ctx context.Context, id string) (*Document, error)

	// Put stores a document, overwriting any previous version. The
	// document's UpdatedAt is stamped, and CreatedAt on first save.
	Put(ctx context.Context, doc *Document) error

	// Delete removes a document. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns summaries of all documents, most recently updated
	// first.
	List(ctx context.Context) ([]Summary, error)

	// Cleanup removes unnamed drafts whose last update is older than
	// olderThan. A non-positive window removes nothing.
	Cleanup(ctx context.Context, olderThan time.Duration) error

	// Close releases backend resources.
	Close() error
}

// New creates a document ready for Put. An empty name marks a draft.
func New(name string, g graph.Document) *Document {
	now := time.Now()
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		Graph:     g,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsNotFound reports whether err is a missing-document error.
func IsNotFound(err error) bool {
	return errors.GetCode(err) == errors.ErrCodeDocumentNotFound
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeDocumentNotFound, "document %s not found", id)
}

// validateID rejects IDs that are empty or unsafe as file names.
func validateID(id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document ID must not be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return errors.New(errors.ErrCodeInvalidInput, "document ID %q contains path characters", id)
	}
	return nil
}

// stamp validates and timestamps a document before storage.
func stamp(doc *Document) error {
	if doc == nil {
		return errors.New(errors.ErrCodeInvalidInput, "document must not be nil")
	}
	if err := validateID(doc.ID); err != nil {
		return err
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return nil
}

func summarize(doc *Document) Summary {
	return Summary{
		ID:          doc.ID,
		Name:        doc.Name,
		Nodes:       len(doc.Graph.Nodes),
		Connections: len(doc.Graph.Connections),
		UpdatedAt:   doc.UpdatedAt,
	}
}

// sortSummaries orders by UpdatedAt descending, ties broken by ID so
// every backend lists identically.
func sortSummaries(out []Summary) {
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fbecker/strategraph/pkg/errors"
)

// SQLiteStore persists documents in a single SQLite file. The full
// document is stored as a JSON payload; name, size counts and
// timestamps are kept in columns so listing and cleanup stay in SQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. If path is
// empty it defaults to ~/.config/strategraph/documents.db.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "resolve home directory")
		}
		path = filepath.Join(home, ".config", "strategraph", "documents.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create database directory")
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "open sqlite database")
	}
	// SQLite supports one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			nodes INTEGER NOT NULL DEFAULT 0,
			connections INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errors.Wrap(errors.ErrCodeStore, err, "migrate documents table")
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read document %s", id)
	}

	var doc Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "parse document %s", id)
	}
	return &doc, nil
}

func (s *SQLiteStore) Put(ctx context.Context, doc *Document) error {
	if err := stamp(doc); err != nil {
		return err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode document %s", doc.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, payload, nodes, connections, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			nodes = excluded.nodes,
			connections = excluded.connections,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Name, string(payload),
		len(doc.Graph.Nodes), len(doc.Graph.Connections),
		doc.CreatedAt.UnixNano(), doc.UpdatedAt.UnixNano())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write document %s", doc.ID)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete document %s", id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, nodes, connections, updated_at
		FROM documents
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list documents")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated int64
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Nodes, &sum.Connections, &updated); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "scan document row")
		}
		sum.UpdatedAt = time.Unix(0, updated)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "iterate document rows")
	}
	if out == nil {
		out = []Summary{}
	}
	sortSummaries(out)
	return out, nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE name = '' AND updated_at < ?`,
		cutoff.UnixNano()); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "cleanup stale drafts")
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ Store = (*SQLiteStore)(nil)

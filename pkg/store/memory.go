package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fbecker/strategraph/pkg/errors"
)

// MemoryStore keeps documents in memory. Entries are held as encoded
// JSON so readers and writers never share graph slices with the store.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	raw, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode document %s", id)
	}
	return &doc, nil
}

func (s *MemoryStore) Put(ctx context.Context, doc *Document) error {
	if err := stamp(doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode document %s", doc.ID)
	}

	s.mu.Lock()
	s.docs[doc.ID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.docs))
	for id, raw := range s.docs {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "decode document %s", id)
		}
		out = append(out, summarize(&doc))
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, raw := range s.docs {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if doc.Draft() && doc.UpdatedAt.Before(cutoff) {
			delete(s.docs, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

package store

import (
	"context"
	"time"

	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/observability"
)

// InstrumentedStore wraps a Store and reports operation timings and
// outcomes through the observability store hooks. With the default
// no-op hooks the wrapper adds only a clock read per operation.
type InstrumentedStore struct {
	inner   Store
	backend string
}

// NewInstrumentedStore wraps inner, labeling every event with the given
// backend name.
func NewInstrumentedStore(inner Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, backend: backend}
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (*Document, error) {
	start := time.Now()
	doc, err := s.inner.Get(ctx, id)
	observability.Store().OnLoad(ctx, s.backend, id, time.Since(start), err)
	return doc, err
}

func (s *InstrumentedStore) Put(ctx context.Context, doc *Document) error {
	start := time.Now()
	err := s.inner.Put(ctx, doc)

	size := 0
	if data, merr := graph.MarshalDocument(doc.Graph); merr == nil {
		size = len(data)
	}
	observability.Store().OnSave(ctx, s.backend, doc.ID, size, time.Since(start), err)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	err := s.inner.Delete(ctx, id)
	observability.Store().OnDelete(ctx, s.backend, id, err)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context) ([]Summary, error) {
	return s.inner.List(ctx)
}

func (s *InstrumentedStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	return s.inner.Cleanup(ctx, olderThan)
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

var _ Store = (*InstrumentedStore)(nil)

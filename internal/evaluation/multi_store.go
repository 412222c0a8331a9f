package evaluation

import (
	"context"
	"errors"
	"fmt"
)

// MultiStore upserts into every store in order. List reads from the first
// store, which is the primary log.
type MultiStore struct {
	stores []RecordStore
}

func NewMultiStore(primary RecordStore, mirrors ...RecordStore) *MultiStore {
	return &MultiStore{stores: append([]RecordStore{primary}, mirrors...)}
}

func (m *MultiStore) Upsert(ctx context.Context, rec Record) error {
	for i, s := range m.stores {
		if err := s.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("evaluation store %d: %w", i, err)
		}
	}
	return nil
}

func (m *MultiStore) List(ctx context.Context) ([]Record, error) {
	return m.stores[0].List(ctx)
}

func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

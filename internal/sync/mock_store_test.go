package sync

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

// mockStore is a minimal in-memory store for sync tests. Only the reads an
// export performs are implemented.
type mockStore struct {
	records map[string][]model.Record
	failOn  string
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string][]model.Record)}
}

var errNotSupported = errors.New("not supported by mock")

func (m *mockStore) List(_ context.Context, res model.Resource) ([]model.Record, error) {
	if res.Name == m.failOn {
		return nil, errors.New("connection reset")
	}
	return append([]model.Record{}, m.records[res.Name]...), nil
}

func (m *mockStore) Get(context.Context, model.Resource, int64) (model.Record, error) {
	return model.Record{}, store.ErrNotFound
}

func (m *mockStore) First(context.Context, model.Resource) (model.Record, error) {
	return model.Record{}, store.ErrNotFound
}

func (m *mockStore) Create(context.Context, model.Resource, model.Record) (model.Record, error) {
	return model.Record{}, errNotSupported
}

func (m *mockStore) Update(context.Context, model.Resource, int64, model.Record) (model.Record, error) {
	return model.Record{}, errNotSupported
}

func (m *mockStore) Delete(context.Context, model.Resource, int64) error {
	return errNotSupported
}

func (m *mockStore) AddChild(context.Context, model.Resource, model.ChildKind, int64, model.Record) (model.Record, error) {
	return model.Record{}, errNotSupported
}

func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Ping(context.Context) error { return nil }
func (m *mockStore) Close() error               { return nil }

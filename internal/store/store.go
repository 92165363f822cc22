package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/foundry/internal/model"
)

var (
	// ErrNotFound is returned when the addressed record (or a child's
	// parent) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when the database rejects a write because
	// of the values supplied: bad types, missing required columns or
	// references to rows that do not exist.
	ErrInvalidInput = errors.New("invalid input")
)

// Store defines the persistence interface for catalog resources. Records
// passed to writes are expected to be projected onto the resource's
// writable columns already (see model.Resource.Input).
type Store interface {
	// Reads. Aggregated resources come back with one array per child kind.
	List(ctx context.Context, res model.Resource) ([]model.Record, error)
	Get(ctx context.Context, res model.Resource, id int64) (model.Record, error)
	First(ctx context.Context, res model.Resource) (model.Record, error)

	// Writes return the stored row.
	Create(ctx context.Context, res model.Resource, rec model.Record) (model.Record, error)
	Update(ctx context.Context, res model.Resource, id int64, rec model.Record) (model.Record, error)
	Delete(ctx context.Context, res model.Resource, id int64) error
	AddChild(ctx context.Context, res model.Resource, kind model.ChildKind, parentID int64, rec model.Record) (model.Record, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

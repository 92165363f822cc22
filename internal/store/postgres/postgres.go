// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL and
// configures the connection pool. When autoMigrate is set, pending schema
// migrations are applied before returning.
func New(databaseURL string, autoMigrate bool) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if autoMigrate {
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) List(ctx context.Context, res model.Resource) ([]model.Record, error) {
	return queryList(ctx, s.db, res)
}

func (s *PostgresStore) Get(ctx context.Context, res model.Resource, id int64) (model.Record, error) {
	return queryGet(ctx, s.db, res, id)
}

func (s *PostgresStore) First(ctx context.Context, res model.Resource) (model.Record, error) {
	return queryFirst(ctx, s.db, res)
}

func (s *PostgresStore) Create(ctx context.Context, res model.Resource, rec model.Record) (model.Record, error) {
	return queryCreate(ctx, s.db, res, rec)
}

func (s *PostgresStore) Update(ctx context.Context, res model.Resource, id int64, rec model.Record) (model.Record, error) {
	return queryUpdate(ctx, s.db, res, id, rec)
}

func (s *PostgresStore) Delete(ctx context.Context, res model.Resource, id int64) error {
	return queryDelete(ctx, s.db, res, id)
}

func (s *PostgresStore) AddChild(ctx context.Context, res model.Resource, kind model.ChildKind, parentID int64, rec model.Record) (model.Record, error) {
	return queryAddChild(ctx, s.db, res, kind, parentID, rec)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) List(ctx context.Context, res model.Resource) ([]model.Record, error) {
	return queryList(ctx, s.tx, res)
}

func (s *txStore) Get(ctx context.Context, res model.Resource, id int64) (model.Record, error) {
	return queryGet(ctx, s.tx, res, id)
}

func (s *txStore) First(ctx context.Context, res model.Resource) (model.Record, error) {
	return queryFirst(ctx, s.tx, res)
}

func (s *txStore) Create(ctx context.Context, res model.Resource, rec model.Record) (model.Record, error) {
	return queryCreate(ctx, s.tx, res, rec)
}

func (s *txStore) Update(ctx context.Context, res model.Resource, id int64, rec model.Record) (model.Record, error) {
	return queryUpdate(ctx, s.tx, res, id, rec)
}

func (s *txStore) Delete(ctx context.Context, res model.Resource, id int64) error {
	return queryDelete(ctx, s.tx, res, id)
}

func (s *txStore) AddChild(ctx context.Context, res model.Resource, kind model.ChildKind, parentID int64, rec model.Record) (model.Record, error) {
	return queryAddChild(ctx, s.tx, res, kind, parentID, rec)
}

// RunInTransaction on a txStore runs fn within the existing transaction.
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Ping(context.Context) error { return nil }

// Close is a no-op; the owning PostgresStore manages the transaction.
func (s *txStore) Close() error { return nil }

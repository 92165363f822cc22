package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres error codes mapped onto store errors.
const (
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
	codeStringTooLong       = "22001"
	codeNumericOutOfRange   = "22003"
	codeInvalidDatetime     = "22007"
)

func queryRecords(ctx context.Context, db executor, children map[string]bool, query string, args ...any) ([]model.Record, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, children)
}

func queryList(ctx context.Context, db executor, res model.Resource) ([]model.Record, error) {
	recs, err := queryRecords(ctx, db, childNames(res), listQuery(res))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", res.Name, err)
	}
	return recs, nil
}

func queryGet(ctx context.Context, db executor, res model.Resource, id int64) (model.Record, error) {
	recs, err := queryRecords(ctx, db, childNames(res), getQuery(res), id)
	if err != nil {
		return model.Record{}, fmt.Errorf("get %s %d: %w", res.Name, id, err)
	}
	if len(recs) == 0 {
		return model.Record{}, fmt.Errorf("%s %d: %w", res.Name, id, store.ErrNotFound)
	}
	return recs[0], nil
}

func queryFirst(ctx context.Context, db executor, res model.Resource) (model.Record, error) {
	recs, err := queryRecords(ctx, db, childNames(res), firstQuery(res))
	if err != nil {
		return model.Record{}, fmt.Errorf("get %s: %w", res.Name, err)
	}
	if len(recs) == 0 {
		return model.Record{}, fmt.Errorf("%s: %w", res.Name, store.ErrNotFound)
	}
	return recs[0], nil
}

// writable keeps only the record fields that are declared columns, so
// identifiers interpolated into SQL always come from the catalog.
func writable(cols []string, rec model.Record) ([]string, []any) {
	allowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}
	var names []string
	var args []any
	for _, f := range rec.Fields() {
		if !allowed[f.Name] {
			continue
		}
		names = append(names, f.Name)
		args = append(args, f.Value.SQLArg())
	}
	return names, args
}

func insertQuery(table string, names []string, extra ...string) string {
	names = append(append([]string{}, extra...), names...)
	if len(names) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", table)
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

func queryCreate(ctx context.Context, db executor, res model.Resource, rec model.Record) (model.Record, error) {
	names, args := writable(res.Columns, rec)
	recs, err := queryRecords(ctx, db, nil, insertQuery(res.Table, names), args...)
	if err != nil {
		return model.Record{}, fmt.Errorf("create %s: %w", res.Name, mapWriteError(err))
	}
	if len(recs) == 0 {
		return model.Record{}, fmt.Errorf("create %s: no row returned", res.Name)
	}
	return recs[0], nil
}

func queryUpdate(ctx context.Context, db executor, res model.Resource, id int64, rec model.Record) (model.Record, error) {
	names, args := writable(res.Columns, rec)
	if len(names) == 0 {
		return queryGetRow(ctx, db, res, id)
	}
	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = fmt.Sprintf("%s = $%d", n, i+1)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
		res.Table, strings.Join(sets, ", "), len(args))
	recs, err := queryRecords(ctx, db, nil, query, args...)
	if err != nil {
		return model.Record{}, fmt.Errorf("update %s %d: %w", res.Name, id, mapWriteError(err))
	}
	if len(recs) == 0 {
		return model.Record{}, fmt.Errorf("%s %d: %w", res.Name, id, store.ErrNotFound)
	}
	return recs[0], nil
}

// queryGetRow reads the bare table row, without joins or children.
func queryGetRow(ctx context.Context, db executor, res model.Resource, id int64) (model.Record, error) {
	recs, err := queryRecords(ctx, db, nil, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", res.Table), id)
	if err != nil {
		return model.Record{}, fmt.Errorf("get %s %d: %w", res.Name, id, err)
	}
	if len(recs) == 0 {
		return model.Record{}, fmt.Errorf("%s %d: %w", res.Name, id, store.ErrNotFound)
	}
	return recs[0], nil
}

func queryDelete(ctx context.Context, db executor, res model.Resource, id int64) error {
	result, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", res.Table), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", res.Name, id, mapWriteError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", res.Name, id, store.ErrNotFound)
	}
	return nil
}

// queryAddChild inserts one child row. The parent's existence is enforced by
// the foreign key; a violation means the parent is missing.
func queryAddChild(ctx context.Context, db executor, res model.Resource, kind model.ChildKind, parentID int64, rec model.Record) (model.Record, error) {
	names, args := writable(kind.Writable(), rec)
	args = append([]any{parentID}, args...)
	recs, err := queryRecords(ctx, db, nil, insertQuery(kind.Table, names, kind.ForeignKey), args...)
	if err != nil {
		if isPQCode(err, codeForeignKeyViolation) {
			return model.Record{}, fmt.Errorf("%s %d: %w", res.Name, parentID, store.ErrNotFound)
		}
		return model.Record{}, fmt.Errorf("add %s to %s %d: %w", kind.Name, res.Name, parentID, mapWriteError(err))
	}
	if len(recs) == 0 {
		return model.Record{}, fmt.Errorf("add %s: no row returned", kind.Name)
	}
	return recs[0], nil
}

// mapWriteError tags errors caused by the supplied values with
// store.ErrInvalidInput, keeping the driver message.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeForeignKeyViolation, codeNotNullViolation, codeInvalidText,
		codeStringTooLong, codeNumericOutOfRange, codeInvalidDatetime:
		return fmt.Errorf("%w: %s", store.ErrInvalidInput, pqErr.Message)
	}
	return err
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

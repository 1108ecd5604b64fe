package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// PgStore implements sparkload.Store on one pgx connection.
// Thread-Safety: NOT safe for concurrent use; neither is *pgx.Conn.
type PgStore struct {
	conn *pgx.Conn
}

// New wraps an established connection. The store takes ownership of conn
// and closes it in Close.
// Panics if conn is nil.
func New(conn *pgx.Conn) *PgStore {
	if conn == nil {
		panic("conn cannot be nil")
	}
	return &PgStore{conn: conn}
}

// Conn exposes the underlying connection for schema bootstrap.
func (s *PgStore) Conn() *pgx.Conn { return s.conn }

func (s *PgStore) Begin(ctx context.Context) (sparkload.Tx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// EnsureSchema applies the bootstrap DDL on the store's connection.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, s.conn)
}

func (s *PgStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, stmt sparkload.StatementID, args ...any) error {
	sql, ok := SQL(stmt)
	if !ok {
		return opError(stmt, errors.New("unknown statement"))
	}
	if _, err := t.tx.Exec(ctx, sql, args...); err != nil {
		return opError(stmt, err)
	}
	return nil
}

// QueryOne runs the select inside a savepoint. A failing select would
// otherwise abort the whole transaction and every later insert of the file.
func (t *pgTx) QueryOne(ctx context.Context, stmt sparkload.StatementID, args []any, dest ...any) (bool, error) {
	sql, ok := SQL(stmt)
	if !ok {
		return false, opError(stmt, errors.New("unknown statement"))
	}

	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return false, opError(stmt, fmt.Errorf("savepoint: %w", err))
	}

	err = sp.QueryRow(ctx, sql, args...).Scan(dest...)
	switch {
	case err == nil:
		return true, sp.Commit(ctx)
	case errors.Is(err, pgx.ErrNoRows):
		return false, sp.Commit(ctx)
	default:
		_ = sp.Rollback(ctx)
		return false, opError(stmt, err)
	}
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

var _ sparkload.Store = (*PgStore)(nil)

package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schemaSQL string

// SchemaSQL returns the bootstrap DDL.
func SchemaSQL() string { return schemaSQL }

// EnsureSchema creates the star schema tables that do not exist yet.
// Existing tables are never altered.
func EnsureSchema(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

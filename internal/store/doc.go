// Package store implements sparkload.Store on a single pgx connection.
//
// SQL text lives in statements.go keyed by sparkload.StatementID; the
// pipeline never sees it. schema.sql is an idempotent bootstrap of the star
// schema (CREATE TABLE IF NOT EXISTS only) and is not a migration tool.
package store

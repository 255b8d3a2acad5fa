package datasource

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terracore/terracore-pro/internal/platform/db"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL the Store reads from.
func Schema() string {
	return schema
}

// Migrate creates missing tables and indexes in one transaction. It is safe
// to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("datasource: migrate: %w", err)
		}
		return nil
	})
}

// Package factory wires the content query engine for external callers.
package factory

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loamcms/loam"
	"github.com/loamcms/loam/internal"
)

// NewPostgresQueryEngine creates a ContentQueryEngine that compiles
// Postgres-dialect SQL and executes it on the given pool.
//
// Usage:
//
//	config := loam.DefaultConfig()
//	engine := factory.NewPostgresQueryEngine(pool, registry, config)
//	items, err := engine.Query(ctx, req)
//
// For a snapshot-consistent export, scope the engine to a transaction:
//
//	tx, _ := pool.Begin(ctx)
//	defer tx.Rollback(ctx)
//	items, err := engine.WithPgTx(tx).QueryAllAsTransaction(ctx, req)
func NewPostgresQueryEngine(pool *pgxpool.Pool, types loam.ContentTypeResolver, config *loam.Config) loam.ContentQueryEngine {
	return internal.NewPostgresQueryEngine(pool, types, config)
}

// NewSQLServerQueryEngine creates a ContentQueryEngine that compiles
// SQL Server-dialect SQL and executes it through database/sql. The db
// handle is typically opened with the sqlserver driver; the engine
// never manages its lifecycle.
func NewSQLServerQueryEngine(db *sql.DB, types loam.ContentTypeResolver, config *loam.Config) loam.ContentQueryEngine {
	return internal.NewSQLServerQueryEngine(db, types, config)
}

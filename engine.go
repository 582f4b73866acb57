package loam

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ContentQueryRequest describes one listing, export or count over a
// content type. The filter tree and identifiers are expected to be
// pre-validated by the admin layer; the engine still fails fast with a
// typed validation error on anything malformed, before any SQL runs.
type ContentQueryRequest struct {
	ContentTypeID uuid.UUID `json:"contentTypeId"`

	// SearchColumns are field developer names (or raw content item
	// column names) matched with an OR-joined LIKE when Search is
	// non-empty.
	SearchColumns []string `json:"searchColumns,omitempty"`
	Search        string   `json:"search,omitempty"`

	// Filter is the boolean filter tree; nil matches everything.
	Filter Condition `json:"filter,omitempty"`

	// PageNumber is 1-based; zero or negative values are clamped to 1.
	// PageSize falls back to the configured default and is capped at
	// the configured maximum.
	PageSize   int `json:"pageSize,omitempty"`
	PageNumber int `json:"pageNumber,omitempty"`

	// OrderBy is a comma-separated "<field> <asc|desc>" list. Empty
	// means creation time, newest first.
	OrderBy string `json:"orderBy,omitempty"`
}

// UnmarshalJSON decodes the request, routing the interface-typed filter
// through the condition discriminator.
func (r *ContentQueryRequest) UnmarshalJSON(data []byte) error {
	type requestAlias ContentQueryRequest
	aux := struct {
		*requestAlias
		Filter json.RawMessage `json:"filter,omitempty"`
	}{requestAlias: (*requestAlias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Filter) == 0 || bytes.Equal(aux.Filter, []byte("null")) {
		r.Filter = nil
		return nil
	}
	filter, err := unmarshalCondition(aux.Filter)
	if err != nil {
		return err
	}
	r.Filter = filter
	return nil
}

// ContentQueryEngine is the call surface of the content query engine.
// The engine itself is stateless: each invocation compiles a fresh SQL
// string and runs it on the caller-supplied handle, so one engine may
// be shared freely across goroutines.
type ContentQueryEngine interface {
	// FirstOrDefault is a point lookup by primary key.
	FirstOrDefault(ctx context.Context, id uuid.UUID) (*ContentItem, error)

	// Query returns one page of filtered, searched, sorted items.
	Query(ctx context.Context, req *ContentQueryRequest) ([]*ContentItem, error)

	// QueryAllAsTransaction returns every matching item unpaged. The
	// engine must have been scoped to a caller-supplied transaction
	// (WithPgTx / WithSQLTx) so a large export reads one consistent
	// snapshot; calling it unscoped is a validation error.
	QueryAllAsTransaction(ctx context.Context, req *ContentQueryRequest) ([]*ContentItem, error)

	// Count runs the identical filter and search compilation wrapped
	// in SELECT COUNT(*).
	Count(ctx context.Context, req *ContentQueryRequest) (int64, error)

	// WithPgTx returns a copy of the engine that issues every statement
	// on the given Postgres transaction.
	WithPgTx(tx pgx.Tx) ContentQueryEngine

	// WithSQLTx returns a copy of the engine that issues every
	// statement on the given database/sql transaction (SQL Server
	// dialect).
	WithSQLTx(tx *sql.Tx) ContentQueryEngine
}

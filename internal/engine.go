package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/loamcms/loam"
	"go.uber.org/zap"
)

// pgQuerier is the narrow slice of a pgx pool or transaction the engine
// needs. pgxpool.Pool, pgx.Tx and pgxmock all satisfy it.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sqlQuerier is the database/sql equivalent for the SQL Server dialect.
// *sql.DB and *sql.Tx both satisfy it.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// QueryEngine compiles and executes content item queries for one
// dialect. It holds no mutable state across calls; compilation is pure
// string assembly and execution runs on whichever handle the engine was
// scoped to.
type QueryEngine struct {
	dialect loam.Dialect
	pg      pgQuerier
	db      sqlQuerier
	types   loam.ContentTypeResolver
	tables  loam.TableNames
	query   loam.QueryConfig
	inTx    bool
}

// NewPostgresQueryEngine builds an engine executing on a pgx handle.
func NewPostgresQueryEngine(pool pgQuerier, types loam.ContentTypeResolver, config *loam.Config) *QueryEngine {
	if config == nil {
		config = loam.DefaultConfig()
	}
	config.Normalize()
	return &QueryEngine{
		dialect: loam.DialectPostgres,
		pg:      pool,
		types:   types,
		tables:  config.Database.TableNames,
		query:   config.Query,
	}
}

// NewSQLServerQueryEngine builds an engine executing on a database/sql
// handle.
func NewSQLServerQueryEngine(db sqlQuerier, types loam.ContentTypeResolver, config *loam.Config) *QueryEngine {
	if config == nil {
		config = loam.DefaultConfig()
	}
	config.Normalize()
	return &QueryEngine{
		dialect: loam.DialectSQLServer,
		db:      db,
		types:   types,
		tables:  config.Database.TableNames,
		query:   config.Query,
	}
}

// WithPgTx scopes a copy of the engine to a caller-supplied Postgres
// transaction. Every statement the copy issues runs on that
// transaction; the engine never opens a second connection.
func (e *QueryEngine) WithPgTx(tx pgx.Tx) loam.ContentQueryEngine {
	scoped := *e
	scoped.pg = tx
	scoped.inTx = true
	return &scoped
}

// WithSQLTx scopes a copy of the engine to a caller-supplied
// database/sql transaction.
func (e *QueryEngine) WithSQLTx(tx *sql.Tx) loam.ContentQueryEngine {
	scoped := *e
	scoped.db = tx
	scoped.inTx = true
	return &scoped
}

// FirstOrDefault is a point lookup by primary key. No filter tree is
// involved; the id is the only parameterized value the engine ever
// sends.
func (e *QueryEngine) FirstOrDefault(ctx context.Context, id uuid.UUID) (*loam.ContentItem, error) {
	builder := Select().
		Columns(AsFullLabels(ContentItemColumns, SourceItemAlias)...).
		Columns(AsFullLabels(UserColumns, SourceCreatorAlias)...).
		Columns(AsFullLabels(UserColumns, SourceModifierAlias)...).
		Columns(AsFullLabels(RouteColumns, SourceRouteAlias)...).
		From(e.tables.ContentItems + " " + SourceItemAlias)
	e.joinBaseTables(builder, SourceItemAlias, SourceCreatorAlias, SourceModifierAlias, SourceRouteAlias)

	var args []any
	switch e.dialect {
	case loam.DialectPostgres:
		builder.AndWhere(ColID.AsColumn(SourceItemAlias) + " = $1")
		args = []any{id}
	case loam.DialectSQLServer:
		builder.AndWhere(ColID.AsColumn(SourceItemAlias) + " = @p1")
		args = []any{id.String()}
	default:
		return nil, loam.NewUnsupportedDialectError(string(e.dialect))
	}

	sqlText := builder.Build()
	zap.S().Debugw("content item lookup", "sql", sqlText, "id", id)

	rows, err := e.fetchRows(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, loam.NewContentItemNotFoundError(id)
	}
	return scanContentItem(rows[0], SourceItemAlias, SourceCreatorAlias, SourceModifierAlias, SourceRouteAlias)
}

// Query returns one page of filtered, searched, sorted content items.
func (e *QueryEngine) Query(ctx context.Context, req *loam.ContentQueryRequest) ([]*loam.ContentItem, error) {
	if req == nil {
		return nil, loam.NewInvalidFilterError("query request cannot be nil")
	}

	contentType, err := e.types.ContentTypeByID(ctx, req.ContentTypeID)
	if err != nil {
		return nil, err
	}

	sqlText, err := e.buildListQuery(contentType, req, true)
	if err != nil {
		return nil, err
	}
	zap.S().Debugw("content query", "contentType", contentType.DeveloperName, "sql", sqlText)

	return e.executeList(ctx, sqlText, contentType)
}

// QueryAllAsTransaction returns every matching item without paging. The
// engine must already be scoped to a caller-supplied transaction so a
// potentially very large export reads one consistent snapshot.
func (e *QueryEngine) QueryAllAsTransaction(ctx context.Context, req *loam.ContentQueryRequest) ([]*loam.ContentItem, error) {
	if !e.inTx {
		return nil, loam.NewTransactionRequiredError("QueryAllAsTransaction")
	}
	if req == nil {
		return nil, loam.NewInvalidFilterError("query request cannot be nil")
	}

	contentType, err := e.types.ContentTypeByID(ctx, req.ContentTypeID)
	if err != nil {
		return nil, err
	}

	sqlText, err := e.buildListQuery(contentType, req, false)
	if err != nil {
		return nil, err
	}
	zap.S().Debugw("content query (snapshot)", "contentType", contentType.DeveloperName, "sql", sqlText)

	return e.executeList(ctx, sqlText, contentType)
}

// Count runs the identical WHERE and search compilation wrapped in a
// SELECT COUNT(*) shape, with no ordering or paging.
func (e *QueryEngine) Count(ctx context.Context, req *loam.ContentQueryRequest) (int64, error) {
	if req == nil {
		return 0, loam.NewInvalidFilterError("query request cannot be nil")
	}

	contentType, err := e.types.ContentTypeByID(ctx, req.ContentTypeID)
	if err != nil {
		return 0, err
	}

	builder := Select("COUNT(*) as total").
		From(e.tables.ContentItems + " " + SourceItemAlias)
	if err := e.applyFilters(builder, contentType, req); err != nil {
		return 0, err
	}

	sqlText := builder.Build()
	zap.S().Debugw("content count", "contentType", contentType.DeveloperName, "sql", sqlText)

	var total int64
	switch e.dialect {
	case loam.DialectPostgres:
		err = e.pg.QueryRow(ctx, sqlText).Scan(&total)
	case loam.DialectSQLServer:
		err = e.db.QueryRowContext(ctx, sqlText).Scan(&total)
	default:
		return 0, loam.NewUnsupportedDialectError(string(e.dialect))
	}
	if err != nil {
		return 0, loam.NewQueryExecutionError("execute count", err)
	}
	return total, nil
}

// BuildListSQL compiles the listing statement without executing it.
// Used by tooling that wants to inspect the generated SQL.
func (e *QueryEngine) BuildListSQL(contentType *loam.ContentType, req *loam.ContentQueryRequest, paged bool) (string, error) {
	return e.buildListQuery(contentType, req, paged)
}

// buildListQuery compiles the full SELECT for a listing, including the
// related-record projection when the content type declares a one-to-one
// relationship field.
func (e *QueryEngine) buildListQuery(contentType *loam.ContentType, req *loam.ContentQueryRequest, paged bool) (string, error) {
	builder := Select().
		Columns(AsFullLabels(ContentItemColumns, SourceItemAlias)...).
		Columns(AsFullLabels(UserColumns, SourceCreatorAlias)...).
		Columns(AsFullLabels(UserColumns, SourceModifierAlias)...).
		Columns(AsFullLabels(RouteColumns, SourceRouteAlias)...).
		From(e.tables.ContentItems + " " + SourceItemAlias)
	e.joinBaseTables(builder, SourceItemAlias, SourceCreatorAlias, SourceModifierAlias, SourceRouteAlias)

	relationship := e.relatedProjectionField(contentType)
	if relationship != nil {
		if err := e.joinRelatedTables(builder, relationship); err != nil {
			return "", err
		}
		builder.
			Columns(AsFullLabels(ContentItemColumns, RelatedItemAlias)...).
			Columns(AsFullLabels(UserColumns, RelatedCreatorAlias)...).
			Columns(AsFullLabels(UserColumns, RelatedModifierAlias)...).
			Columns(AsFullLabels(RouteColumns, RelatedRouteAlias)...)
	}

	if err := e.applyFilters(builder, contentType, req); err != nil {
		return "", err
	}
	if err := e.applyOrderBy(builder, contentType, req.OrderBy); err != nil {
		return "", err
	}

	sqlText := builder.Build()
	if paged {
		suffix, err := e.pagingSuffix(req)
		if err != nil {
			return "", err
		}
		sqlText += suffix
	}
	return sqlText, nil
}

// applyFilters adds the content type constraint, the compiled filter
// tree and the OR-joined search clause. All three are shared by listing
// and counting so the two can never disagree.
func (e *QueryEngine) applyFilters(builder *SelectStatementBuilder, contentType *loam.ContentType, req *loam.ContentQueryRequest) error {
	builder.AndWhere(ColContentTypeID.AsColumn(SourceItemAlias) + " = " + loam.QuoteLiteral(req.ContentTypeID.String()))

	compiler := NewFilterCompiler(e.dialect, contentType)
	clause, err := compiler.Compile(req.Filter)
	if err != nil {
		return err
	}
	if clause != matchAllClause {
		builder.AndWhere("(" + clause + ")")
	}

	search, err := e.searchClause(contentType, req.SearchColumns, req.Search)
	if err != nil {
		return err
	}
	builder.AndWhere(search)
	return nil
}

// searchClause builds the OR-joined LIKE fragment across the requested
// search columns. Columns resolve first as content type fields, then as
// raw content item columns; anything else is skipped.
func (e *QueryEngine) searchClause(contentType *loam.ContentType, searchColumns []string, search string) (string, error) {
	if strings.TrimSpace(search) == "" || len(searchColumns) == 0 {
		return "", nil
	}

	pattern := "%" + search + "%"
	var fragments []string
	for _, name := range searchColumns {
		if field, ok := contentType.Field(name); ok {
			fieldType, err := field.ResolveType()
			if err != nil {
				return "", err
			}
			fragment, err := fieldType.PatternMatchExpression(e.dialect, SourceItemAlias, string(ColPublishedContent), field.DeveloperName, pattern)
			if err != nil {
				return "", err
			}
			fragments = append(fragments, fragment)
			continue
		}
		if column, ok := rawContentItemColumn(name); ok {
			fragments = append(fragments, e.rawColumnMatch(column, pattern))
			continue
		}
		zap.S().Debugw("skipping unknown search column", "column", name, "contentType", contentType.DeveloperName)
	}

	if len(fragments) == 0 {
		return "", nil
	}
	return "(" + strings.Join(fragments, " OR ") + ")", nil
}

// rawColumnMatch produces a case-insensitive LIKE over a physical
// column, coerced to text so non-text columns remain searchable.
func (e *QueryEngine) rawColumnMatch(column RawColumn, pattern string) string {
	switch e.dialect {
	case loam.DialectSQLServer:
		return fmt.Sprintf("CONVERT(NVARCHAR(MAX), %s) LIKE %s", column.AsColumn(SourceItemAlias), loam.QuoteLiteral(pattern))
	default:
		return fmt.Sprintf("%s::text ILIKE %s", column.AsColumn(SourceItemAlias), loam.QuoteLiteral(pattern))
	}
}

// applyOrderBy resolves each "<field> <asc|desc>" term through the
// field registry, falling back to raw content item columns. An empty
// order-by defaults to creation time, newest first.
func (e *QueryEngine) applyOrderBy(builder *SelectStatementBuilder, contentType *loam.ContentType, orderBy string) error {
	terms, err := loam.ParseOrderBy(orderBy)
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		builder.OrderBy(ColCreationTime.AsColumn(SourceItemAlias) + " " + string(loam.SortOrderDesc))
		return nil
	}

	for _, term := range terms {
		if field, ok := contentType.Field(term.Field); ok {
			fieldType, err := field.ResolveType()
			if err != nil {
				return err
			}
			expr, err := fieldType.OrderByExpression(e.dialect, SourceItemAlias, string(ColPublishedContent), field.DeveloperName, term.Direction)
			if err != nil {
				return err
			}
			builder.OrderBy(expr)
			continue
		}
		if column, ok := rawContentItemColumn(term.Field); ok {
			builder.OrderBy(column.AsColumn(SourceItemAlias) + " " + string(term.Direction))
			continue
		}
		return loam.NewFieldNotFoundError(term.Field, contentType.DeveloperName)
	}
	return nil
}

// pagingSuffix renders the dialect's offset/limit clause. Page numbers
// are 1-based; zero or negative pages are clamped to the first page.
func (e *QueryEngine) pagingSuffix(req *loam.ContentQueryRequest) (string, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = e.query.DefaultPageSize
	}
	if pageSize > e.query.MaxPageSize {
		pageSize = e.query.MaxPageSize
	}
	pageNumber := req.PageNumber
	if pageNumber < 1 {
		pageNumber = 1
	}
	offset := (pageNumber - 1) * pageSize

	switch e.dialect {
	case loam.DialectPostgres:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, offset), nil
	case loam.DialectSQLServer:
		return fmt.Sprintf(" OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, pageSize), nil
	}
	return "", loam.NewUnsupportedDialectError(string(e.dialect))
}

func (e *QueryEngine) joinBaseTables(builder *SelectStatementBuilder, itemAlias, creatorAlias, modifierAlias, routeAlias string) {
	builder.
		LeftJoin(e.tables.Users+" "+creatorAlias,
			ColID.AsColumn(creatorAlias)+" = "+ColCreatorUserID.AsColumn(itemAlias)).
		LeftJoin(e.tables.Users+" "+modifierAlias,
			ColID.AsColumn(modifierAlias)+" = "+ColLastModifierUserID.AsColumn(itemAlias)).
		LeftJoin(e.tables.Routes+" "+routeAlias,
			ColID.AsColumn(routeAlias)+" = "+ColRouteID.AsColumn(itemAlias))
}

// relatedProjectionField picks the relationship field whose target row
// is projected under the related alias namespace. With the single
// related namespace only the first declared relationship is projected;
// further relationship fields stay filterable by id.
func (e *QueryEngine) relatedProjectionField(contentType *loam.ContentType) *loam.ContentTypeField {
	relationships := contentType.RelationshipFields()
	if len(relationships) == 0 {
		return nil
	}
	return &relationships[0]
}

// joinRelatedTables joins the related content item row via the id
// stored in the relationship field of the primary item's blob, plus the
// related item's own users and route.
func (e *QueryEngine) joinRelatedTables(builder *SelectStatementBuilder, field *loam.ContentTypeField) error {
	relationshipType, err := field.ResolveType()
	if err != nil {
		return err
	}
	storedID, err := relationshipType.SingleValueExpression(e.dialect, SourceItemAlias, string(ColPublishedContent), field.DeveloperName)
	if err != nil {
		return err
	}
	idType, err := loam.ResolveFieldType(loam.FieldTypeID)
	if err != nil {
		return err
	}
	relatedID, err := idType.SingleValueExpression(e.dialect, RelatedItemAlias, string(ColPublishedContent), loam.FieldTypeID)
	if err != nil {
		return err
	}

	builder.
		LeftJoin(e.tables.ContentItems+" "+RelatedItemAlias, relatedID+" = "+storedID).
		LeftJoin(e.tables.Users+" "+RelatedCreatorAlias,
			ColID.AsColumn(RelatedCreatorAlias)+" = "+ColCreatorUserID.AsColumn(RelatedItemAlias)).
		LeftJoin(e.tables.Users+" "+RelatedModifierAlias,
			ColID.AsColumn(RelatedModifierAlias)+" = "+ColLastModifierUserID.AsColumn(RelatedItemAlias)).
		LeftJoin(e.tables.Routes+" "+RelatedRouteAlias,
			ColID.AsColumn(RelatedRouteAlias)+" = "+ColRouteID.AsColumn(RelatedItemAlias))
	return nil
}

// executeList runs a compiled listing statement and materializes items,
// attaching the related record when one was projected.
func (e *QueryEngine) executeList(ctx context.Context, sqlText string, contentType *loam.ContentType) ([]*loam.ContentItem, error) {
	rows, err := e.fetchRows(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	relationship := e.relatedProjectionField(contentType)
	items := make([]*loam.ContentItem, 0, len(rows))
	for _, row := range rows {
		item, err := scanContentItem(row, SourceItemAlias, SourceCreatorAlias, SourceModifierAlias, SourceRouteAlias)
		if err != nil {
			return nil, loam.NewInternalError("scan content item", err)
		}
		if item == nil {
			continue
		}
		if relationship != nil {
			related, err := scanContentItem(row, RelatedItemAlias, RelatedCreatorAlias, RelatedModifierAlias, RelatedRouteAlias)
			if err != nil {
				return nil, loam.NewInternalError("scan related content item", err)
			}
			if related != nil {
				item.Related = map[string]*loam.ContentItem{relationship.DeveloperName: related}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// fetchRows executes on the dialect's handle and normalizes every row
// into the label-keyed shape the scanner consumes.
func (e *QueryEngine) fetchRows(ctx context.Context, sqlText string, args ...any) ([]rowValues, error) {
	switch e.dialect {
	case loam.DialectPostgres:
		return e.fetchPgRows(ctx, sqlText, args...)
	case loam.DialectSQLServer:
		return e.fetchSQLRows(ctx, sqlText, args...)
	}
	return nil, loam.NewUnsupportedDialectError(string(e.dialect))
}

func (e *QueryEngine) fetchPgRows(ctx context.Context, sqlText string, args ...any) ([]rowValues, error) {
	rows, err := e.pg.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, loam.NewQueryExecutionError("execute query", err)
	}
	defer rows.Close()

	var out []rowValues
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, loam.NewQueryExecutionError("read row", err)
		}
		row := make(rowValues, len(values))
		for i, desc := range rows.FieldDescriptions() {
			row[desc.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, loam.NewQueryExecutionError("iterate rows", err)
	}
	return out, nil
}

func (e *QueryEngine) fetchSQLRows(ctx context.Context, sqlText string, args ...any) ([]rowValues, error) {
	rows, err := e.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, loam.NewQueryExecutionError("execute query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, loam.NewQueryExecutionError("read columns", err)
	}

	var out []rowValues
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, loam.NewQueryExecutionError("read row", err)
		}
		row := make(rowValues, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, loam.NewQueryExecutionError("iterate rows", err)
	}
	return out, nil
}

// rawContentItemColumn resolves a name against the content items column
// set, case-insensitively.
func rawContentItemColumn(name string) (RawColumn, bool) {
	trimmed := strings.TrimSpace(name)
	for _, column := range ContentItemColumns {
		if strings.EqualFold(string(column), trimmed) {
			return column, true
		}
	}
	return "", false
}

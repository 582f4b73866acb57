package internal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamcms/loam"
)

func testRegistry(t *testing.T) *loam.ContentTypeRegistry {
	t.Helper()
	registry := loam.NewContentTypeRegistry()
	require.NoError(t, registry.Register(testContentType()))
	return registry
}

func newMockedEngine(t *testing.T) (*QueryEngine, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresQueryEngine(mock, testRegistry(t), nil), mock
}

func itemRowColumns() []string {
	return []string{
		"ci_Id", "ci_ContentTypeId", "ci_IsPublished", "ci_IsDraft",
		"ci_CreationTime", "ci_PublishedContent",
		"cu_Id", "cu_FirstName", "ro_Path",
	}
}

func itemRow(rows *pgxmock.Rows, id, contentTypeID, creatorID uuid.UUID, title string) *pgxmock.Rows {
	return rows.AddRow(
		id, contentTypeID, true, false,
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		map[string]any{"title": title},
		creatorID, "Ada", "/articles/"+title,
	)
}

func TestQueryEngine_BuildListSQL(t *testing.T) {
	engine := NewPostgresQueryEngine(nil, nil, nil)
	contentType := testContentType()

	sqlText, err := engine.BuildListSQL(contentType, &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		Filter:        leaf("featured", loam.OpIsTrue, ""),
		Search:        "go",
		SearchColumns: []string{"title", "CreationTime", "bogus"},
	}, true)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sqlText, "SELECT ci.Id as ci_Id, "), sqlText)
	assert.Contains(t, sqlText, "FROM ContentItems ci")
	assert.Contains(t, sqlText, "LEFT JOIN Users cu ON cu.Id = ci.CreatorUserId")
	assert.Contains(t, sqlText, "LEFT JOIN Users mu ON mu.Id = ci.LastModifierUserId")
	assert.Contains(t, sqlText, "LEFT JOIN Routes ro ON ro.Id = ci.RouteId")
	assert.Contains(t, sqlText, "WHERE ci.ContentTypeId = '"+contentType.ID.String()+"'")
	assert.Contains(t, sqlText, "AND ((ci.PublishedContent ->> 'featured' = 'true'))")
	assert.Contains(t, sqlText,
		"AND (ci.PublishedContent ->> 'title' ILIKE '%go%' OR ci.CreationTime::text ILIKE '%go%')")
	assert.Contains(t, sqlText, "ORDER BY ci.CreationTime desc")
	assert.True(t, strings.HasSuffix(sqlText, " LIMIT 50 OFFSET 0"), sqlText)
	assert.NotContains(t, sqlText, "bogus")
	assert.NotContains(t, sqlText, "rci")
}

func TestQueryEngine_BuildListSQL_RelatedProjection(t *testing.T) {
	engine := NewPostgresQueryEngine(nil, nil, nil)
	contentType := testContentType()
	contentType.Fields = append(contentType.Fields, loam.ContentTypeField{
		DeveloperName: "author", FieldType: loam.FieldTypeOneToOneRelationship,
	})

	sqlText, err := engine.BuildListSQL(contentType, &loam.ContentQueryRequest{ContentTypeID: contentType.ID}, false)
	require.NoError(t, err)

	assert.Contains(t, sqlText, "rci.Id as rci_Id")
	assert.Contains(t, sqlText,
		"LEFT JOIN ContentItems rci ON rci.Id::text = ci.PublishedContent ->> 'author'")
	assert.Contains(t, sqlText, "LEFT JOIN Users rcu ON rcu.Id = rci.CreatorUserId")
	assert.Contains(t, sqlText, "LEFT JOIN Routes rro ON rro.Id = rci.RouteId")
	assert.NotContains(t, sqlText, "LIMIT")
}

func TestQueryEngine_PagingSuffix(t *testing.T) {
	contentType := testContentType()
	req := func(page, size int) *loam.ContentQueryRequest {
		return &loam.ContentQueryRequest{ContentTypeID: contentType.ID, PageNumber: page, PageSize: size}
	}

	pg := NewPostgresQueryEngine(nil, nil, nil)
	tests := []struct {
		name   string
		req    *loam.ContentQueryRequest
		suffix string
	}{
		{"defaults", req(0, 0), " LIMIT 50 OFFSET 0"},
		{"negative page clamped", req(-3, 10), " LIMIT 10 OFFSET 0"},
		{"third page", req(3, 10), " LIMIT 10 OFFSET 20"},
		{"oversized page capped", req(1, 5000), " LIMIT 1000 OFFSET 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlText, err := pg.BuildListSQL(contentType, tt.req, true)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(sqlText, tt.suffix), sqlText)
		})
	}

	ms := NewSQLServerQueryEngine(nil, nil, nil)
	sqlText, err := ms.BuildListSQL(contentType, req(3, 10), true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sqlText, " OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY"), sqlText)
}

func TestQueryEngine_OrderByResolution(t *testing.T) {
	engine := NewPostgresQueryEngine(nil, nil, nil)
	contentType := testContentType()

	sqlText, err := engine.BuildListSQL(contentType, &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		OrderBy:       "price desc, LastModificationTime asc",
	}, false)
	require.NoError(t, err)
	assert.Contains(t, sqlText,
		`ORDER BY CASE WHEN ci.PublishedContent ->> 'price' ~ '^-?[0-9]+(\.[0-9]+)?$' THEN (ci.PublishedContent ->> 'price')::decimal ELSE NULL END desc, ci.LastModificationTime asc`)

	_, err = engine.BuildListSQL(contentType, &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		OrderBy:       "nope asc",
	}, false)
	require.Error(t, err)
	assert.True(t, loam.IsValidationError(err))

	sqlText, err = engine.BuildListSQL(contentType, &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		OrderBy:       "tags asc",
	}, false)
	require.NoError(t, err)
	assert.Contains(t, sqlText, "ORDER BY ci.PublishedContent -> 'tags' ->> 0 asc")
}

func TestQueryEngine_FirstOrDefault(t *testing.T) {
	engine, mock := newMockedEngine(t)
	contentType := testContentType()

	id := uuid.MustParse("3f2d1c0b-9a8e-4d7c-b6a5-4e3d2c1b0a9f")
	creator := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	rows := pgxmock.NewRows(itemRowColumns())
	itemRow(rows, id, contentType.ID, creator, "Widget")
	mock.ExpectQuery(`SELECT (.+) FROM ContentItems ci (.+) WHERE ci\.Id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	item, err := engine.FirstOrDefault(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, contentType.ID, item.ContentTypeID)
	assert.True(t, item.IsPublished)
	assert.Equal(t, "Widget", item.PublishedContent["title"])
	assert.Equal(t, "/articles/Widget", item.RoutePath)
	require.NotNil(t, item.Creator)
	assert.Equal(t, creator, item.Creator.ID)
	assert.Equal(t, "Ada", item.Creator.FirstName)
	assert.Nil(t, item.LastModifier)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEngine_FirstOrDefault_NotFound(t *testing.T) {
	engine, mock := newMockedEngine(t)

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM ContentItems ci`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(itemRowColumns()))

	item, err := engine.FirstOrDefault(context.Background(), id)
	assert.Nil(t, item)
	require.Error(t, err)
	assert.True(t, loam.IsNotFoundError(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEngine_Query(t *testing.T) {
	engine, mock := newMockedEngine(t)
	contentType := testContentType()

	first := uuid.New()
	second := uuid.New()
	creator := uuid.New()

	rows := pgxmock.NewRows(itemRowColumns())
	itemRow(rows, first, contentType.ID, creator, "One")
	itemRow(rows, second, contentType.ID, creator, "Two")
	mock.ExpectQuery(`SELECT (.+) FROM ContentItems ci (.+) WHERE ci\.ContentTypeId = (.+) LIMIT 2 OFFSET 0`).
		WillReturnRows(rows)

	items, err := engine.Query(context.Background(), &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		PageSize:      2,
		PageNumber:    1,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first, items[0].ID)
	assert.Equal(t, "Two", items[1].PublishedContent["title"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEngine_Query_UnknownContentType(t *testing.T) {
	engine, _ := newMockedEngine(t)

	_, err := engine.Query(context.Background(), &loam.ContentQueryRequest{ContentTypeID: uuid.New()})
	require.Error(t, err)
	assert.True(t, loam.IsNotFoundError(err))
}

func TestQueryEngine_Count(t *testing.T) {
	engine, mock := newMockedEngine(t)
	contentType := testContentType()

	mock.ExpectQuery(`SELECT COUNT\(\*\) as total FROM ContentItems ci WHERE ci\.ContentTypeId = (.+)`).
		WillReturnRows(pgxmock.NewRows([]string{"total"}).AddRow(int64(42)))

	total, err := engine.Count(context.Background(), &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		Filter:        leaf("featured", loam.OpIsTrue, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEngine_QueryAllAsTransaction_RequiresTx(t *testing.T) {
	engine, _ := newMockedEngine(t)

	_, err := engine.QueryAllAsTransaction(context.Background(), &loam.ContentQueryRequest{
		ContentTypeID: testContentType().ID,
	})
	require.Error(t, err)
	assert.True(t, loam.IsValidationError(err))
	var qe *loam.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, loam.ErrCodeTransactionRequired, qe.Code)
}

func TestQueryEngine_QueryAllAsTransaction(t *testing.T) {
	engine, mock := newMockedEngine(t)
	contentType := testContentType()

	mock.ExpectBegin()
	id := uuid.New()
	rows := pgxmock.NewRows(itemRowColumns())
	itemRow(rows, id, contentType.ID, uuid.New(), "Snapshot")
	mock.ExpectQuery(`SELECT (.+) FROM ContentItems ci (.+) ORDER BY ci\.CreationTime desc$`).
		WillReturnRows(rows)
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	scoped := engine.WithPgTx(tx)
	items, err := scoped.QueryAllAsTransaction(ctx, &loam.ContentQueryRequest{ContentTypeID: contentType.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEngine_ExecutionErrorWrapped(t *testing.T) {
	engine, mock := newMockedEngine(t)
	contentType := testContentType()

	mock.ExpectQuery(`SELECT COUNT\(\*\) as total`).
		WillReturnError(assert.AnError)

	_, err := engine.Count(context.Background(), &loam.ContentQueryRequest{ContentTypeID: contentType.ID})
	require.Error(t, err)
	assert.True(t, loam.IsExecutionError(err))
	assert.ErrorIs(t, err, assert.AnError)
}

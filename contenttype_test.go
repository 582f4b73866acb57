package loam

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleDefinition = `{
	"id": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e",
	"developerName": "article",
	"labelSingular": "Article",
	"labelPlural": "Articles",
	"primaryFieldDeveloperName": "title",
	"fields": [
		{"developerName": "title", "label": "Title", "fieldType": "single_line_text"},
		{"developerName": "price", "fieldType": "number"},
		{"developerName": "tags", "fieldType": "multiple_select", "choices": ["go", "sql"]},
		{"developerName": "author", "fieldType": "one_to_one_relationship"}
	]
}`

func TestParseContentType(t *testing.T) {
	ct, err := ParseContentType([]byte(articleDefinition))
	require.NoError(t, err)

	assert.Equal(t, "article", ct.DeveloperName)
	assert.Equal(t, "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e", ct.ID.String())
	assert.Equal(t, "title", ct.PrimaryFieldDeveloperName)
	assert.Len(t, ct.Fields, 4)

	field, ok := ct.Field("TITLE")
	require.True(t, ok, "field resolution must be case-insensitive")
	assert.Equal(t, "single_line_text", field.FieldType)

	_, ok = ct.Field("missing")
	assert.False(t, ok)

	relationships := ct.RelationshipFields()
	require.Len(t, relationships, 1)
	assert.Equal(t, "author", relationships[0].DeveloperName)
}

func TestParseContentType_Failures(t *testing.T) {
	tests := map[string]string{
		"not json":   `{`,
		"missing id": `{"developerName": "a", "fields": []}`,
		"short id":   `{"id": "123", "developerName": "a", "fields": []}`,
		"unknown field type": `{
			"id": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e",
			"developerName": "a",
			"fields": [{"developerName": "x", "fieldType": "geo_point"}]
		}`,
		"duplicate field names": `{
			"id": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e",
			"developerName": "a",
			"fields": [
				{"developerName": "x", "fieldType": "number"},
				{"developerName": "X", "fieldType": "date"}
			]
		}`,
		"dangling primary field": `{
			"id": "7b5c4a6e-91a2-4c0f-8d3e-2f1a0b9c8d7e",
			"developerName": "a",
			"primaryFieldDeveloperName": "missing",
			"fields": [{"developerName": "x", "fieldType": "number"}]
		}`,
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseContentType([]byte(payload))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestContentTypeRegistry(t *testing.T) {
	registry := NewContentTypeRegistry()

	ct, err := ParseContentType([]byte(articleDefinition))
	require.NoError(t, err)
	require.NoError(t, registry.Register(ct))

	resolved, err := registry.ContentTypeByID(context.Background(), ct.ID)
	require.NoError(t, err)
	assert.Same(t, ct, resolved)

	byName, err := registry.ContentTypeByName("ARTICLE")
	require.NoError(t, err)
	assert.Same(t, ct, byName)

	_, err = registry.ContentTypeByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	_, err = registry.ContentTypeByName("page")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	err = registry.Register(nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
)

// ContentTypeField is one typed field of a content type. The field's
// values live inside each item's JSON blob under DeveloperName.
type ContentTypeField struct {
	DeveloperName        string     `json:"developerName"`
	Label                string     `json:"label"`
	FieldType            string     `json:"fieldType"`
	Choices              []string   `json:"choices,omitempty"`
	RelatedContentTypeID *uuid.UUID `json:"relatedContentTypeId,omitempty"`
}

// ResolveType resolves the field's type descriptor.
func (f *ContentTypeField) ResolveType() (FieldType, error) {
	return ResolveFieldType(f.FieldType)
}

// ContentType is a user-defined schema of typed fields. Instances are
// content items.
type ContentType struct {
	ID                        uuid.UUID          `json:"id"`
	DeveloperName             string             `json:"developerName"`
	LabelSingular             string             `json:"labelSingular"`
	LabelPlural               string             `json:"labelPlural"`
	PrimaryFieldDeveloperName string             `json:"primaryFieldDeveloperName,omitempty"`
	Fields                    []ContentTypeField `json:"fields"`
}

// Field resolves a field by developer name, case-insensitively.
func (ct *ContentType) Field(developerName string) (*ContentTypeField, bool) {
	normalized := strings.ToLower(strings.TrimSpace(developerName))
	for i := range ct.Fields {
		if strings.ToLower(ct.Fields[i].DeveloperName) == normalized {
			return &ct.Fields[i], true
		}
	}
	return nil, false
}

// RelationshipFields returns the fields that reference a second content
// item.
func (ct *ContentType) RelationshipFields() []ContentTypeField {
	var out []ContentTypeField
	for _, f := range ct.Fields {
		if f.FieldType == FieldTypeOneToOneRelationship {
			out = append(out, f)
		}
	}
	return out
}

// contentTypeSchema constrains content type definition documents before
// any field-level checks run.
const contentTypeSchema = `{
	"type": "object",
	"required": ["id", "developerName", "fields"],
	"properties": {
		"id": {"type": "string", "minLength": 36, "maxLength": 36},
		"developerName": {"type": "string", "minLength": 1},
		"labelSingular": {"type": "string"},
		"labelPlural": {"type": "string"},
		"primaryFieldDeveloperName": {"type": "string"},
		"fields": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["developerName", "fieldType"],
				"properties": {
					"developerName": {"type": "string", "minLength": 1},
					"label": {"type": "string"},
					"fieldType": {"type": "string", "minLength": 1},
					"choices": {"type": "array", "items": {"type": "string"}},
					"relatedContentTypeId": {"type": "string"}
				}
			}
		}
	}
}`

// ParseContentType decodes and validates a content type definition
// document. Unknown field types, duplicate developer names and a
// dangling primary field are rejected at load time so they can never
// reach the query compiler.
func ParseContentType(data []byte) (*ContentType, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(contentTypeSchema), &schema); err != nil {
		return nil, NewInternalError("unmarshal content type schema", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, NewInternalError("resolve content type schema", err)
	}

	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType, "content type definition is not valid JSON").WithCause(err)
	}
	if err := resolved.Validate(document); err != nil {
		return nil, NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType, "content type definition failed schema validation").WithCause(err)
	}

	var ct ContentType
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType, "content type definition could not be decoded").WithCause(err)
	}
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	return &ct, nil
}

// Validate checks field-level invariants of the content type.
func (ct *ContentType) Validate() error {
	if ct.DeveloperName == "" {
		return NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType, "content type missing developer name")
	}
	seen := make(map[string]bool, len(ct.Fields))
	for _, f := range ct.Fields {
		name := strings.ToLower(f.DeveloperName)
		if seen[name] {
			return NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType,
				fmt.Sprintf("duplicate field developer name '%s'", f.DeveloperName))
		}
		seen[name] = true
		if _, err := ResolveFieldType(f.FieldType); err != nil {
			return err
		}
	}
	if ct.PrimaryFieldDeveloperName != "" {
		if _, ok := ct.Field(ct.PrimaryFieldDeveloperName); !ok {
			return NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType,
				fmt.Sprintf("primary field '%s' is not defined", ct.PrimaryFieldDeveloperName))
		}
	}
	return nil
}

// ContentTypeResolver resolves content type metadata for the query
// engine. The surrounding CMS backs this with its own storage; tests
// and the CLI use the in-memory registry below.
type ContentTypeResolver interface {
	ContentTypeByID(ctx context.Context, id uuid.UUID) (*ContentType, error)
}

// ContentTypeRegistry is a concurrency-safe in-memory
// ContentTypeResolver.
type ContentTypeRegistry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*ContentType
	byName map[string]*ContentType
}

// NewContentTypeRegistry constructs an empty registry.
func NewContentTypeRegistry() *ContentTypeRegistry {
	return &ContentTypeRegistry{
		byID:   make(map[uuid.UUID]*ContentType),
		byName: make(map[string]*ContentType),
	}
}

// Register validates and stores a content type, replacing any previous
// registration under the same id or developer name.
func (r *ContentTypeRegistry) Register(ct *ContentType) error {
	if ct == nil {
		return NewQueryError(ErrorTypeValidation, ErrCodeInvalidContentType, "content type cannot be nil")
	}
	if err := ct.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ct.ID] = ct
	r.byName[strings.ToLower(ct.DeveloperName)] = ct
	return nil
}

// ContentTypeByID implements ContentTypeResolver.
func (r *ContentTypeRegistry) ContentTypeByID(_ context.Context, id uuid.UUID) (*ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.byID[id]
	if !ok {
		return nil, NewContentTypeNotFoundError(id)
	}
	return ct, nil
}

// ContentTypeByName resolves a content type by developer name.
func (r *ContentTypeRegistry) ContentTypeByName(developerName string) (*ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.byName[strings.ToLower(developerName)]
	if !ok {
		return nil, NewQueryError(ErrorTypeNotFound, ErrCodeContentTypeNotFound,
			fmt.Sprintf("content type '%s' not found", developerName))
	}
	return ct, nil
}

package loam

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SortOrder defines sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// ContentItem is one record of a content type reconstructed from a
// single result row. Field values live in the two JSON blobs; there is
// no column per field. Items are materialized fresh per query and are
// read-only to the caller.
type ContentItem struct {
	ID                   uuid.UUID      `json:"id"`
	ContentTypeID        uuid.UUID      `json:"contentTypeId"`
	IsPublished          bool           `json:"isPublished"`
	IsDraft              bool           `json:"isDraft"`
	CreationTime         time.Time      `json:"creationTime"`
	LastModificationTime *time.Time     `json:"lastModificationTime,omitempty"`
	CreatorUserID        *uuid.UUID     `json:"creatorUserId,omitempty"`
	LastModifierUserID   *uuid.UUID     `json:"lastModifierUserId,omitempty"`
	RouteID              *uuid.UUID     `json:"routeId,omitempty"`
	RoutePath            string         `json:"routePath,omitempty"`
	PublishedContent     map[string]any `json:"publishedContent"`
	DraftContent         map[string]any `json:"draftContent"`

	// Creator and LastModifier carry the joined user rows when present.
	Creator      *UserRef `json:"creator,omitempty"`
	LastModifier *UserRef `json:"lastModifier,omitempty"`

	// Related holds joined one-to-one related items keyed by the
	// relationship field's developer name.
	Related map[string]*ContentItem `json:"related,omitempty"`
}

// UserRef is the slim projection of a joined user row.
type UserRef struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	EmailAddress string    `json:"emailAddress,omitempty"`
}

// FieldValue returns the published value for a field, falling back to
// the draft blob when the item has never been published.
func (ci *ContentItem) FieldValue(developerName string) (any, bool) {
	if ci.PublishedContent != nil {
		if v, ok := ci.PublishedContent[developerName]; ok {
			return v, true
		}
	}
	if ci.DraftContent != nil {
		if v, ok := ci.DraftContent[developerName]; ok {
			return v, true
		}
	}
	return nil, false
}

// PrimaryFieldValue resolves the content type's designated primary
// field out of the item's blobs. Returns the empty string when unset.
func (ci *ContentItem) PrimaryFieldValue(contentType *ContentType) string {
	if contentType == nil || contentType.PrimaryFieldDeveloperName == "" {
		return ""
	}
	v, ok := ci.FieldValue(contentType.PrimaryFieldDeveloperName)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// OrderByTerm is one parsed "<field> <asc|desc>" term.
type OrderByTerm struct {
	Field     string
	Direction SortOrder
}

// ParseOrderBy parses a comma-separated order-by string. An empty
// string yields no terms, which callers interpret as the default order
// (creation time, newest first).
func ParseOrderBy(orderBy string) ([]OrderByTerm, error) {
	trimmed := strings.TrimSpace(orderBy)
	if trimmed == "" {
		return nil, nil
	}
	var terms []OrderByTerm
	for _, raw := range strings.Split(trimmed, ",") {
		parts := strings.Fields(raw)
		if len(parts) == 0 {
			continue
		}
		if len(parts) > 2 {
			return nil, NewInvalidOrderByError(raw)
		}
		term := OrderByTerm{Field: parts[0], Direction: SortOrderAsc}
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case string(SortOrderAsc):
				term.Direction = SortOrderAsc
			case string(SortOrderDesc):
				term.Direction = SortOrderDesc
			default:
				return nil, NewInvalidOrderByError(raw)
			}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

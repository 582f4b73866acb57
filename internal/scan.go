package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/loamcms/loam"
)

// rowValues is one result row keyed by its collision-free labels
// ("ci_Id", "rro_Path", ...). Both execution paths normalize into this
// shape so scanning is dialect-agnostic.
type rowValues map[string]any

func (r rowValues) get(alias string, column RawColumn) any {
	return r[column.AsLabel(alias)]
}

// scanContentItem materializes a ContentItem from the labeled values of
// the given alias namespace. routeAlias/creatorAlias/modifierAlias name
// the joined rows belonging to the same namespace.
func scanContentItem(row rowValues, itemAlias, creatorAlias, modifierAlias, routeAlias string) (*loam.ContentItem, error) {
	id, err := uuidValue(row.get(itemAlias, ColID))
	if err != nil {
		return nil, fmt.Errorf("scan %s.Id: %w", itemAlias, err)
	}
	if id == nil {
		return nil, nil
	}

	item := &loam.ContentItem{ID: *id}

	if ctID, err := uuidValue(row.get(itemAlias, ColContentTypeID)); err != nil {
		return nil, fmt.Errorf("scan %s.ContentTypeId: %w", itemAlias, err)
	} else if ctID != nil {
		item.ContentTypeID = *ctID
	}

	item.IsPublished = boolValue(row.get(itemAlias, ColIsPublished))
	item.IsDraft = boolValue(row.get(itemAlias, ColIsDraft))

	if created, ok := timeValue(row.get(itemAlias, ColCreationTime)); ok {
		item.CreationTime = created
	}
	if modified, ok := timeValue(row.get(itemAlias, ColLastModificationTime)); ok {
		item.LastModificationTime = &modified
	}

	if item.CreatorUserID, err = uuidValue(row.get(itemAlias, ColCreatorUserID)); err != nil {
		return nil, fmt.Errorf("scan %s.CreatorUserId: %w", itemAlias, err)
	}
	if item.LastModifierUserID, err = uuidValue(row.get(itemAlias, ColLastModifierUserID)); err != nil {
		return nil, fmt.Errorf("scan %s.LastModifierUserId: %w", itemAlias, err)
	}
	if item.RouteID, err = uuidValue(row.get(itemAlias, ColRouteID)); err != nil {
		return nil, fmt.Errorf("scan %s.RouteId: %w", itemAlias, err)
	}
	item.RoutePath = stringValue(row.get(routeAlias, ColPath))

	if item.PublishedContent, err = jsonMapValue(row.get(itemAlias, ColPublishedContent)); err != nil {
		return nil, fmt.Errorf("scan %s.PublishedContent: %w", itemAlias, err)
	}
	if item.DraftContent, err = jsonMapValue(row.get(itemAlias, ColDraftContent)); err != nil {
		return nil, fmt.Errorf("scan %s.DraftContent: %w", itemAlias, err)
	}

	if item.Creator, err = scanUserRef(row, creatorAlias); err != nil {
		return nil, err
	}
	if item.LastModifier, err = scanUserRef(row, modifierAlias); err != nil {
		return nil, err
	}

	return item, nil
}

func scanUserRef(row rowValues, alias string) (*loam.UserRef, error) {
	id, err := uuidValue(row.get(alias, ColID))
	if err != nil {
		return nil, fmt.Errorf("scan %s.Id: %w", alias, err)
	}
	if id == nil {
		return nil, nil
	}
	return &loam.UserRef{
		ID:           *id,
		FirstName:    stringValue(row.get(alias, ColFirstName)),
		LastName:     stringValue(row.get(alias, ColLastName)),
		EmailAddress: stringValue(row.get(alias, ColEmailAddress)),
	}, nil
}

// uuidValue tolerates the shapes drivers hand back for uuid columns.
func uuidValue(v any) (*uuid.UUID, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return &value, nil
	case [16]byte:
		id := uuid.UUID(value)
		return &id, nil
	case string:
		if value == "" {
			return nil, nil
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, err
		}
		return &id, nil
	case []byte:
		if len(value) == 16 {
			id, err := uuid.FromBytes(value)
			if err != nil {
				return nil, err
			}
			return &id, nil
		}
		id, err := uuid.Parse(string(value))
		if err != nil {
			return nil, err
		}
		return &id, nil
	default:
		return nil, fmt.Errorf("unexpected uuid value of type %T", v)
	}
}

func boolValue(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case int64:
		return value != 0
	case string:
		return strings.EqualFold(value, "true") || value == "1"
	default:
		return false
	}
}

func timeValue(v any) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, value); err == nil {
			return parsed, true
		}
	case int64:
		return time.UnixMilli(value).UTC(), true
	}
	return time.Time{}, false
}

func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return ""
	}
}

func jsonMapValue(v any) (map[string]any, error) {
	var raw []byte
	switch value := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return value, nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return nil, fmt.Errorf("unexpected json value of type %T", v)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

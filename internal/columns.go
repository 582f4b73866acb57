package internal

// RawColumn is one physical column of the fixed tables the engine
// touches. Ownership never changes; the sets below are compile-time
// constants used to build consistent SELECT lists.
type RawColumn string

// Content items table.
const (
	ColID                   RawColumn = "Id"
	ColContentTypeID        RawColumn = "ContentTypeId"
	ColIsPublished          RawColumn = "IsPublished"
	ColIsDraft              RawColumn = "IsDraft"
	ColCreationTime         RawColumn = "CreationTime"
	ColLastModificationTime RawColumn = "LastModificationTime"
	ColCreatorUserID        RawColumn = "CreatorUserId"
	ColLastModifierUserID   RawColumn = "LastModifierUserId"
	ColRouteID              RawColumn = "RouteId"
	ColPublishedContent     RawColumn = "PublishedContent"
	ColDraftContent         RawColumn = "DraftContent"
)

// Users table.
const (
	ColFirstName    RawColumn = "FirstName"
	ColLastName     RawColumn = "LastName"
	ColEmailAddress RawColumn = "EmailAddress"
)

// Routes table.
const (
	ColPath RawColumn = "Path"
)

// Web templates table.
const (
	ColDeveloperName RawColumn = "DeveloperName"
	ColLabel         RawColumn = "Label"
)

// Canonical column sets per table.
var (
	ContentItemColumns = []RawColumn{
		ColID, ColContentTypeID,
		ColIsPublished, ColIsDraft,
		ColCreationTime, ColLastModificationTime,
		ColCreatorUserID, ColLastModifierUserID,
		ColRouteID,
		ColPublishedContent, ColDraftContent,
	}
	UserColumns     = []RawColumn{ColID, ColFirstName, ColLastName, ColEmailAddress}
	RouteColumns    = []RawColumn{ColID, ColPath}
	TemplateColumns = []RawColumn{ColID, ColDeveloperName, ColLabel}
)

// Table aliases for the primary content item row and its joined users
// and route.
const (
	SourceItemAlias     = "ci"
	SourceCreatorAlias  = "cu"
	SourceModifierAlias = "mu"
	SourceRouteAlias    = "ro"
)

// A second namespace of aliases lets the same column sets be projected
// again for a related content item reached through a one-to-one
// relationship field, without label collisions in the result set.
const (
	RelatedItemAlias     = "rci"
	RelatedCreatorAlias  = "rcu"
	RelatedModifierAlias = "rmu"
	RelatedRouteAlias    = "rro"
)

// AsColumn renders "alias.Name".
func (c RawColumn) AsColumn(alias string) string {
	return alias + "." + string(c)
}

// AsLabel renders the collision-free result-set label "alias_Name".
func (c RawColumn) AsLabel(alias string) string {
	return alias + "_" + string(c)
}

// AsFullLabel renders "alias.Name as alias_Name".
func (c RawColumn) AsFullLabel(alias string) string {
	return c.AsColumn(alias) + " as " + c.AsLabel(alias)
}

// AsFullLabels maps a column set through AsFullLabel for one alias.
func AsFullLabels(columns []RawColumn, alias string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, c.AsFullLabel(alias))
	}
	return out
}

package loam

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field type developer names.
const (
	FieldTypeSingleLineText        = "single_line_text"
	FieldTypeLongText              = "long_text"
	FieldTypeWysiwyg               = "wysiwyg"
	FieldTypeNumber                = "number"
	FieldTypeDate                  = "date"
	FieldTypeCheckbox              = "checkbox"
	FieldTypeRadio                 = "radio"
	FieldTypeDropdown              = "dropdown"
	FieldTypeMultipleSelect        = "multiple_select"
	FieldTypeAttachment            = "attachment"
	FieldTypeOneToOneRelationship  = "one_to_one_relationship"
	FieldTypeID                    = "id"
)

// fieldKind groups field types that share SQL generation behavior.
type fieldKind int

const (
	kindText fieldKind = iota
	kindNumeric
	kindDate
	kindBool
	kindMultiValue
	kindIdentifier
)

// FieldType is the immutable descriptor for one kind of content type
// field. Descriptors are stateless singletons resolved by developer
// name; two descriptors are the same type iff their developer names
// match.
type FieldType struct {
	DeveloperName string
	Label         string
	HasChoices    bool

	kind      fieldKind
	operators []ConditionOperator
}

var (
	freeTextOperators = []ConditionOperator{
		OpEquals, OpNotEquals,
		OpContains, OpNotContains,
		OpStartsWith, OpNotStartsWith,
		OpEndsWith, OpNotEndsWith,
		OpIsEmpty, OpIsNotEmpty,
	}
	orderedOperators = []ConditionOperator{
		OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterThanOrEqual,
		OpLessThan, OpLessThanOrEqual,
		OpIsEmpty, OpIsNotEmpty,
	}
	booleanOperators = []ConditionOperator{
		OpIsTrue, OpIsFalse,
	}
	singleChoiceOperators = []ConditionOperator{
		OpEquals, OpNotEquals,
		OpIsEmpty, OpIsNotEmpty,
	}
	multiValueOperators = []ConditionOperator{
		OpHas, OpNotHas,
		OpIsEmpty, OpIsNotEmpty,
	}
	identifierOperators = []ConditionOperator{
		OpEquals, OpNotEquals,
	}
)

// fieldTypes is the closed set of supported field kinds. Resolution is
// by developer name; there is no way to register additional kinds at
// runtime, so every dialect switch below is exhaustive.
var fieldTypes = []FieldType{
	{DeveloperName: FieldTypeSingleLineText, Label: "Single line text", kind: kindText, operators: freeTextOperators},
	{DeveloperName: FieldTypeLongText, Label: "Long text", kind: kindText, operators: freeTextOperators},
	{DeveloperName: FieldTypeWysiwyg, Label: "Wysiwyg", kind: kindText, operators: freeTextOperators},
	{DeveloperName: FieldTypeNumber, Label: "Number", kind: kindNumeric, operators: orderedOperators},
	{DeveloperName: FieldTypeDate, Label: "Date", kind: kindDate, operators: orderedOperators},
	{DeveloperName: FieldTypeCheckbox, Label: "Checkbox", kind: kindBool, operators: booleanOperators},
	{DeveloperName: FieldTypeRadio, Label: "Radio", HasChoices: true, kind: kindText, operators: singleChoiceOperators},
	{DeveloperName: FieldTypeDropdown, Label: "Dropdown", HasChoices: true, kind: kindText, operators: singleChoiceOperators},
	{DeveloperName: FieldTypeMultipleSelect, Label: "Multiple select", HasChoices: true, kind: kindMultiValue, operators: multiValueOperators},
	{DeveloperName: FieldTypeAttachment, Label: "Attachment", kind: kindText, operators: singleChoiceOperators},
	{DeveloperName: FieldTypeOneToOneRelationship, Label: "One to one relationship", kind: kindText, operators: singleChoiceOperators},
	{DeveloperName: FieldTypeID, Label: "Id", kind: kindIdentifier, operators: identifierOperators},
}

// FieldTypes returns every known field type descriptor.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// ResolveFieldType resolves a descriptor by developer name,
// case-insensitively.
func ResolveFieldType(developerName string) (FieldType, error) {
	normalized := strings.ToLower(strings.TrimSpace(developerName))
	for _, ft := range fieldTypes {
		if ft.DeveloperName == normalized {
			return ft, nil
		}
	}
	return FieldType{}, NewUnsupportedFieldTypeError(developerName)
}

// SupportedOperators returns a copy of the operator set this field type
// declares.
func (ft FieldType) SupportedOperators() []ConditionOperator {
	out := make([]ConditionOperator, len(ft.operators))
	copy(out, ft.operators)
	return out
}

// SupportsOperator reports whether the operator may be applied to
// fields of this type.
func (ft FieldType) SupportsOperator(op ConditionOperator) bool {
	for _, candidate := range ft.operators {
		if candidate == op {
			return true
		}
	}
	return false
}

// scalarExpression is the plain JSON text extraction shared by most
// kinds: the field's value inside the named JSON column, as text.
func scalarExpression(dialect Dialect, tableAlias, jsonColumn, field string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return fmt.Sprintf("%s.%s ->> '%s'", tableAlias, jsonColumn, field), nil
	case DialectSQLServer:
		return fmt.Sprintf(`JSON_VALUE(%s.%s, '$."%s"')`, tableAlias, jsonColumn, field), nil
	}
	return "", NewUnsupportedDialectError(string(dialect))
}

// SingleValueExpression emits a scalar SQL expression usable in WHERE
// and SELECT for the named field inside the named JSON column.
//
// Numeric and date kinds coerce the extracted text; a value that fails
// to parse compares as NULL instead of erroring, so non-numeric legacy
// data never aborts a query. SQL Server gets this from TRY_CAST /
// TRY_CONVERT; Postgres guards the cast behind a regex.
func (ft FieldType) SingleValueExpression(dialect Dialect, tableAlias, jsonColumn, field string) (string, error) {
	switch ft.kind {
	case kindNumeric:
		switch dialect {
		case DialectPostgres:
			return fmt.Sprintf(
				`CASE WHEN %s.%s ->> '%s' ~ '^-?[0-9]+(\.[0-9]+)?$' THEN (%s.%s ->> '%s')::decimal ELSE NULL END`,
				tableAlias, jsonColumn, field, tableAlias, jsonColumn, field), nil
		case DialectSQLServer:
			return fmt.Sprintf(`TRY_CAST(JSON_VALUE(%s.%s, '$."%s"') AS decimal(18,4))`, tableAlias, jsonColumn, field), nil
		}
		return "", NewUnsupportedDialectError(string(dialect))
	case kindDate:
		switch dialect {
		case DialectPostgres:
			return fmt.Sprintf(
				`CASE WHEN %s.%s ->> '%s' ~ '^[0-9]{4}-[0-9]{2}-[0-9]{2}' THEN (%s.%s ->> '%s')::timestamp ELSE NULL END`,
				tableAlias, jsonColumn, field, tableAlias, jsonColumn, field), nil
		case DialectSQLServer:
			return fmt.Sprintf(`TRY_CONVERT(datetime2, JSON_VALUE(%s.%s, '$."%s"'))`, tableAlias, jsonColumn, field), nil
		}
		return "", NewUnsupportedDialectError(string(dialect))
	case kindMultiValue:
		// Serialized array text so empty checks can compare against '[]'.
		switch dialect {
		case DialectPostgres:
			return fmt.Sprintf("%s.%s ->> '%s'", tableAlias, jsonColumn, field), nil
		case DialectSQLServer:
			return fmt.Sprintf(`JSON_QUERY(%s.%s, '$."%s"')`, tableAlias, jsonColumn, field), nil
		}
		return "", NewUnsupportedDialectError(string(dialect))
	case kindIdentifier:
		// The id pseudo-field reads the physical primary key, not the blob.
		switch dialect {
		case DialectPostgres:
			return fmt.Sprintf("%s.Id::text", tableAlias), nil
		case DialectSQLServer:
			return fmt.Sprintf("CONVERT(NVARCHAR(36), %s.Id)", tableAlias), nil
		}
		return "", NewUnsupportedDialectError(string(dialect))
	default:
		return scalarExpression(dialect, tableAlias, jsonColumn, field)
	}
}

// OrderByExpression emits an ORDER BY term for the field. Multi-select
// fields sort on the first array element.
func (ft FieldType) OrderByExpression(dialect Dialect, tableAlias, jsonColumn, field string, direction SortOrder) (string, error) {
	if direction != SortOrderAsc && direction != SortOrderDesc {
		return "", NewInvalidOrderByError(fmt.Sprintf("%s %s", field, direction))
	}
	if ft.kind == kindMultiValue {
		switch dialect {
		case DialectPostgres:
			return fmt.Sprintf("%s.%s -> '%s' ->> 0 %s", tableAlias, jsonColumn, field, direction), nil
		case DialectSQLServer:
			return fmt.Sprintf(`JSON_VALUE(%s.%s, '$."%s"[0]') %s`, tableAlias, jsonColumn, field, direction), nil
		}
		return "", NewUnsupportedDialectError(string(dialect))
	}
	expr, err := ft.SingleValueExpression(dialect, tableAlias, jsonColumn, field)
	if err != nil {
		return "", err
	}
	return expr + " " + string(direction), nil
}

// PatternMatchExpression emits a boolean pattern-match fragment for the
// field. The pattern is quoted here; wildcards must already be in
// place. Postgres uses ILIKE and SQL Server uses LIKE, matching each
// back end's conventional case-insensitive collation behavior.
func (ft FieldType) PatternMatchExpression(dialect Dialect, tableAlias, jsonColumn, field, pattern string) (string, error) {
	expr, err := scalarExpression(dialect, tableAlias, jsonColumn, field)
	if err != nil {
		return "", err
	}
	switch dialect {
	case DialectPostgres:
		return expr + " ILIKE " + QuoteLiteral(pattern), nil
	case DialectSQLServer:
		return expr + " LIKE " + QuoteLiteral(pattern), nil
	}
	return "", NewUnsupportedDialectError(string(dialect))
}

// MembershipExpression emits a boolean fragment testing whether the
// field's JSON array contains the given value. Only meaningful for the
// multiple_select kind.
func (ft FieldType) MembershipExpression(dialect Dialect, tableAlias, jsonColumn, field, value string) (string, error) {
	if ft.kind != kindMultiValue {
		return "", NewUnsupportedOperatorError(OpHas, ft.DeveloperName)
	}
	switch dialect {
	case DialectPostgres:
		element, err := json.Marshal([]string{value})
		if err != nil {
			return "", NewInternalError("encode membership value", err)
		}
		// COALESCE keeps a missing array and OPENJSON's empty set in
		// agreement once the fragment is negated.
		return fmt.Sprintf("COALESCE(%s.%s -> '%s' @> %s::jsonb, FALSE)", tableAlias, jsonColumn, field, QuoteLiteral(string(element))), nil
	case DialectSQLServer:
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM OPENJSON(%s.%s, '$."%s"') WHERE value = %s)`,
			tableAlias, jsonColumn, field, QuoteLiteral(value)), nil
	}
	return "", NewUnsupportedDialectError(string(dialect))
}

// EmptyExpression emits a boolean fragment that is true when the field
// is absent or holds an empty value. The raw text extraction is used
// deliberately: the coerced numeric/date expressions cannot be compared
// against an empty string.
func (ft FieldType) EmptyExpression(dialect Dialect, tableAlias, jsonColumn, field string) (string, error) {
	if ft.kind == kindMultiValue {
		expr, err := ft.SingleValueExpression(dialect, tableAlias, jsonColumn, field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s IS NULL OR %s = '[]')", expr, expr), nil
	}
	expr, err := scalarExpression(dialect, tableAlias, jsonColumn, field)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s IS NULL OR %s = '')", expr, expr), nil
}

// IsMultiValue reports whether the field stores a JSON array of values.
func (ft FieldType) IsMultiValue() bool {
	return ft.kind == kindMultiValue
}

// IsRelationship reports whether the field references a second content
// item by id.
func (ft FieldType) IsRelationship() bool {
	return ft.DeveloperName == FieldTypeOneToOneRelationship
}

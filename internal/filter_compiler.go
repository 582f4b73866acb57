package internal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loamcms/loam"
)

// maxFilterDepth bounds recursion over user-authored trees. The admin
// editor never nests anywhere near this deep; anything beyond it is
// adversarial input.
const maxFilterDepth = 64

// matchAllClause is what an empty group compiles to, so that an empty
// filter matches everything.
const matchAllClause = "1=1"

// FilterCompiler linearizes a boolean filter tree into a single WHERE
// fragment for one dialect. Compilation is pure string work; nothing
// touches the database until the engine executes the assembled query.
type FilterCompiler struct {
	dialect     loam.Dialect
	contentType *loam.ContentType
	tableAlias  string
	jsonColumn  RawColumn
}

// NewFilterCompiler builds a compiler targeting the primary content
// item row's published blob.
func NewFilterCompiler(dialect loam.Dialect, contentType *loam.ContentType) *FilterCompiler {
	return &FilterCompiler{
		dialect:     dialect,
		contentType: contentType,
		tableAlias:  SourceItemAlias,
		jsonColumn:  ColPublishedContent,
	}
}

// Compile emits a boolean SQL fragment for the tree. A nil tree or an
// empty group compiles to a tautology.
func (c *FilterCompiler) Compile(node loam.Condition) (string, error) {
	if node == nil {
		return matchAllClause, nil
	}
	return c.compile(node, 0)
}

func (c *FilterCompiler) compile(node loam.Condition, depth int) (string, error) {
	if depth > maxFilterDepth {
		return "", loam.NewInvalidFilterError(fmt.Sprintf("filter tree exceeds maximum depth of %d", maxFilterDepth))
	}

	switch n := node.(type) {
	case *loam.FilterGroup:
		return c.compileGroup(n, depth)
	case *loam.FilterCondition:
		return c.compileCondition(n)
	default:
		return "", loam.NewInvalidFilterError(fmt.Sprintf("unsupported condition type %T", node))
	}
}

func (c *FilterCompiler) compileGroup(group *loam.FilterGroup, depth int) (string, error) {
	if len(group.Children) == 0 {
		return matchAllClause, nil
	}

	var joiner string
	switch group.Combinator {
	case loam.CombinatorAnd:
		joiner = " AND "
	case loam.CombinatorOr:
		joiner = " OR "
	default:
		return "", loam.NewInvalidFilterError(fmt.Sprintf("unknown combinator '%s'", group.Combinator))
	}

	clauses := make([]string, 0, len(group.Children))
	for _, child := range group.Children {
		clause, err := c.compile(child, depth+1)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "("+clause+")")
	}

	return strings.Join(clauses, joiner), nil
}

// resolveField resolves a leaf's field to its descriptor and canonical
// developer name. Resolution is case-insensitive but JSON keys are not,
// so the declared spelling is what gets emitted, never the leaf's. The
// reserved name "id" always resolves to the identifier pseudo-field so
// items can be filtered by primary key without declaring it on the
// content type.
func (c *FilterCompiler) resolveField(name string) (loam.FieldType, string, error) {
	field, ok := c.contentType.Field(name)
	if !ok {
		if strings.EqualFold(strings.TrimSpace(name), loam.FieldTypeID) {
			fieldType, err := loam.ResolveFieldType(loam.FieldTypeID)
			return fieldType, loam.FieldTypeID, err
		}
		return loam.FieldType{}, "", loam.NewFieldNotFoundError(name, c.contentType.DeveloperName)
	}
	fieldType, err := field.ResolveType()
	return fieldType, field.DeveloperName, err
}

func (c *FilterCompiler) compileCondition(leaf *loam.FilterCondition) (string, error) {
	fieldType, fieldName, err := c.resolveField(leaf.Field)
	if err != nil {
		return "", err
	}
	if !fieldType.SupportsOperator(leaf.Operator) {
		return "", loam.NewUnsupportedOperatorError(leaf.Operator, fieldType.DeveloperName)
	}

	alias, column, field := c.tableAlias, string(c.jsonColumn), fieldName

	switch leaf.Operator {
	case loam.OpIsEmpty:
		return fieldType.EmptyExpression(c.dialect, alias, column, field)
	case loam.OpIsNotEmpty:
		empty, err := fieldType.EmptyExpression(c.dialect, alias, column, field)
		if err != nil {
			return "", err
		}
		return "NOT " + empty, nil
	case loam.OpIsTrue, loam.OpIsFalse:
		expr, err := fieldType.SingleValueExpression(c.dialect, alias, column, field)
		if err != nil {
			return "", err
		}
		if leaf.Operator == loam.OpIsTrue {
			return expr + " = 'true'", nil
		}
		return expr + " = 'false'", nil
	case loam.OpContains, loam.OpNotContains:
		return c.patternCondition(fieldType, field, leaf.Operator, "%"+leaf.Value+"%")
	case loam.OpStartsWith, loam.OpNotStartsWith:
		return c.patternCondition(fieldType, field, leaf.Operator, leaf.Value+"%")
	case loam.OpEndsWith, loam.OpNotEndsWith:
		return c.patternCondition(fieldType, field, leaf.Operator, "%"+leaf.Value)
	case loam.OpHas, loam.OpNotHas:
		membership, err := fieldType.MembershipExpression(c.dialect, alias, column, field, leaf.Value)
		if err != nil {
			return "", err
		}
		if leaf.Operator == loam.OpNotHas {
			return "NOT (" + membership + ")", nil
		}
		return membership, nil
	case loam.OpEquals, loam.OpNotEquals,
		loam.OpGreaterThan, loam.OpGreaterThanOrEqual,
		loam.OpLessThan, loam.OpLessThanOrEqual:
		return c.comparisonCondition(fieldType, field, leaf)
	default:
		return "", loam.NewUnsupportedOperatorError(leaf.Operator, fieldType.DeveloperName)
	}
}

func (c *FilterCompiler) patternCondition(fieldType loam.FieldType, field string, op loam.ConditionOperator, pattern string) (string, error) {
	fragment, err := fieldType.PatternMatchExpression(c.dialect, c.tableAlias, string(c.jsonColumn), field, pattern)
	if err != nil {
		return "", err
	}
	if op.IsNegation() {
		return "NOT (" + fragment + ")", nil
	}
	return fragment, nil
}

var comparisonOperators = map[loam.ConditionOperator]string{
	loam.OpEquals:             "=",
	loam.OpNotEquals:          "!=",
	loam.OpGreaterThan:        ">",
	loam.OpGreaterThanOrEqual: ">=",
	loam.OpLessThan:           "<",
	loam.OpLessThanOrEqual:    "<=",
}

func (c *FilterCompiler) comparisonCondition(fieldType loam.FieldType, field string, leaf *loam.FilterCondition) (string, error) {
	expr, err := fieldType.SingleValueExpression(c.dialect, c.tableAlias, string(c.jsonColumn), field)
	if err != nil {
		return "", err
	}

	literal, err := c.comparisonLiteral(fieldType, leaf)
	if err != nil {
		return "", err
	}

	return expr + " " + comparisonOperators[leaf.Operator] + " " + literal, nil
}

// dateLiteralLayouts are the shapes a date comparison literal may take.
// Looser than what either database would accept, tighter than garbage.
var dateLiteralLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func isDateLiteral(value string) bool {
	for _, layout := range dateLiteralLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// comparisonLiteral renders the leaf's value for embedding. Numeric and
// date fields demand a parseable literal up front: stored legacy data
// may soft-fail to NULL inside the generated SQL, but a garbage literal
// in the filter itself is a caller mistake and is rejected before any
// SQL runs.
func (c *FilterCompiler) comparisonLiteral(fieldType loam.FieldType, leaf *loam.FilterCondition) (string, error) {
	value := strings.TrimSpace(leaf.Value)
	switch fieldType.DeveloperName {
	case loam.FieldTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "", loam.NewInvalidFilterError(
				fmt.Sprintf("value '%s' is not numeric for field '%s'", leaf.Value, leaf.Field))
		}
		return value, nil
	case loam.FieldTypeDate:
		if !isDateLiteral(value) {
			return "", loam.NewInvalidFilterError(
				fmt.Sprintf("value '%s' is not a date for field '%s'", leaf.Value, leaf.Field))
		}
		return loam.QuoteLiteral(value), nil
	}
	return loam.QuoteLiteral(leaf.Value), nil
}

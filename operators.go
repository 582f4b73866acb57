package loam

import (
	"fmt"
	"strings"
)

// ConditionOperator identifies one comparison operator by its stable
// developer-facing name. Which operators may be applied to a field is
// decided by the field's FieldType; applying an unsupported operator is
// a caller error, never a silent no-op.
type ConditionOperator string

const (
	OpEquals             ConditionOperator = "equals"
	OpNotEquals          ConditionOperator = "not_equals"
	OpContains           ConditionOperator = "contains"
	OpNotContains        ConditionOperator = "not_contains"
	OpStartsWith         ConditionOperator = "starts_with"
	OpNotStartsWith      ConditionOperator = "not_starts_with"
	OpEndsWith           ConditionOperator = "ends_with"
	OpNotEndsWith        ConditionOperator = "not_ends_with"
	OpIsEmpty            ConditionOperator = "is_empty"
	OpIsNotEmpty         ConditionOperator = "is_not_empty"
	OpGreaterThan        ConditionOperator = "greater_than"
	OpGreaterThanOrEqual ConditionOperator = "greater_than_or_equal"
	OpLessThan           ConditionOperator = "less_than"
	OpLessThanOrEqual    ConditionOperator = "less_than_or_equal"
	OpIsTrue             ConditionOperator = "is_true"
	OpIsFalse            ConditionOperator = "is_false"
	OpHas                ConditionOperator = "has"
	OpNotHas             ConditionOperator = "not_has"
)

// ConditionOperators lists every operator in the catalog.
var ConditionOperators = []ConditionOperator{
	OpEquals, OpNotEquals,
	OpContains, OpNotContains,
	OpStartsWith, OpNotStartsWith,
	OpEndsWith, OpNotEndsWith,
	OpIsEmpty, OpIsNotEmpty,
	OpGreaterThan, OpGreaterThanOrEqual,
	OpLessThan, OpLessThanOrEqual,
	OpIsTrue, OpIsFalse,
	OpHas, OpNotHas,
}

// ConditionOperatorFromName resolves an operator by developer name,
// case-insensitively.
func ConditionOperatorFromName(name string) (ConditionOperator, error) {
	normalized := ConditionOperator(strings.ToLower(strings.TrimSpace(name)))
	for _, op := range ConditionOperators {
		if op == normalized {
			return op, nil
		}
	}
	return "", NewInvalidFilterError(fmt.Sprintf("unknown condition operator '%s'", name))
}

// NeedsValue reports whether the operator compares against a literal
// value. Empty/not-empty and true/false checks carry no literal.
func (op ConditionOperator) NeedsValue() bool {
	switch op {
	case OpIsEmpty, OpIsNotEmpty, OpIsTrue, OpIsFalse:
		return false
	}
	return true
}

// IsNegation reports whether the operator is the negated form of a
// pattern match.
func (op ConditionOperator) IsNegation() bool {
	switch op {
	case OpNotContains, OpNotStartsWith, OpNotEndsWith, OpNotHas:
		return true
	}
	return false
}

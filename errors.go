package loam

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeExecution  ErrorType = "execution"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes surfaced by the query engine. Validation codes are
// detected before any SQL executes; execution failures wrap the
// underlying driver error unmodified.
const (
	ErrCodeUnsupportedFieldType = "UNSUPPORTED_FIELD_TYPE"
	ErrCodeFieldNotFound        = "FIELD_NOT_FOUND_IN_CONTENT_TYPE"
	ErrCodeUnsupportedOperator  = "UNSUPPORTED_OPERATOR_FOR_FIELD_TYPE"
	ErrCodeInvalidFilter        = "INVALID_FILTER"
	ErrCodeInvalidOrderBy       = "INVALID_ORDER_BY"
	ErrCodeInvalidContentType   = "INVALID_CONTENT_TYPE"
	ErrCodeContentTypeNotFound  = "CONTENT_TYPE_NOT_FOUND"
	ErrCodeContentItemNotFound  = "CONTENT_ITEM_NOT_FOUND"
	ErrCodeUnsupportedDialect   = "UNSUPPORTED_DIALECT"
	ErrCodeTransactionRequired  = "TRANSACTION_REQUIRED"
	ErrCodeQueryExecution       = "QUERY_EXECUTION_ERROR"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// QueryError represents unified errors from the content query engine.
type QueryError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a QueryError.
func (e *QueryError) WithDetail(key string, value any) *QueryError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *QueryError) WithCause(cause error) *QueryError {
	e.Cause = cause
	return e
}

// NewQueryError creates a new QueryError.
func NewQueryError(errorType ErrorType, code, message string) *QueryError {
	return &QueryError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewUnsupportedFieldTypeError reports a field type developer name that
// does not resolve to a known descriptor.
func NewUnsupportedFieldTypeError(developerName string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeUnsupportedFieldType,
		Message: fmt.Sprintf("unsupported field type '%s'", developerName),
	}
}

// NewFieldNotFoundError reports a filter or sort referencing a field the
// content type does not define.
func NewFieldNotFoundError(field, contentType string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeFieldNotFound,
		Message: fmt.Sprintf("field '%s' not found in content type '%s'", field, contentType),
		Field:   field,
	}
}

// NewUnsupportedOperatorError reports an operator applied to a field
// type that does not support it.
func NewUnsupportedOperatorError(op ConditionOperator, fieldType string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeUnsupportedOperator,
		Message: fmt.Sprintf("operator '%s' is not supported for field type '%s'", op, fieldType),
	}
}

// NewInvalidFilterError reports a structurally invalid filter tree.
func NewInvalidFilterError(message string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeInvalidFilter,
		Message: message,
	}
}

// NewInvalidOrderByError reports a malformed order-by string.
func NewInvalidOrderByError(orderBy string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeInvalidOrderBy,
		Message: fmt.Sprintf("malformed order by '%s', expected '<field> <asc|desc>'", orderBy),
	}
}

// NewContentTypeNotFoundError reports an unknown content type id.
func NewContentTypeNotFoundError(id uuid.UUID) *QueryError {
	return &QueryError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeContentTypeNotFound,
		Message: fmt.Sprintf("content type '%s' not found", id),
	}
}

// NewContentItemNotFoundError reports a point lookup with no matching row.
func NewContentItemNotFoundError(id uuid.UUID) *QueryError {
	return &QueryError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeContentItemNotFound,
		Message: fmt.Sprintf("content item '%s' not found", id),
	}
}

// NewUnsupportedDialectError reports an unrecognized SQL dialect.
func NewUnsupportedDialectError(dialect string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeUnsupportedDialect,
		Message: fmt.Sprintf("unsupported SQL dialect '%s'", dialect),
	}
}

// NewTransactionRequiredError reports a snapshot-scoped operation invoked
// without a caller-supplied transaction.
func NewTransactionRequiredError(operation string) *QueryError {
	return &QueryError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeTransactionRequired,
		Message: fmt.Sprintf("%s requires a caller-supplied transaction", operation),
	}
}

// NewQueryExecutionError wraps a database-level failure. The cause is
// carried unmodified so infrastructure problems stay visible.
func NewQueryExecutionError(message string, cause error) *QueryError {
	return &QueryError{
		Type:    ErrorTypeExecution,
		Code:    ErrCodeQueryExecution,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *QueryError {
	return &QueryError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeValidation
	}
	return false
}

// IsNotFoundError checks if an error is a not-found error.
func IsNotFoundError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeNotFound
	}
	return false
}

// IsExecutionError checks if an error wraps a database-level failure.
func IsExecutionError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeExecution
	}
	return false
}

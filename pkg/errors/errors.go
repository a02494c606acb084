// Package errors defines the categorized error type shared by the import
// pipeline and the CLI.
//
// Errors carry a category, a specific code, a human-readable message, an
// optional suggestion for the user, and a context map for structured
// detail. Categories drive process exit codes and the propagation policy:
// parse errors are collected alongside successes, mapping and
// authorization errors abort before any mutation, persistence errors are
// counted per record.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category represents a class of errors with a shared propagation policy.
type Category string

const (
	CategoryFile          Category = "file"
	CategoryParse         Category = "parse"
	CategoryValidation    Category = "validation"
	CategoryMapping       Category = "mapping"
	CategoryPersistence   Category = "persistence"
	CategoryAuthorization Category = "authorization"
	CategoryConfiguration Category = "configuration"
	CategoryInternal      Category = "internal"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFileCorrupted  Code = "file_corrupted"
	CodeFileUnreadable Code = "file_unreadable"

	// Parse errors
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidDate   Code = "invalid_date"
	CodeInvalidAmount Code = "invalid_amount"
	CodeEmptyFile     Code = "empty_file"

	// Validation errors
	CodeMissingField Code = "missing_field"
	CodeInvalidData  Code = "invalid_data"

	// Mapping errors
	CodeUnmappedNames   Code = "unmapped_names"
	CodeUnknownDecision Code = "unknown_decision"

	// Persistence errors
	CodeWriteFailed  Code = "write_failed"
	CodeDeleteFailed Code = "delete_failed"
	CodeNotFound     Code = "record_not_found"

	// Authorization errors
	CodeNoUser   Code = "no_current_user"
	CodeNotOwner Code = "not_record_owner"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"

	// Internal errors
	CodeUnexpected Code = "unexpected_error"
)

// ReconcileError is the error type returned by every component.
type ReconcileError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides structured detail about the error.
type Context map[string]interface{}

func (e *ReconcileError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for the error's category.
func (e *ReconcileError) ExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryMapping:
		return 5
	case CategoryPersistence, CategoryInternal:
		return 6
	case CategoryAuthorization:
		return 7
	default:
		return 1
	}
}

// WithContext attaches a context key/value to the error.
func (e *ReconcileError) WithContext(key string, value interface{}) *ReconcileError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a user-facing suggestion.
func (e *ReconcileError) WithSuggestion(suggestion string) *ReconcileError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new ReconcileError.
func New(category Category, code Code, message string) *ReconcileError {
	return &ReconcileError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with category and code.
func Wrap(err error, category Category, code Code, message string) *ReconcileError {
	if err == nil {
		return nil
	}
	return &ReconcileError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// FileError creates a file access error for the given path.
func FileError(code Code, path string, err error) *ReconcileError {
	var message, suggestion string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the file path is correct"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be read as a spreadsheet: %s", path)
		suggestion = "re-export the file from QuickBooks and try again"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	result := wrapOrNew(err, CategoryFile, code, message)
	return result.WithSuggestion(suggestion).WithContext("file_path", path)
}

// ParseError creates a row-level parse error. These are collected as
// warnings, not returned as hard failures.
func ParseError(code Code, row int, field, value string, err error) *ReconcileError {
	var message, suggestion string
	switch code {
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date at row %d (%s='%s')", row, field, value)
		suggestion = "use MM/DD/YYYY, YYYY-MM-DD, or MM-DD-YYYY"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount at row %d (%s='%s')", row, field, value)
		suggestion = "use a decimal amount like 1234.56 or (1,234.56)"
	case CodeMissingColumn:
		message = fmt.Sprintf("required column '%s' not found", field)
		suggestion = "check the export includes this column"
	case CodeEmptyFile:
		message = "file contains no data rows"
		suggestion = "check the export produced any transactions"
	default:
		message = fmt.Sprintf("parse error at row %d (%s='%s')", row, field, value)
		suggestion = "check the row's data"
	}

	result := wrapOrNew(err, CategoryParse, code, message)
	return result.WithSuggestion(suggestion).
		WithContext("row", row).
		WithContext("field", field).
		WithContext("value", value)
}

// MappingError creates a blocking mapping precondition error.
func MappingError(code Code, names []string) *ReconcileError {
	var message, suggestion string
	switch code {
	case CodeUnmappedNames:
		message = fmt.Sprintf("%d account name(s) remain unmapped: %s", len(names), strings.Join(names, ", "))
		suggestion = "resolve every discovered name before completing the import"
	case CodeUnknownDecision:
		message = fmt.Sprintf("unknown mapping decision for: %s", strings.Join(names, ", "))
		suggestion = "use ignored, asset, liability, income, or expense"
	default:
		message = "mapping error"
		suggestion = "review the pending account mappings"
	}

	result := New(CategoryMapping, code, message)
	return result.WithSuggestion(suggestion).WithContext("names", names)
}

// PersistenceError creates a per-record store failure.
func PersistenceError(code Code, kind, id string, err error) *ReconcileError {
	var message string
	switch code {
	case CodeWriteFailed:
		message = fmt.Sprintf("failed to write %s %s", kind, id)
	case CodeDeleteFailed:
		message = fmt.Sprintf("failed to delete %s %s", kind, id)
	case CodeNotFound:
		message = fmt.Sprintf("%s %s not found", kind, id)
	default:
		message = fmt.Sprintf("persistence error on %s %s", kind, id)
	}

	result := wrapOrNew(err, CategoryPersistence, code, message)
	return result.WithContext("record_kind", kind).WithContext("record_id", id)
}

// AuthorizationError creates a reject-before-mutation error.
func AuthorizationError(code Code, detail string) *ReconcileError {
	var message, suggestion string
	switch code {
	case CodeNoUser:
		message = "no current user in context"
		suggestion = "sign in before running imports"
	case CodeNotOwner:
		message = fmt.Sprintf("record belongs to another user: %s", detail)
		suggestion = "check you are operating on your own data"
	default:
		message = "authorization error"
		suggestion = "check the current user context"
	}

	result := New(CategoryAuthorization, code, message)
	return result.WithSuggestion(suggestion).WithContext("detail", detail)
}

// ConfigurationError creates a configuration error for a setting.
func ConfigurationError(setting string, value interface{}, err error) *ReconcileError {
	message := fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
	result := wrapOrNew(err, CategoryConfiguration, CodeInvalidConfig, message)
	return result.
		WithSuggestion("check the configuration values").
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an unexpected internal error.
func InternalError(operation string, err error) *ReconcileError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	result := wrapOrNew(err, CategoryInternal, CodeUnexpected, message)
	return result.WithContext("operation", operation)
}

func wrapOrNew(err error, category Category, code Code, message string) *ReconcileError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// IsCategory reports whether err is a ReconcileError of the given category.
func IsCategory(err error, category Category) bool {
	re, ok := AsReconcileError(err)
	return ok && re.Category == category
}

// AsReconcileError extracts a ReconcileError from an error chain.
func AsReconcileError(err error) (*ReconcileError, bool) {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

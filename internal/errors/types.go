package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeStructural covers unterminated brackets/braces and other
	// malformed macro syntax.
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeValidation covers macro-specific option and argument checks.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeBoolean is raised when a literal matches neither truth group.
	ErrorTypeBoolean ErrorType = "boolean"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// SemtexError is a structured error type with location and context.
type SemtexError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	FilePath string
	Line     int
}

// Error renders the error as a single diagnostic line: file:line: message.
func (e *SemtexError) Error() string {
	var b strings.Builder

	if e.FilePath != "" {
		b.WriteString(e.FilePath)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.detail())

	return b.String()
}

// detail renders the message and cause without the location. A wrapped
// SemtexError at the same location is not repeated.
func (e *SemtexError) detail() string {
	if e.Cause == nil {
		return e.Message
	}

	var inner *SemtexError
	if errors.As(e.Cause, &inner) && inner.FilePath == e.FilePath && inner.Line == e.Line {
		return e.Message + ": " + inner.detail()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SemtexError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *SemtexError) Is(target error) bool {
	var t *SemtexError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SemtexError) WithContext(key string, value interface{}) *SemtexError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *SemtexError) WithLocation(filePath string, line int) *SemtexError {
	e.FilePath = filePath
	e.Line = line

	return e
}

// Error creation functions

// NewStructuralError creates a structural parse error.
func NewStructuralError(code, message string) *SemtexError {
	return &SemtexError{
		Type:    ErrorTypeStructural,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a macro validation error.
func NewValidationError(code, message string) *SemtexError {
	return &SemtexError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewBooleanError creates an invalid truth-value error.
func NewBooleanError(literal string) *SemtexError {
	return &SemtexError{
		Type:    ErrorTypeBoolean,
		Code:    ErrCodeInvalidBoolean,
		Message: fmt.Sprintf("%q is not a valid true/false value", literal),
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SemtexError {
	return &SemtexError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *SemtexError {
	return &SemtexError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SemtexError {
	return &SemtexError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasErrorType reports whether the outermost SemtexError in the chain has
// the given type.
func HasErrorType(err error, errType ErrorType) bool {
	var se *SemtexError
	if errors.As(err, &se) {
		return se.Type == errType
	}

	return false
}

// IsStructural checks if an error is a structural parse error.
func IsStructural(err error) bool {
	return HasErrorType(err, ErrorTypeStructural)
}

// IsValidation checks if an error is a macro validation error.
func IsValidation(err error) bool {
	return HasErrorType(err, ErrorTypeValidation)
}

// IsIO checks if an error is I/O related.
func IsIO(err error) bool {
	return HasErrorType(err, ErrorTypeIO)
}

// Common error codes.
const (
	ErrCodeUnterminatedOptions  = "ERR_UNTERMINATED_OPTIONS"
	ErrCodeUnterminatedArgument = "ERR_UNTERMINATED_ARGUMENT"
	ErrCodeUnbalancedBraces     = "ERR_UNBALANCED_BRACES"
	ErrCodeInvalidBoolean       = "ERR_INVALID_BOOLEAN"
	ErrCodeUnknownFlag          = "ERR_UNKNOWN_FLAG"
	ErrCodeUnexpectedOption     = "ERR_UNEXPECTED_OPTION"
	ErrCodeTooManyArguments     = "ERR_TOO_MANY_ARGUMENTS"
	ErrCodeIncludeNotFound      = "ERR_INCLUDE_NOT_FOUND"
	ErrCodeFileNotFound         = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed           = "ERR_READ_FAILED"
	ErrCodeWriteFailed          = "ERR_WRITE_FAILED"
	ErrCodeConfigInvalid        = "ERR_CONFIG_INVALID"
	ErrCodeDuplicateTrigger     = "ERR_DUPLICATE_TRIGGER"
	ErrCodeTypesetFailed        = "ERR_TYPESET_FAILED"
	ErrCodeInternalError        = "ERR_INTERNAL"
)

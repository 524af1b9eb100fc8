package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a SemtexError if
// the input is not already one. Location information is carried over from
// a wrapped SemtexError.
func Wrap(err error, errType ErrorType, code, message string) *SemtexError {
	if err == nil {
		return nil
	}

	var se *SemtexError
	if errors.As(err, &se) {
		return &SemtexError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Cause:    se,
			Context:  se.Context,
			FilePath: se.FilePath,
			Line:     se.Line,
		}
	}

	return &SemtexError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *SemtexError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *SemtexError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WithLocationInfo attaches a file and line to err. Errors that already
// carry a location keep it.
func WithLocationInfo(err error, filePath string, line int) error {
	if err == nil {
		return nil
	}

	var se *SemtexError
	if errors.As(err, &se) {
		if se.FilePath == "" {
			se.WithLocation(filePath, line)
		}
		return err
	}

	return &SemtexError{
		Type:     ErrorTypeInternal,
		Code:     ErrCodeInternalError,
		Message:  err.Error(),
		FilePath: filePath,
		Line:     line,
	}
}

// CollectErrors helper for common error collection patterns
func CollectErrors(errs ...error) []error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	return collected
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	nonNilErrs := CollectErrors(errs...)
	if len(nonNilErrs) == 0 {
		return nil
	}
	if len(nonNilErrs) == 1 {
		return nonNilErrs[0]
	}

	messages := make([]string, 0, len(nonNilErrs))
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
	}

	return &SemtexError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("%d files failed", len(nonNilErrs)),
		Context: map[string]interface{}{
			"error_count": len(nonNilErrs),
			"errors":      messages,
		},
	}
}

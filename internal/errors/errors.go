// Package errors provides the structured error types used across semtex,
// a race-safe collector for diagnostics raised by concurrently processed
// files, a printer that renders them one per line, and a parser that maps
// typesetter log output back to file and line locations.
package errors

import (
	"errors"
	"sync"
)

// ErrorCollector collects errors reported by the orchestrator and workers.
type ErrorCollector struct {
	errors []error
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collector. Nil errors are ignored.
func (ec *ErrorCollector) Add(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// Errors returns a copy of all collected errors in arrival order.
func (ec *ErrorCollector) Errors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]error, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Len returns the number of collected errors.
func (ec *ErrorCollector) Len() int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors)
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// GetErrorsByFile returns the SemtexErrors located in a specific file.
func (ec *ErrorCollector) GetErrorsByFile(file string) []*SemtexError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var fileErrors []*SemtexError
	for _, err := range ec.errors {
		var se *SemtexError
		if errors.As(err, &se) && se.FilePath == file {
			fileErrors = append(fileErrors, se)
		}
	}
	return fileErrors
}

// Err combines everything collected into a single error, or nil.
func (ec *ErrorCollector) Err() error {
	return CombineErrors(ec.Errors()...)
}

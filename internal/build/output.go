package build

import (
	"os"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/conneroisu/semtex/internal/errors"
)

// DefaultOutputCacheSize bounds the number of output fingerprints kept.
const DefaultOutputCacheSize = 512

// OutputWriter writes generated files. It remembers an xxhash fingerprint of
// each write and skips a rewrite whose content is unchanged.
type OutputWriter struct {
	fingerprints *lru.Cache[string, uint64]
}

// NewOutputWriter creates a writer remembering up to size outputs.
func NewOutputWriter(size int) (*OutputWriter, error) {
	if size < 1 {
		size = DefaultOutputCacheSize
	}
	cache, err := lru.New[string, uint64](size)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "cannot create output cache", err)
	}
	return &OutputWriter{fingerprints: cache}, nil
}

// Write stores data at path. It reports false when the file already holds
// the same content from an earlier write and was left alone.
func (w *OutputWriter) Write(path string, data []byte) (bool, error) {
	sum := xxhash.Sum64(data)

	if prev, ok := w.fingerprints.Get(path); ok && prev == sum && fileExists(path) {
		return false, nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.fingerprints.Remove(path)
		return false, errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot write output").WithLocation(path, 0)
	}

	w.fingerprints.Add(path, sum)
	return true, nil
}

// Remove deletes a generated file and forgets its fingerprint.
func (w *OutputWriter) Remove(path string) error {
	w.fingerprints.Remove(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot remove output").WithLocation(path, 0)
	}
	return nil
}

// Len returns the number of remembered outputs.
func (w *OutputWriter) Len() int {
	return w.fingerprints.Len()
}

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/queue"
	"github.com/conneroisu/semtex/internal/scanner"
)

// IncludeResolver turns include directives into queue entries. It
// implements scanner.IncludeResolver and never waits for the included file.
type IncludeResolver struct {
	shared *SharedContext
}

// NewIncludeResolver creates a resolver feeding shared.Queue.
func NewIncludeResolver(shared *SharedContext) *IncludeResolver {
	return &IncludeResolver{shared: shared}
}

// ResolveInclude decides whether path names a macro source and queues it.
// A path with a source extension must exist. A path without an extension
// is probed with each source extension in turn; failing that, a plain LaTeX
// file at path or path.tex is accepted and left to the typesetter.
func (r *IncludeResolver) ResolveInclude(path string) error {
	if scanner.IsSourcePath(path) {
		if !fileExists(path) {
			return notFound(path)
		}
		r.enqueue(path)
		return nil
	}

	if filepath.Ext(path) == "" {
		for _, ext := range scanner.SourceExtensions {
			if candidate := path + ext; fileExists(candidate) {
				r.enqueue(candidate)
				return nil
			}
		}
	}

	if fileExists(path) || fileExists(path+scanner.OutputExtension) {
		r.shared.Logger.Debug(context.Background(), "Plain include left to typesetter", "path", path)
		return nil
	}

	return notFound(path)
}

func (r *IncludeResolver) enqueue(path string) {
	if !r.shared.Discover(path) {
		r.shared.Logger.Debug(context.Background(), "Include already queued", "path", path)
		return
	}
	r.shared.Queue.Enqueue(queue.Entry{Path: path, Dir: filepath.Dir(path)})
	r.shared.Logger.Debug(context.Background(), "Queued include", "path", path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func notFound(path string) error {
	return errors.NewIOError(errors.ErrCodeIncludeNotFound,
		fmt.Sprintf("include target %s not found", path), nil)
}

var _ scanner.IncludeResolver = (*IncludeResolver)(nil)

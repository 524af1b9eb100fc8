package build

import (
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/logging"
	"github.com/conneroisu/semtex/internal/queue"
)

// SharedContext is the state shared by the orchestrator and every worker
// for one run.
type SharedContext struct {
	Verbose bool
	Logger  logging.Logger
	Queue   *queue.FileQueue
	Metrics *BuildMetrics

	errs    *errors.ErrorCollector
	printer *errors.Printer

	// failed is sticky: once set no new file is started
	failed atomic.Bool

	// mu protects generated, discovered and results
	mu         sync.Mutex
	generated  []string
	discovered map[string]struct{}
	results    []FileResult
}

// NewSharedContext creates the context for one run. printer may be nil, in
// which case diagnostics are only collected.
func NewSharedContext(verbose bool, logger logging.Logger, printer *errors.Printer, q *queue.FileQueue) *SharedContext {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SharedContext{
		Verbose:    verbose,
		Logger:     logger,
		Queue:      q,
		Metrics:    NewBuildMetrics(),
		errs:       errors.NewErrorCollector(),
		printer:    printer,
		discovered: make(map[string]struct{}),
	}
}

// Fail records a diagnostic and raises the sticky error flag.
func (c *SharedContext) Fail(err error) {
	if err == nil {
		return
	}
	c.failed.Store(true)
	c.errs.Add(err)
	if c.printer != nil {
		c.printer.Print(err)
	}
}

// HasError reports whether any file failed.
func (c *SharedContext) HasError() bool {
	return c.failed.Load()
}

// Errors returns every diagnostic in the order reported.
func (c *SharedContext) Errors() []error {
	return c.errs.Errors()
}

// Err combines all diagnostics, or returns nil.
func (c *SharedContext) Err() error {
	return c.errs.Err()
}

// Discover marks a source path as seen and reports whether it was new.
func (c *SharedContext) Discover(path string) bool {
	key := sourceKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.discovered[key]; ok {
		return false
	}
	c.discovered[key] = struct{}{}
	return true
}

// RegisterGenerated records an output file for later cleanup.
func (c *SharedContext) RegisterGenerated(path string) {
	c.mu.Lock()
	c.generated = append(c.generated, path)
	c.mu.Unlock()
}

// GeneratedFiles returns the registered outputs in lexical order.
func (c *SharedContext) GeneratedFiles() []string {
	c.mu.Lock()
	files := make([]string, len(c.generated))
	copy(files, c.generated)
	c.mu.Unlock()

	sort.Strings(files)
	return files
}

func (c *SharedContext) recordResult(r FileResult) {
	c.Metrics.RecordFile(r)

	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

// Results returns the per-file results ordered by path.
func (c *SharedContext) Results() []FileResult {
	c.mu.Lock()
	results := make([]FileResult, len(c.results))
	copy(results, c.results)
	c.mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results
}

func sourceKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Package build runs the multi-file preprocessing pipeline.
//
// The root file is processed on the calling goroutine. Includes it names are
// queued, and the first include starts a worker pool that drains the queue
// concurrently. A failure in any file raises a sticky flag in the
// SharedContext: files already being processed finish, no new file starts,
// and the run reports every diagnostic collected.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/logging"
	"github.com/conneroisu/semtex/internal/queue"
	"github.com/conneroisu/semtex/internal/scanner"
)

// Options configures a Pipeline.
type Options struct {
	// Workers is the pool size; zero selects DefaultWorkerCount.
	Workers int
	// PollInterval is the idle sleep of workers and half the shutdown
	// retry delay.
	PollInterval time.Duration
	// DryRun validates every file of the include tree without writing.
	DryRun  bool
	Verbose bool

	Registry *scanner.Registry
	Logger   logging.Logger
	Printer  *errors.Printer
	// Writer is reused across runs in watch mode; nil creates one per
	// pipeline.
	Writer *OutputWriter
}

// Result summarises one run.
type Result struct {
	Root       string
	RootOutput string
	Generated  []string
	Files      []FileResult
	Metrics    MetricsSnapshot
	Errors     []error
	Workers    int
	Duration   time.Duration
}

// Failed reports whether any file failed.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// Pipeline expands a root source file and everything it includes.
type Pipeline struct {
	opts   Options
	logger logging.Logger
	writer *OutputWriter
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkerCount()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	writer := opts.Writer
	if writer == nil {
		var err error
		writer, err = NewOutputWriter(DefaultOutputCacheSize)
		if err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		opts:   opts,
		logger: logger.WithComponent("pipeline"),
		writer: writer,
	}, nil
}

// Writer returns the output writer, for cleanup of generated files.
func (p *Pipeline) Writer() *OutputWriter {
	return p.writer
}

// run holds the state of a single Run call.
type run struct {
	*Pipeline
	shared   *SharedContext
	pool     *WorkerPool
	resolver *IncludeResolver
}

// Run processes root and its include tree. The returned error combines every
// file diagnostic; the Result is filled in either way.
//
// Cancelling ctx stops new files from being started; files in progress are
// finished.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	r := &run{Pipeline: p}
	q := queue.NewFileQueue(func() { r.startPool(ctx) })
	r.shared = NewSharedContext(p.opts.Verbose, p.logger, p.opts.Printer, q)
	r.resolver = NewIncludeResolver(r.shared)
	r.pool = NewWorkerPool(p.opts.Workers, p.opts.PollInterval, r.shared, r.processEntry)

	r.shared.Discover(root)
	r.ProcessFile(ctx, root)

	if err := r.Wait(ctx); err != nil {
		r.shared.Fail(err)
	}

	result := &Result{
		Root:       root,
		RootOutput: scanner.OutputPath(root),
		Generated:  r.shared.GeneratedFiles(),
		Files:      r.shared.Results(),
		Metrics:    r.shared.Metrics.GetSnapshot(),
		Errors:     r.shared.Errors(),
		Duration:   time.Since(start),
	}
	if r.pool.Started() {
		result.Workers = r.pool.Size()
	}

	return result, r.shared.Err()
}

func (r *run) startPool(ctx context.Context) {
	if r.opts.Verbose {
		r.logger.Info(ctx, fmt.Sprintf("Processing multiple files. Starting up %d additional threads.", r.pool.Size()))
	}
	r.pool.Start(ctx)
}

func (r *run) processEntry(ctx context.Context, e queue.Entry) {
	r.ProcessFile(ctx, e.Path)
}

// Wait blocks until no worker holds a file and the queue is empty, or an
// error was raised. The queue gate is closed around each check so that no
// worker can take a file between the busy and the empty test.
func (r *run) Wait(ctx context.Context) error {
	if !r.pool.Started() {
		return nil
	}

	var cancelled bool
	for {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			r.shared.Fail(errors.NewInternalError(errors.ErrCodeInternalError, "run cancelled", ctx.Err()))
		}

		r.shared.Queue.SetDequeueEnabled(false)
		done := !r.pool.AnyBusy() && (r.shared.Queue.Empty() || r.shared.HasError())
		r.shared.Queue.SetDequeueEnabled(true)

		if done {
			break
		}
		time.Sleep(r.opts.PollInterval / 2)
	}

	return r.pool.Stop()
}

// ProcessFile expands one source file and writes its output. Failures are
// reported through the shared context.
func (r *run) ProcessFile(ctx context.Context, path string) {
	op := logging.StartOperation(r.logger, "process_file")
	start := time.Now()

	result, err := r.processFile(path)
	result.Duration = time.Since(start)
	result.Error = err

	if err != nil {
		r.shared.Fail(err)
		op.End(ctx, "path", path, "failed", true)
	} else {
		op.End(ctx, "path", path, "replacements", result.Replacements, "skipped", result.Skipped)
	}

	r.shared.recordResult(result)
}

func (r *run) processFile(path string) (FileResult, error) {
	result := FileResult{Path: path}

	src, err := scanner.LoadSource(path)
	if err != nil {
		code := errors.ErrCodeReadFailed
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return result, errors.WrapIO(err, code, "cannot read source").WithLocation(path, 0)
	}

	parser := scanner.NewParser(path, src, scanner.ParserOptions{
		Registry: r.opts.Registry,
		Resolver: r.resolver,
	})
	parseErr := parser.ParseLoop(!r.opts.DryRun)

	result.Newlines = parser.Stats()
	r.reportNewlines(path, result.Newlines)

	if parseErr != nil {
		return result, parseErr
	}

	log := parser.Replacements()
	if err := log.Validate(len(src)); err != nil {
		return result, errors.NewInternalError(errors.ErrCodeInternalError,
			"invalid replacement log", err).WithLocation(path, 0)
	}
	result.Replacements = len(log)

	if r.opts.DryRun {
		return result, nil
	}

	result.Output = scanner.OutputPath(path)
	written, err := r.writer.Write(result.Output, log.Apply(src))
	if err != nil {
		return result, err
	}
	result.Skipped = !written
	r.shared.RegisterGenerated(result.Output)

	return result, nil
}

func (r *run) reportNewlines(path string, stats scanner.NewlineStats) {
	ctx := context.Background()
	r.logger.Debug(ctx, "Newline statistics",
		"path", filepath.ToSlash(path),
		"unix", stats.Unix, "windows", stats.Windows, "mac", stats.Mac)

	if stats.Mixed() {
		r.logger.Warn(ctx, nil, "Mixed newline styles",
			"path", path,
			"unix", stats.Unix, "windows", stats.Windows, "mac", stats.Mac)
	}
}

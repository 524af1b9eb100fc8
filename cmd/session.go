package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/conneroisu/semtex/internal/build"
	"github.com/conneroisu/semtex/internal/config"
	semerrors "github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/logging"
	"github.com/conneroisu/semtex/internal/macros"
	"github.com/conneroisu/semtex/internal/scanner"
	"github.com/conneroisu/semtex/internal/typeset"
	"github.com/conneroisu/semtex/internal/validation"
	"github.com/conneroisu/semtex/internal/version"
)

var bannerColor = color.New(color.FgCyan, color.Bold)

// session carries what one command invocation shares across pipeline runs:
// watch mode reuses the output writer and accumulates generated files for
// the final cleanup.
type session struct {
	cfg     *config.Config
	out     io.Writer
	logger  logging.Logger
	printer *semerrors.Printer
	writer  *build.OutputWriter
	runner  *typeset.Runner

	mu        sync.Mutex
	generated map[string]struct{}
}

func newSession(cfg *config.Config, out, errOut io.Writer) (*session, error) {
	level, err := logging.ParseLevel(cfg.EffectiveLogLevel())
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    "text",
		Output:    errOut,
		Component: "semtex",
	})

	writer, err := build.NewOutputWriter(build.DefaultOutputCacheSize)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:       cfg,
		out:       out,
		logger:    logger,
		printer:   semerrors.NewPrinter(errOut, true),
		writer:    writer,
		runner:    typeset.NewRunner(cfg.Typesetter.Command, cfg.Typesetter.Args, logger),
		generated: make(map[string]struct{}),
	}, nil
}

// checkInput rejects a root file that is not a macro source.
func checkInput(path string) error {
	if err := validation.ValidateFileExtension(path, scanner.SourceExtensions); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// notice prints a progress message in verbose mode.
func (s *session) notice(format string, args ...interface{}) {
	if s.cfg.Verbose {
		fmt.Fprintf(s.out, format+"\n", args...)
	}
}

func (s *session) banner() {
	if s.cfg.Verbose {
		fmt.Fprintln(s.out, bannerColor.Sprint(version.Banner()))
	}
}

// preprocess runs the pipeline on root and writes the report if one was
// requested. Diagnostics are printed as they occur, so a failed run returns
// errDiagnosed.
func (s *session) preprocess(ctx context.Context, root string, dryRun bool) (*build.Result, error) {
	pipeline, err := build.NewPipeline(build.Options{
		Workers:      s.cfg.Pipeline.Workers,
		PollInterval: s.cfg.Pipeline.PollInterval,
		DryRun:       dryRun,
		Verbose:      s.cfg.Verbose,
		Registry:     macros.Default(),
		Logger:       s.logger,
		Printer:      s.printer,
		Writer:       s.writer,
	})
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	result, runErr := pipeline.Run(ctx, root)

	s.mu.Lock()
	for _, path := range result.Generated {
		s.generated[path] = struct{}{}
	}
	s.mu.Unlock()

	if s.cfg.Report != "" {
		if err := build.NewReport(result, startedAt, dryRun).WriteFile(s.cfg.Report); err != nil {
			return result, err
		}
	}

	if runErr != nil {
		return result, errDiagnosed
	}
	return result, nil
}

// typeset runs the configured typesetter on texPath and echoes its output.
func (s *session) typeset(ctx context.Context, texPath string) error {
	s.notice("Running %s...", s.cfg.Typesetter.Command)

	result, err := s.runner.Run(ctx, texPath)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(s.out, result.Output); err != nil {
		return err
	}

	s.notice("%s exited.", s.cfg.Typesetter.Command)
	return nil
}

// cleanup removes every file generated during the session.
func (s *session) cleanup(ctx context.Context) {
	s.mu.Lock()
	paths := make([]string, 0, len(s.generated))
	for path := range s.generated {
		paths = append(paths, path)
	}
	s.generated = make(map[string]struct{})
	s.mu.Unlock()

	sort.Strings(paths)
	for _, path := range paths {
		s.notice("Removing intermediate LaTeX file %s", path)
		if err := s.writer.Remove(path); err != nil {
			s.logger.Warn(ctx, err, "Cannot remove generated file", "path", path)
		}
	}
}

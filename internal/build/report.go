package build

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/scanner"
)

// Report is the YAML run report written with --report.
type Report struct {
	Root      string          `yaml:"root"`
	DryRun    bool            `yaml:"dry_run"`
	StartedAt time.Time       `yaml:"started_at"`
	Duration  time.Duration   `yaml:"duration"`
	Workers   int             `yaml:"workers"`
	Succeeded bool            `yaml:"succeeded"`
	Files     []FileReport    `yaml:"files"`
	Generated []string        `yaml:"generated,omitempty"`
	Metrics   MetricsSnapshot `yaml:"metrics"`
	Errors    []string        `yaml:"errors,omitempty"`
}

// FileReport is the per-file section of a Report.
type FileReport struct {
	Path         string               `yaml:"path"`
	Output       string               `yaml:"output,omitempty"`
	Replacements int                  `yaml:"replacements"`
	Newlines     scanner.NewlineStats `yaml:"newlines"`
	Duration     time.Duration        `yaml:"duration"`
	Skipped      bool                 `yaml:"skipped,omitempty"`
	Error        string               `yaml:"error,omitempty"`
}

// NewReport builds a report from a run result.
func NewReport(result *Result, startedAt time.Time, dryRun bool) *Report {
	report := &Report{
		Root:      result.Root,
		DryRun:    dryRun,
		StartedAt: startedAt.UTC(),
		Duration:  result.Duration,
		Workers:   result.Workers,
		Succeeded: !result.Failed(),
		Files:     make([]FileReport, 0, len(result.Files)),
		Generated: result.Generated,
		Metrics:   result.Metrics,
	}

	for _, f := range result.Files {
		fr := FileReport{
			Path:         f.Path,
			Output:       f.Output,
			Replacements: f.Replacements,
			Newlines:     f.Newlines,
			Duration:     f.Duration,
			Skipped:      f.Skipped,
		}
		if f.Error != nil {
			fr.Error = f.Error.Error()
		}
		report.Files = append(report.Files, fr)
	}

	for _, err := range result.Errors {
		report.Errors = append(report.Errors, err.Error())
	}

	return report
}

// WriteFile marshals the report to path.
func (r *Report) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError, "cannot encode report", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot write report").WithLocation(path, 0)
	}
	return nil
}

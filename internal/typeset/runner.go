// Package typeset runs the external LaTeX engine on a generated file.
package typeset

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"

	semerrors "github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/logging"
	"github.com/conneroisu/semtex/internal/validation"
)

// Result is the outcome of one typesetter invocation.
type Result struct {
	ExitCode    int
	Output      string
	Diagnostics []*semerrors.ParsedError
}

// Errors returns the diagnostics with error severity.
func (r *Result) Errors() []*semerrors.ParsedError {
	var errs []*semerrors.ParsedError
	for _, d := range r.Diagnostics {
		if d.Severity == semerrors.ErrorSeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Runner invokes the typesetter in the directory of the file it is given.
type Runner struct {
	Command string
	Args    []string
	Logger  logging.Logger
	Parser  *semerrors.ErrorParser
}

// NewRunner creates a runner for command with the given leading arguments.
func NewRunner(command string, args []string, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{
		Command: command,
		Args:    args,
		Logger:  logger.WithComponent("typeset"),
		Parser:  semerrors.NewErrorParser(),
	}
}

// Run typesets texPath. A non-zero exit status is logged and reported in the
// result but is not an error; only failing to start the command is.
func (r *Runner) Run(ctx context.Context, texPath string) (*Result, error) {
	if err := validation.ValidateTypesetter(r.Command, r.Args); err != nil {
		return nil, semerrors.WrapConfig(err, semerrors.ErrCodeConfigInvalid, "refusing to run typesetter")
	}

	args := make([]string, 0, len(r.Args)+1)
	args = append(args, r.Args...)
	args = append(args, filepath.Base(texPath))

	// #nosec G204 -- command and arguments are validated above
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = filepath.Dir(texPath)

	op := logging.StartOperation(r.Logger, "typeset")
	output, err := cmd.CombinedOutput()

	result := &Result{Output: string(output)}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		op.EndWithError(ctx, err)
		return nil, semerrors.NewIOError(semerrors.ErrCodeTypesetFailed, "cannot run "+r.Command, err)
	}

	result.Diagnostics = r.Parser.ParseError(result.Output)
	op.End(ctx, "file", texPath, "exit_code", result.ExitCode, "diagnostics", len(result.Diagnostics))

	if result.ExitCode != 0 {
		r.Logger.Warn(ctx, nil, "Typesetter exited with non-zero status",
			"command", r.Command, "exit_code", result.ExitCode)
	}
	for _, d := range result.Errors() {
		r.Logger.Debug(ctx, d.FormatError())
	}

	return result, nil
}

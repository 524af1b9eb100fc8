package macros

import (
	"errors"
	"strings"

	semerrors "github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/scanner"
)

var summationFlags = map[string]bool{
	"inf": true, // infinite lower and upper bounds
	"lim": true, // \limits placement
}

// Summation expands \summ[flags]{var}{lower}{upper} into \sum with
// subscript and superscript bounds. All arguments are optional; an empty
// argument counts as absent.
type Summation struct{}

// Triggers implements scanner.Replacer.
func (Summation) Triggers() []string {
	return []string{`\summ`, `\summation`}
}

// Replace implements scanner.Replacer.
func (Summation) Replace(trigger string, p *scanner.Parser) error {
	start := p.Pos()
	p.Skip(len(trigger))

	options, err := p.ParseMacroOptions()
	if err != nil {
		return inMacro(err)
	}
	args, err := p.ParseBracketArgs()
	if err != nil {
		return inMacro(err)
	}

	if len(options.Opts) != 0 {
		return p.ErrorOnLine(semerrors.ErrCodeUnexpectedOption, `\summation does not take options`)
	}
	for _, flag := range options.FlagNames() {
		if !summationFlags[flag] {
			return p.ErrorOnLine(semerrors.ErrCodeUnknownFlag, `unknown flag %q for \summation`, flag)
		}
	}
	if len(args) > 3 {
		return p.ErrorOnLine(semerrors.ErrCodeTooManyArguments, `too many arguments for \summation`)
	}

	return p.AddReplacement(start, renderSummation(
		argAt(args, 0), argAt(args, 1), argAt(args, 2),
		options.HasFlag("inf"), options.HasFlag("lim"),
	))
}

func renderSummation(variable, lower, upper string, inf, lim bool) string {
	var sub, sup string

	switch {
	case lower != "":
		sub = bound(variable, lower)
	case inf:
		sub = bound(variable, `-\infty`)
	case variable != "":
		sub = variable
	}

	switch {
	case upper != "":
		sup = upper
	case inf:
		sup = `\infty`
	}

	var b strings.Builder
	b.WriteString(`\sum`)
	if lim && (sub != "" || sup != "" || inf) {
		b.WriteString(`\limits`)
	}
	if sub != "" {
		b.WriteString("_{" + sub + "}")
	}
	if sup != "" {
		b.WriteString("^{" + sup + "}")
	}
	return b.String()
}

func bound(variable, value string) string {
	if variable == "" {
		return value
	}
	return variable + "=" + value
}

// argAt returns the i-th positional argument, or "" when it was not given.
func argAt(args []string, i int) string {
	if i < len(args) {
		return strings.TrimSpace(args[i])
	}
	return ""
}

// inMacro names the macro in argument parsing errors.
func inMacro(err error) error {
	var se *semerrors.SemtexError
	if errors.As(err, &se) {
		se.Message += ` in \summation`
	}
	return err
}

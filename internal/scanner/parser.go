// Package scanner implements the single-file scan-and-replace engine.
//
// A Parser walks one source buffer strictly forward. It counts lines in all
// three newline conventions, forwards \include and \input directives to an
// IncludeResolver, and hands every registered macro trigger to its Replacer.
// Replacers parse their own options and arguments through the Parser and
// record Replacement spans; the buffer itself is never modified. The
// resulting log is applied afterwards to produce the generated file.
package scanner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/semtex/internal/errors"
)

// Sigil starts every macro invocation and directive.
const Sigil = '\\'

var includeDirectives = map[string]bool{
	`\include`: true,
	`\input`:   true,
}

// IncludeResolver receives the path of every included file, already joined
// with the including file's directory. It must not block on the included
// file being processed.
type IncludeResolver interface {
	ResolveInclude(path string) error
}

// NewlineStats counts newlines per convention.
type NewlineStats struct {
	Unix    int `json:"unix" yaml:"unix"`       // "\n"
	Windows int `json:"windows" yaml:"windows"` // "\r\n"
	Mac     int `json:"mac" yaml:"mac"`         // bare "\r"
}

// Total returns the number of newlines seen.
func (s NewlineStats) Total() int {
	return s.Unix + s.Windows + s.Mac
}

// Mixed reports whether more than one convention occurs.
func (s NewlineStats) Mixed() bool {
	styles := 0
	for _, n := range []int{s.Unix, s.Windows, s.Mac} {
		if n > 0 {
			styles++
		}
	}
	return styles > 1
}

// Add accumulates other into s.
func (s *NewlineStats) Add(other NewlineStats) {
	s.Unix += other.Unix
	s.Windows += other.Windows
	s.Mac += other.Mac
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// StartLine is the line number of the first byte; defaults to 1.
	StartLine int
	Registry  *Registry
	Resolver  IncludeResolver
}

// Parser is the cursor and replacement log for one source buffer. It is not
// safe for concurrent use; each file gets its own Parser.
type Parser struct {
	replacements Replacements
	buf          []byte
	curr         int
	filename     string
	dir          string
	line         int
	stats        NewlineStats
	registry     *Registry
	resolver     IncludeResolver
	collect      bool
}

// NewParser creates a parser over buf. buf must not be modified while the
// parser or its replacements are in use.
func NewParser(filename string, buf []byte, opts ParserOptions) *Parser {
	line := opts.StartLine
	if line < 1 {
		line = 1
	}
	return &Parser{
		buf:      buf,
		filename: filename,
		dir:      filepath.Dir(filename),
		line:     line,
		registry: opts.Registry,
		resolver: opts.Resolver,
		collect:  true,
	}
}

// ParseLoop scans the whole buffer. With collect false the scan is a dry
// run: everything is recognised and validated and includes are still
// forwarded, but no replacements are recorded.
//
// The first error aborts the scan.
func (p *Parser) ParseLoop(collect bool) error {
	p.collect = collect

	for p.curr < len(p.buf) {
		if p.readNewline() {
			continue
		}

		if p.buf[p.curr] != Sigil {
			p.curr++
			continue
		}

		name := p.controlWord()
		if name == "" {
			p.skipControlSymbol()
			continue
		}
		trigger := string(Sigil) + name

		if includeDirectives[trigger] {
			handled, err := p.processInclude(trigger)
			if err != nil {
				return err
			}
			if !handled {
				p.curr += len(trigger)
			}
			continue
		}

		replacer, ok := p.registry.Lookup(trigger)
		if !ok {
			// Unknown triggers are plain LaTeX.
			p.curr += len(trigger)
			continue
		}

		start := p.curr
		if err := replacer.Replace(trigger, p); err != nil {
			return errors.WithLocationInfo(err, p.filename, p.line)
		}
		if p.curr < start+len(trigger) {
			return p.errorf(errors.NewInternalError(errors.ErrCodeInternalError,
				fmt.Sprintf("replacer for %s did not consume its trigger", trigger), nil))
		}
	}

	return nil
}

// controlWord returns the letters following the sigil at the cursor.
func (p *Parser) controlWord() string {
	end := p.curr + 1
	for end < len(p.buf) && isLetter(p.buf[end]) {
		end++
	}
	return string(p.buf[p.curr+1 : end])
}

// skipControlSymbol steps over a sigil and the single non-letter after it,
// so that `\\summ` or `\{` never start a trigger. Newlines are left for the
// main loop to count.
func (p *Parser) skipControlSymbol() {
	p.curr++
	if p.curr < len(p.buf) && !isNewlineByte(p.buf[p.curr]) {
		p.curr++
	}
}

// readNewline consumes one newline at the cursor, if any.
func (p *Parser) readNewline() bool {
	if p.curr >= len(p.buf) {
		return false
	}

	switch p.buf[p.curr] {
	case '\r':
		if p.curr+1 < len(p.buf) && p.buf[p.curr+1] == '\n' {
			p.curr += 2
			p.stats.Windows++
		} else {
			p.curr++
			p.stats.Mac++
		}
	case '\n':
		p.curr++
		p.stats.Unix++
	default:
		return false
	}

	p.line++
	return true
}

// EatWhitespace skips tabs and spaces, stopping at newlines.
func (p *Parser) EatWhitespace() {
	for p.curr < len(p.buf) && isBlank(p.buf[p.curr]) {
		p.curr++
	}
}

// processInclude handles an include directive at the cursor. Directives
// without a braced argument are left alone and reported as not handled.
func (p *Parser) processInclude(directive string) (bool, error) {
	mark := p.curr
	p.curr += len(directive)
	p.EatWhitespace()

	if p.curr >= len(p.buf) || p.buf[p.curr] != '{' {
		p.curr = mark
		return false, nil
	}

	argStart := p.curr + 1
	arg, err := p.readBraceGroup()
	if err != nil {
		return true, err
	}
	argEnd := p.curr - 1

	target := strings.TrimSpace(arg)
	if target == "" {
		return true, p.errorf(errors.NewStructuralError(errors.ErrCodeIncludeNotFound,
			fmt.Sprintf("empty %s target", directive)))
	}

	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, path)
	}

	if p.resolver != nil {
		if err := p.resolver.ResolveInclude(path); err != nil {
			return true, errors.WithLocationInfo(err, p.filename, p.line)
		}
	}

	// The included file is referenced through its generated name.
	if IsSourcePath(target) {
		p.emit(argStart, argEnd, OutputPath(target))
	}

	return true, nil
}

// Pos returns the cursor offset.
func (p *Parser) Pos() int {
	return p.curr
}

// Remaining returns the unread part of the buffer. Callers must not modify
// it.
func (p *Parser) Remaining() []byte {
	return p.buf[p.curr:]
}

// Skip advances the cursor by n bytes, counting any newlines passed.
func (p *Parser) Skip(n int) {
	end := p.curr + n
	if end > len(p.buf) {
		end = len(p.buf)
	}
	for p.curr < end {
		if !p.readNewline() {
			p.curr++
		}
	}
}

// AddReplacement records that the bytes from start up to the cursor are to
// be replaced by text. In a dry run nothing is recorded.
func (p *Parser) AddReplacement(start int, text string) error {
	if start < 0 || start > p.curr {
		return p.errorf(errors.NewInternalError(errors.ErrCodeInternalError,
			fmt.Sprintf("replacement start %d outside [0, %d]", start, p.curr), nil))
	}
	if n := len(p.replacements); n > 0 && start < p.replacements[n-1].End {
		return p.errorf(errors.NewInternalError(errors.ErrCodeInternalError,
			fmt.Sprintf("replacement at %d overlaps previous replacement", start), nil))
	}
	p.emit(start, p.curr, text)
	return nil
}

func (p *Parser) emit(start, end int, text string) {
	if !p.collect {
		return
	}
	p.replacements = append(p.replacements, Replacement{Start: start, End: end, Text: text})
}

// ErrorOnLine builds a validation error tagged with the file and current
// line, for replacers rejecting an invocation.
func (p *Parser) ErrorOnLine(code, format string, args ...interface{}) error {
	return p.errorf(errors.NewValidationError(code, fmt.Sprintf(format, args...)))
}

func (p *Parser) errorf(err *errors.SemtexError) error {
	return err.WithLocation(p.filename, p.line)
}

// Replacements returns the collected log.
func (p *Parser) Replacements() Replacements {
	return p.replacements
}

// Stats returns the newline counts seen so far.
func (p *Parser) Stats() NewlineStats {
	return p.stats
}

// Line returns the current 1-based line number.
func (p *Parser) Line() int {
	return p.line
}

// Filename returns the name the parser tags diagnostics with.
func (p *Parser) Filename() string {
	return p.filename
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

func isNewlineByte(b byte) bool {
	return b == '\n' || b == '\r'
}

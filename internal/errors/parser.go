package errors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorSeverity represents the severity of a parsed typesetter message
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParsedError is one error or warning extracted from typesetter output.
type ParsedError struct {
	Severity ErrorSeverity `json:"severity" yaml:"severity"`
	File     string        `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int           `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string        `json:"message" yaml:"message"`
	RawError string        `json:"raw_error" yaml:"raw_error"`
}

// ErrorParser parses TeX engine logs into structured errors
type ErrorParser struct {
	patterns []errorPattern
	lineRef  *regexp.Regexp
}

type errorPattern struct {
	regex       *regexp.Regexp
	severity    ErrorSeverity
	parseFields func(matches []string) (file string, line int, message string)
}

// NewErrorParser creates a new error parser
func NewErrorParser() *ErrorParser {
	return &ErrorParser{
		patterns: buildTeXPatterns(),
		lineRef:  regexp.MustCompile(`^l\.(\d+)\b`),
	}
}

// ParseError parses typesetter output. Errors reported in TeX's classic
// "! message" form pick up their line from the "l.<n>" line that follows.
func (ep *ErrorParser) ParseError(output string) []*ParsedError {
	var errs []*ParsedError
	var pending *ParsedError

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if pending != nil {
			if m := ep.lineRef.FindStringSubmatch(trimmed); m != nil {
				pending.Line, _ = strconv.Atoi(m[1])
				pending = nil
				continue
			}
		}

		parsed := ep.tryParseWithPatterns(trimmed)
		if parsed == nil {
			continue
		}
		errs = append(errs, parsed)
		if parsed.Severity == ErrorSeverityError && parsed.Line == 0 {
			pending = parsed
		}
	}

	return errs
}

func (ep *ErrorParser) tryParseWithPatterns(line string) *ParsedError {
	for _, pattern := range ep.patterns {
		matches := pattern.regex.FindStringSubmatch(line)
		if matches != nil {
			file, lineNum, message := pattern.parseFields(matches)

			return &ParsedError{
				Severity: pattern.severity,
				File:     file,
				Line:     lineNum,
				Message:  message,
				RawError: line,
			}
		}
	}
	return nil
}

func buildTeXPatterns() []errorPattern {
	return []errorPattern{
		{
			// -file-line-error style
			regex:    regexp.MustCompile(`^(.+?\.tex):(\d+): (.+)$`),
			severity: ErrorSeverityError,
			parseFields: func(matches []string) (string, int, string) {
				line, _ := strconv.Atoi(matches[2])
				return matches[1], line, matches[3]
			},
		},
		{
			regex:    regexp.MustCompile(`^! (.+)$`),
			severity: ErrorSeverityError,
			parseFields: func(matches []string) (string, int, string) {
				return "", 0, matches[1]
			},
		},
		{
			regex:    regexp.MustCompile(`^(?:LaTeX|Package \S+) Warning: (.+?)(?: on input line (\d+))?\.?$`),
			severity: ErrorSeverityWarning,
			parseFields: func(matches []string) (string, int, string) {
				line, _ := strconv.Atoi(matches[2])
				return "", line, matches[1]
			},
		},
	}
}

// FormatError formats a parsed error as a single line
func (pe *ParsedError) FormatError() string {
	var builder strings.Builder

	if pe.File != "" {
		builder.WriteString(pe.File)
		if pe.Line > 0 {
			fmt.Fprintf(&builder, ":%d", pe.Line)
		}
		builder.WriteString(": ")
	} else if pe.Line > 0 {
		fmt.Fprintf(&builder, "line %d: ", pe.Line)
	}

	fmt.Fprintf(&builder, "%s: %s", pe.Severity, pe.Message)

	return builder.String()
}

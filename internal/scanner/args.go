package scanner

import (
	"fmt"
	"strings"

	"github.com/conneroisu/semtex/internal/errors"
)

// ParseMacroOptions reads an optional `[...]` list at the cursor. Tokens are
// comma separated; `key=value` sets an option, anything else is a flag.
// Empty tokens are ignored. Without a list the cursor does not move.
func (p *Parser) ParseMacroOptions() (*MacroOptions, error) {
	options := NewMacroOptions()

	mark := p.curr
	p.EatWhitespace()
	if p.curr >= len(p.buf) || p.buf[p.curr] != '[' {
		p.curr = mark
		return options, nil
	}

	openLine := p.line
	p.curr++
	start := p.curr

	for {
		if p.curr >= len(p.buf) {
			return nil, p.errorf(errors.NewStructuralError(errors.ErrCodeUnterminatedOptions,
				fmt.Sprintf("unterminated option list opened on line %d", openLine)))
		}
		if p.readNewline() {
			continue
		}
		if p.buf[p.curr] == ']' {
			break
		}
		p.curr++
	}

	raw := string(p.buf[start:p.curr])
	p.curr++ // ']'

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, value, isOption := strings.Cut(token, "=")
		if !isOption {
			options.Flags[token] = struct{}{}
			continue
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, p.errorf(errors.NewStructuralError(errors.ErrCodeUnterminatedOptions,
				fmt.Sprintf("option %q has no name", token)))
		}
		options.Opts[key] = strings.TrimSpace(value)
	}

	return options, nil
}

// ParseBracketArgs reads consecutive `{...}` groups at the cursor, each
// contributing its raw contents. Blanks may separate groups; blanks that do
// not lead to another group are left unconsumed.
func (p *Parser) ParseBracketArgs() ([]string, error) {
	args := make([]string, 0, 3)

	for {
		mark := p.curr
		p.EatWhitespace()
		if p.curr >= len(p.buf) || p.buf[p.curr] != '{' {
			p.curr = mark
			return args, nil
		}

		arg, err := p.readBraceGroup()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
}

// readBraceGroup reads a balanced group starting at the `{` under the cursor
// and leaves the cursor after its closing brace. Escaped braces do not
// count towards nesting.
func (p *Parser) readBraceGroup() (string, error) {
	openLine := p.line
	p.curr++
	start := p.curr
	depth := 1

	for p.curr < len(p.buf) {
		if p.readNewline() {
			continue
		}

		switch p.buf[p.curr] {
		case Sigil:
			p.skipControlSymbolOrWord()
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				arg := string(p.buf[start:p.curr])
				p.curr++
				return arg, nil
			}
		}
		p.curr++
	}

	if depth > 1 {
		return "", p.errorf(errors.NewStructuralError(errors.ErrCodeUnbalancedBraces,
			fmt.Sprintf("unbalanced braces in argument opened on line %d", openLine)))
	}
	return "", p.errorf(errors.NewStructuralError(errors.ErrCodeUnterminatedArgument,
		fmt.Sprintf("unterminated argument opened on line %d", openLine)))
}

// skipControlSymbolOrWord steps over a sigil sequence inside an argument.
func (p *Parser) skipControlSymbolOrWord() {
	if name := p.controlWord(); name != "" {
		p.curr += 1 + len(name)
		return
	}
	p.skipControlSymbol()
}

package scanner

import (
	"fmt"
	"sort"

	"github.com/conneroisu/semtex/internal/errors"
)

// Replacer expands one kind of macro. When Replace is called the parser's
// cursor sits on the first byte of trigger. The replacer must advance past
// the trigger and everything else it consumes, and append at most one
// Replacement that starts at the original cursor position.
//
// Replacers are shared by all workers and must not keep per-call state.
type Replacer interface {
	Triggers() []string
	Replace(trigger string, p *Parser) error
}

// Registry maps trigger strings (sigil included, e.g. `\summ`) to replacers.
// It is immutable once built.
type Registry struct {
	replacers map[string]Replacer
}

// NewRegistry indexes every trigger of every replacer. A trigger claimed
// twice, or one that is not a sigil followed by letters, is an error.
func NewRegistry(replacers ...Replacer) (*Registry, error) {
	reg := &Registry{replacers: make(map[string]Replacer)}

	for _, r := range replacers {
		for _, trigger := range r.Triggers() {
			if !validTrigger(trigger) {
				return nil, errors.NewInternalError(errors.ErrCodeInternalError,
					fmt.Sprintf("invalid macro trigger %q", trigger), nil)
			}
			if _, exists := reg.replacers[trigger]; exists {
				return nil, errors.NewInternalError(errors.ErrCodeDuplicateTrigger,
					fmt.Sprintf("macro trigger %q registered twice", trigger), nil)
			}
			reg.replacers[trigger] = r
		}
	}

	return reg, nil
}

// Lookup returns the replacer bound to trigger. A nil registry knows no
// triggers.
func (r *Registry) Lookup(trigger string) (Replacer, bool) {
	if r == nil {
		return nil, false
	}
	rep, ok := r.replacers[trigger]
	return rep, ok
}

// Triggers lists every registered trigger in lexical order.
func (r *Registry) Triggers() []string {
	if r == nil {
		return nil
	}
	triggers := make([]string, 0, len(r.replacers))
	for t := range r.replacers {
		triggers = append(triggers, t)
	}
	sort.Strings(triggers)
	return triggers
}

// Len returns the number of registered triggers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.replacers)
}

func validTrigger(trigger string) bool {
	if len(trigger) < 2 || trigger[0] != Sigil {
		return false
	}
	for i := 1; i < len(trigger); i++ {
		if !isLetter(trigger[i]) {
			return false
		}
	}
	return true
}

package scanner

import (
	"sort"

	"github.com/conneroisu/semtex/internal/errors"
)

// MacroOptions holds the bracketed options of one macro invocation.
// Flags have set semantics; Opts keeps the last value given for a key.
type MacroOptions struct {
	Flags map[string]struct{}
	Opts  map[string]string
}

// NewMacroOptions returns an empty option set.
func NewMacroOptions() *MacroOptions {
	return &MacroOptions{
		Flags: make(map[string]struct{}),
		Opts:  make(map[string]string),
	}
}

// HasFlag reports whether the bare flag name was given.
func (m *MacroOptions) HasFlag(name string) bool {
	_, ok := m.Flags[name]
	return ok
}

// Option returns the value given for key.
func (m *MacroOptions) Option(key string) (string, bool) {
	v, ok := m.Opts[key]
	return v, ok
}

// FlagNames returns the flags in lexical order.
func (m *MacroOptions) FlagNames() []string {
	names := make([]string, 0, len(m.Flags))
	for name := range m.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptionKeys returns the option keys in lexical order.
func (m *MacroOptions) OptionKeys() []string {
	keys := make([]string, 0, len(m.Opts))
	for key := range m.Opts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Bool reads name as a switch: a bare flag means true, a key=value option is
// parsed with ParseTruthValue, and def is returned when neither is present.
func (m *MacroOptions) Bool(name string, def bool) (bool, error) {
	if v, ok := m.Opts[name]; ok {
		return ParseTruthValue(v)
	}
	if m.HasFlag(name) {
		return true, nil
	}
	return def, nil
}

var truthValues = map[string]bool{
	"true": true, "True": true, "TRUE": true, "t": true, "T": true,
	"y": true, "Y": true, "yes": true, "Yes": true, "1": true,

	"false": false, "False": false, "FALSE": false, "f": false, "F": false,
	"n": false, "N": false, "no": false, "No": false, "0": false,
}

// ParseTruthValue interprets a textual true/false literal.
func ParseTruthValue(s string) (bool, error) {
	v, ok := truthValues[s]
	if !ok {
		return false, errors.NewBooleanError(s)
	}
	return v, nil
}

// Package macros holds the built-in macro replacers.
package macros

import "github.com/conneroisu/semtex/internal/scanner"

// Builtin returns every built-in replacer.
func Builtin() []scanner.Replacer {
	return []scanner.Replacer{
		Summation{},
	}
}

// Default builds the registry used for a run. Built-in triggers are known to
// be distinct, so a failure here is a programming error.
func Default() *scanner.Registry {
	reg, err := scanner.NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	return reg
}

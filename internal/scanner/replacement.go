package scanner

import (
	"bytes"
	"fmt"
	"sort"
)

// Replacement marks the byte range [Start, End) of one source buffer for
// substitution by Text.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Replacements is the replacement log of a single buffer, ordered by Start
// and mutually non-overlapping.
type Replacements []Replacement

// Validate checks the log against a buffer of length n.
func (rs Replacements) Validate(n int) error {
	prevEnd := 0
	for i, r := range rs {
		if r.Start < 0 || r.Start > r.End || r.End > n {
			return fmt.Errorf("replacement %d has invalid span [%d, %d) for buffer of length %d", i, r.Start, r.End, n)
		}
		if r.Start < prevEnd {
			return fmt.Errorf("replacement %d at %d overlaps or precedes previous end %d", i, r.Start, prevEnd)
		}
		prevEnd = r.End
	}
	return nil
}

// Apply returns a new buffer with every replacement applied. src is left
// untouched. The log must satisfy Validate(len(src)).
func (rs Replacements) Apply(src []byte) []byte {
	if len(rs) == 0 {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}

	size := len(src)
	for _, r := range rs {
		size += len(r.Text) - (r.End - r.Start)
	}

	var out bytes.Buffer
	out.Grow(size)

	prev := 0
	for _, r := range rs {
		out.Write(src[prev:r.Start])
		out.WriteString(r.Text)
		prev = r.End
	}
	out.Write(src[prev:])

	return out.Bytes()
}

// Sorted returns a copy of the log ordered by Start. Non-overlapping logs
// produced in any order apply to the same result once sorted.
func (rs Replacements) Sorted() Replacements {
	sorted := make(Replacements, len(rs))
	copy(sorted, rs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}

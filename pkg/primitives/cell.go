package primitives

import (
	"fmt"
	"strings"
)

// Cell is the state of a single position in a condition record.
type Cell uint8

const (
	Empty Cell = iota
	Filled
	Unknown

	numCells
)

const (
	kEmpty   = '.'
	kFilled  = '#'
	kUnknown = '?'
)

// CellFromRune returns the cell represented by r.
func CellFromRune(r rune) (Cell, error) {
	switch r {
	case kEmpty:
		return Empty, nil
	case kFilled:
		return Filled, nil
	case kUnknown:
		return Unknown, nil
	}
	return 0, fmt.Errorf("character %q is not one of %q, %q or %q", r, kEmpty, kFilled, kUnknown)
}

// Rune returns the input-format character for c.
func (c Cell) Rune() rune {
	switch c {
	case Empty:
		return kEmpty
	case Filled:
		return kFilled
	case Unknown:
		return kUnknown
	}
	panic(fmt.Sprintf("invalid cell %d", c))
}

func (c Cell) String() string {
	switch c {
	case Empty:
		return "Empty"
	case Filled:
		return "Filled"
	case Unknown:
		return "Unknown"
	}
	return fmt.Sprintf("Cell(%d)", c)
}

// CellSet efficiently represents a set of cell kinds.
type CellSet uint8

// NewCellSet returns a set containing the given cells.
func NewCellSet(cells ...Cell) CellSet {
	var s CellSet
	for _, c := range cells {
		s = s.With(c)
	}
	return s
}

var (
	// CanBeFilled holds the cells a run of Filled cells may cover.
	CanBeFilled = NewCellSet(Filled, Unknown)
	// CanBeEmpty holds the cells that may separate two runs.
	CanBeEmpty = NewCellSet(Empty, Unknown)
)

// With returns a copy of the set that also contains c.
func (s CellSet) With(c Cell) CellSet {
	if c >= numCells {
		panic(fmt.Sprintf("cell %d is out of range", c))
	}
	return s | 1<<c
}

// Contains checks if a cell is in the set.
func (s CellSet) Contains(c Cell) bool {
	return s&(1<<c) != 0
}

// Pattern is an ordered sequence of cells. Patterns are never mutated once
// parsed; every transformation builds a new one.
type Pattern []Cell

// ParsePattern converts the input-format string s into a Pattern.
func ParsePattern(s string) (Pattern, error) {
	p := make(Pattern, 0, len(s))
	for _, r := range s {
		c, err := CellFromRune(r)
		if err != nil {
			return nil, err
		}
		p = append(p, c)
	}
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on malformed input.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, c := range p {
		b.WriteRune(c.Rune())
	}
	return b.String()
}

// Unknowns returns the number of Unknown cells in p.
func (p Pattern) Unknowns() int {
	n := 0
	for _, c := range p {
		if c == Unknown {
			n++
		}
	}
	return n
}

// IsResolved reports whether p has no Unknown cells.
func (p Pattern) IsResolved() bool {
	return p.Unknowns() == 0
}

// Runs returns the lengths of the maximal blocks of Filled cells in p, left
// to right. Unknown cells end a run the same way Empty cells do.
func (p Pattern) Runs() []int {
	var runs []int
	n := 0
	for _, c := range p {
		if c == Filled {
			n++
			continue
		}
		if n > 0 {
			runs = append(runs, n)
			n = 0
		}
	}
	if n > 0 {
		runs = append(runs, n)
	}
	return runs
}

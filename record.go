package springs

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"crosswarped.com/springs/pkg/primitives"
)

// UnfoldFactor is the number of copies a record is unfolded into for the
// full-size workload.
const UnfoldFactor = 5

// Constraint is the ordered list of Filled-run lengths a record must show.
type Constraint []int

// Sum returns the number of Filled cells the constraint requires.
func (c Constraint) Sum() int {
	s := 0
	for _, r := range c {
		s += r
	}
	return s
}

// MinLength returns the shortest pattern that can hold c: every run plus a
// single separating cell between consecutive runs.
func (c Constraint) MinLength() int {
	if len(c) == 0 {
		return 0
	}
	return c.Sum() + len(c) - 1
}

func (c Constraint) String() string {
	parts := make([]string, len(c))
	for i, r := range c {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ",")
}

// Record is one condition record: a partially known pattern and the runs it
// must resolve to.
//
// Records are values. Nothing in this package mutates a Record after it has
// been created; transformations return new Records.
type Record struct {
	Pattern    primitives.Pattern
	Constraint Constraint
}

func NewRecord(p primitives.Pattern, c Constraint) Record {
	return Record{Pattern: p, Constraint: c}
}

// Repr returns the record in its input-line form.
func (r Record) Repr() string {
	return r.Pattern.String() + " " + r.Constraint.String()
}

func (r Record) DebugString() string {
	return fmt.Sprintf("Record{length: %d, unknowns: %d, pattern: %q, constraint: %v}",
		len(r.Pattern), r.Pattern.Unknowns(), r.Pattern.String(), []int(r.Constraint))
}

// Unfold returns a record whose pattern is k copies of r's pattern joined by
// single Unknown cells and whose constraint is k copies of r's constraint.
// A factor below 1 is treated as 1.
func Unfold(r Record, k int) Record {
	k = max(k, 1)

	p := make(primitives.Pattern, 0, k*len(r.Pattern)+k-1)
	c := make(Constraint, 0, k*len(r.Constraint))
	for i := range k {
		if i > 0 {
			p = append(p, primitives.Unknown)
		}
		p = append(p, r.Pattern...)
		c = append(c, r.Constraint...)
	}
	return Record{Pattern: p, Constraint: c}
}

// Equal reports whether r and o have the same pattern and constraint.
func (r Record) Equal(o Record) bool {
	return slices.Equal(r.Pattern, o.Pattern) && slices.Equal(r.Constraint, o.Constraint)
}

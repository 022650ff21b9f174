package primitives

import (
	"fmt"
	"iter"
	"math/bits"
	"slices"
)

// MaxEnumerableUnknowns bounds the number of Unknown cells Resolutions will
// enumerate; beyond it the 2^n resolutions no longer fit in a uint64 mask.
const MaxEnumerableUnknowns = 62

// Resolutions returns a sequence of every pattern obtained by resolving each
// Unknown cell of p to Empty or Filled. Each yielded pattern is a fresh copy.
//
// There are 2^n resolutions for n unknowns, so this is only meant for small
// patterns; it panics if p has more than MaxEnumerableUnknowns unknowns.
func Resolutions(p Pattern) iter.Seq[Pattern] {
	var unknownAt []int
	for i, c := range p {
		if c == Unknown {
			unknownAt = append(unknownAt, i)
		}
	}
	if len(unknownAt) > MaxEnumerableUnknowns {
		panic(fmt.Sprintf("cannot enumerate %d unknowns", len(unknownAt)))
	}

	return func(yield func(Pattern) bool) {
		line := slices.Clone(p)
		for mask := uint64(0); mask < 1<<len(unknownAt); mask++ {
			for _, i := range unknownAt {
				line[i] = Empty
			}
			for m := mask; m != 0; m &= m - 1 {
				line[unknownAt[bits.TrailingZeros64(m)]] = Filled
			}
			if !yield(slices.Clone(line)) {
				return
			}
		}
	}
}

// Arrangements returns a sequence of the resolutions of p whose runs are
// exactly runs. It is exhaustive and exponential in the number of unknowns.
func Arrangements(p Pattern, runs []int) iter.Seq[Pattern] {
	return func(yield func(Pattern) bool) {
		for line := range Resolutions(p) {
			if !slices.Equal(line.Runs(), runs) {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// FirstOrNull returns the first arrangement of p under runs, or nil if there
// is none.
func FirstOrNull(p Pattern, runs []int) Pattern {
	for line := range Arrangements(p, runs) {
		return line
	}
	return nil
}

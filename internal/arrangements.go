package internal

import (
	"math"
	"math/big"
	"math/bits"

	"crosswarped.com/springs/pkg/primitives"
)

// Stats describes the work done by one count.
type Stats struct {
	// States is the number of distinct (offset, run) states evaluated.
	States int
	// Hits is the number of times an already evaluated state was reused.
	Hits int
}

// arith is the arithmetic a count is carried out in.
type arith[N any] interface {
	zero() N
	one() N
	add(a, b N) N
}

// uint64Arith saturates at math.MaxUint64 and remembers that it did.
type uint64Arith struct {
	overflowed bool
}

func (*uint64Arith) zero() uint64 { return 0 }
func (*uint64Arith) one() uint64 { return 1 }

func (a *uint64Arith) add(x, y uint64) uint64 {
	sum, carry := bits.Add64(x, y, 0)
	if carry != 0 {
		a.overflowed = true
		return math.MaxUint64
	}
	return sum
}

type bigArith struct{}

func (bigArith) zero() *big.Int { return new(big.Int) }
func (bigArith) one() *big.Int { return big.NewInt(1) }

// add never modifies its arguments; memoized values are shared between
// callers.
func (bigArith) add(x, y *big.Int) *big.Int {
	return new(big.Int).Add(x, y)
}

// arrangementState is the search over (offset, run) states for one record.
// It is owned by a single count and never shared.
type arrangementState[N any, A arith[N]] struct {
	pattern primitives.Pattern
	runs    []int
	arith   A

	// need[j] is the fewest cells that can hold runs[j:], separators
	// included.
	need []int
	// blockedBefore[i] is the number of cells in pattern[:i] that cannot
	// be Filled.
	blockedBefore []int
	// forcedFrom[i] is the index of the first cell at or after i that
	// cannot be Empty, or len(pattern) if there is none.
	forcedFrom []int

	// memo is an arena indexed by offset*(len(runs)+1)+run.
	memo  []N
	known []bool

	stats Stats
}

func newArrangementState[N any, A arith[N]](p primitives.Pattern, runs []int, a A) *arrangementState[N, A] {
	n, k := len(p), len(runs)
	s := &arrangementState[N, A]{
		pattern:       p,
		runs:          runs,
		arith:         a,
		need:          make([]int, k+1),
		blockedBefore: make([]int, n+1),
		forcedFrom:    make([]int, n+1),
		memo:          make([]N, (n+1)*(k+1)),
		known:         make([]bool, (n+1)*(k+1)),
	}

	for j := k - 1; j >= 0; j-- {
		s.need[j] = runs[j]
		if j+1 < k {
			s.need[j] += 1 + s.need[j+1]
		}
	}

	for i, c := range p {
		s.blockedBefore[i+1] = s.blockedBefore[i]
		if !primitives.CanBeFilled.Contains(c) {
			s.blockedBefore[i+1]++
		}
	}

	s.forcedFrom[n] = n
	for i := n - 1; i >= 0; i-- {
		if !primitives.CanBeEmpty.Contains(p[i]) {
			s.forcedFrom[i] = i
		} else {
			s.forcedFrom[i] = s.forcedFrom[i+1]
		}
	}
	return s
}

// placeable reports whether runs[j] can start at offset i: the cells it covers
// may all be Filled and the cell after it, if any, may be Empty.
func (s *arrangementState[N, A]) placeable(i, length int) bool {
	end := i + length
	if s.blockedBefore[end]-s.blockedBefore[i] != 0 {
		return false
	}
	return end == len(s.pattern) || primitives.CanBeEmpty.Contains(s.pattern[end])
}

// skipEmpty advances i past Empty cells; they carry no information.
func (s *arrangementState[N, A]) skipEmpty(i int) int {
	for i < len(s.pattern) && !primitives.CanBeFilled.Contains(s.pattern[i]) {
		i++
	}
	return i
}

// count returns the number of arrangements of pattern[offset:] under runs[j:].
func (s *arrangementState[N, A]) count(offset, j int) N {
	if j == len(s.runs) {
		if s.forcedFrom[offset] == len(s.pattern) {
			return s.arith.one()
		}
		return s.arith.zero()
	}

	key := offset*(len(s.runs)+1) + j
	if s.known[key] {
		s.stats.Hits++
		return s.memo[key]
	}
	s.stats.States++

	total := s.arith.zero()
	length := s.runs[j]
	for i := offset; s.need[j] <= len(s.pattern)-i; i++ {
		if s.placeable(i, length) {
			next := min(i+length+1, len(s.pattern))
			total = s.arith.add(total, s.count(s.skipEmpty(next), j+1))
		}

		// A Filled cell here has to belong to this run, so the run can
		// never start further right.
		if !primitives.CanBeEmpty.Contains(s.pattern[i]) {
			break
		}
	}

	s.memo[key] = total
	s.known[key] = true
	return total
}

// fits reports whether runs could fit in n cells at all. Every run must be
// positive, and runs plus separators must not exceed n. It stops summing as
// soon as the total passes n, so it cannot overflow.
func fits(n int, runs []int) bool {
	need := 0
	for i, r := range runs {
		if r <= 0 || r > n {
			return false
		}
		if i > 0 {
			need++
		}
		need += r
		if need > n {
			return false
		}
	}
	return true
}

// Count returns the number of ways the Unknown cells of p can be resolved so
// that p's runs are exactly runs. ok is false if the count does not fit in a
// uint64, in which case the returned count is math.MaxUint64.
//
// Runs that cannot fit in p, including non-positive ones, count 0 without
// allocating a memo.
func Count(p primitives.Pattern, runs []int) (count uint64, ok bool, stats Stats) {
	if !fits(len(p), runs) {
		return 0, true, Stats{}
	}
	a := &uint64Arith{}
	s := newArrangementState[uint64](p, runs, a)
	count = s.count(s.skipEmpty(0), 0)
	return count, !a.overflowed, s.stats
}

// CountBig is like Count but exact for every input.
func CountBig(p primitives.Pattern, runs []int) (*big.Int, Stats) {
	if !fits(len(p), runs) {
		return new(big.Int), Stats{}
	}
	s := newArrangementState[*big.Int](p, runs, bigArith{})
	return s.count(s.skipEmpty(0), 0), s.stats
}

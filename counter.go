package springs

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"crosswarped.com/springs/internal"
	"crosswarped.com/springs/pkg/primitives"
)

var (
	recordsCounted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "springs_records_counted_total",
		Help: "Records counted, by arithmetic used",
	}, []string{"arith"})

	countDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "springs_count_duration_seconds",
		Help:    "Time to count the arrangements of one record",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	})

	memoStates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "springs_memo_states",
		Help:    "Distinct states evaluated per record",
		Buckets: []float64{10, 100, 1000, 10000, 100000},
	})
)

// Count returns the number of ways the Unknown cells of p can be resolved so
// that its runs of Filled cells are exactly c, in order.
//
// Count never fails: an infeasible combination counts 0. The result is exact
// whenever it fits in a uint64; larger counts saturate at math.MaxUint64 (use
// CountExact for those).
func Count(p primitives.Pattern, c Constraint) uint64 {
	n, _, stats := internal.Count(p, c)
	observe("uint64", stats)
	return n
}

// CountExact is like Count but never saturates.
func CountExact(p primitives.Pattern, c Constraint) *big.Int {
	n, ok, stats := internal.Count(p, c)
	if ok {
		observe("uint64", stats)
		return new(big.Int).SetUint64(n)
	}
	exact, stats := internal.CountBig(p, c)
	observe("big", stats)
	return exact
}

// Count returns the number of arrangements of r.
func (r Record) Count() uint64 {
	return Count(r.Pattern, r.Constraint)
}

func observe(arith string, stats internal.Stats) {
	recordsCounted.WithLabelValues(arith).Inc()
	memoStates.Observe(float64(stats.States))
}

// TallyOptions configures Tally.
type TallyOptions struct {
	// Workers is the number of records counted at once. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int
	// Unfold, if above 1, unfolds every record by this factor before
	// counting.
	Unfold int
	// Logger receives per-record debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Summary holds the per-record counts of a Tally, in input order, and their
// sum.
type Summary struct {
	Counts  []*big.Int
	Total   *big.Int
	Elapsed time.Duration
}

// Check returns an error if the total differs from expected.
func (s Summary) Check(expected *big.Int) error {
	if s.Total.Cmp(expected) != 0 {
		return fmt.Errorf("total %v does not match expected %v", s.Total, expected)
	}
	return nil
}

// Tally counts every record and sums the counts. Records are independent, so
// they are counted concurrently, each with its own memo.
//
// The only error Tally returns is the context's.
func Tally(ctx context.Context, records []Record, opts TallyOptions) (Summary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	counts := make([]*big.Int, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range records {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if opts.Unfold > 1 {
				r = Unfold(r, opts.Unfold)
			}

			t := time.Now()
			counts[i] = CountExact(r.Pattern, r.Constraint)
			countDuration.Observe(time.Since(t).Seconds())

			logger.Debug("counted record", "index", i, "length", len(r.Pattern), "runs", len(r.Constraint), "count", counts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	total := new(big.Int)
	for _, n := range counts {
		total.Add(total, n)
	}
	return Summary{Counts: counts, Total: total, Elapsed: time.Since(start)}, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"runtime/pprof"
	"time"

	"crosswarped.com/springs"
	"crosswarped.com/springs/pkg/primitives"
)

const (
	// maxShownUnknowns bounds the records whose arrangements -show lists.
	maxShownUnknowns = 12
	// maxSampledUnknowns bounds the records -show finds one arrangement for.
	maxSampledUnknowns = 20
)

func main() {
	file := flag.String("file", "", "The file to load condition records from")
	unfold := flag.Int("unfold", 1, "Unfold every record by this factor before counting")
	workers := flag.Int("workers", 0, "Records counted concurrently (0 means GOMAXPROCS)")
	expect := flag.String("expect", "", "Expected total; a mismatch exits with status 1")
	show := flag.Bool("show", false, "Print every record's count, and its arrangements when small")
	verbose := flag.Bool("v", false, "Log per-record debug output")

	timeout := flag.Duration("timeout", 1*time.Minute, "The timeout for counting")

	profile := flag.Bool("profile", false, "Profile the counter")
	profileFile := flag.String("profile-file", "cpu.pprof", "The file to write the CPU profile to")
	memoryProfileFile := flag.String("memory-profile-file", "mem.pprof", "The file to write the memory profile to")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *file == "" {
		fmt.Println("-file is required")
		os.Exit(1)
	}

	var expected *big.Int
	if *expect != "" {
		var ok bool
		if expected, ok = new(big.Int).SetString(*expect, 10); !ok {
			fmt.Printf("Invalid -expect value %q\n", *expect)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	records, err := loadFromFile(ctx, *file)
	if err != nil {
		fmt.Println("Error loading records from file:", err)
		os.Exit(1)
	}
	logger.Info("loaded records", "file", *file, "records", len(records))

	var mf *os.File
	if *profile {
		f, err := os.Create(*profileFile)
		if err != nil {
			fmt.Println("Error creating profile file:", err)
			os.Exit(1)
		}
		defer f.Close()

		mf, err = os.Create(*memoryProfileFile)
		if err != nil {
			fmt.Println("Error creating memory profile file:", err)
			os.Exit(1)
		}
		defer mf.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Println("Error starting CPU profile:", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	summary, err := springs.Tally(ctx, records, springs.TallyOptions{
		Workers: *workers,
		Unfold:  *unfold,
		Logger:  logger,
	})
	if err != nil {
		fmt.Println("Context error:", err)
		os.Exit(1)
	}

	if *show {
		for i, r := range records {
			if *unfold > 1 {
				r = springs.Unfold(r, *unfold)
			}
			fmt.Println("--------------------------------")
			showRecord(os.Stdout, r, summary.Counts[i])
		}
		fmt.Println("--------------------------------")
	}

	fmt.Println("Total:", summary.Total)
	logger.Info("done", "records", len(records), "unfold", *unfold, "elapsed", summary.Elapsed)

	if mf != nil {
		pprof.WriteHeapProfile(mf)
	}

	if expected != nil {
		if err := summary.Check(expected); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Println("Total matches expected value")
	}
}

// showRecord prints r with its count. Small records get every arrangement
// listed, medium ones a single sample.
func showRecord(w io.Writer, r springs.Record, count *big.Int) {
	fmt.Fprintf(w, "%s => %v\n", r.Repr(), count)
	switch u := r.Pattern.Unknowns(); {
	case u <= maxShownUnknowns:
		for line := range primitives.Arrangements(r.Pattern, r.Constraint) {
			fmt.Fprintln(w, "  ", line)
		}
	case u <= maxSampledUnknowns:
		if line := primitives.FirstOrNull(r.Pattern, r.Constraint); line != nil {
			fmt.Fprintln(w, "   e.g.", line)
		}
	}
}

func loadFromFile(ctx context.Context, path string) ([]springs.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	records, err := springs.ParseRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Command ingest rebuilds the results database from a JSONL export: it
// normalizes every record, computes both rank orderings over the full set,
// loads the normalized schema in batched transactions, and rematerializes the
// topper leaderboards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/schollz/progressbar/v3"

	"examresults/internal/rank"
	"examresults/internal/record"
	"examresults/internal/store"
)

func main() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var (
		inputPath = fs.String("input", "results.jsonl", "JSONL results file, one exam record per line")
		dbPath    = fs.String("db", "database.db", "SQLite database file (dropped and rebuilt)")
		batchSize = fs.Int("batch", store.DefaultBatchSize, "fact rows per write transaction")
		progress  = fs.Bool("progress", true, "show a progress bar during the load phase")
		verbose   = fs.Bool("v", false, "enable verbose logs")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("EXAMRESULTS")); err != nil {
		fatalf("parse flags: %v", err)
	}

	start := time.Now()
	if err := run(context.Background(), *inputPath, *dbPath, *batchSize, *progress, *verbose); err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func run(ctx context.Context, inputPath, dbPath string, batchSize int, progress, verbose bool) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	// Phase 1: normalize. Rank assignment needs the full set, so the run is
	// materialized in memory before any write.
	records, stats, err := record.ReadAll(f, func(line int, err error) {
		log.Printf("stage=normalize line=%d skipped: %v", line, err)
	})
	if err != nil {
		return err
	}
	log.Printf("stage=normalize lines=%d records=%d parse_errors=%d validation_errors=%d",
		stats.Lines, stats.Records, stats.ParseErrors, stats.ValidationErrors)

	// Phase 2: rank over the full in-memory set.
	rank.Assign(records)
	if verbose {
		log.Printf("stage=rank records=%d", len(records))
	}

	// Phase 3: rebuild schema and load. The rebuild completes before any
	// write; the load is one sequential pass with synchronous batch flushes.
	db, err := store.Rebuild(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	bar := loadBar(progress, len(records))
	loader := store.NewLoader(db, batchSize)
	for _, rec := range records {
		if err := loader.Add(ctx, rec); err != nil {
			return fmt.Errorf("load %s: %w", rec.RegistrationNo, err)
		}
		_ = bar.Add(1)
	}
	if err := loader.Flush(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	_ = bar.Finish()

	ls := loader.Stats()
	log.Printf("stage=load students=%d theory=%d practical=%d batches=%d",
		ls.Students, ls.TheoryRows, ls.PracticalRows, ls.Batches)

	// Phase 4: derive leaderboards, strictly after the final flush.
	if err := db.RebuildToppers(ctx); err != nil {
		return err
	}
	log.Printf("stage=toppers ok")

	return nil
}

func loadBar(enabled bool, total int) *progressbar.ProgressBar {
	if !enabled {
		return progressbar.NewOptions(total, progressbar.OptionSetWriter(discardWriter{}))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Loading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/ocr-ledger/internal/app"
	"github.com/dvloznov/ocr-ledger/internal/config"
	"github.com/dvloznov/ocr-ledger/internal/jobs"
	"github.com/dvloznov/ocr-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/ocr-ledger/internal/logger"
)

// The worker processes a batch of OCR text objects from Cloud Storage, one
// job per gs:// URI read from stdin, and prints a summary line per job.
func main() {
	cfg := config.Load()

	workers := flag.Int("workers", cfg.Jobs.Workers, "Number of concurrent jobs")
	flag.Parse()

	log := logger.NewFromConfig(cfg.Logger.Level, cfg.Logger.Format, os.Stderr)

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	uris, err := readURIs(os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read URIs")
	}
	if len(uris) == 0 {
		log.Warn().Msg("No gs:// URIs on stdin, nothing to do")
		return
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(uris), *workers, jobStore)

	if err := jobQueue.Start(ctx, application.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("jobs", len(uris)).Int("workers", *workers).Msg("Worker started")

	for _, uri := range uris {
		if err := jobQueue.PublishProcessText(ctx, &jobs.ProcessTextJob{GCSURI: uri}); err != nil {
			log.Error().Err(err).Str("gcs_uri", uri).Msg("Failed to enqueue job")
		}
	}

	waitForJobs(ctx, jobStore, len(uris))

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	all, _ := jobStore.ListJobs(shutdownCtx, jobs.JobFilter{})
	failed := printSummary(os.Stdout, all)

	log.Info().Int("failed", failed).Msg("Worker exited")
	if failed > 0 {
		application.Close()
		os.Exit(1)
	}
}

// readURIs returns the gs:// URIs in r, one per line, ignoring blanks and # comments.
func readURIs(r io.Reader) ([]string, error) {
	var uris []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris, scanner.Err()
}

// waitForJobs polls the store until n jobs are finished or ctx is done.
func waitForJobs(ctx context.Context, store jobs.JobStore, n int) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		done := 0
		for _, status := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed} {
			list, err := store.ListJobs(ctx, jobs.JobFilter{Status: status})
			if err == nil {
				done += len(list)
			}
		}
		if done >= n {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// printSummary writes one line per job and returns how many did not complete.
func printSummary(w io.Writer, all []*jobs.ProcessTextJob) int {
	failed := 0
	for _, job := range all {
		switch job.Status {
		case jobs.JobStatusCompleted:
			uploaded, uploadFailed := job.Result.Notion.Counts()
			fmt.Fprintf(w, "%s\t%s\ttransactions=%d uploaded=%d failed=%d\n",
				job.GCSURI, job.Status, len(job.Result.Transactions), uploaded, uploadFailed)
		default:
			failed++
			fmt.Fprintf(w, "%s\t%s\t%s\n", job.GCSURI, job.Status, job.Error)
		}
	}
	return failed
}

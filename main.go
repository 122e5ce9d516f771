package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockingest/internal/alphavantage"
	"stockingest/internal/config"
	"stockingest/internal/coordinator"
	"stockingest/internal/fallback"
	"stockingest/internal/quote"
	"stockingest/internal/ratelimit"
	"stockingest/internal/store"
)

func main() {
	// Load configuration. A missing API key or DSN aborts before any
	// symbol is processed.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Validate the database connection up front.
	db, err := store.Open(cfg.DBConnection)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	limiter := ratelimit.PerMinute(cfg.RateLimitPerMinute)
	client := alphavantage.NewClient(cfg.APIKey, cfg.Interval, cfg.BaseURL, cfg.HTTPTimeout(), limiter)
	generator := fallback.New(int64(os.Getpid()))
	writer := store.NewWriter(db)

	coord := coordinator.New(client, generator, writer,
		coordinator.WithWorkers(cfg.Workers))

	// Bound the whole run; the external scheduler re-invokes us on its own
	// cadence, so an expired run is simply reported and retried next tick.
	runCtx, runCancel := context.WithTimeout(ctx, cfg.RunTimeout())
	defer runCancel()

	fmt.Printf("Ingesting %d symbols at %s interval...\n", len(cfg.Symbols), cfg.Interval)
	fmt.Println("================================================")
	summary := coord.Run(runCtx, cfg.Symbols)

	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			fmt.Printf("%s: FAILED - %s\n", r.Symbol, r.Reason)
		case r.Reason != "":
			fmt.Printf("%s: %s (%s), %d rows written\n", r.Symbol, r.Status, r.Reason, r.RowsWritten)
		default:
			fmt.Printf("%s: %s, %d rows written\n", r.Symbol, r.Status, r.RowsWritten)
		}
	}

	fmt.Println("================================================")
	fmt.Printf("Run finished in %s: %d rows written, %d ok, %d degraded, %d failed\n",
		summary.Duration.Round(time.Millisecond),
		summary.RowsWritten(),
		summary.Count(quote.StatusSuccess),
		summary.Count(quote.StatusDegraded),
		summary.Count(quote.StatusFailed),
	)
}

// Package coordinator drives the per-symbol ingestion pipeline:
// fetch, fall back on failure, normalize, upsert. One invocation of Run
// produces exactly one outcome per requested symbol, in input order, and no
// symbol's failure ever aborts another's.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"stockingest/internal/alphavantage"
	"stockingest/internal/normalize"
	"stockingest/internal/quote"
)

// Source fetches live quote points for one symbol.
// Interfaces are defined here, by the consumer.
type Source interface {
	Fetch(ctx context.Context, symbol string) ([]quote.Point, error)
}

// Fallback produces synthetic quote points when the source fails.
type Fallback interface {
	Generate(symbol string, now time.Time) []quote.Point
}

// Store persists a normalized batch and reports newly inserted rows.
type Store interface {
	UpsertBatch(ctx context.Context, points []quote.Point) (int64, error)
}

// Coordinator runs the ingestion pipeline for a list of symbols.
type Coordinator struct {
	source   Source
	fallback Fallback
	store    Store
	workers  int
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers enables a bounded worker pool. Values below 2 keep the default
// sequential processing; the pool must stay small enough not to blow the
// external API's rate budget.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 1 {
			c.workers = n
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator.
func New(source Source, fallback Fallback, store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:   source,
		fallback: fallback,
		store:    store,
		workers:  1,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every symbol and returns one result per symbol in input
// order. It never returns an error past its own boundary: per-symbol
// failures are captured in the summary. The caller bounds the whole run via
// ctx; on deadline expiry in-flight fetches surface as unreachable and
// already-completed results are still returned.
func (c *Coordinator) Run(ctx context.Context, symbols []string) quote.RunSummary {
	summary := quote.RunSummary{
		Results:   make([]quote.Result, len(symbols)),
		StartedAt: c.now(),
	}

	if c.workers > 1 && len(symbols) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, c.workers)
		for i, symbol := range symbols {
			wg.Add(1)
			go func(i int, symbol string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				summary.Results[i] = c.runOne(ctx, symbol)
			}(i, symbol)
		}
		wg.Wait()
	} else {
		for i, symbol := range symbols {
			summary.Results[i] = c.runOne(ctx, symbol)
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	return summary
}

// runOne walks a single symbol through fetch, fallback, normalization and
// storage. The batch is owned by this call from fetch to write; nothing is
// shared across symbols.
func (c *Coordinator) runOne(ctx context.Context, symbol string) quote.Result {
	result := quote.Result{Symbol: symbol, Status: quote.StatusSuccess}

	points, err := c.source.Fetch(ctx, symbol)
	if err != nil {
		result.Status = quote.StatusDegraded
		result.Reason = fetchReason(err)
		c.logger.Warn("live fetch failed, substituting fallback data",
			"symbol", symbol, "reason", result.Reason, "error", err)
		points = c.fallback.Generate(symbol, c.now())
	}

	valid, dropped, err := normalize.Batch(symbol, c.now(), points)
	result.Dropped = dropped
	if err != nil && result.Status == quote.StatusSuccess {
		// A live batch rejected wholesale is handled like any other
		// source failure: substitute synthetic data and degrade.
		result.Status = quote.StatusDegraded
		result.Reason = "validation: " + err.Error()
		c.logger.Warn("live batch rejected by normalization, substituting fallback data",
			"symbol", symbol, "dropped", dropped, "error", err)
		points = c.fallback.Generate(symbol, c.now())
		valid, _, err = normalize.Batch(symbol, c.now(), points)
	}
	if err != nil {
		// The fallback generator always emits valid points, so an
		// all-invalid fallback batch is a logic defect worth surfacing.
		result.Status = quote.StatusFailed
		result.Reason = "validation: " + err.Error()
		result.Err = err
		c.logger.Error("fallback batch rejected by normalization",
			"symbol", symbol, "error", err)
		return result
	}
	if dropped > 0 {
		c.logger.Warn("dropped invalid points", "symbol", symbol, "dropped", dropped)
	}

	rows, err := c.store.UpsertBatch(ctx, valid)
	if err != nil {
		result.Status = quote.StatusFailed
		result.Reason = "write: " + err.Error()
		result.Err = err
		c.logger.Error("failed to write batch", "symbol", symbol, "error", err)
		return result
	}
	result.RowsWritten = rows

	c.logger.Info("symbol ingested",
		"symbol", symbol,
		"status", string(result.Status),
		"rows_written", rows,
		"dropped", dropped,
	)
	return result
}

func fetchReason(err error) string {
	var fe *alphavantage.FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	return "fetch: " + err.Error()
}

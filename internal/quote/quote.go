// Package quote defines the domain types shared by the ingestion pipeline:
// the OHLCV observation, the per-symbol outcome, and the run summary
// returned to the caller.
package quote

import "time"

// Point is one OHLCV observation for a symbol at a timestamp.
// (Symbol, Timestamp) is the natural identity of a point; the storage layer
// treats duplicate identities as idempotent no-ops.
type Point struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Status is the terminal outcome of one symbol's pipeline run.
type Status string

const (
	// StatusSuccess means live data was fetched, normalized and written.
	StatusSuccess Status = "success"
	// StatusDegraded means the live fetch failed and synthetic fallback
	// data was written instead. Reason records what triggered it.
	StatusDegraded Status = "degraded"
	// StatusFailed means no data was written for the symbol at all.
	StatusFailed Status = "failed"
)

// Result is the outcome of one symbol's run.
// It's designed to be sent through channels from worker goroutines
// to the coordinator that assembles the run summary.
type Result struct {
	Symbol string
	Status Status

	// Reason is set for degraded and failed outcomes: the fetch error kind
	// that triggered the fallback, or the error that aborted the symbol.
	Reason string

	// RowsWritten counts newly inserted rows only; duplicates resolved by
	// the upsert no-op do not count.
	RowsWritten int64

	// Dropped counts points discarded by normalization.
	Dropped int

	// Err holds the underlying error for failed outcomes.
	Err error
}

// RunSummary is produced once per coordinator invocation. Results appear in
// input symbol order regardless of completion order.
type RunSummary struct {
	Results   []Result
	StartedAt time.Time
	Duration  time.Duration
}

// RowsWritten totals newly inserted rows across all symbols.
func (s RunSummary) RowsWritten() int64 {
	var n int64
	for _, r := range s.Results {
		n += r.RowsWritten
	}
	return n
}

// Count returns how many results carry the given status.
func (s RunSummary) Count(st Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == st {
			n++
		}
	}
	return n
}

package testutil

import (
	"context"
	"sync"
	"time"

	"stockingest/internal/quote"
)

// MockSource is a mock implementation of the coordinator's Source interface.
// The coordinator may call it from several worker goroutines, so call
// counters are mutex-guarded.
type MockSource struct {
	FetchFunc func(ctx context.Context, symbol string) ([]quote.Point, error)

	mu         sync.Mutex
	fetchCalls int
}

// Fetch implements the Source interface
func (m *MockSource) Fetch(ctx context.Context, symbol string) ([]quote.Point, error) {
	m.mu.Lock()
	m.fetchCalls++
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol)
	}
	return nil, nil
}

// FetchCalls reports how many times Fetch was invoked.
func (m *MockSource) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// MockFallback is a mock implementation of the coordinator's Fallback interface
type MockFallback struct {
	GenerateFunc func(symbol string, now time.Time) []quote.Point

	mu            sync.Mutex
	generateCalls int
}

// Generate implements the Fallback interface
func (m *MockFallback) Generate(symbol string, now time.Time) []quote.Point {
	m.mu.Lock()
	m.generateCalls++
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(symbol, now)
	}
	return []quote.Point{{
		Symbol:    symbol,
		Timestamp: now,
		Open:      100,
		High:      101,
		Low:       99,
		Close:     100.5,
		Volume:    500_000,
	}}
}

// GenerateCalls reports how many times Generate was invoked.
func (m *MockFallback) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// MockStore is a mock implementation of the coordinator's Store interface
type MockStore struct {
	UpsertBatchFunc func(ctx context.Context, points []quote.Point) (int64, error)

	mu               sync.Mutex
	upsertBatchCalls int
	written          [][]quote.Point
}

// UpsertBatch implements the Store interface
func (m *MockStore) UpsertBatch(ctx context.Context, points []quote.Point) (int64, error) {
	m.mu.Lock()
	m.upsertBatchCalls++
	m.written = append(m.written, points)
	m.mu.Unlock()
	if m.UpsertBatchFunc != nil {
		return m.UpsertBatchFunc(ctx, points)
	}
	return int64(len(points)), nil
}

// UpsertBatchCalls reports how many times UpsertBatch was invoked.
func (m *MockStore) UpsertBatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertBatchCalls
}

// Written returns every batch handed to UpsertBatch.
func (m *MockStore) Written() [][]quote.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// ValidPoints creates a batch of n valid points for a symbol, one hour apart.
func ValidPoints(symbol string, n int, start time.Time) []quote.Point {
	points := make([]quote.Point, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, quote.Point{
			Symbol:    symbol,
			Timestamp: start.Add(-time.Duration(i) * time.Hour),
			Open:      150,
			High:      152,
			Low:       149,
			Close:     151,
			Volume:    1_000_000,
		})
	}
	return points
}

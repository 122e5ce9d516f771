// Package fallback produces synthetic quote points when the live source
// fails, so the storage schema stays populated instead of leaving gaps. The
// substitution is deliberate business policy; the coordinator marks such
// outcomes degraded so they remain distinguishable downstream.
package fallback

import (
	"math/rand"
	"sync"
	"time"

	"stockingest/internal/quote"
)

// basePrices anchors synthetic prices near each symbol's usual trading range.
var basePrices = map[string]float64{
	"AAPL":  150.0,
	"GOOGL": 2800.0,
	"MSFT":  300.0,
	"AMZN":  3000.0,
	"TSLA":  200.0,
}

const defaultBasePrice = 100.0

// Generator creates schema-valid synthetic quote points. Output is
// randomized but bounded: low <= open,close <= high and volume is always
// non-negative, so generated batches pass normalization unchanged.
// One Generator is shared across worker goroutines, so draws from the
// underlying rand source are serialized by mu.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator seeded from the given value. A fixed seed yields a
// reproducible sequence, which keeps tests stable.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns a single synthetic point for the symbol, stamped at now
// truncated to the hour. It never fails.
func (g *Generator) Generate(symbol string, now time.Time) []quote.Point {
	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}

	g.mu.Lock()
	// Up to ±5% off the base, then up to 2% spread either side.
	open := base * (1 + g.rng.Float64()*0.10 - 0.05)
	high := open * (1 + g.rng.Float64()*0.02)
	low := open * (1 - g.rng.Float64()*0.02)
	closePrice := low + g.rng.Float64()*(high-low)
	volume := 100_000 + g.rng.Int63n(900_000)
	g.mu.Unlock()

	return []quote.Point{{
		Symbol:    symbol,
		Timestamp: now.Truncate(time.Hour),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}}
}

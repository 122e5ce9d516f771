// Package normalize converts heterogeneous source batches (live or
// synthetic) into validated canonical records. It is purely computational:
// no I/O, no assumption about input ordering.
package normalize

import (
	"errors"
	"time"

	"stockingest/internal/quote"
)

// ErrAllInvalid is returned when a non-empty batch yields zero valid points.
var ErrAllInvalid = errors.New("no valid points in batch")

// maxFutureSkew bounds how far past now a timestamp may lie. Intraday stamps
// are exchange-local and can lead UTC by several hours.
const maxFutureSkew = 24 * time.Hour

// Batch validates each point against the requested symbol and returns the
// valid ones plus a count of dropped points. One bad point never discards
// the batch; ErrAllInvalid is returned only when every point is invalid.
// An empty input is a valid empty batch.
func Batch(symbol string, now time.Time, points []quote.Point) ([]quote.Point, int, error) {
	if len(points) == 0 {
		return nil, 0, nil
	}

	valid := make([]quote.Point, 0, len(points))
	dropped := 0
	for _, p := range points {
		if !pointValid(symbol, now, p) {
			dropped++
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) == 0 {
		return nil, dropped, ErrAllInvalid
	}
	return valid, dropped, nil
}

func pointValid(symbol string, now time.Time, p quote.Point) bool {
	if p.Symbol != symbol {
		return false
	}
	if p.Timestamp.IsZero() || p.Timestamp.After(now.Add(maxFutureSkew)) {
		return false
	}
	if p.Open < 0 || p.High < 0 || p.Low < 0 || p.Close < 0 {
		return false
	}
	if p.High < p.Low {
		return false
	}
	if p.Volume < 0 {
		return false
	}
	return true
}

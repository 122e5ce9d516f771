// Package store persists normalized quote points into the stock_prices
// table. Inserts are idempotent: a (symbol, timestamp) collision is a no-op,
// the existing row wins. That makes the whole run safe to re-invoke over
// overlapping time windows.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockingest/internal/quote"
)

// PriceModel is the gorm model for one stored observation.
type PriceModel struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"size:10;not null;uniqueIndex:stock_sym_ts,priority:1"`
	Timestamp  time.Time `gorm:"not null;uniqueIndex:stock_sym_ts,priority:2"`
	OpenPrice  float64   `gorm:"not null"`
	HighPrice  float64   `gorm:"not null"`
	LowPrice   float64   `gorm:"not null"`
	ClosePrice float64   `gorm:"not null"`
	Volume     int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (PriceModel) TableName() string {
	return "stock_prices"
}

func toModel(p quote.Point) PriceModel {
	return PriceModel{
		Symbol:     p.Symbol,
		Timestamp:  p.Timestamp,
		OpenPrice:  p.Open,
		HighPrice:  p.High,
		LowPrice:   p.Low,
		ClosePrice: p.Close,
		Volume:     p.Volume,
	}
}

// Writer writes quote point batches through a shared gorm handle. Each batch
// is one transaction; on error no partial state is visible.
type Writer struct {
	db *gorm.DB
}

// NewWriter creates a writer over an open gorm handle.
func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

// Open connects to postgres and migrates the stock_prices table. An
// unreachable database here is a fatal startup condition; no symbol is
// processed without a validated connection.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, ClassifyError(err)
	}
	if err := db.AutoMigrate(&PriceModel{}); err != nil {
		return nil, ClassifyError(err)
	}
	return db, nil
}

// UpsertBatch inserts the batch in a single statement with
// insert-or-ignore-on-conflict semantics. The returned count covers newly
// inserted rows only; duplicates resolve silently and do not count, so a
// fully duplicate batch reports zero.
func (w *Writer) UpsertBatch(ctx context.Context, points []quote.Point) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}
	models := make([]PriceModel, 0, len(points))
	for _, p := range points {
		models = append(models, toModel(p))
	}

	res := w.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timestamp"}},
		DoNothing: true,
	}).Create(&models)
	if res.Error != nil {
		return 0, ClassifyError(res.Error)
	}
	return res.RowsAffected, nil
}

// WriteErrorKind categorizes a failed write.
type WriteErrorKind string

const (
	// KindConnectionUnavailable indicates the database could not be reached.
	KindConnectionUnavailable WriteErrorKind = "connection_unavailable"
	// KindConstraintViolation indicates a schema-level rejection, distinct
	// from the expected (symbol, timestamp) conflict no-op.
	KindConstraintViolation WriteErrorKind = "constraint_violation"
	// KindTimeout indicates the write exceeded its deadline.
	KindTimeout WriteErrorKind = "timeout"
)

// WriteError describes why a batch could not be committed.
type WriteError struct {
	Kind    WriteErrorKind
	Message string
	Cause   error
}

func (e *WriteError) Error() string {
	return string(e.Kind) + " error: " + e.Message
}

// Unwrap exposes the driver-level cause to errors.Is and errors.As.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// ClassifyError wraps a database error into a WriteError.
func ClassifyError(err error) *WriteError {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return &WriteError{Kind: KindTimeout, Message: msg, Cause: err}
	case errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "constraint") ||
		strings.Contains(msg, "violates"):
		return &WriteError{Kind: KindConstraintViolation, Message: msg, Cause: err}
	default:
		return &WriteError{Kind: KindConnectionUnavailable, Message: msg, Cause: err}
	}
}

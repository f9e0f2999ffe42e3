// Package inventory is the stock ledger: every change to a product's
// available stock goes through Reserve or Release so the guarded decrement
// lives in exactly one place.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/storeerr"
)

// Ledger tracks per-product available stock.
type Ledger struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewLedger creates a stock ledger.
func NewLedger(database *db.DB, m *metrics.AppMetrics) *Ledger {
	return &Ledger{
		db:      database,
		metrics: m,
	}
}

// Reserve decrements a product's stock by quantity. It runs against q so a
// caller can place it inside the same transaction that persists an order.
// The decrement is a single guarded statement, so concurrent reserves
// cannot jointly overdraw a product.
func (l *Ledger) Reserve(ctx context.Context, q db.Querier, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", storeerr.ErrValidation, quantity)
	}

	start := time.Now()
	query := "UPDATE products SET stock = stock - ?, updated_at = NOW() WHERE id = ? AND stock >= ?"
	result, err := q.ExecContext(ctx, query, quantity, productID, quantity)
	l.metrics.RecordDBQuery(ctx, "UPDATE", "products", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the product is missing or its stock is short.
		var stock int
		err := q.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", productID).Scan(&stock)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: product %d", storeerr.ErrNotFound, productID)
		}
		if err != nil {
			return fmt.Errorf("failed to read stock: %w", err)
		}
		return fmt.Errorf("%w: product %d has %d in stock, requested %d",
			storeerr.ErrInsufficientStock, productID, stock, quantity)
	}

	l.recordLevel(ctx, q, productID)
	return nil
}

// Release increments a product's stock by quantity. There is no upper
// bound: the order state machine's idempotent-cancel guard is what prevents
// releasing the same line twice.
func (l *Ledger) Release(ctx context.Context, q db.Querier, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", storeerr.ErrValidation, quantity)
	}

	start := time.Now()
	query := "UPDATE products SET stock = stock + ?, updated_at = NOW() WHERE id = ?"
	result, err := q.ExecContext(ctx, query, quantity, productID)
	l.metrics.RecordDBQuery(ctx, "UPDATE", "products", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %d", storeerr.ErrNotFound, productID)
	}

	l.recordLevel(ctx, q, productID)
	return nil
}

// StockLevel reads a product's current stock.
func (l *Ledger) StockLevel(ctx context.Context, productID int64) (int, error) {
	start := time.Now()
	var stock int
	err := l.db.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", productID).Scan(&stock)
	l.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: product %d", storeerr.ErrNotFound, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return stock, nil
}

// recordLevel reports the post-movement stock gauge. Failures only cost
// the metric sample.
func (l *Ledger) recordLevel(ctx context.Context, q db.Querier, productID int64) {
	if l.metrics == nil {
		return
	}
	var stock int
	if err := q.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", productID).Scan(&stock); err == nil {
		l.metrics.RecordStockLevel(ctx, productID, stock)
	}
}

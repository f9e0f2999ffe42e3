package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shopspring/decimal"
)

// CartService handles cart operations. Cart lines are always priced from
// the live product price; nothing is snapshotted until checkout.
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartService creates a new cart service
func NewCartService(database *db.DB, m *metrics.AppMetrics) *CartService {
	return &CartService{
		db:      database,
		metrics: m,
	}
}

// MonitorActiveCarts periodically records the number of non-empty carts.
// It blocks until ctx is cancelled.
func (s *CartService) MonitorActiveCarts(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			query := "SELECT COUNT(DISTINCT c.id) FROM carts c INNER JOIN cart_items ci ON c.id = ci.cart_id"
			start := time.Now()
			var count int
			err := s.db.QueryRowContext(ctx, query).Scan(&count)
			s.metrics.RecordDBQuery(ctx, "SELECT", "carts", start, err == nil)
			if err == nil {
				s.metrics.RecordActiveCarts(ctx, count)
			}
		}
	}
}

// GetOrCreate gets or creates the user's cart. Carts are 1:1 with users.
func (s *CartService) GetOrCreate(ctx context.Context, userID int64) (*models.Cart, error) {
	start := time.Now()
	query := "SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ? LIMIT 1"
	var cart models.Cart
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		start = time.Now()
		insertQuery := "INSERT INTO carts (user_id) VALUES (?)"
		result, err := s.db.ExecContext(ctx, insertQuery, userID)
		s.metrics.RecordDBQuery(ctx, "INSERT", "carts", start, err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get cart ID: %w", err)
		}

		now := time.Now()
		return &models.Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// AddItem adds a product to the user's cart, merging quantities when the
// product is already there.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", storeerr.ErrValidation, quantity)
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	var available bool
	checkQuery := "SELECT is_available FROM products WHERE id = ?"
	err = s.db.QueryRowContext(ctx, checkQuery, productID).Scan(&available)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: product %d", storeerr.ErrNotFound, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to verify product: %w", err)
	}
	if !available {
		return fmt.Errorf("%w: product %d is not available", storeerr.ErrValidation, productID)
	}

	start = time.Now()
	// Unique (cart_id, product_id) index makes the merge a single upsert.
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW()
	`
	_, err = s.db.ExecContext(ctx, query, cart.ID, productID, quantity)
	s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to add item to cart: %w", err)
	}

	s.recordItemsGauge(ctx, cart.ID, userID)
	return nil
}

// UpdateItemQuantity sets a cart line's quantity. Zero removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative, got %d", storeerr.ErrValidation, quantity)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	query := "UPDATE cart_items SET quantity = ?, updated_at = NOW() WHERE cart_id = ? AND product_id = ?"
	result, err := s.db.ExecContext(ctx, query, quantity, cart.ID, productID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// No row changed: either the line is missing or the quantity
		// already matched. Only the former is an error.
		var exists bool
		existsQuery := "SELECT EXISTS(SELECT 1 FROM cart_items WHERE cart_id = ? AND product_id = ?)"
		if err := s.db.QueryRowContext(ctx, existsQuery, cart.ID, productID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check cart item: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: product %d not in cart", storeerr.ErrNotFound, productID)
		}
	}

	s.recordItemsGauge(ctx, cart.ID, userID)
	return nil
}

// RemoveItem removes a product from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	query := "DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?"
	result, err := s.db.ExecContext(ctx, query, cart.ID, productID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to remove item from cart: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %d not in cart", storeerr.ErrNotFound, productID)
	}

	s.recordItemsGauge(ctx, cart.ID, userID)
	return nil
}

// Clear deletes every item in the user's cart.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cart.ID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.recordItemsGauge(ctx, cart.ID, userID)
	return nil
}

// Get returns the cart with its lines priced from the current product
// prices.
func (s *CartService) Get(ctx context.Context, userID int64) (*models.CartResponse, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.name, p.price
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, cart.ID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartLine{}
	total := decimal.Zero
	for rows.Next() {
		var line models.CartLine
		if err := rows.Scan(&line.ID, &line.CartID, &line.ProductID, &line.Quantity,
			&line.CreatedAt, &line.UpdatedAt, &line.ProductName, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, line)
		total = total.Add(line.LineTotal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.metrics.RecordCartItems(ctx, userID, len(items))

	return &models.CartResponse{
		Cart:  cart,
		Items: items,
		Total: total,
	}, nil
}

// recordItemsGauge refreshes the cart items gauge after a mutation.
func (s *CartService) recordItemsGauge(ctx context.Context, cartID, userID int64) {
	if s.metrics == nil {
		return
	}
	start := time.Now()
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cart_items WHERE cart_id = ?", cartID).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
	if err == nil {
		s.metrics.RecordCartItems(ctx, userID, count)
	}
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/inventory"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shopspring/decimal"
)

// forwardTransitions is the order lifecycle state machine. Cancellation is
// not listed: it has its own protocol in Cancel, which also releases stock.
var forwardTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusProcessing},
	models.OrderStatusProcessing: {models.OrderStatusShipped},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to
// another. Cancellation is legal from pending and processing only; a
// cancelled order may "transition" to cancelled again as a no-op.
func CanTransition(from, to string) bool {
	if to == models.OrderStatusCancelled {
		return from == models.OrderStatusPending ||
			from == models.OrderStatusProcessing ||
			from == models.OrderStatusCancelled
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	_, ok := forwardTransitions[s]
	return ok
}

// ComputeTotals returns (subtotal, total) for a set of priced lines and a
// shipping cost. Line prices are whatever the caller snapshotted.
func ComputeTotals(items []models.OrderItem, shippingCost decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal, subtotal.Add(shippingCost)
}

// OrderService handles the order lifecycle: creation, status transitions,
// cancellation and cart checkout.
type OrderService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	ledger  *inventory.Ledger
}

// NewOrderService creates a new order service
func NewOrderService(database *db.DB, m *metrics.AppMetrics, ledger *inventory.Ledger) *OrderService {
	return &OrderService{
		db:      database,
		metrics: m,
		ledger:  ledger,
	}
}

// Create places an order from explicit (product, quantity) lines. The
// order, its items and the stock reservations commit as one transaction;
// item prices are the product prices read inside that transaction.
func (s *OrderService) Create(ctx context.Context, userID int64, req models.CreateOrderRequest) (*models.Order, error) {
	lines := make([]models.OrderLineRequest, len(req.Items))
	copy(lines, req.Items)

	var order *models.Order
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.createInTx(ctx, tx, userID, lines, req.ShippingAddressID, req.BillingAddressID, req.ShippingCost, req.Currency)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderPlaced(ctx, order.Total, order.Currency)
	return s.Get(ctx, order.ID, userID)
}

// Checkout converts the user's cart into an order and clears the cart,
// all inside one transaction.
func (s *OrderService) Checkout(ctx context.Context, userID int64, req models.CheckoutRequest) (*models.Order, error) {
	var order *models.Order
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		cartQuery := `
			SELECT ci.product_id, ci.quantity
			FROM cart_items ci
			JOIN carts c ON ci.cart_id = c.id
			WHERE c.user_id = ?
		`
		rows, err := tx.QueryContext(ctx, cartQuery, userID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to get cart items: %w", err)
		}

		var lines []models.OrderLineRequest
		for rows.Next() {
			var line models.OrderLineRequest
			if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			lines = append(lines, line)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		order, err = s.createInTx(ctx, tx, userID, lines, req.ShippingAddressID, req.BillingAddressID, req.ShippingCost, req.Currency)
		if err != nil {
			return err
		}

		start = time.Now()
		clearQuery := "DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id = ?)"
		_, err = tx.ExecContext(ctx, clearQuery, userID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderPlaced(ctx, order.Total, order.Currency)
	s.metrics.RecordCartItems(ctx, userID, 0)
	return s.Get(ctx, order.ID, userID)
}

// createInTx runs the order creation protocol inside tx: snapshot prices,
// compute totals, persist order and items, reserve stock per line.
func (s *OrderService) createInTx(ctx context.Context, tx *sql.Tx, userID int64, lines []models.OrderLineRequest, shippingAddressID, billingAddressID int64, shippingCost decimal.Decimal, currency string) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, storeerr.ErrEmptyOrder
	}
	if shippingCost.IsNegative() {
		return nil, fmt.Errorf("%w: shipping cost cannot be negative, got %s", storeerr.ErrValidation, shippingCost)
	}
	if currency == "" {
		currency = "USD"
	}

	if err := s.checkAddress(ctx, tx, userID, shippingAddressID); err != nil {
		return nil, err
	}
	// Billing defaults to the shipping address.
	if billingAddressID == 0 {
		billingAddressID = shippingAddressID
	} else if billingAddressID != shippingAddressID {
		if err := s.checkAddress(ctx, tx, userID, billingAddressID); err != nil {
			return nil, err
		}
	}

	items := make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive, got %d", storeerr.ErrValidation, i, line.Quantity)
		}

		start := time.Now()
		var price decimal.Decimal
		err := tx.QueryRowContext(ctx, "SELECT price FROM products WHERE id = ?", line.ProductID).Scan(&price)
		s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil || err == sql.ErrNoRows)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: product %d", storeerr.ErrNotFound, line.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read product price: %w", err)
		}

		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	subtotal, total := ComputeTotals(items, shippingCost)
	orderNumber := uuid.NewString()

	start := time.Now()
	orderQuery := `
		INSERT INTO orders (order_number, user_id, order_status, payment_status,
			shipping_address_id, billing_address_id, subtotal, shipping_cost, total, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, orderQuery,
		orderNumber, userID, models.OrderStatusPending, models.PaymentStatusUnpaid,
		shippingAddressID, billingAddressID, subtotal, shippingCost, total, currency)
	s.metrics.RecordDBQuery(ctx, "INSERT", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get order ID: %w", err)
	}

	itemQuery := "INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)"
	for _, item := range items {
		start = time.Now()
		_, err = tx.ExecContext(ctx, itemQuery, orderID, item.ProductID, item.Quantity, item.Price)
		s.metrics.RecordDBQuery(ctx, "INSERT", "order_items", start, err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	for _, item := range items {
		if err := s.ledger.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	return &models.Order{
		ID:                orderID,
		OrderNumber:       orderNumber,
		UserID:            userID,
		OrderStatus:       models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusUnpaid,
		ShippingAddressID: shippingAddressID,
		BillingAddressID:  billingAddressID,
		Subtotal:          subtotal,
		ShippingCost:      shippingCost,
		Total:             total,
		Currency:          currency,
		Items:             items,
	}, nil
}

func (s *OrderService) checkAddress(ctx context.Context, q db.Querier, userID, addressID int64) error {
	if addressID <= 0 {
		return fmt.Errorf("%w: shipping address is required", storeerr.ErrValidation)
	}
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM addresses WHERE id = ? AND user_id = ?)"
	if err := q.QueryRowContext(ctx, query, addressID, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to verify address: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: address %d", storeerr.ErrNotFound, addressID)
	}
	return nil
}

// Get returns an order with its items. userID 0 skips ownership scoping
// (staff callers).
func (s *OrderService) Get(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	start := time.Now()
	query := `
		SELECT id, order_number, user_id, order_status, payment_status,
			shipping_address_id, billing_address_id, subtotal, shipping_cost, total,
			currency, created_at, updated_at
		FROM orders WHERE id = ?
	`
	var o models.Order
	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.OrderStatus, &o.PaymentStatus,
		&o.ShippingAddressID, &o.BillingAddressID, &o.Subtotal, &o.ShippingCost, &o.Total,
		&o.Currency, &o.CreatedAt, &o.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: order %d", storeerr.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	// Owner scoping: a miss and a foreign order look the same to the caller.
	if userID != 0 && o.UserID != userID {
		return nil, fmt.Errorf("%w: order %d", storeerr.ErrNotFound, orderID)
	}

	items, err := s.listItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (s *OrderService) listItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	start := time.Now()
	query := "SELECT id, order_id, product_id, quantity, price, created_at FROM order_items WHERE order_id = ?"
	rows, err := s.db.QueryContext(ctx, query, orderID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListForUser returns the user's orders, newest first, without items.
func (s *OrderService) ListForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	start := time.Now()
	query := `
		SELECT id, order_number, user_id, order_status, payment_status,
			shipping_address_id, billing_address_id, subtotal, shipping_cost, total,
			currency, created_at, updated_at
		FROM orders WHERE user_id = ? ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserID, &o.OrderStatus, &o.PaymentStatus,
			&o.ShippingAddressID, &o.BillingAddressID, &o.Subtotal, &o.ShippingCost, &o.Total,
			&o.Currency, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Cancel cancels an order and releases its reserved stock. Cancelling an
// already-cancelled order succeeds with no side effect; cancelling a
// shipped or delivered order fails.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	switch order.OrderStatus {
	case models.OrderStatusCancelled:
		return order, nil
	case models.OrderStatusShipped, models.OrderStatusDelivered:
		return nil, fmt.Errorf("%w: cannot cancel a %s order", storeerr.ErrIllegalTransition, order.OrderStatus)
	}

	paymentStatus := order.PaymentStatus
	if paymentStatus == models.PaymentStatusPaid {
		paymentStatus = models.PaymentStatusRefunded
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		// Status guard repeated in the WHERE clause: concurrent cancels or
		// ship transitions make exactly one of them win.
		query := "UPDATE orders SET order_status = ?, payment_status = ?, updated_at = NOW() WHERE id = ? AND order_status IN (?, ?)"
		result, err := tx.ExecContext(ctx, query,
			models.OrderStatusCancelled, paymentStatus, orderID,
			models.OrderStatusPending, models.OrderStatusProcessing)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: order %d changed state concurrently", storeerr.ErrIllegalTransition, orderID)
		}

		for _, item := range order.Items {
			if err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderCancelled(ctx)
	return s.Get(ctx, orderID, userID)
}

// UpdateStatus advances an order along the forward lifecycle. Cancellation
// must go through Cancel so stock is released; asking for it here fails.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	if !IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", storeerr.ErrValidation, status)
	}
	if status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: use the cancel operation to cancel an order", storeerr.ErrIllegalTransition)
	}

	order, err := s.Get(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.OrderStatus, status) {
		return nil, fmt.Errorf("%w: %s -> %s", storeerr.ErrIllegalTransition, order.OrderStatus, status)
	}

	start := time.Now()
	// The current status rides in the WHERE clause so a concurrent
	// transition cannot be overwritten.
	query := "UPDATE orders SET order_status = ?, updated_at = NOW() WHERE id = ? AND order_status = ?"
	result, err := s.db.ExecContext(ctx, query, status, orderID, order.OrderStatus)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: order %d changed state concurrently", storeerr.ErrIllegalTransition, orderID)
	}

	return s.Get(ctx, orderID, 0)
}

// MarkPaid flips an order's payment status to paid. Pending and processing
// orders only.
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) (*models.Order, error) {
	start := time.Now()
	query := "UPDATE orders SET payment_status = ?, updated_at = NOW() WHERE id = ? AND payment_status = ? AND order_status IN (?, ?)"
	result, err := s.db.ExecContext(ctx, query,
		models.PaymentStatusPaid, orderID, models.PaymentStatusUnpaid,
		models.OrderStatusPending, models.OrderStatusProcessing)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, orderID, 0); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order %d is not awaiting payment", storeerr.ErrIllegalTransition, orderID)
	}

	return s.Get(ctx, orderID, 0)
}

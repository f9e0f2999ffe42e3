package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/inventory"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusProcessing, true},
		{models.OrderStatusProcessing, models.OrderStatusShipped, true},
		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusProcessing, models.OrderStatusCancelled, true},
		{models.OrderStatusCancelled, models.OrderStatusCancelled, true},

		{models.OrderStatusShipped, models.OrderStatusCancelled, false},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusPending, models.OrderStatusShipped, false},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		{models.OrderStatusDelivered, models.OrderStatusPending, false},
		{models.OrderStatusShipped, models.OrderStatusProcessing, false},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestComputeTotals(t *testing.T) {
	t.Run("subtotal plus shipping", func(t *testing.T) {
		items := []models.OrderItem{
			{Price: decimal.RequireFromString("10.00"), Quantity: 3},
		}
		subtotal, total := ComputeTotals(items, decimal.RequireFromString("2.00"))
		assert.True(t, subtotal.Equal(decimal.RequireFromString("30.00")), "subtotal = %s", subtotal)
		assert.True(t, total.Equal(decimal.RequireFromString("32.00")), "total = %s", total)
	})

	t.Run("multiple lines", func(t *testing.T) {
		items := []models.OrderItem{
			{Price: decimal.RequireFromString("19.99"), Quantity: 2},
			{Price: decimal.RequireFromString("5.50"), Quantity: 1},
		}
		subtotal, total := ComputeTotals(items, decimal.RequireFromString("4.25"))
		assert.True(t, subtotal.Equal(decimal.RequireFromString("45.48")))
		assert.True(t, total.Equal(decimal.RequireFromString("49.73")))
	})

	t.Run("no shipping", func(t *testing.T) {
		items := []models.OrderItem{{Price: decimal.RequireFromString("1.00"), Quantity: 1}}
		subtotal, total := ComputeTotals(items, decimal.Zero)
		assert.True(t, subtotal.Equal(total))
	})
}

func newOrderService(t *testing.T) (*OrderService, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	database := db.Wrap(conn)
	return NewOrderService(database, nil, inventory.NewLedger(database, nil)), mock
}

func orderRow(status, paymentStatus string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "order_number", "user_id", "order_status", "payment_status",
		"shipping_address_id", "billing_address_id", "subtotal", "shipping_cost", "total",
		"currency", "created_at", "updated_at",
	}).AddRow(1, "3b8aefim-test", 7, status, paymentStatus, 3, 3, "30.00", "2.00", "32.00", "USD", now, now)
}

func expectGetOrder(mock sqlmock.Sqlmock, status, paymentStatus string) {
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnRows(orderRow(status, paymentStatus))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, order_id, product_id, quantity, price, created_at FROM order_items WHERE order_id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price", "created_at"}).
			AddRow(11, 1, 42, 3, "10.00", time.Now()))
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	req := models.CreateOrderRequest{
		Items:             []models.OrderLineRequest{{ProductID: 42, Quantity: 3}},
		ShippingAddressID: 3,
		ShippingCost:      decimal.RequireFromString("2.00"),
		Currency:          "USD",
	}

	t.Run("snapshots price, computes totals, reserves stock", func(t *testing.T) {
		svc, mock := newOrderService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM addresses WHERE id = ? AND user_id = ?)")).
			WithArgs(int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT price FROM products WHERE id = ?")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("10.00"))
		mock.ExpectExec("INSERT INTO orders").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)")).
			WithArgs(int64(1), int64(42), 3, decimal.RequireFromString("10.00")).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?, updated_at = NOW() WHERE id = ? AND stock >= ?")).
			WithArgs(3, int64(42), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectGetOrder(mock, models.OrderStatusPending, models.PaymentStatusUnpaid)

		order, err := svc.Create(ctx, 7, req)
		require.NoError(t, err)
		assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("30.00")))
		assert.True(t, order.Total.Equal(decimal.RequireFromString("32.00")))
		assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
		assert.Len(t, order.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient stock rolls everything back", func(t *testing.T) {
		svc, mock := newOrderService(t)

		over := models.CreateOrderRequest{
			Items:             []models.OrderLineRequest{{ProductID: 42, Quantity: 6}},
			ShippingAddressID: 3,
			ShippingCost:      decimal.RequireFromString("2.00"),
		}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM addresses WHERE id = ? AND user_id = ?)")).
			WithArgs(int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT price FROM products WHERE id = ?")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("10.00"))
		mock.ExpectExec("INSERT INTO orders").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO order_items").
			WillReturnResult(sqlmock.NewResult(11, 1))
		// Guarded decrement touches no row when stock is short.
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?, updated_at = NOW() WHERE id = ? AND stock >= ?")).
			WithArgs(6, int64(42), 6).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = ?")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(5))
		mock.ExpectRollback()

		_, err := svc.Create(ctx, 7, over)
		assert.ErrorIs(t, err, storeerr.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty line list", func(t *testing.T) {
		svc, mock := newOrderService(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.Create(ctx, 7, models.CreateOrderRequest{ShippingAddressID: 3})
		assert.ErrorIs(t, err, storeerr.ErrEmptyOrder)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		svc, mock := newOrderService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM addresses WHERE id = ? AND user_id = ?)")).
			WithArgs(int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		bad := models.CreateOrderRequest{
			Items:             []models.OrderLineRequest{{ProductID: 42, Quantity: 0}},
			ShippingAddressID: 3,
		}
		_, err := svc.Create(ctx, 7, bad)
		assert.ErrorIs(t, err, storeerr.ErrValidation)
	})

	t.Run("negative shipping cost", func(t *testing.T) {
		svc, mock := newOrderService(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		bad := models.CreateOrderRequest{
			Items:             []models.OrderLineRequest{{ProductID: 42, Quantity: 1}},
			ShippingAddressID: 3,
			ShippingCost:      decimal.RequireFromString("-1.00"),
		}
		_, err := svc.Create(ctx, 7, bad)
		assert.ErrorIs(t, err, storeerr.ErrValidation)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("releases stock and marks cancelled", func(t *testing.T) {
		svc, mock := newOrderService(t)

		expectGetOrder(mock, models.OrderStatusPending, models.PaymentStatusUnpaid)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders SET order_status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + ?, updated_at = NOW() WHERE id = ?")).
			WithArgs(3, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectGetOrder(mock, models.OrderStatusCancelled, models.PaymentStatusUnpaid)

		order, err := svc.Cancel(ctx, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancel of cancelled is a no-op", func(t *testing.T) {
		svc, mock := newOrderService(t)

		// Only the read happens: no transaction, no stock movement.
		expectGetOrder(mock, models.OrderStatusCancelled, models.PaymentStatusUnpaid)

		order, err := svc.Cancel(ctx, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		svc, mock := newOrderService(t)

		expectGetOrder(mock, models.OrderStatusShipped, models.PaymentStatusPaid)

		_, err := svc.Cancel(ctx, 1, 7)
		assert.ErrorIs(t, err, storeerr.ErrIllegalTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delivered order cannot be cancelled", func(t *testing.T) {
		svc, mock := newOrderService(t)

		expectGetOrder(mock, models.OrderStatusDelivered, models.PaymentStatusPaid)

		_, err := svc.Cancel(ctx, 1, 7)
		assert.ErrorIs(t, err, storeerr.ErrIllegalTransition)
	})

	t.Run("paid order is refunded on cancel", func(t *testing.T) {
		svc, mock := newOrderService(t)

		expectGetOrder(mock, models.OrderStatusProcessing, models.PaymentStatusPaid)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE orders SET order_status").
			WithArgs(models.OrderStatusCancelled, models.PaymentStatusRefunded, int64(1),
				models.OrderStatusPending, models.OrderStatusProcessing).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE products SET stock = stock \\+").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectGetOrder(mock, models.OrderStatusCancelled, models.PaymentStatusRefunded)

		order, err := svc.Cancel(ctx, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, order.PaymentStatus)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("advances pending to processing", func(t *testing.T) {
		svc, mock := newOrderService(t)

		expectGetOrder(mock, models.OrderStatusPending, models.PaymentStatusUnpaid)
		mock.ExpectExec("UPDATE orders SET order_status").
			WithArgs(models.OrderStatusProcessing, int64(1), models.OrderStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectGetOrder(mock, models.OrderStatusProcessing, models.PaymentStatusUnpaid)

		order, err := svc.UpdateStatus(ctx, 1, models.OrderStatusProcessing)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusProcessing, order.OrderStatus)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc, _ := newOrderService(t)
		_, err := svc.UpdateStatus(ctx, 1, "refunded")
		assert.ErrorIs(t, err, storeerr.ErrValidation)
	})

	t.Run("rejects cancelled, which has its own operation", func(t *testing.T) {
		svc, _ := newOrderService(t)
		_, err := svc.UpdateStatus(ctx, 1, models.OrderStatusCancelled)
		assert.ErrorIs(t, err, storeerr.ErrIllegalTransition)
	})

	t.Run("rejects skipping a state", func(t *testing.T) {
		svc, mock := newOrderService(t)
		expectGetOrder(mock, models.OrderStatusPending, models.PaymentStatusUnpaid)

		_, err := svc.UpdateStatus(ctx, 1, models.OrderStatusDelivered)
		assert.ErrorIs(t, err, storeerr.ErrIllegalTransition)
	})
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	req := models.CheckoutRequest{
		ShippingAddressID: 3,
		ShippingCost:      decimal.RequireFromString("2.00"),
		Currency:          "USD",
	}

	t.Run("converts cart lines and clears the cart in one transaction", func(t *testing.T) {
		svc, mock := newOrderService(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT ci.product_id, ci.quantity").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(42, 3))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM addresses WHERE id = ? AND user_id = ?)")).
			WithArgs(int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT price FROM products WHERE id = ?")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("10.00"))
		mock.ExpectExec("INSERT INTO orders").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO order_items").
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?, updated_at = NOW() WHERE id = ? AND stock >= ?")).
			WithArgs(3, int64(42), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id = ?)")).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectGetOrder(mock, models.OrderStatusPending, models.PaymentStatusUnpaid)

		order, err := svc.Checkout(ctx, 7, req)
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("32.00")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty cart", func(t *testing.T) {
		svc, mock := newOrderService(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT ci.product_id, ci.quantity").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}))
		mock.ExpectRollback()

		_, err := svc.Checkout(ctx, 7, req)
		assert.ErrorIs(t, err, storeerr.ErrEmptyOrder)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

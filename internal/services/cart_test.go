package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartService(t *testing.T) (*CartService, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewCartService(db.Wrap(conn), nil), mock
}

func expectCartLookup(mock sqlmock.Sqlmock, cartID, userID int64) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ? LIMIT 1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at", "updated_at"}).
			AddRow(cartID, userID, now, now))
}

func TestGetOrCreateCart(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the existing cart", func(t *testing.T) {
		svc, mock := newCartService(t)
		expectCartLookup(mock, 5, 7)

		cart, err := svc.GetOrCreate(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(5), cart.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates one on first touch", func(t *testing.T) {
		svc, mock := newCartService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ? LIMIT 1")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at", "updated_at"}))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts (user_id) VALUES (?)")).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(5, 1))

		cart, err := svc.GetOrCreate(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(5), cart.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts and merges quantities", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_available FROM products WHERE id = ?")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"is_available"}).AddRow(true))
		mock.ExpectExec("INSERT INTO cart_items").
			WithArgs(int64(5), int64(42), 3).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, svc.AddItem(ctx, 7, 42, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive quantity before touching the db", func(t *testing.T) {
		svc, mock := newCartService(t)

		assert.ErrorIs(t, svc.AddItem(ctx, 7, 42, 0), storeerr.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_available FROM products WHERE id = ?")).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"is_available"}))

		assert.ErrorIs(t, svc.AddItem(ctx, 7, 99, 1), storeerr.ErrNotFound)
	})

	t.Run("unavailable product", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_available FROM products WHERE id = ?")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"is_available"}).AddRow(false))

		assert.ErrorIs(t, svc.AddItem(ctx, 7, 42, 1), storeerr.ErrValidation)
	})
}

func TestUpdateItemQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("sets the quantity", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE cart_items SET quantity = ?, updated_at = NOW() WHERE cart_id = ? AND product_id = ?")).
			WithArgs(2, int64(5), int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateItemQuantity(ctx, 7, 42, 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero removes the line", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?")).
			WithArgs(int64(5), int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.UpdateItemQuantity(ctx, 7, 42, 0))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing line", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectExec("UPDATE cart_items SET quantity").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM cart_items WHERE cart_id = ? AND product_id = ?)")).
			WithArgs(int64(5), int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		assert.ErrorIs(t, svc.UpdateItemQuantity(ctx, 7, 99, 2), storeerr.ErrNotFound)
	})

	t.Run("negative quantity", func(t *testing.T) {
		svc, _ := newCartService(t)
		assert.ErrorIs(t, svc.UpdateItemQuantity(ctx, 7, 42, -1), storeerr.ErrValidation)
	})
}

func TestGetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("prices lines from the live product price", func(t *testing.T) {
		svc, mock := newCartService(t)
		now := time.Now()

		expectCartLookup(mock, 5, 7)
		mock.ExpectQuery("SELECT ci.id, ci.cart_id, ci.product_id").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "cart_id", "product_id", "quantity", "created_at", "updated_at", "name", "price",
			}).
				AddRow(1, 5, 42, 3, now, now, "Keyboard", "10.00").
				AddRow(2, 5, 43, 1, now, now, "Mouse", "19.99"))

		cart, err := svc.Get(ctx, 7)
		require.NoError(t, err)
		require.Len(t, cart.Items, 2)
		assert.True(t, cart.Items[0].LineTotal.Equal(decimal.RequireFromString("30.00")))
		assert.True(t, cart.Items[1].LineTotal.Equal(decimal.RequireFromString("19.99")))
		assert.True(t, cart.Total.Equal(decimal.RequireFromString("49.99")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty cart totals zero", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectQuery("SELECT ci.id, ci.cart_id, ci.product_id").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "cart_id", "product_id", "quantity", "created_at", "updated_at", "name", "price",
			}))

		cart, err := svc.Get(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.True(t, cart.Total.IsZero())
	})
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("missing line", func(t *testing.T) {
		svc, mock := newCartService(t)

		expectCartLookup(mock, 5, 7)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?")).
			WithArgs(int64(5), int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, svc.RemoveItem(ctx, 7, 99), storeerr.ErrNotFound)
	})
}

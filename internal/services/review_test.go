package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewService(t *testing.T) (*ReviewService, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewReviewService(db.Wrap(conn), nil), mock
}

func TestCreateReview(t *testing.T) {
	ctx := context.Background()

	t.Run("rating bounds", func(t *testing.T) {
		svc, _ := newReviewService(t)

		for _, rating := range []int{0, -1, 6} {
			_, err := svc.Create(ctx, 42, 7, models.CreateReviewRequest{Rating: rating})
			assert.ErrorIs(t, err, storeerr.ErrValidation, "rating %d", rating)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, mock := newReviewService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)")).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := svc.Create(ctx, 99, 7, models.CreateReviewRequest{Rating: 4})
		assert.ErrorIs(t, err, storeerr.ErrNotFound)
	})

	t.Run("one review per user per product", func(t *testing.T) {
		svc, mock := newReviewService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec("INSERT INTO reviews").
			WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '42-7' for key 'reviews.product_user'"))

		_, err := svc.Create(ctx, 42, 7, models.CreateReviewRequest{Rating: 4})
		assert.ErrorIs(t, err, storeerr.ErrConflict)
	})
}

func TestListReviewsByProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("averages ratings", func(t *testing.T) {
		svc, mock := newReviewService(t)
		now := time.Now()

		mock.ExpectQuery("SELECT id, product_id, user_id, rating, comment").
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "product_id", "user_id", "rating", "comment", "created_at", "updated_at",
			}).
				AddRow(1, 42, 7, 5, "great", now, now).
				AddRow(2, 42, 8, 2, "meh", now, now))

		resp, err := svc.ListByProduct(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, resp.Reviews, 2)
		assert.True(t, resp.AverageRating.Equal(decimal.RequireFromString("3.5")))
	})

	t.Run("no reviews averages zero", func(t *testing.T) {
		svc, mock := newReviewService(t)

		mock.ExpectQuery("SELECT id, product_id, user_id, rating, comment").
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "product_id", "user_id", "rating", "comment", "created_at", "updated_at",
			}))

		resp, err := svc.ListByProduct(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, resp.Reviews)
		assert.True(t, resp.AverageRating.IsZero())
	})
}

func TestUpdateReview(t *testing.T) {
	ctx := context.Background()

	t.Run("only the owner's review updates", func(t *testing.T) {
		svc, mock := newReviewService(t)

		// Foreign reviews fall out of the WHERE clause and read as missing.
		mock.ExpectExec("UPDATE reviews SET rating").
			WithArgs(3, "edited", int64(1), int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.Update(ctx, 1, 8, models.CreateReviewRequest{Rating: 3, Comment: "edited"})
		assert.ErrorIs(t, err, storeerr.ErrNotFound)
	})
}

func TestDeleteReview(t *testing.T) {
	ctx := context.Background()

	t.Run("only the owner's review deletes", func(t *testing.T) {
		svc, mock := newReviewService(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reviews WHERE id = ? AND user_id = ?")).
			WithArgs(int64(1), int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, svc.Delete(ctx, 1, 8), storeerr.ErrNotFound)
	})
}

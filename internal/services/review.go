package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shopspring/decimal"
)

// ReviewService handles product reviews, one per user per product.
type ReviewService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewReviewService creates a new review service
func NewReviewService(database *db.DB, m *metrics.AppMetrics) *ReviewService {
	return &ReviewService{
		db:      database,
		metrics: m,
	}
}

// Create adds a review for a product.
func (s *ReviewService) Create(ctx context.Context, productID, userID int64, req models.CreateReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5, got %d", storeerr.ErrValidation, req.Rating)
	}

	var exists bool
	checkQuery := "SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)"
	if err := s.db.QueryRowContext(ctx, checkQuery, productID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to verify product: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: product %d", storeerr.ErrNotFound, productID)
	}

	start := time.Now()
	query := "INSERT INTO reviews (product_id, user_id, rating, comment) VALUES (?, ?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query, productID, userID, req.Rating, req.Comment)
	s.metrics.RecordDBQuery(ctx, "INSERT", "reviews", start, err == nil)
	if err != nil {
		// Unique (product_id, user_id) index
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, fmt.Errorf("%w: you already reviewed product %d", storeerr.ErrConflict, productID)
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get review ID: %w", err)
	}
	return s.get(ctx, id)
}

// ListByProduct returns a product's reviews with their average rating.
func (s *ReviewService) ListByProduct(ctx context.Context, productID int64) (*models.ReviewListResponse, error) {
	start := time.Now()
	query := "SELECT id, product_id, user_id, rating, comment, created_at, updated_at FROM reviews WHERE product_id = ? ORDER BY created_at DESC"
	rows, err := s.db.QueryContext(ctx, query, productID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "reviews", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	ratingSum := 0
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
		ratingSum += r.Rating
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	average := decimal.Zero
	if len(reviews) > 0 {
		average = decimal.NewFromInt(int64(ratingSum)).
			DivRound(decimal.NewFromInt(int64(len(reviews))), 2)
	}

	return &models.ReviewListResponse{
		Reviews:       reviews,
		AverageRating: average,
	}, nil
}

// Update replaces the caller's own review.
func (s *ReviewService) Update(ctx context.Context, reviewID, userID int64, req models.CreateReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5, got %d", storeerr.ErrValidation, req.Rating)
	}

	start := time.Now()
	query := "UPDATE reviews SET rating = ?, comment = ?, updated_at = NOW() WHERE id = ? AND user_id = ?"
	result, err := s.db.ExecContext(ctx, query, req.Rating, req.Comment, reviewID, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "reviews", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: review %d", storeerr.ErrNotFound, reviewID)
	}
	return s.get(ctx, reviewID)
}

// Delete removes the caller's own review.
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ? AND user_id = ?", reviewID, userID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "reviews", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: review %d", storeerr.ErrNotFound, reviewID)
	}
	return nil
}

func (s *ReviewService) get(ctx context.Context, id int64) (*models.Review, error) {
	start := time.Now()
	query := "SELECT id, product_id, user_id, rating, comment, created_at, updated_at FROM reviews WHERE id = ?"
	var r models.Review
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "reviews", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: review %d", storeerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &r, nil
}

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
)

// ProductImageService handles a product's image gallery.
type ProductImageService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewProductImageService creates a new product image service
func NewProductImageService(database *db.DB, m *metrics.AppMetrics) *ProductImageService {
	return &ProductImageService{
		db:      database,
		metrics: m,
	}
}

// ListByProduct returns a product's images ordered by position.
func (s *ProductImageService) ListByProduct(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	start := time.Now()
	query := "SELECT id, product_id, url, alt_text, position, created_at FROM product_images WHERE product_id = ? ORDER BY position, id"
	rows, err := s.db.QueryContext(ctx, query, productID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_images", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	images := []models.ProductImage{}
	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.Position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// Create attaches an image to a product. Staff only; routing enforces that.
func (s *ProductImageService) Create(ctx context.Context, productID int64, req models.CreateProductImageRequest) (*models.ProductImage, error) {
	if err := validateProductImage(req); err != nil {
		return nil, err
	}

	start := time.Now()
	query := "INSERT INTO product_images (product_id, url, alt_text, position) VALUES (?, ?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query, productID, req.URL, req.AltText, req.Position)
	s.metrics.RecordDBQuery(ctx, "INSERT", "product_images", start, err == nil)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key constraint") {
			return nil, fmt.Errorf("%w: product %d", storeerr.ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to create product image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get image ID: %w", err)
	}
	return s.get(ctx, id)
}

// Update replaces an image's url, alt text and position.
func (s *ProductImageService) Update(ctx context.Context, imageID int64, req models.CreateProductImageRequest) (*models.ProductImage, error) {
	if err := validateProductImage(req); err != nil {
		return nil, err
	}

	start := time.Now()
	query := "UPDATE product_images SET url = ?, alt_text = ?, position = ? WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, req.URL, req.AltText, req.Position, imageID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "product_images", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: image %d", storeerr.ErrNotFound, imageID)
	}
	return s.get(ctx, imageID)
}

// Delete removes an image from its product's gallery.
func (s *ProductImageService) Delete(ctx context.Context, imageID int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, "DELETE FROM product_images WHERE id = ?", imageID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "product_images", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete product image: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: image %d", storeerr.ErrNotFound, imageID)
	}
	return nil
}

func (s *ProductImageService) get(ctx context.Context, id int64) (*models.ProductImage, error) {
	start := time.Now()
	query := "SELECT id, product_id, url, alt_text, position, created_at FROM product_images WHERE id = ?"
	var img models.ProductImage
	err := s.db.QueryRowContext(ctx, query, id).Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.Position, &img.CreatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_images", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: image %d", storeerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product image: %w", err)
	}
	return &img, nil
}

func validateProductImage(req models.CreateProductImageRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return fmt.Errorf("%w: image url is required", storeerr.ErrValidation)
	}
	if req.Position < 0 {
		return fmt.Errorf("%w: position cannot be negative, got %d", storeerr.ErrValidation, req.Position)
	}
	return nil
}

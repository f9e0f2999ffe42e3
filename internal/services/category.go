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

// CategoryService handles catalog category operations
type CategoryService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCategoryService creates a new category service
func NewCategoryService(database *db.DB, m *metrics.AppMetrics) *CategoryService {
	return &CategoryService{
		db:      database,
		metrics: m,
	}
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	start := time.Now()
	query := "SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Get returns a category by ID.
func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	start := time.Now()
	query := "SELECT id, name, description, created_at, updated_at FROM categories WHERE id = ?"
	var c models.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", storeerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// Create adds a category. Names are unique.
func (s *CategoryService) Create(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", storeerr.ErrValidation)
	}

	start := time.Now()
	query := "INSERT INTO categories (name, description) VALUES (?, ?)"
	result, err := s.db.ExecContext(ctx, query, req.Name, req.Description)
	s.metrics.RecordDBQuery(ctx, "INSERT", "categories", start, err == nil)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, fmt.Errorf("%w: category %q", storeerr.ErrConflict, req.Name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}
	return s.Get(ctx, id)
}

// Update replaces a category's fields.
func (s *CategoryService) Update(ctx context.Context, id int64, req models.CreateCategoryRequest) (*models.Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", storeerr.ErrValidation)
	}

	start := time.Now()
	query := "UPDATE categories SET name = ?, description = ?, updated_at = NOW() WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, req.Name, req.Description, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "categories", start, err == nil)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, fmt.Errorf("%w: category %q", storeerr.ErrConflict, req.Name)
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: category %d", storeerr.ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

// Delete removes a category. Products under it cascade away with it.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "categories", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: category %d", storeerr.ErrNotFound, id)
	}
	return nil
}

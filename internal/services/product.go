package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
)

const productCacheTTL = 5 * time.Minute

// productCache holds recently fetched products
type productCache struct {
	mu    sync.RWMutex
	items map[int64]cachedProduct
}

type cachedProduct struct {
	product models.Product
	expires time.Time
}

func (c *productCache) get(id int64) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.items[id]
	if !ok || time.Now().After(cached.expires) {
		return models.Product{}, false
	}
	return cached.product, true
}

func (c *productCache) put(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = cachedProduct{product: p, expires: time.Now().Add(productCacheTTL)}
}

func (c *productCache) invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// ProductService handles catalog product operations
type ProductService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	cache   productCache
}

// NewProductService creates a new product service
func NewProductService(database *db.DB, m *metrics.AppMetrics) *ProductService {
	return &ProductService{
		db:      database,
		metrics: m,
		cache:   productCache{items: make(map[int64]cachedProduct)},
	}
}

const productColumns = "id, category_id, name, description, price, stock, is_available, sku, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }, p *models.Product) error {
	return row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price,
		&p.Stock, &p.IsAvailable, &p.SKU, &p.CreatedAt, &p.UpdatedAt)
}

// List returns a page of products, newest first. categoryID 0 means all
// categories; onlyAvailable filters to in-catalog items.
func (s *ProductService) List(ctx context.Context, limit, offset int, categoryID int64, onlyAvailable bool) ([]models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var conds []string
	var args []any
	if categoryID > 0 {
		conds = append(conds, "category_id = ?")
		args = append(args, categoryID)
	}
	if onlyAvailable {
		conds = append(conds, "is_available = TRUE")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// Get returns a product by ID, serving from the read-through cache when it
// can.
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	if p, ok := s.cache.get(id); ok {
		s.metrics.RecordCacheLookup(ctx, true)
		s.metrics.RecordProductView(ctx, p.ID, p.CategoryID)
		return &p, nil
	}
	s.metrics.RecordCacheLookup(ctx, false)

	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE id = ?"
	var p models.Product
	err := scanProduct(s.db.QueryRowContext(ctx, query, id), &p)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: product %d", storeerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	s.cache.put(p)
	s.metrics.RecordProductView(ctx, p.ID, p.CategoryID)
	return &p, nil
}

// Create adds a product to the catalog. Staff only; routing enforces that.
func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	if req.SKU == "" {
		req.SKU = uuid.NewString()
	}

	start := time.Now()
	query := "INSERT INTO products (category_id, name, description, price, stock, is_available, sku) VALUES (?, ?, ?, ?, ?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query,
		req.CategoryID, req.Name, req.Description, req.Price, req.Stock, req.IsAvailable, req.SKU)
	s.metrics.RecordDBQuery(ctx, "INSERT", "products", start, err == nil)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, fmt.Errorf("%w: sku %s", storeerr.ErrConflict, req.SKU)
		}
		if strings.Contains(err.Error(), "foreign key constraint") {
			return nil, fmt.Errorf("%w: category %d", storeerr.ErrNotFound, req.CategoryID)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get product ID: %w", err)
	}
	return s.Get(ctx, id)
}

// Update replaces a product's catalog fields. Stock changes go through the
// inventory ledger, not here, and the SKU is fixed at creation; both fields
// are ignored when present in the request.
func (s *ProductService) Update(ctx context.Context, id int64, req models.CreateProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	start := time.Now()
	query := "UPDATE products SET category_id = ?, name = ?, description = ?, price = ?, is_available = ?, updated_at = NOW() WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query,
		req.CategoryID, req.Name, req.Description, req.Price, req.IsAvailable, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: product %d", storeerr.ErrNotFound, id)
	}

	s.cache.invalidate(id)
	return s.Get(ctx, id)
}

// Delete removes a product from the catalog.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "products", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %d", storeerr.ErrNotFound, id)
	}

	s.cache.invalidate(id)
	return nil
}

func validateProduct(req models.CreateProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: product name is required", storeerr.ErrValidation)
	}
	if !req.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", storeerr.ErrValidation, req.Price)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative, got %d", storeerr.ErrValidation, req.Stock)
	}
	if req.CategoryID <= 0 {
		return fmt.Errorf("%w: category is required", storeerr.ErrValidation)
	}
	return nil
}

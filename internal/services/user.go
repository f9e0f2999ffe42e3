package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shoplite/storefront-api/internal/auth"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/storeerr"
)

// UserService handles account registration and lookup
type UserService struct {
	db         *db.DB
	metrics    *metrics.AppMetrics
	bcryptCost int
}

// NewUserService creates a new user service
func NewUserService(database *db.DB, m *metrics.AppMetrics, bcryptCost int) *UserService {
	return &UserService{
		db:         database,
		metrics:    m,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", storeerr.ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", storeerr.ErrValidation)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query := "INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query, email, req.Name, hash)
	s.metrics.RecordDBQuery(ctx, "INSERT", "users", start, err == nil)
	if err != nil {
		// MySQL error 1062 on the unique email index
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, fmt.Errorf("%w: email %s", storeerr.ErrConflict, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}
	return s.Get(ctx, id)
}

// Authenticate verifies email/password credentials and returns the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.getByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		// Hide whether the account exists.
		return nil, fmt.Errorf("%w: invalid credentials", storeerr.ErrUnauthorized)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	start := time.Now()
	query := "SELECT id, email, name, password_hash, is_staff, created_at FROM users WHERE id = ?"
	var u models.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", storeerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *UserService) getByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	query := "SELECT id, email, name, password_hash, is_staff, created_at FROM users WHERE email = ?"
	var u models.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", storeerr.ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

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

// AddressService handles a user's address book.
type AddressService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewAddressService creates a new address service
func NewAddressService(database *db.DB, m *metrics.AppMetrics) *AddressService {
	return &AddressService{
		db:      database,
		metrics: m,
	}
}

const addressColumns = "id, user_id, label, street, city, state, postal_code, country, is_default, created_at"

// List returns the user's addresses, default first.
func (s *AddressService) List(ctx context.Context, userID int64) ([]models.Address, error) {
	start := time.Now()
	query := "SELECT " + addressColumns + " FROM addresses WHERE user_id = ? ORDER BY is_default DESC, created_at DESC"
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "addresses", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Street, &a.City, &a.State,
			&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// Get returns one of the user's addresses.
func (s *AddressService) Get(ctx context.Context, addressID, userID int64) (*models.Address, error) {
	start := time.Now()
	query := "SELECT " + addressColumns + " FROM addresses WHERE id = ? AND user_id = ?"
	var a models.Address
	err := s.db.QueryRowContext(ctx, query, addressID, userID).Scan(
		&a.ID, &a.UserID, &a.Label, &a.Street, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "addresses", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: address %d", storeerr.ErrNotFound, addressID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &a, nil
}

// Create adds an address to the user's book. Marking it default clears the
// previous default.
func (s *AddressService) Create(ctx context.Context, userID int64, req models.CreateAddressRequest) (*models.Address, error) {
	if err := validateAddress(req); err != nil {
		return nil, err
	}

	var addressID int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if req.IsDefault {
			if err := s.clearDefault(ctx, tx, userID); err != nil {
				return err
			}
		}

		start := time.Now()
		query := "INSERT INTO addresses (user_id, label, street, city, state, postal_code, country, is_default) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		result, err := tx.ExecContext(ctx, query,
			userID, req.Label, req.Street, req.City, req.State, req.PostalCode, req.Country, req.IsDefault)
		s.metrics.RecordDBQuery(ctx, "INSERT", "addresses", start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}

		addressID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get address ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, addressID, userID)
}

// Update replaces one of the user's addresses.
func (s *AddressService) Update(ctx context.Context, addressID, userID int64, req models.CreateAddressRequest) (*models.Address, error) {
	if err := validateAddress(req); err != nil {
		return nil, err
	}

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if req.IsDefault {
			if err := s.clearDefault(ctx, tx, userID); err != nil {
				return err
			}
		}

		start := time.Now()
		query := "UPDATE addresses SET label = ?, street = ?, city = ?, state = ?, postal_code = ?, country = ?, is_default = ? WHERE id = ? AND user_id = ?"
		result, err := tx.ExecContext(ctx, query,
			req.Label, req.Street, req.City, req.State, req.PostalCode, req.Country, req.IsDefault,
			addressID, userID)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "addresses", start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to update address: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: address %d", storeerr.ErrNotFound, addressID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, addressID, userID)
}

// Delete removes one of the user's addresses.
func (s *AddressService) Delete(ctx context.Context, addressID, userID int64) error {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, "DELETE FROM addresses WHERE id = ? AND user_id = ?", addressID, userID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "addresses", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: address %d", storeerr.ErrNotFound, addressID)
	}
	return nil
}

func (s *AddressService) clearDefault(ctx context.Context, tx *sql.Tx, userID int64) error {
	start := time.Now()
	_, err := tx.ExecContext(ctx, "UPDATE addresses SET is_default = FALSE WHERE user_id = ? AND is_default = TRUE", userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "addresses", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear default address: %w", err)
	}
	return nil
}

func validateAddress(req models.CreateAddressRequest) error {
	switch {
	case strings.TrimSpace(req.Street) == "":
		return fmt.Errorf("%w: street is required", storeerr.ErrValidation)
	case strings.TrimSpace(req.City) == "":
		return fmt.Errorf("%w: city is required", storeerr.ErrValidation)
	case strings.TrimSpace(req.Country) == "":
		return fmt.Errorf("%w: country is required", storeerr.ErrValidation)
	}
	return nil
}

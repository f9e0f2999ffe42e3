// Package auth issues and verifies the HS256 access/refresh token pairs
// used to scope every cart, order, address and review operation to its
// owner.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shoplite/storefront-api/internal/storeerr"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the token payload: registered claims plus the token type and
// the caller's staff flag.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
	IsStaff   bool   `json:"staff,omitempty"`
}

// Identity is a verified caller.
type Identity struct {
	UserID  int64
	IsStaff bool
}

// TokenService mints and verifies token pairs.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a token service signing with secret.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints an access and a refresh token for the user.
func (s *TokenService) IssuePair(userID int64, isStaff bool) (access, refresh string, err error) {
	access, err = s.issue(userID, isStaff, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.issue(userID, isStaff, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *TokenService) issue(userID int64, isStaff bool, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
		IsStaff:   isStaff,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the caller's identity. wantType
// distinguishes access tokens from refresh tokens so one cannot stand in
// for the other.
func (s *TokenService) Verify(tokenString, wantType string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", storeerr.ErrUnauthorized)
	}
	if claims.TokenType != wantType {
		return Identity{}, fmt.Errorf("%w: expected %s token", storeerr.ErrUnauthorized, wantType)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: malformed subject", storeerr.ErrUnauthorized)
	}

	return Identity{UserID: userID, IsStaff: claims.IsStaff}, nil
}

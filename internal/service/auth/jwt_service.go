// Package auth consumes the identity claims issued by the external
// identity provider. This service only verifies signed tokens and
// extracts the owner identity; it never issues credentials itself.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/config"
)

// Claims holds the identity extracted from a validated token.
type Claims struct {
	// OwnerID is the authenticated owner's unique identifier.
	OwnerID uuid.UUID
}

// JWTService validates identity tokens.
// Version: 1.0
type JWTService interface {
	// ValidateToken verifies the token signature and expiry and returns
	// the embedded claims. Returns ErrInvalidToken, ErrExpiredToken or
	// ErrTokenNotYetValid on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// jwtCustomClaims defines the structure of JWT claims we consume.
type jwtCustomClaims struct {
	OwnerID string `json:"sub_id"`
	jwt.RegisteredClaims
}

// hmacJWTService validates HMAC-signed tokens with a shared secret.
type hmacJWTService struct {
	secret []byte
}

// NewJWTService creates a JWTService from the auth configuration.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &hmacJWTService{secret: []byte(cfg.JWTSecret)}, nil
}

// ValidateToken implements JWTService.ValidateToken
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	ownerID, err := uuid.Parse(claims.OwnerID)
	if err != nil || ownerID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return &Claims{OwnerID: ownerID}, nil
}

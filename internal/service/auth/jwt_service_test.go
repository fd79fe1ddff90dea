package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradeflow/gradeflow-api/internal/config"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hmac"

func newTestService(t *testing.T) JWTService {
	t.Helper()
	service, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return service
}

// signToken issues an HMAC token the way the external identity provider
// would.
func signToken(t *testing.T, secret string, ownerID string, expiresIn time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwtCustomClaims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "too-short"})
	assert.Error(t, err)
}

func TestValidateTokenSuccess(t *testing.T) {
	service := newTestService(t)
	ownerID := uuid.New()

	token := signToken(t, testSecret, ownerID.String(), time.Hour)

	claims, err := service.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, ownerID, claims.OwnerID)
}

func TestValidateTokenMissing(t *testing.T) {
	service := newTestService(t)

	_, err := service.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateTokenExpired(t *testing.T) {
	service := newTestService(t)

	token := signToken(t, testSecret, uuid.NewString(), -time.Hour)

	_, err := service.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	service := newTestService(t)

	token := signToken(t, "a-completely-different-secret-of-decent-length", uuid.NewString(), time.Hour)

	_, err := service.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	service := newTestService(t)

	_, err := service.ValidateToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenBadOwnerID(t *testing.T) {
	service := newTestService(t)

	tests := []struct {
		name    string
		ownerID string
	}{
		{"not a uuid", "owner-42"},
		{"empty", ""},
		{"nil uuid", uuid.Nil.String()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token := signToken(t, testSecret, tc.ownerID, time.Hour)
			_, err := service.ValidateToken(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateTokenRejectsUnsignedAlgorithm(t *testing.T) {
	service := newTestService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwtCustomClaims{
		OwnerID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ValidateToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

package auth

import (
	"testing"
	"time"

	"github.com/flowbill/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-for-unit-tests",
		Issuer:     "flowbill-test",
		Expiration: expiration,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := newTestJWTService(time.Hour)
	orgID := uuid.New()

	token, expiresAt, err := service.GenerateToken(orgID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, orgID.String(), claims.OrganizationID)
	assert.True(t, claims.Livemode)

	parsed, err := claims.OrganizationUUID()
	require.NoError(t, err)
	assert.Equal(t, orgID, parsed)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	service := newTestJWTService(-time.Minute)

	token, _, err := service.GenerateToken(uuid.New(), false)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	orgID := uuid.New()
	token, _, err := newTestJWTService(time.Hour).GenerateToken(orgID, true)
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret:     "a-completely-different-secret",
		Issuer:     "flowbill-test",
		Expiration: time.Hour,
	})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := newTestJWTService(time.Hour)
	_, err := service.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsOrganizationUUID(t *testing.T) {
	t.Run("missing organization id", func(t *testing.T) {
		claims := &Claims{}
		_, err := claims.OrganizationUUID()
		assert.ErrorIs(t, err, ErrMissingOrganizationID)
	})

	t.Run("malformed organization id", func(t *testing.T) {
		claims := &Claims{OrganizationID: "not-a-uuid"}
		_, err := claims.OrganizationUUID()
		assert.ErrorIs(t, err, ErrInvalidOrganizationID)
	})
}

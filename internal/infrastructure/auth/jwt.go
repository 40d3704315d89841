package auth

import (
	"errors"
	"time"

	"github.com/flowbill/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken          = errors.New("invalid token")
	ErrExpiredToken          = errors.New("token has expired")
	ErrTokenNotYetValid      = errors.New("token is not yet valid")
	ErrInvalidClaims         = errors.New("invalid token claims")
	ErrMissingOrganizationID = errors.New("missing organization_id in claims")
	ErrInvalidOrganizationID = errors.New("invalid organization_id in claims")
)

// Claims represents custom JWT claims. Every API token is scoped to
// one organization and one mode; livemode false keys can never read or
// write live data.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"organization_id"`
	Livemode       bool   `json:"livemode"`
}

// OrganizationUUID parses the organization id claim
func (c *Claims) OrganizationUUID() (uuid.UUID, error) {
	if c.OrganizationID == "" {
		return uuid.Nil, ErrMissingOrganizationID
	}
	id, err := uuid.Parse(c.OrganizationID)
	if err != nil {
		return uuid.Nil, ErrInvalidOrganizationID
	}
	return id, nil
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.Expiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateToken generates a signed API token for an organization
func (s *JWTService) GenerateToken(organizationID uuid.UUID, livemode bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   organizationID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrganizationID: organizationID.String(),
		Livemode:       livemode,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.OrganizationID == "" {
		return nil, ErrMissingOrganizationID
	}
	return claims, nil
}

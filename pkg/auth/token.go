// Package auth signs and verifies the access tokens that carry the acting
// user and company on every API request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
)

// ClockSkew is tolerated on exp, nbf and iat.
const ClockSkew = 30 * time.Second

var (
	ErrInvalidConfig = errors.New("invalid jwt configuration")
	ErrMissingActor  = errors.New("token does not name a user and company")
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the actor carried by a token.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	CompanyID uuid.UUID `json:"company_id"`
	jwt.RegisteredClaims
}

func (c *Claims) hasActor() bool {
	return c.UserID != uuid.Nil && c.CompanyID != uuid.Nil
}

func checkConfig(cfg config.JWTConfig, minting bool) error {
	switch {
	case cfg.Secret == "":
		return fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	case cfg.Issuer == "":
		return fmt.Errorf("%w: issuer is required", ErrInvalidConfig)
	case minting && cfg.ExpirationMinutes <= 0:
		return fmt.Errorf("%w: expiration minutes must be positive", ErrInvalidConfig)
	}
	return nil
}

// Mint signs a token for the actor that expires after the configured TTL.
// Production tokens come from the platform login service; this exists for
// local tooling and tests.
func Mint(cfg config.JWTConfig, now time.Time, userID, companyID uuid.UUID) (string, error) {
	if err := checkConfig(cfg, true); err != nil {
		return "", err
	}
	claims := Claims{
		UserID:    userID,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	if !claims.hasActor() {
		return "", ErrMissingActor
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry as of now. A token without an
// exp claim is rejected.
func Parse(cfg config.JWTConfig, raw string, now time.Time) (*Claims, error) {
	if err := checkConfig(cfg, false); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(ClockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if !claims.hasActor() {
		return nil, ErrMissingActor
	}
	return claims, nil
}

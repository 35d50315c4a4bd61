package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cordoeats/backend/internal/common"
)

const tokenTypeAccess = "access"

// Claims is the signed claim set embedded in an access token. The subject is
// the user id; TokenType discriminates access tokens from anything else signed
// with the same secret.
type Claims struct {
	jwt.RegisteredClaims
	Username   string `json:"username"`
	Role       string `json:"role"`
	TenantSlug string `json:"tenant_slug"`
	TenantID   string `json:"tenant_id,omitempty"`
	TokenType  string `json:"type"`
}

// TokenCodec encodes and decodes HS256-signed access tokens. Both operations
// are pure: decoding never consults storage, the caller owns any liveness
// recheck.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, ttl: ttl}
}

// TTL returns the configured access-token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Encode mints a signed access token for the given identity, expiring
// ttl from now. The jti claim is a fresh UUID, so two tokens minted for the
// same identity are never byte-identical.
func (c *TokenCodec) Encode(userID, username, role, tenantSlug, tenantID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Username:   username,
		Role:       role,
		TenantSlug: tenantSlug,
		TenantID:   tenantID,
		TokenType:  tokenTypeAccess,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies the signature and expiry of a token string and returns its
// claims. It fails with common.ErrTokenExpired when the embedded expiry has
// passed, and common.ErrInvalidToken when the signature does not verify, the
// type discriminator is wrong, or required fields are absent.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != tokenTypeAccess || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

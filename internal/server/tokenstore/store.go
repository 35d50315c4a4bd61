// Package tokenstore owns the refresh-token table: opaque unguessable token
// strings mapped to their owner and expiry. No other component reads or
// writes this state directly.
package tokenstore

import (
	"context"
	"time"
)

// Record is the server-side metadata of one refresh token.
type Record struct {
	UserID     string    `json:"user_id"`
	TenantSlug string    `json:"tenant_slug"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store issues, verifies, and revokes refresh tokens. A token is Valid from
// issuance until it expires or is revoked; both are terminal.
//
// Implementations must be safe for concurrent use, and operations on the same
// token string must not race to inconsistent results: once Revoke returns,
// a Verify of that token reports not-found.
type Store interface {
	// Issue generates a fresh token owned by (userID, tenantSlug), stores it
	// with expiry = now + the configured validity, and returns the token
	// string. Token strings are never reused.
	Issue(ctx context.Context, userID, tenantSlug string) (string, error)

	// Verify looks up a token and returns its record. It returns
	// common.ErrorNotFound for unknown tokens, and for expired ones after
	// lazily deleting them.
	Verify(ctx context.Context, token string) (*Record, error)

	// Revoke removes a token. Revoking a nonexistent or already-revoked
	// token is a no-op, not an error.
	Revoke(ctx context.Context, token string) error

	// CleanupExpired removes entries whose expiry has already elapsed and
	// returns how many were deleted. Purely a hygiene operation; lazy expiry
	// in Verify keeps the store correct without it.
	CleanupExpired(ctx context.Context) (int, error)
}

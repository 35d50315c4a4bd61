// Package users declares the repository contract for user accounts and its
// MongoDB implementation.
package users

import (
	"context"
	"time"

	"github.com/cordoeats/backend/internal/server/models"
)

// Repository defines the user lookups and updates the session layer needs.
// Implementations return common.ErrorNotFound when a user is absent.
type Repository interface {
	// FindByUsernameAndTenant looks a user up by the unique
	// (username, tenant slug) pair. With activeOnly set, deactivated users
	// are treated as absent.
	FindByUsernameAndTenant(ctx context.Context, username, tenantSlug string, activeOnly bool) (*models.User, error)

	// FindByID looks a user up by id.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// Insert stores a new user and returns its id.
	Insert(ctx context.Context, user *models.User) (string, error)

	// UpdateLastLogin records the time of a successful login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// Deactivate clears the user's active flag and reports whether a record
	// was actually changed.
	Deactivate(ctx context.Context, id string) (bool, error)
}

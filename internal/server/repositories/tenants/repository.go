// Package tenants declares the repository contract for tenant (restaurant)
// accounts and its MongoDB implementation.
package tenants

import (
	"context"

	"github.com/cordoeats/backend/internal/server/models"
)

// Repository resolves tenants by slug. Implementations return
// common.ErrorNotFound when a tenant is absent.
type Repository interface {
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

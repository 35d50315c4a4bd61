// Package models defines the server-side data shapes stored in MongoDB and
// the DTOs returned to API clients.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is an administrator account scoped to a single tenant.
// (Username, TenantSlug) is unique across the users collection.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Username     string        `bson:"username"`
	PasswordHash string        `bson:"password_hash"`
	Role         string        `bson:"role"`
	Email        string        `bson:"email,omitempty"`
	TenantID     bson.ObjectID `bson:"tenant_id,omitempty"`
	TenantSlug   string        `bson:"tenant_slug"`
	IsActive     bool          `bson:"is_active"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
	LastLogin    *time.Time    `bson:"last_login,omitempty"`
}

// TenantIDHex returns the hex form of the user's tenant id, or "" when the
// user record carries no tenant reference.
func (u *User) TenantIDHex() string {
	if u.TenantID.IsZero() {
		return ""
	}
	return u.TenantID.Hex()
}

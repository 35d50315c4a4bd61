package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Tenant is an independent restaurant account. All data is partitioned by
// its slug.
type Tenant struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Name      string        `bson:"name"`
	Slug      string        `bson:"slug"`
	IsActive  bool          `bson:"is_active"`
	CreatedAt time.Time     `bson:"created_at"`
}

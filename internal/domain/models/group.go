// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxGroupNameLen bounds group names. The name doubles as the scope tag
// matched against folder names in the file store.
const MaxGroupNameLen = 3

// Group is a fixed cohort of members, created at bootstrap.
//
// The short Name is the group's identity everywhere outside the stores:
// members reference it, callback payloads carry it, and folder lookups
// filter on it.
type Group struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

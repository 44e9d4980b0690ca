// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the verified identity kind of a caller.
type Role string

const (
	RoleNone   Role = ""
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Account is implemented by Admin and Member. Credential checks only need
// the phone and hash, so callers can verify either kind through it.
type Account interface {
	AccountPhone() string
	PasswordHash() string
	AccountRole() Role
}

// Admin is an administrator account. Admins live in their own collection
// (or table), so the same phone may also exist as a Member.
type Admin struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone string             `bson:"phone" json:"phone"`
	Hash  string             `bson:"password_hash" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (a Admin) AccountPhone() string { return a.Phone }
func (a Admin) PasswordHash() string { return a.Hash }
func (a Admin) AccountRole() Role    { return RoleAdmin }

// Member is a regular account bound to exactly one group.
//
// ChatID is the best-effort delivery address recorded on the member's last
// successful login. It is never used to identify the member.
type Member struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone  string             `bson:"phone" json:"phone"`
	Hash   string             `bson:"password_hash" json:"-"`
	Group  string             `bson:"group" json:"group"`
	ChatID *int64             `bson:"chat_id,omitempty" json:"chat_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (m Member) AccountPhone() string { return m.Phone }
func (m Member) PasswordHash() string { return m.Hash }
func (m Member) AccountRole() Role    { return RoleMember }

// Bound reports whether the member has a chat binding.
func (m Member) Bound() bool { return m.ChatID != nil }

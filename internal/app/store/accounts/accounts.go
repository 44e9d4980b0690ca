// Package accounts is the relational view of admins, members and groups
// used by the gateway. Two backends implement Repository: the Mongo
// collections in this package and the Postgres tables in pgaccounts.
package accounts

import (
	"context"
	"errors"

	"github.com/dalemusser/filescout/internal/domain/models"
)

var (
	// ErrNotFound is returned when no account or group matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a phone or group name is already taken.
	ErrDuplicate = errors.New("already exists")
)

// Repository is transactional CRUD over accounts, groups and chat bindings.
// Phones passed in are expected to be normalized already.
type Repository interface {
	EnsureGroup(ctx context.Context, name string) error
	GroupExists(ctx context.Context, name string) (bool, error)
	ListGroups(ctx context.Context) ([]models.Group, error)

	GetAdmin(ctx context.Context, phone string) (models.Admin, error)
	CreateAdmin(ctx context.Context, phone, hash string) (models.Admin, error)
	DeleteAdmin(ctx context.Context, phone string) error
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CountAdmins(ctx context.Context) (int64, error)

	GetMember(ctx context.Context, phone string) (models.Member, error)
	CreateMember(ctx context.Context, phone, hash, group string) (models.Member, error)
	DeleteMember(ctx context.Context, phone string) error
	SetMemberGroup(ctx context.Context, phone, group string) error
	BindChat(ctx context.Context, phone string, chatID int64) error
	ListMembers(ctx context.Context) ([]models.Member, error)
	ListMembersByGroup(ctx context.Context, group string) ([]models.Member, error)

	Ping(ctx context.Context) error
}

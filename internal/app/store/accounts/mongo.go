package accounts

import (
	"context"
	"errors"
	"fmt"

	adminstore "github.com/dalemusser/filescout/internal/app/store/admins"
	groupstore "github.com/dalemusser/filescout/internal/app/store/groups"
	memberstore "github.com/dalemusser/filescout/internal/app/store/members"
	"github.com/dalemusser/filescout/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo is the Repository backed by the groups, admins and members
// collections.
type Mongo struct {
	db      *mongo.Database
	groups  *groupstore.Store
	admins  *adminstore.Store
	members *memberstore.Store
}

var _ Repository = (*Mongo)(nil)

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		db:      db,
		groups:  groupstore.New(db),
		admins:  adminstore.New(db),
		members: memberstore.New(db),
	}
}

// mapErr translates store errors into the package sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case errors.Is(err, adminstore.ErrDuplicatePhone),
		errors.Is(err, memberstore.ErrDuplicatePhone),
		errors.Is(err, groupstore.ErrDuplicateGroupName):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (m *Mongo) EnsureGroup(ctx context.Context, name string) error {
	return mapErr(m.groups.Ensure(ctx, name))
}

func (m *Mongo) GroupExists(ctx context.Context, name string) (bool, error) {
	return m.groups.Exists(ctx, name)
}

func (m *Mongo) ListGroups(ctx context.Context) ([]models.Group, error) {
	return m.groups.List(ctx)
}

func (m *Mongo) GetAdmin(ctx context.Context, phone string) (models.Admin, error) {
	a, err := m.admins.GetByPhone(ctx, phone)
	return a, mapErr(err)
}

func (m *Mongo) CreateAdmin(ctx context.Context, phone, hash string) (models.Admin, error) {
	a, err := m.admins.Create(ctx, phone, hash)
	return a, mapErr(err)
}

func (m *Mongo) DeleteAdmin(ctx context.Context, phone string) error {
	n, err := m.admins.Delete(ctx, phone)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return m.admins.List(ctx)
}

func (m *Mongo) CountAdmins(ctx context.Context) (int64, error) {
	return m.admins.Count(ctx)
}

func (m *Mongo) GetMember(ctx context.Context, phone string) (models.Member, error) {
	mem, err := m.members.GetByPhone(ctx, phone)
	return mem, mapErr(err)
}

// CreateMember checks the group before inserting so a member never points
// at a missing group.
func (m *Mongo) CreateMember(ctx context.Context, phone, hash, group string) (models.Member, error) {
	g, err := m.groups.GetByName(ctx, group)
	if err != nil {
		return models.Member{}, mapErr(err)
	}
	mem, err := m.members.Create(ctx, phone, hash, g.Name)
	return mem, mapErr(err)
}

func (m *Mongo) DeleteMember(ctx context.Context, phone string) error {
	n, err := m.members.Delete(ctx, phone)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) SetMemberGroup(ctx context.Context, phone, group string) error {
	g, err := m.groups.GetByName(ctx, group)
	if err != nil {
		return mapErr(err)
	}
	return mapErr(m.members.SetGroup(ctx, phone, g.Name))
}

func (m *Mongo) BindChat(ctx context.Context, phone string, chatID int64) error {
	return mapErr(m.members.BindChat(ctx, phone, chatID))
}

func (m *Mongo) ListMembers(ctx context.Context) ([]models.Member, error) {
	return m.members.List(ctx)
}

func (m *Mongo) ListMembersByGroup(ctx context.Context, group string) ([]models.Member, error) {
	return m.members.ListByGroup(ctx, group)
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}

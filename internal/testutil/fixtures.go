package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/filescout/internal/app/system/authutil"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup creates a group with the given short name.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateAdmin creates an admin whose password hashes from the given plaintext.
func (f *Fixtures) CreateAdmin(ctx context.Context, phone, password string) models.Admin {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Admin{
		ID:        primitive.NewObjectID(),
		Phone:     phone,
		Hash:      f.hash(password),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("admins").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test admin: %v", err)
	}
	return a
}

// CreateMember creates a member in group. chatID may be nil for an unbound member.
func (f *Fixtures) CreateMember(ctx context.Context, phone, password, group string, chatID *int64) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		Phone:     phone,
		Hash:      f.hash(password),
		Group:     group,
		ChatID:    chatID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

func (f *Fixtures) hash(password string) string {
	f.t.Helper()
	h, err := authutil.HashPassword(password)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	return h
}

// ChatID is a convenience for building optional chat ids inline.
func ChatID(id int64) *int64 {
	return &id
}

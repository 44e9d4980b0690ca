package memberstore_test

import (
	"errors"
	"testing"

	memberstore "github.com/dalemusser/filescout/internal/app/store/members"
	"github.com/dalemusser/filescout/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := store.Create(ctx, "375291234567", "$2a$12$hash", "FWD")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m.Group != "FWD" {
		t.Errorf("Group: got %q", m.Group)
	}
	if m.Bound() {
		t.Error("new member must not be bound")
	}

	_, err = store.Create(ctx, "375291234567", "$2a$12$other", "FWS")
	if !errors.Is(err, memberstore.ErrDuplicatePhone) {
		t.Errorf("expected ErrDuplicatePhone, got %v", err)
	}
}

func TestStore_BindChat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateMember(ctx, "375291234567", "secret", "FWD", nil)

	if err := store.BindChat(ctx, "375291234567", 5551); err != nil {
		t.Fatalf("BindChat failed: %v", err)
	}
	m, err := store.GetByPhone(ctx, "375291234567")
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if m.ChatID == nil || *m.ChatID != 5551 {
		t.Errorf("ChatID: got %v, want 5551", m.ChatID)
	}

	err = store.BindChat(ctx, "0000000000", 1)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("BindChat unknown: expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_SetGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateMember(ctx, "375291234567", "secret", "FWD", nil)

	if err := store.SetGroup(ctx, "375291234567", "FWS"); err != nil {
		t.Fatalf("SetGroup failed: %v", err)
	}
	m, _ := store.GetByPhone(ctx, "375291234567")
	if m.Group != "FWS" {
		t.Errorf("Group: got %q, want FWS", m.Group)
	}

	if err := store.SetGroup(ctx, "0000000000", "FWS"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("SetGroup unknown: expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_ListByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateMember(ctx, "375293333333", "a", "FWD", testutil.ChatID(3))
	fixtures.CreateMember(ctx, "375291111111", "b", "FWD", nil)
	fixtures.CreateMember(ctx, "375292222222", "c", "FWS", testutil.ChatID(2))

	fwd, err := store.ListByGroup(ctx, "FWD")
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(fwd) != 2 {
		t.Fatalf("expected 2 members, got %d", len(fwd))
	}
	if fwd[0].Phone != "375291111111" || fwd[1].Phone != "375293333333" {
		t.Errorf("order: got %s, %s", fwd[0].Phone, fwd[1].Phone)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List: got %d, want 3", len(all))
	}
}

func TestStore_Delete_RemovesBinding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateMember(ctx, "375291234567", "secret", "FWD", testutil.ChatID(77))

	n, err := store.Delete(ctx, "375291234567")
	if err != nil || n != 1 {
		t.Fatalf("Delete: got %d, %v", n, err)
	}
	if _, err := store.GetByPhone(ctx, "375291234567"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments after delete, got %v", err)
	}
}

func TestStore_BindChat_MovesBinding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateMember(ctx, "375291111111", "a", "FWD", testutil.ChatID(900))
	fixtures.CreateMember(ctx, "375292222222", "b", "FWD", nil)

	if err := store.BindChat(ctx, "375292222222", 900); err != nil {
		t.Fatalf("BindChat failed: %v", err)
	}

	prev, _ := store.GetByPhone(ctx, "375291111111")
	if prev.Bound() {
		t.Errorf("previous holder must lose the binding, got %v", *prev.ChatID)
	}
	cur, _ := store.GetByPhone(ctx, "375292222222")
	if cur.ChatID == nil || *cur.ChatID != 900 {
		t.Errorf("ChatID: got %v, want 900", cur.ChatID)
	}
}

func TestStore_BindChat_UnknownMemberKeepsBinding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateMember(ctx, "375291111111", "a", "FWD", testutil.ChatID(901))

	if err := store.BindChat(ctx, "375299999999", 901); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("BindChat unknown member: got %v, want ErrNoDocuments", err)
	}

	holder, _ := store.GetByPhone(ctx, "375291111111")
	if holder.ChatID == nil || *holder.ChatID != 901 {
		t.Errorf("existing binding must survive a failed bind, got %v", holder.ChatID)
	}
}

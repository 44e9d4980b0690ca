package accounts_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/testutil"
)

func TestMongo_CreateMember_UnknownGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := accounts.NewMongo(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := repo.CreateMember(ctx, "375291234567", "h", "XYZ")
	if !errors.Is(err, accounts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	members, err := repo.ListMembers(ctx)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("no member should be written, got %d", len(members))
	}
}

func TestMongo_CreateMember_UsesStoredGroupName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := accounts.NewMongo(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := repo.EnsureGroup(ctx, "FWD"); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	m, err := repo.CreateMember(ctx, "375291234567", "h", "fwd")
	if err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	if m.Group != "FWD" {
		t.Errorf("Group: got %q, want FWD", m.Group)
	}
}

func TestMongo_Duplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := accounts.NewMongo(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := repo.CreateAdmin(ctx, "375291234567", "h"); err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	if _, err := repo.CreateAdmin(ctx, "375291234567", "h"); !errors.Is(err, accounts.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Admins and members are separate tables, so the same phone is allowed.
	if err := repo.EnsureGroup(ctx, "FWD"); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	if _, err := repo.CreateMember(ctx, "375291234567", "h", "FWD"); err != nil {
		t.Errorf("member with an admin's phone: %v", err)
	}
}

func TestMongo_DeleteNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := accounts.NewMongo(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := repo.DeleteAdmin(ctx, "0000000000"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("DeleteAdmin: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteMember(ctx, "0000000000"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("DeleteMember: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetAdmin(ctx, "0000000000"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("GetAdmin: expected ErrNotFound, got %v", err)
	}
}

func TestMongo_SetMemberGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := accounts.NewMongo(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateGroup(ctx, "FWD")
	fixtures.CreateGroup(ctx, "FWS")
	fixtures.CreateMember(ctx, "375291234567", "secret", "FWD", nil)

	if err := repo.SetMemberGroup(ctx, "375291234567", "XYZ"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("unknown group: expected ErrNotFound, got %v", err)
	}
	if err := repo.SetMemberGroup(ctx, "375291234567", "FWS"); err != nil {
		t.Fatalf("SetMemberGroup failed: %v", err)
	}
	m, err := repo.GetMember(ctx, "375291234567")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if m.Group != "FWS" {
		t.Errorf("Group: got %q, want FWS", m.Group)
	}
}

func TestMongo_Ping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := accounts.NewMongo(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := repo.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

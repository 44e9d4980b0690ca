package sessions_test

import (
	"testing"
	"time"

	"github.com/dalemusser/filescout/internal/app/store/sessions"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/dalemusser/filescout/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStore_Get_FirstContact(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sess, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.CallerID != 42 {
		t.Errorf("CallerID: got %d, want 42", sess.CallerID)
	}
	if sess.Phase != models.PhaseUnauthenticated {
		t.Errorf("Phase: got %q, want %q", sess.Phase, models.PhaseUnauthenticated)
	}
	if sess.Authenticated() {
		t.Error("fresh session must not be authenticated")
	}

	n, err := db.Collection("sessions").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("Get must not write; found %d documents", n)
	}
}

func TestStore_Update_ReadYourWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.Update(ctx, 7, sessions.To(models.PhaseAwaitingPassword).WithPhone("375291234567"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Phase != models.PhaseAwaitingPassword || got.Phone != "375291234567" {
		t.Errorf("Update result: got %+v", got)
	}

	sess, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Phase != models.PhaseAwaitingPassword {
		t.Errorf("Phase: got %q, want %q", sess.Phase, models.PhaseAwaitingPassword)
	}
	if sess.Phone != "375291234567" {
		t.Errorf("Phone: got %q", sess.Phone)
	}
	if sess.Role != models.RoleNone {
		t.Errorf("Role: got %q, want none", sess.Role)
	}
}

func TestStore_Update_WithoutPhaseDefaultsUnauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.Update(ctx, 8, sessions.Patch{}.WithPhone("375291234567"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Phase != models.PhaseUnauthenticated {
		t.Errorf("Phase: got %q, want %q", got.Phase, models.PhaseUnauthenticated)
	}
}

func TestStore_Update_Scratch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Update(ctx, 9, sessions.Patch{
		Set: map[string]string{
			models.ScratchPendingPhone: "375331234567",
			models.ScratchPendingHash:  "$2a$12$hash",
		},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	sess, err := store.Update(ctx, 9, sessions.Patch{Unset: []string{models.ScratchPendingHash}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if sess.Get(models.ScratchPendingPhone) != "375331234567" {
		t.Errorf("pending phone lost: %+v", sess.Scratch)
	}
	if sess.Get(models.ScratchPendingHash) != "" {
		t.Errorf("pending hash not removed: %+v", sess.Scratch)
	}

	sess, err = store.Update(ctx, 9, sessions.Patch{
		ClearScratch: true,
		Set:          map[string]string{models.ScratchBroadcastGroup: "FWD"},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(sess.Scratch) != 1 || sess.Get(models.ScratchBroadcastGroup) != "FWD" {
		t.Errorf("ClearScratch+Set: got %+v", sess.Scratch)
	}
}

func TestStore_Update_EmptyRoleRemovesField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Update(ctx, 10, sessions.To(models.PhaseAuthenticated).WithRole(models.RoleAdmin)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	sess, err := store.Update(ctx, 10, sessions.To(models.PhaseUnauthenticated).WithRole(models.RoleNone))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if sess.Role != models.RoleNone {
		t.Errorf("Role: got %q, want none", sess.Role)
	}
}

func TestStore_Clear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Update(ctx, 11, sessions.To(models.PhaseAuthenticated).WithRole(models.RoleMember)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Clear(ctx, 11); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	sess, err := store.Get(ctx, 11)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Phase != models.PhaseUnauthenticated || sess.Role != models.RoleNone {
		t.Errorf("after Clear: got %+v", sess)
	}
}

func TestStore_Get_UnknownPhaseIsUnauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("sessions").InsertOne(ctx, bson.M{
		"_id":        int64(12),
		"phase":      "something_old",
		"role":       "admin",
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	sess, err := store.Get(ctx, 12)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Phase != models.PhaseUnauthenticated || sess.Role != models.RoleNone {
		t.Errorf("unknown phase must not keep a role: got %+v", sess)
	}
}

func TestStore_Get_UnknownRoleIsDropped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("sessions").InsertOne(ctx, bson.M{
		"_id":        int64(13),
		"phase":      models.PhaseAuthenticated,
		"phone":      "375291234567",
		"role":       "root",
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	sess, err := store.Get(ctx, 13)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Role != models.RoleNone {
		t.Errorf("Role: got %q, want none", sess.Role)
	}
	if sess.Authenticated() {
		t.Error("session with an unknown role must not be authenticated")
	}
}

func TestStore_CountAuthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	docs := []interface{}{
		bson.M{"_id": int64(1), "phase": models.PhaseAuthenticated, "role": models.RoleAdmin, "updated_at": now},
		bson.M{"_id": int64(2), "phase": models.PhaseBrowsingFolder, "role": models.RoleMember, "updated_at": now},
		bson.M{"_id": int64(3), "phase": models.PhaseComposingBroadcast, "role": models.RoleAdmin, "updated_at": now},
		bson.M{"_id": int64(4), "phase": models.PhaseAwaitingPassword, "phone": "375291111111", "updated_at": now},
		bson.M{"_id": int64(5), "phase": models.PhaseUnauthenticated, "updated_at": now},
	}
	if _, err := db.Collection("sessions").InsertMany(ctx, docs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := store.CountAuthenticated(ctx)
	if err != nil {
		t.Fatalf("CountAuthenticated failed: %v", err)
	}
	if n != 3 {
		t.Errorf("CountAuthenticated: got %d, want 3", n)
	}
}

func TestStore_ResetStaleSubflows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().UTC().Add(-time.Hour)
	docs := []interface{}{
		bson.M{"_id": int64(1), "phase": models.PhaseAddingUserSelectGroup, "role": models.RoleAdmin,
			"scratch": bson.M{models.ScratchPendingHash: "h"}, "updated_at": old},
		bson.M{"_id": int64(2), "phase": models.PhaseComposingBroadcast, "role": models.RoleAdmin,
			"updated_at": time.Now().UTC()},
		bson.M{"_id": int64(3), "phase": models.PhaseBrowsingFolder, "role": models.RoleMember,
			"updated_at": old},
	}
	if _, err := db.Collection("sessions").InsertMany(ctx, docs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := store.ResetStaleSubflows(ctx, 15*time.Minute)
	if err != nil {
		t.Fatalf("ResetStaleSubflows failed: %v", err)
	}
	if n != 1 {
		t.Errorf("reset count: got %d, want 1", n)
	}

	s1, _ := store.Get(ctx, 1)
	if s1.Phase != models.PhaseAuthenticated || s1.Role != models.RoleAdmin || s1.Scratch != nil {
		t.Errorf("stale session: got %+v", s1)
	}
	s2, _ := store.Get(ctx, 2)
	if s2.Phase != models.PhaseComposingBroadcast {
		t.Errorf("fresh sub-flow must be untouched: got %q", s2.Phase)
	}
	s3, _ := store.Get(ctx, 3)
	if s3.Phase != models.PhaseBrowsingFolder {
		t.Errorf("browsing session must be untouched: got %q", s3.Phase)
	}
}

func TestPatch_Apply(t *testing.T) {
	sess := models.Session{
		CallerID: 1,
		Phase:    models.PhaseAddingUserSelectGroup,
		Role:     models.RoleAdmin,
		Scratch: map[string]string{
			models.ScratchPendingPhone: "375331234567",
			models.ScratchPendingHash:  "h",
		},
	}

	sessions.Patch{Unset: []string{models.ScratchPendingHash}}.Apply(&sess)
	if sess.Get(models.ScratchPendingHash) != "" || sess.Get(models.ScratchPendingPhone) == "" {
		t.Errorf("Unset: got %+v", sess.Scratch)
	}

	p := sessions.To(models.PhaseAuthenticated)
	p.ClearScratch = true
	p.Apply(&sess)
	if sess.Phase != models.PhaseAuthenticated {
		t.Errorf("Phase: got %q", sess.Phase)
	}
	if sess.Scratch != nil {
		t.Errorf("Scratch: got %+v, want nil", sess.Scratch)
	}
	if sess.Role != models.RoleAdmin {
		t.Errorf("Role must be untouched: got %q", sess.Role)
	}
}

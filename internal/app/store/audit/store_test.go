package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/filescout/internal/app/store/audit"
	"github.com/dalemusser/filescout/internal/testutil"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	event := audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventLoginSuccess,
		CallerID:   42,
		ActorPhone: "375291234567",
		Success:    true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByPhone(ctx, "375291234567", 10)
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be assigned")
	}
	if events[0].CallerID != 42 {
		t.Errorf("CallerID = %d, want 42", events[0].CallerID)
	}
}

func TestStore_QueryByPhoneMatchesActorAndTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	const phone = "375290000001"
	events := []audit.Event{
		{Category: audit.CategoryAdmin, EventType: audit.EventMemberCreated, ActorPhone: phone, TargetPhone: "375290000002", Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventAdminDeleted, ActorPhone: "375290000003", TargetPhone: phone, Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventLogout, ActorPhone: "375290000004", Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.GetByPhone(ctx, phone, 10)
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events for %s, got %d", phone, len(got))
	}
}

func TestStore_GetByPhone_NewestFirstAndLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	phone := "375297654321"
	now := time.Now().UTC()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, ActorPhone: phone, Timestamp: now.Add(-2 * time.Hour), Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, ActorPhone: phone, Timestamp: now.Add(-time.Hour)})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAdmin, EventType: audit.EventMemberGroupChanged, TargetPhone: phone, Timestamp: now, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, ActorPhone: "375290000000", Timestamp: now, Success: true})

	got, err := store.GetByPhone(ctx, phone, 2)
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(got))
	}
	if got[0].EventType != audit.EventMemberGroupChanged || got[1].EventType != audit.EventLoginFailedWrongPassword {
		t.Errorf("unexpected order: %s, %s", got[0].EventType, got[1].EventType)
	}
}

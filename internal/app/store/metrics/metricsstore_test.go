package metricsstore_test

import (
	"context"
	"testing"

	metricsstore "github.com/dalemusser/filescout/internal/app/store/metrics"
	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/app/store/sessions"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/dalemusser/filescout/internal/testutil"
)

type sessionCount int64

func (n sessionCount) CountAuthenticated(ctx context.Context) (int64, error) {
	return int64(n), nil
}

func TestFetchCounts_Empty(t *testing.T) {
	ctx := context.Background()
	counts := metricsstore.FetchCounts(ctx, testutil.NewMemoryAccounts(), nil)

	if counts != (metricsstore.Counts{}) {
		t.Errorf("counts = %+v, want zero", counts)
	}
}

func TestFetchCounts_WithData(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemoryAccounts("FWD", "FWS")
	if _, err := repo.CreateAdmin(ctx, "375000000001", "h"); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	for _, phone := range []string{"375291111111", "375292222222", "375293333333"} {
		if _, err := repo.CreateMember(ctx, phone, "h", "FWD"); err != nil {
			t.Fatalf("CreateMember: %v", err)
		}
	}
	if err := repo.BindChat(ctx, "375291111111", 42); err != nil {
		t.Fatalf("BindChat: %v", err)
	}

	counts := metricsstore.FetchCounts(ctx, repo, sessionCount(5))
	want := metricsstore.Counts{Groups: 2, Admins: 1, Members: 3, BoundMembers: 1, Authenticated: 5}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
}

func TestFetchCounts_TolerantOfErrors(t *testing.T) {
	repo := testutil.NewMemoryAccounts("FWD")
	repo.FailAll = testutil.ErrInjected

	counts := metricsstore.FetchCounts(context.Background(), repo, sessionCount(2))
	if counts.Groups != 0 || counts.Admins != 0 || counts.Members != 0 {
		t.Errorf("expected zero account counts on error, got %+v", counts)
	}
	if counts.Authenticated != 2 {
		t.Errorf("Authenticated: got %d, want 2", counts.Authenticated)
	}
}

func TestFetchCounts_Mongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateGroup(ctx, "FWD")
	fixtures.CreateAdmin(ctx, "375000000001", "rootpass")
	fixtures.CreateMember(ctx, "375291111111", "pw", "FWD", testutil.ChatID(7))
	fixtures.CreateMember(ctx, "375292222222", "pw", "FWD", nil)

	store := sessions.New(db)
	patches := map[int64]sessions.Patch{
		11: sessions.To(models.PhaseBrowsingFolder).WithPhone("375291111111").WithRole(models.RoleMember),
		12: sessions.To(models.PhaseComposingBroadcast).WithPhone("375000000001").WithRole(models.RoleAdmin),
		13: sessions.To(models.PhaseAuthenticated).WithPhone("375000000001").WithRole(models.RoleAdmin),
		14: sessions.To(models.PhaseAwaitingPassword).WithPhone("375292222222"),
	}
	for caller, p := range patches {
		if _, err := store.Update(ctx, caller, p); err != nil {
			t.Fatalf("Update %d: %v", caller, err)
		}
	}

	counts := metricsstore.FetchCounts(ctx, accounts.NewMongo(db), store)
	want := metricsstore.Counts{Groups: 1, Admins: 1, Members: 2, BoundMembers: 1, Authenticated: 3}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
}

package administration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/filescout/internal/app/administration"
	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/app/system/authutil"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/dalemusser/filescout/internal/testutil"
	"go.uber.org/zap"
)

const (
	rootPhone  = "375000000001"
	adminPhone = "375000000002"
	userPhone  = "375333507890"
)

var (
	admin  = authz.Subject{Role: models.RoleAdmin, Phone: adminPhone}
	member = authz.Subject{Role: models.RoleMember, Phone: userPhone, Group: "ABC"}
)

func newService(t *testing.T) (*administration.Service, *testutil.MemoryAccounts, *testutil.Messenger) {
	t.Helper()
	repo := testutil.NewMemoryAccounts("ABC", "XYZ")
	ctx := context.Background()
	if _, err := repo.CreateAdmin(ctx, rootPhone, "h"); err != nil {
		t.Fatalf("seed root: %v", err)
	}
	if _, err := repo.CreateAdmin(ctx, adminPhone, "h"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	msg := testutil.NewMessenger()
	svc := administration.New(repo, msg, zap.NewNop(), administration.Config{ProtectedAdminPhone: rootPhone})
	return svc, repo, msg
}

func TestNewCredential(t *testing.T) {
	svc, _, _ := newService(t)

	plain, hash, err := svc.NewCredential(admin, authz.ActionAddUser)
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	if len(plain) != authutil.DefaultGeneratedLength {
		t.Errorf("len(plain) = %d, want %d", len(plain), authutil.DefaultGeneratedLength)
	}
	if !authutil.CheckPassword(plain, hash) {
		t.Error("hash does not verify the generated password")
	}

	if _, _, err := svc.NewCredential(member, authz.ActionAddUser); !errors.Is(err, authz.ErrDenied) {
		t.Errorf("member NewCredential err = %v, want ErrDenied", err)
	}
}

func TestAddMember_NonAdminDenied(t *testing.T) {
	svc, repo, _ := newService(t)
	_, before := repo.Counts()

	_, err := svc.AddMember(context.Background(), member, "375291112233", "h", "ABC")
	if !errors.Is(err, authz.ErrDenied) {
		t.Fatalf("err = %v, want ErrDenied", err)
	}
	if _, after := repo.Counts(); after != before {
		t.Errorf("member count changed from %d to %d", before, after)
	}
}

func TestAddMember(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	m, err := svc.AddMember(ctx, admin, "+375 29 111 22 33", "h", " abc ")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.Phone != "375291112233" || m.Group != "ABC" {
		t.Errorf("member = %+v", m)
	}
	if _, err := repo.GetMember(ctx, "375291112233"); err != nil {
		t.Errorf("GetMember: %v", err)
	}
}

func TestAddMember_Errors(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		phone string
		group string
		want  error
	}{
		{"invalid phone", "12ab", "ABC", normalize.ErrInvalidPhone},
		{"short phone", "12345", "ABC", normalize.ErrInvalidPhone},
		{"unknown group", "375291112233", "QQQ", administration.ErrUnknownGroup},
		{"empty group", "375291112233", "  ", administration.ErrUnknownGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddMember(ctx, admin, tt.phone, "h", tt.group)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := svc.AddMember(ctx, admin, "375291112233", "h", "ABC"); err != nil {
		t.Fatalf("first AddMember: %v", err)
	}
	if _, err := svc.AddMember(ctx, admin, "375291112233", "h", "ABC"); !errors.Is(err, accounts.ErrDuplicate) {
		t.Errorf("duplicate err = %v, want ErrDuplicate", err)
	}
}

func TestAddAdmin(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.AddAdmin(ctx, admin, "375 44 000 00 03", "h"); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if _, err := repo.GetAdmin(ctx, "375440000003"); err != nil {
		t.Errorf("GetAdmin: %v", err)
	}
	if _, err := svc.AddAdmin(ctx, admin, "375440000003", "h"); !errors.Is(err, accounts.ErrDuplicate) {
		t.Errorf("duplicate err = %v, want ErrDuplicate", err)
	}
	if _, err := svc.AddAdmin(ctx, member, "375440000004", "h"); !errors.Is(err, authz.ErrDenied) {
		t.Errorf("member AddAdmin err = %v, want ErrDenied", err)
	}
}

func TestDeleteMember_RemovesBinding(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	if _, err := repo.CreateMember(ctx, userPhone, "h", "ABC"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.BindChat(ctx, userPhone, 555); err != nil {
		t.Fatalf("BindChat: %v", err)
	}

	if err := svc.DeleteMember(ctx, admin, userPhone); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if _, err := repo.GetMember(ctx, userPhone); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("GetMember err = %v, want ErrNotFound", err)
	}
	if _, ok, err := svc.ResolveChatBinding(ctx, userPhone); err != nil || ok {
		t.Errorf("ResolveChatBinding = (_, %v, %v), want no binding", ok, err)
	}
	if err := svc.DeleteMember(ctx, admin, userPhone); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAdmin(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	if err := svc.DeleteAdmin(ctx, admin, rootPhone); !errors.Is(err, authz.ErrProtectedAdmin) {
		t.Errorf("protected delete err = %v, want ErrProtectedAdmin", err)
	}
	if err := svc.DeleteAdmin(ctx, member, adminPhone); !errors.Is(err, authz.ErrDenied) {
		t.Errorf("member delete err = %v, want ErrDenied", err)
	}
	if err := svc.DeleteAdmin(ctx, admin, "375999999999"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("unknown delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteAdmin(ctx, admin, adminPhone); err != nil {
		t.Fatalf("DeleteAdmin: %v", err)
	}
	if n, _ := repo.CountAdmins(ctx); n != 1 {
		t.Errorf("admins = %d, want 1", n)
	}
}

func TestDeleteAdmin_LastAdmin(t *testing.T) {
	repo := testutil.NewMemoryAccounts("ABC")
	ctx := context.Background()
	if _, err := repo.CreateAdmin(ctx, adminPhone, "h"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := administration.New(repo, testutil.NewMessenger(), zap.NewNop(), administration.Config{})

	if err := svc.DeleteAdmin(ctx, admin, adminPhone); !errors.Is(err, authz.ErrLastAdmin) {
		t.Errorf("err = %v, want ErrLastAdmin", err)
	}
}

func TestChangeGroup(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	if _, err := repo.CreateMember(ctx, userPhone, "h", "ABC"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, prev, err := svc.ChangeGroup(ctx, admin, userPhone, "xyz")
	if err != nil {
		t.Fatalf("ChangeGroup: %v", err)
	}
	if prev != "ABC" || m.Group != "XYZ" {
		t.Errorf("prev=%q group=%q, want ABC -> XYZ", prev, m.Group)
	}

	if _, _, err := svc.ChangeGroup(ctx, admin, userPhone, "QQQ"); !errors.Is(err, administration.ErrUnknownGroup) {
		t.Errorf("unknown group err = %v", err)
	}
	if _, _, err := svc.ChangeGroup(ctx, admin, "375999999999", "ABC"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("unknown member err = %v", err)
	}
	if _, _, err := svc.ChangeGroup(ctx, member, userPhone, "ABC"); !errors.Is(err, authz.ErrDenied) {
		t.Errorf("member err = %v", err)
	}
}

func TestFindMember(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	if _, err := repo.CreateMember(ctx, userPhone, "h", "ABC"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := svc.FindMember(ctx, admin, "375 33 350 78 90")
	if err != nil {
		t.Fatalf("FindMember: %v", err)
	}
	if m.Phone != userPhone {
		t.Errorf("phone = %q", m.Phone)
	}
	if _, err := svc.FindMember(ctx, admin, "not a phone"); !errors.Is(err, normalize.ErrInvalidPhone) {
		t.Errorf("invalid err = %v", err)
	}
	if _, err := svc.FindMember(ctx, admin, "375000000099"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestListing(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	for _, p := range []string{"375000000011", "375000000012"} {
		if _, err := repo.CreateMember(ctx, p, "h", "ABC"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	members, err := svc.ListMembers(ctx, admin)
	if err != nil || len(members) != 2 {
		t.Errorf("ListMembers = %d, %v", len(members), err)
	}
	admins, err := svc.ListAdmins(ctx, admin)
	if err != nil || len(admins) != 2 {
		t.Errorf("ListAdmins = %d, %v", len(admins), err)
	}
	if _, err := svc.ListMembers(ctx, member); !errors.Is(err, authz.ErrDenied) {
		t.Errorf("member ListMembers err = %v", err)
	}
	if _, err := svc.ListAdmins(ctx, authz.Subject{}); !errors.Is(err, authz.ErrDenied) {
		t.Errorf("anonymous ListAdmins err = %v", err)
	}
	groups, err := svc.Groups(ctx)
	if err != nil || len(groups) != 2 {
		t.Errorf("Groups = %v, %v", groups, err)
	}
}

func TestIsProtected(t *testing.T) {
	svc, _, _ := newService(t)
	if !svc.IsProtected("+" + rootPhone) {
		t.Error("root phone should be protected")
	}
	if svc.IsProtected(adminPhone) {
		t.Error("ordinary admin should not be protected")
	}
}

// Package administration implements the admin-only operations over
// accounts, groups and broadcasts. Every operation authorizes its actor
// before touching the repository.
package administration

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/filescout/internal/app/chat"
	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/app/system/auditlog"
	"github.com/dalemusser/filescout/internal/app/system/authutil"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/domain/models"
	"go.uber.org/zap"
)

var (
	// ErrUnknownGroup is returned when a group name does not resolve.
	ErrUnknownGroup = errors.New("unknown group")

	// ErrEmptyMessage is returned for a broadcast with no content.
	ErrEmptyMessage = errors.New("broadcast message is empty")

	// ErrMessageTooLong is returned when broadcast text exceeds the
	// transport limit for its kind.
	ErrMessageTooLong = errors.New("broadcast message is too long")
)

// Service runs administration operations.
type Service struct {
	repo    accounts.Repository
	sender  chat.Sender
	audit   *auditlog.Logger
	log     *zap.Logger
	metrics *metrics.Metrics

	// protectedPhone is the bootstrap admin, which ordinary flows cannot delete.
	protectedPhone string
}

// Config carries the optional collaborators of a Service.
type Config struct {
	Audit               *auditlog.Logger
	Metrics             *metrics.Metrics
	ProtectedAdminPhone string
}

func New(repo accounts.Repository, sender chat.Sender, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		repo:           repo,
		sender:         sender,
		audit:          cfg.Audit,
		log:            logger,
		metrics:        cfg.Metrics,
		protectedPhone: cfg.ProtectedAdminPhone,
	}
}

// NewCredential generates a one-time password for an account the actor is
// about to create with action (ActionAddAdmin or ActionAddUser). Only the
// hash should be kept; the plaintext is shown to the admin once.
func (s *Service) NewCredential(actor authz.Subject, action authz.Action) (plain, hash string, err error) {
	if err := authz.Authorize(actor, action); err != nil {
		return "", "", err
	}
	return authutil.GeneratePassword(authutil.DefaultGeneratedLength)
}

// AddAdmin creates an admin from a staged hash.
func (s *Service) AddAdmin(ctx context.Context, actor authz.Subject, phone, hash string) (models.Admin, error) {
	if err := authz.Authorize(actor, authz.ActionAddAdmin); err != nil {
		return models.Admin{}, err
	}
	phone, err := normalize.ParsePhone(phone)
	if err != nil {
		return models.Admin{}, err
	}
	if hash == "" {
		return models.Admin{}, errors.New("add admin: missing password hash")
	}
	a, err := s.repo.CreateAdmin(ctx, phone, hash)
	if err != nil {
		return models.Admin{}, fmt.Errorf("add admin: %w", err)
	}
	s.audit.AdminCreated(ctx, actor.Phone, phone)
	return a, nil
}

// AddMember creates a member of group from a staged hash.
func (s *Service) AddMember(ctx context.Context, actor authz.Subject, phone, hash, group string) (models.Member, error) {
	if err := authz.Authorize(actor, authz.ActionAddUser); err != nil {
		return models.Member{}, err
	}
	phone, err := normalize.ParsePhone(phone)
	if err != nil {
		return models.Member{}, err
	}
	if hash == "" {
		return models.Member{}, errors.New("add member: missing password hash")
	}
	group = normalize.GroupName(group)
	if err := s.requireGroup(ctx, group); err != nil {
		return models.Member{}, err
	}
	m, err := s.repo.CreateMember(ctx, phone, hash, group)
	if errors.Is(err, accounts.ErrNotFound) {
		return models.Member{}, ErrUnknownGroup
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("add member: %w", err)
	}
	s.audit.MemberCreated(ctx, actor.Phone, phone, m.Group)
	return m, nil
}

// DeleteMember removes a member and with it the member's chat binding.
func (s *Service) DeleteMember(ctx context.Context, actor authz.Subject, phone string) error {
	if err := authz.Authorize(actor, authz.ActionDeleteUser); err != nil {
		return err
	}
	phone = normalize.Phone(phone)
	if err := s.repo.DeleteMember(ctx, phone); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	s.audit.MemberDeleted(ctx, actor.Phone, phone)
	return nil
}

// DeleteAdmin removes an admin unless it is the bootstrap admin or the last
// one left.
func (s *Service) DeleteAdmin(ctx context.Context, actor authz.Subject, phone string) error {
	if err := authz.Authorize(actor, authz.ActionDeleteAdmin); err != nil {
		return err
	}
	phone = normalize.Phone(phone)
	if _, err := s.repo.GetAdmin(ctx, phone); err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("delete admin: count: %w", err)
	}
	if err := authz.AuthorizeAdminDeletion(actor, phone, s.protectedPhone, n); err != nil {
		return err
	}
	if err := s.repo.DeleteAdmin(ctx, phone); err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	s.audit.AdminDeleted(ctx, actor.Phone, phone)
	return nil
}

// ChangeGroup moves a member to group and returns the member as stored
// after the move along with the previous group.
func (s *Service) ChangeGroup(ctx context.Context, actor authz.Subject, phone, group string) (models.Member, string, error) {
	if err := authz.Authorize(actor, authz.ActionChangeGroup); err != nil {
		return models.Member{}, "", err
	}
	phone = normalize.Phone(phone)
	group = normalize.GroupName(group)

	before, err := s.repo.GetMember(ctx, phone)
	if err != nil {
		return models.Member{}, "", fmt.Errorf("change group: %w", err)
	}
	if err := s.requireGroup(ctx, group); err != nil {
		return models.Member{}, "", err
	}
	if err := s.repo.SetMemberGroup(ctx, phone, group); err != nil {
		return models.Member{}, "", fmt.Errorf("change group: %w", err)
	}
	after, err := s.repo.GetMember(ctx, phone)
	if err != nil {
		return models.Member{}, "", fmt.Errorf("change group: %w", err)
	}
	s.audit.MemberGroupChanged(ctx, actor.Phone, phone, before.Group, after.Group)
	return after, before.Group, nil
}

// ListMembers returns every member ordered by group and phone.
func (s *Service) ListMembers(ctx context.Context, actor authz.Subject) ([]models.Member, error) {
	if err := authz.Authorize(actor, authz.ActionListUsers); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx)
}

// ListAdmins returns every admin.
func (s *Service) ListAdmins(ctx context.Context, actor authz.Subject) ([]models.Admin, error) {
	if err := authz.Authorize(actor, authz.ActionListAdmins); err != nil {
		return nil, err
	}
	return s.repo.ListAdmins(ctx)
}

// FindMember looks a member up by a typed phone number. Returns
// normalize.ErrInvalidPhone for malformed input and accounts.ErrNotFound
// when no member has the number.
func (s *Service) FindMember(ctx context.Context, actor authz.Subject, phone string) (models.Member, error) {
	if err := authz.Authorize(actor, authz.ActionFindUser); err != nil {
		return models.Member{}, err
	}
	phone, err := normalize.ParsePhone(phone)
	if err != nil {
		return models.Member{}, err
	}
	return s.repo.GetMember(ctx, phone)
}

// Groups returns the fixed group set for pickers.
func (s *Service) Groups(ctx context.Context) ([]models.Group, error) {
	return s.repo.ListGroups(ctx)
}

// IsProtected reports whether phone is the bootstrap admin.
func (s *Service) IsProtected(phone string) bool {
	return s.protectedPhone != "" && normalize.Phone(phone) == s.protectedPhone
}

// ResolveChatBinding returns the chat a member last logged in from.
// ok is false when the member is unknown or has never logged in.
func (s *Service) ResolveChatBinding(ctx context.Context, phone string) (chatID int64, ok bool, err error) {
	m, err := s.repo.GetMember(ctx, normalize.Phone(phone))
	if errors.Is(err, accounts.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if !m.Bound() {
		return 0, false, nil
	}
	return *m.ChatID, true, nil
}

func (s *Service) requireGroup(ctx context.Context, group string) error {
	if group == "" {
		return ErrUnknownGroup
	}
	ok, err := s.repo.GroupExists(ctx, group)
	if err != nil {
		return fmt.Errorf("lookup group: %w", err)
	}
	if !ok {
		return ErrUnknownGroup
	}
	return nil
}

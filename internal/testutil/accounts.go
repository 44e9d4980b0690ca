package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/domain/models"
)

// MemoryAccounts is an in-memory accounts.Repository for unit tests that
// should not need MongoDB. Writes counts every successful mutation.
type MemoryAccounts struct {
	mu      sync.Mutex
	groups  map[string]models.Group
	admins  map[string]models.Admin
	members map[string]models.Member

	Writes  int
	FailAll error // when set, every call returns it
}

var _ accounts.Repository = (*MemoryAccounts)(nil)

// NewMemoryAccounts returns a repository holding the given groups.
func NewMemoryAccounts(groups ...string) *MemoryAccounts {
	r := &MemoryAccounts{
		groups:  map[string]models.Group{},
		admins:  map[string]models.Admin{},
		members: map[string]models.Member{},
	}
	for _, g := range groups {
		r.groups[strings.ToUpper(g)] = models.Group{Name: g}
	}
	return r
}

func (r *MemoryAccounts) EnsureGroup(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return r.FailAll
	}
	if _, ok := r.groups[strings.ToUpper(name)]; !ok {
		r.groups[strings.ToUpper(name)] = models.Group{Name: name}
		r.Writes++
	}
	return nil
}

func (r *MemoryAccounts) GroupExists(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return false, r.FailAll
	}
	_, ok := r.groups[strings.ToUpper(name)]
	return ok, nil
}

func (r *MemoryAccounts) ListGroups(ctx context.Context) ([]models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return nil, r.FailAll
	}
	out := make([]models.Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryAccounts) GetAdmin(ctx context.Context, phone string) (models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return models.Admin{}, r.FailAll
	}
	a, ok := r.admins[phone]
	if !ok {
		return models.Admin{}, accounts.ErrNotFound
	}
	return a, nil
}

func (r *MemoryAccounts) CreateAdmin(ctx context.Context, phone, hash string) (models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return models.Admin{}, r.FailAll
	}
	if _, ok := r.admins[phone]; ok {
		return models.Admin{}, accounts.ErrDuplicate
	}
	a := models.Admin{Phone: phone, Hash: hash}
	r.admins[phone] = a
	r.Writes++
	return a, nil
}

func (r *MemoryAccounts) DeleteAdmin(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return r.FailAll
	}
	if _, ok := r.admins[phone]; !ok {
		return accounts.ErrNotFound
	}
	delete(r.admins, phone)
	r.Writes++
	return nil
}

func (r *MemoryAccounts) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return nil, r.FailAll
	}
	out := make([]models.Admin, 0, len(r.admins))
	for _, a := range r.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}

func (r *MemoryAccounts) CountAdmins(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return 0, r.FailAll
	}
	return int64(len(r.admins)), nil
}

func (r *MemoryAccounts) GetMember(ctx context.Context, phone string) (models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return models.Member{}, r.FailAll
	}
	m, ok := r.members[phone]
	if !ok {
		return models.Member{}, accounts.ErrNotFound
	}
	return m, nil
}

func (r *MemoryAccounts) CreateMember(ctx context.Context, phone, hash, group string) (models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return models.Member{}, r.FailAll
	}
	g, ok := r.groups[strings.ToUpper(group)]
	if !ok {
		return models.Member{}, accounts.ErrNotFound
	}
	if _, ok := r.members[phone]; ok {
		return models.Member{}, accounts.ErrDuplicate
	}
	m := models.Member{Phone: phone, Hash: hash, Group: g.Name}
	r.members[phone] = m
	r.Writes++
	return m, nil
}

func (r *MemoryAccounts) DeleteMember(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return r.FailAll
	}
	if _, ok := r.members[phone]; !ok {
		return accounts.ErrNotFound
	}
	delete(r.members, phone)
	r.Writes++
	return nil
}

func (r *MemoryAccounts) SetMemberGroup(ctx context.Context, phone, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return r.FailAll
	}
	g, ok := r.groups[strings.ToUpper(group)]
	m, found := r.members[phone]
	if !ok || !found {
		return accounts.ErrNotFound
	}
	m.Group = g.Name
	r.members[phone] = m
	r.Writes++
	return nil
}

func (r *MemoryAccounts) BindChat(ctx context.Context, phone string, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return r.FailAll
	}
	m, ok := r.members[phone]
	if !ok {
		return accounts.ErrNotFound
	}
	for p, other := range r.members {
		if p != phone && other.ChatID != nil && *other.ChatID == chatID {
			other.ChatID = nil
			r.members[p] = other
		}
	}
	id := chatID
	m.ChatID = &id
	r.members[phone] = m
	r.Writes++
	return nil
}

func (r *MemoryAccounts) ListMembers(ctx context.Context) ([]models.Member, error) {
	return r.listMembers("")
}

func (r *MemoryAccounts) ListMembersByGroup(ctx context.Context, group string) ([]models.Member, error) {
	return r.listMembers(group)
}

func (r *MemoryAccounts) listMembers(group string) ([]models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll != nil {
		return nil, r.FailAll
	}
	var out []models.Member
	for _, m := range r.members {
		if group == "" || strings.EqualFold(m.Group, group) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Phone < out[j].Phone
	})
	return out, nil
}

func (r *MemoryAccounts) Ping(ctx context.Context) error {
	return r.FailAll
}

// Counts returns the number of admins and members.
func (r *MemoryAccounts) Counts() (admins, members int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.admins), len(r.members)
}

// ErrInjected is a convenience error for FailAll.
var ErrInjected = errors.New("injected failure")

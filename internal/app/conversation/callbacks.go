package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/domain/models"
	"go.uber.org/zap"
)

// callback handles an inline button press. Every inline action is an
// admin action, so the caller is re-verified and must hold the admin role.
func (t *turn) callback(ctx context.Context) error {
	action, args := parseCallback(t.in.CallbackData)

	if !t.sess.Authenticated() {
		t.m.audit.AccessDenied(ctx, t.in.CallerID, t.sess.Phone, action)
		return t.answer(ctx, msgDenied)
	}
	ok, err := t.verify(ctx)
	if err != nil || !ok {
		return err
	}
	if !t.subj.IsAdmin() {
		return t.deny(ctx, authz.Action(action))
	}

	switch {
	case action == cbAddAdmin:
		return t.confirmAdmin(ctx)
	case action == cbCancelAdmin:
		return t.cancelAdmin(ctx)
	case action == cbSelectGroup && len(args) == 1:
		return t.selectGroup(ctx, args[0])
	case action == cbGroupMessage && len(args) == 1:
		return t.startBroadcast(ctx, args[0])
	case action == cbDeleteUser && len(args) == 1:
		return t.deleteMember(ctx, args[0])
	case action == cbDeleteAdmin && len(args) == 1:
		return t.deleteAdmin(ctx, args[0])
	case action == cbChangeGroup && len(args) == 1:
		return t.pickGroup(ctx, args[0])
	case action == cbMoveGroup && len(args) == 2:
		return t.moveGroup(ctx, args[0], args[1])
	}

	t.log.Warn("unknown callback", zap.String("data", t.in.CallbackData))
	return t.answer(ctx, msgStaleAction)
}

// staged returns the phone and hash held for a pending add, if the session
// is still in phase p.
func (t *turn) staged(p models.Phase) (phone, hash string, ok bool) {
	if t.sess.Phase != p {
		return "", "", false
	}
	phone = t.sess.Get(models.ScratchPendingPhone)
	hash = t.sess.Get(models.ScratchPendingHash)
	return phone, hash, phone != "" && hash != ""
}

func (t *turn) confirmAdmin(ctx context.Context) error {
	phone, hash, ok := t.staged(models.PhaseAddingAdminConfirm)
	if !ok {
		return t.answer(ctx, msgStaleAction)
	}

	sctx, cancel := t.storeCtx(ctx)
	_, err := t.m.admin.AddAdmin(sctx, t.subj, phone, hash)
	cancel()
	switch {
	case errors.Is(err, accounts.ErrDuplicate):
		return t.finish(ctx, fmt.Sprintf(msgAccountExists, phone), "")
	case err != nil:
		// Staged data stays so the admin can press the button again.
		return t.adminErr(ctx, err, authz.ActionAddAdmin)
	}
	return t.finish(ctx, msgAdminAdded(phone), "✅ Новый администратор успешно добавлен")
}

func (t *turn) cancelAdmin(ctx context.Context) error {
	if t.sess.Phase != models.PhaseAddingAdminConfirm {
		return t.answer(ctx, msgStaleAction)
	}
	return t.finish(ctx, msgAdminCanceled, "❌ Добавление отменено")
}

func (t *turn) selectGroup(ctx context.Context, group string) error {
	phone, hash, ok := t.staged(models.PhaseAddingUserSelectGroup)
	if !ok {
		return t.answer(ctx, msgStaleAction)
	}

	sctx, cancel := t.storeCtx(ctx)
	m, err := t.m.admin.AddMember(sctx, t.subj, phone, hash, group)
	cancel()
	switch {
	case errors.Is(err, accounts.ErrDuplicate):
		return t.finish(ctx, fmt.Sprintf(msgAccountExists, phone), "")
	case err != nil:
		return t.adminErr(ctx, err, authz.ActionAddUser)
	}
	return t.finish(ctx, msgUserAdded(phone, m.Group), "✅ Новый пользователь успешно добавлен")
}

// finish closes an add sub-flow: staged data is dropped, the prompt message
// is rewritten and the button press acknowledged.
func (t *turn) finish(ctx context.Context, text, toast string) error {
	if err := t.move(ctx, fresh(models.PhaseAuthenticated)); err != nil {
		return err
	}
	if err := t.edit(ctx, text, nil); err != nil {
		return err
	}
	return t.answer(ctx, toast)
}

func (t *turn) startBroadcast(ctx context.Context, group string) error {
	group = normalize.GroupName(group)
	p := fresh(models.PhaseComposingBroadcast)
	p.Set = map[string]string{models.ScratchBroadcastGroup: group}
	if err := t.move(ctx, p); err != nil {
		return err
	}
	if err := t.edit(ctx, fmt.Sprintf(msgComposeMessage, t.m.sanitize.Sanitize(group)), nil); err != nil {
		return err
	}
	return t.answer(ctx, "")
}

func (t *turn) deleteMember(ctx context.Context, phone string) error {
	sctx, cancel := t.storeCtx(ctx)
	err := t.m.admin.DeleteMember(sctx, t.subj, phone)
	cancel()
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return t.answer(ctx, msgUserNotFound)
	case err != nil:
		return t.adminErr(ctx, err, authz.ActionDeleteUser)
	}
	phone = normalize.Phone(phone)
	if err := t.edit(ctx, msgUserDeleted(phone), nil); err != nil {
		return err
	}
	return t.answer(ctx, msgUserDeleted(phone))
}

func (t *turn) deleteAdmin(ctx context.Context, phone string) error {
	sctx, cancel := t.storeCtx(ctx)
	err := t.m.admin.DeleteAdmin(sctx, t.subj, phone)
	cancel()
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return t.answer(ctx, msgAdminNotFound)
	case err != nil:
		return t.adminErr(ctx, err, authz.ActionDeleteAdmin)
	}
	phone = normalize.Phone(phone)
	if err := t.edit(ctx, msgAdminDeleted(phone), nil); err != nil {
		return err
	}
	return t.answer(ctx, msgAdminDeleted(phone))
}

// pickGroup replaces a member card's actions with the groups the member
// could move to.
func (t *turn) pickGroup(ctx context.Context, phone string) error {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	m, err := t.m.admin.FindMember(sctx, t.subj, phone)
	switch {
	case errors.Is(err, accounts.ErrNotFound), errors.Is(err, normalize.ErrInvalidPhone):
		return t.answer(ctx, msgUserNotFound)
	case err != nil:
		return t.adminErr(ctx, err, authz.ActionChangeGroup)
	}
	groups, err := t.m.admin.Groups(sctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	others := groups[:0]
	for _, g := range groups {
		if g.Name != m.Group {
			others = append(others, g)
		}
	}
	if len(others) == 0 {
		return t.answer(ctx, msgNoGroups)
	}
	if err := t.edit(ctx, msgChangeGroupFor(m.Phone), groupButtons(others, cbMoveGroup, m.Phone)); err != nil {
		return err
	}
	return t.answer(ctx, "")
}

func (t *turn) moveGroup(ctx context.Context, phone, group string) error {
	sctx, cancel := t.storeCtx(ctx)
	m, _, err := t.m.admin.ChangeGroup(sctx, t.subj, phone, group)
	cancel()
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return t.answer(ctx, msgUserNotFound)
	case err != nil:
		return t.adminErr(ctx, err, authz.ActionChangeGroup)
	}
	if err := t.edit(ctx, memberLine(0, m), memberActions(m)); err != nil {
		return err
	}
	return t.answer(ctx, msgGroupChanged(m.Group))
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/filescout/internal/app/administration"
	"github.com/dalemusser/filescout/internal/app/chat"
	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/domain/models"
	"go.uber.org/zap"
)

// menuActions maps admin keyboard labels to the action they need.
var menuActions = map[string]authz.Action{
	btnPanel:      "admin_panel",
	btnBack:       "admin_panel",
	btnAddAdmin:   authz.ActionAddAdmin,
	btnAddUser:    authz.ActionAddUser,
	btnListUsers:  authz.ActionListUsers,
	btnFindUser:   authz.ActionFindUser,
	btnBroadcast:  authz.ActionBroadcast,
	btnListAdmins: authz.ActionListAdmins,
}

// adminMenu handles a press on the admin keyboard. Every entry resets any
// sub-flow in progress.
func (t *turn) adminMenu(ctx context.Context, label string) error {
	if !t.subj.IsAdmin() {
		return t.deny(ctx, menuActions[label])
	}

	switch label {
	case btnAddAdmin:
		return t.enter(ctx, models.PhaseAddingAdminPhone, msgAskAdminPhone, nil)
	case btnAddUser:
		return t.enter(ctx, models.PhaseAddingUserPhone, msgAskUserPhone, nil)
	case btnFindUser:
		return t.enter(ctx, models.PhaseSearchingUserPhone, msgPhoneExample, nil)
	case btnBack:
		return t.enter(ctx, models.PhaseAuthenticated, msgBackToStart, startKeyboard(models.RoleAdmin))
	case btnPanel:
		return t.enter(ctx, models.PhaseAuthenticated, msgAdminMenu, adminKeyboard())
	}

	if err := t.move(ctx, fresh(models.PhaseAuthenticated)); err != nil {
		return err
	}
	switch label {
	case btnListUsers:
		return t.listMembers(ctx)
	case btnListAdmins:
		return t.listAdmins(ctx)
	case btnBroadcast:
		return t.chooseBroadcastGroup(ctx)
	}
	return nil
}

func (t *turn) enter(ctx context.Context, p models.Phase, prompt string, kb [][]chat.ReplyButton) error {
	if err := t.move(ctx, fresh(p)); err != nil {
		return err
	}
	return t.reply(ctx, prompt, kb)
}

func (t *turn) listMembers(ctx context.Context) error {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	members, err := t.m.admin.ListMembers(sctx, t.subj)
	if err != nil {
		return t.adminErr(ctx, err, authz.ActionListUsers)
	}
	if len(members) == 0 {
		return t.reply(ctx, msgNoUsers, nil)
	}
	for i, m := range members {
		out := chat.Outbound{Text: memberLine(i+1, m), HTML: true, Inline: memberActions(m)}
		if err := t.send(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (t *turn) listAdmins(ctx context.Context) error {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	admins, err := t.m.admin.ListAdmins(sctx, t.subj)
	if err != nil {
		return t.adminErr(ctx, err, authz.ActionListAdmins)
	}
	if len(admins) == 0 {
		return t.reply(ctx, msgNoAdmins, nil)
	}
	for i, a := range admins {
		out := chat.Outbound{Text: adminLine(i+1, a), HTML: true}
		if !t.m.admin.IsProtected(a.Phone) {
			out.Inline = adminActions(a)
		}
		if err := t.send(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (t *turn) chooseBroadcastGroup(ctx context.Context) error {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	groups, err := t.m.admin.Groups(sctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	if len(groups) == 0 {
		return t.reply(ctx, msgNoGroups, nil)
	}
	return t.send(ctx, chat.Outbound{
		Text:   msgChooseGroup,
		HTML:   true,
		Inline: groupButtons(groups, cbGroupMessage),
	})
}

// collectPhone handles the phone step of adding an admin or member. A
// credential is generated right away; its plaintext is shown once and only
// the hash is staged on the session.
func (t *turn) collectPhone(ctx context.Context, text string, action authz.Action) error {
	phone, err := normalize.ParsePhone(text)
	if err != nil || t.in.HasMedia() {
		return t.reply(ctx, msgInvalidPhone, nil)
	}

	var groups []models.Group
	if action == authz.ActionAddUser {
		sctx, cancel := t.storeCtx(ctx)
		groups, err = t.m.admin.Groups(sctx)
		cancel()
		if err != nil {
			return fmt.Errorf("list groups: %w", err)
		}
		if len(groups) == 0 {
			return t.enter(ctx, models.PhaseAuthenticated, msgNoGroups, adminKeyboard())
		}
	}

	plain, hash, err := t.m.admin.NewCredential(t.subj, action)
	if err != nil {
		return t.adminErr(ctx, err, action)
	}

	next := models.PhaseAddingAdminConfirm
	if action == authz.ActionAddUser {
		next = models.PhaseAddingUserSelectGroup
	}
	p := fresh(next)
	p.Set = map[string]string{
		models.ScratchPendingPhone: phone,
		models.ScratchPendingHash:  hash,
	}
	if err := t.move(ctx, p); err != nil {
		return err
	}

	if action == authz.ActionAddAdmin {
		return t.send(ctx, chat.Outbound{
			Text:   msgConfirmAdmin(phone, plain),
			HTML:   true,
			Inline: confirmAdminButtons(),
		})
	}
	return t.send(ctx, chat.Outbound{
		Text:   msgSelectUserGroup(phone, plain),
		HTML:   true,
		Inline: groupButtons(groups, cbSelectGroup),
	})
}

func (t *turn) searchUser(ctx context.Context, text string) error {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	m, err := t.m.admin.FindMember(sctx, t.subj, text)
	switch {
	case errors.Is(err, normalize.ErrInvalidPhone):
		return t.reply(ctx, msgInvalidPhone, nil)
	case errors.Is(err, accounts.ErrNotFound):
		return t.reply(ctx, msgUserNotFound, nil)
	case err != nil:
		return t.adminErr(ctx, err, authz.ActionFindUser)
	}
	return t.send(ctx, chat.Outbound{
		Text:   "Пользователь найден: " + memberLine(0, m) + t.recentHistory(ctx, m.Phone),
		HTML:   true,
		Inline: memberActions(m),
	})
}

// recentHistory renders the last few audit events for phone. The card is
// still useful without it, so lookup failures are only logged.
func (t *turn) recentHistory(ctx context.Context, phone string) string {
	if t.m.history == nil {
		return ""
	}
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	events, err := t.m.history.GetByPhone(sctx, phone, historyLimit)
	if err != nil {
		t.log.Warn("audit history lookup failed", zap.String("phone", phone), zap.Error(err))
		return ""
	}
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n" + msgRecentHistory)
	for _, e := range events {
		b.WriteString("\n" + historyLine(e))
	}
	return b.String()
}

func (t *turn) composeBroadcast(ctx context.Context, text string) error {
	group := t.sess.Get(models.ScratchBroadcastGroup)
	if group == "" {
		return t.enter(ctx, models.PhaseAuthenticated, msgStaleAction, adminKeyboard())
	}

	msg := administration.Message{Text: text, PhotoID: t.in.PhotoID, VideoID: t.in.VideoID}
	if t.in.HasMedia() {
		msg.Text = strings.TrimSpace(t.in.Caption)
	}
	if msg.Text == "" && !t.in.HasMedia() {
		return t.reply(ctx, fmt.Sprintf(msgComposeMessage, t.m.sanitize.Sanitize(group)), nil)
	}

	res, err := t.m.admin.Broadcast(ctx, t.subj, group, msg)
	if err != nil {
		switch {
		case errors.Is(err, administration.ErrUnknownGroup):
			return t.enter(ctx, models.PhaseAuthenticated, msgUnknownGroup, adminKeyboard())
		case errors.Is(err, administration.ErrMessageTooLong):
			return t.reply(ctx, msgMessageTooLong, nil)
		}
		return t.adminErr(ctx, err, authz.ActionBroadcast)
	}
	if res.Recipients == 0 {
		return t.enter(ctx, models.PhaseAuthenticated, msgGroupEmpty, adminKeyboard())
	}
	return t.enter(ctx, models.PhaseAuthenticated, msgBroadcastDone(res.Sent, res.Skipped, res.Failed), adminKeyboard())
}

// adminErr turns administration errors into replies. Errors it does not
// recognise are returned for the turn boundary to handle.
func (t *turn) adminErr(ctx context.Context, err error, action authz.Action) error {
	switch {
	case errors.Is(err, authz.ErrDenied):
		return t.deny(ctx, action)
	case errors.Is(err, authz.ErrLastAdmin):
		return t.notify(ctx, msgLastAdmin)
	case errors.Is(err, authz.ErrProtectedAdmin):
		return t.notify(ctx, msgProtected)
	case errors.Is(err, administration.ErrUnknownGroup):
		return t.notify(ctx, msgUnknownGroup)
	}
	return err
}

package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/filescout/internal/app/chat"
	"github.com/dalemusser/filescout/internal/app/store/accounts"
	"github.com/dalemusser/filescout/internal/app/system/authutil"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"github.com/dalemusser/filescout/internal/app/system/normalize"
	"github.com/dalemusser/filescout/internal/domain/models"
	"go.uber.org/zap"
)

func (t *turn) start(ctx context.Context) error {
	wasIn := t.sess.Authenticated()
	if err := t.move(ctx, fresh(models.PhaseUnauthenticated).WithRole(models.RoleNone)); err != nil {
		return err
	}
	if wasIn {
		t.m.audit.Logout(ctx, t.in.CallerID, t.sess.Phone)
	}
	return t.reply(ctx, msgStart, loginKeyboard())
}

// logout drops role and scratch data but keeps the claimed phone so the
// plain login button can go straight to the password prompt.
func (t *turn) logout(ctx context.Context) error {
	wasIn := t.sess.Authenticated()
	if err := t.move(ctx, fresh(models.PhaseUnauthenticated).WithRole(models.RoleNone)); err != nil {
		return err
	}
	if wasIn {
		t.m.audit.Logout(ctx, t.in.CallerID, t.sess.Phone)
	}
	kb := loginKeyboard()
	if t.sess.Phone != "" {
		kb = reloginKeyboard()
	}
	return t.reply(ctx, msgLogout, kb)
}

func (t *turn) contact(ctx context.Context) error {
	if t.sess.Authenticated() {
		return t.reply(ctx, msgAlreadyIn, nil)
	}
	c := t.in.Contact
	if c.UserID != 0 && c.UserID != t.in.CallerID {
		return t.reply(ctx, msgForeignContact, loginKeyboard())
	}
	phone := normalize.Phone(c.Phone)
	if len(phone) < normalize.MinPhoneDigits {
		return t.reply(ctx, msgInvalidPhone, loginKeyboard())
	}

	p := fresh(models.PhaseAwaitingPassword).WithPhone(phone).WithRole(models.RoleNone)
	if err := t.move(ctx, p); err != nil {
		return err
	}
	return t.send(ctx, chat.Outbound{Text: msgContactAccepted(phone), HTML: true, RemoveKeyboard: true})
}

func (t *turn) unauthenticated(ctx context.Context, text string) error {
	if text != btnLogin {
		return t.reply(ctx, msgPressLoginFirst, loginKeyboard())
	}
	if t.sess.Phone == "" {
		return t.reply(ctx, msgShareContact, loginKeyboard())
	}
	if err := t.move(ctx, fresh(models.PhaseAwaitingPassword).WithRole(models.RoleNone)); err != nil {
		return err
	}
	return t.send(ctx, chat.Outbound{Text: msgEnterPassword, HTML: true, RemoveKeyboard: true})
}

// password verifies text against the claimed phone. Admin accounts are
// checked first; a phone present in both tables logs in as admin.
func (t *turn) password(ctx context.Context, text string) error {
	phone := t.sess.Phone
	if phone == "" {
		if err := t.move(ctx, fresh(models.PhaseUnauthenticated)); err != nil {
			return err
		}
		return t.reply(ctx, msgPressLoginFirst, loginKeyboard())
	}
	if text == "" || text == btnLogin {
		return t.reply(ctx, msgEnterPassword, nil)
	}

	sctx, cancel := t.storeCtx(ctx)
	defer cancel()

	known := false
	admin, err := t.m.accounts.GetAdmin(sctx, phone)
	switch {
	case err == nil:
		known = true
		if authutil.CheckPassword(text, admin.Hash) {
			return t.loggedIn(ctx, models.RoleAdmin)
		}
	case !errors.Is(err, accounts.ErrNotFound):
		return fmt.Errorf("lookup admin: %w", err)
	}

	member, err := t.m.accounts.GetMember(sctx, phone)
	switch {
	case err == nil:
		known = true
		if authutil.CheckPassword(text, member.Hash) {
			return t.loggedIn(ctx, models.RoleMember)
		}
	case !errors.Is(err, accounts.ErrNotFound):
		return fmt.Errorf("lookup member: %w", err)
	}

	if known {
		t.m.audit.LoginFailedWrongPassword(ctx, t.in.CallerID, phone)
	} else {
		t.m.audit.LoginFailedNotFound(ctx, t.in.CallerID, phone)
	}
	t.m.metrics.RecordLogin(metrics.LoginFailed)
	return t.reply(ctx, msgLoginFailed, nil)
}

func (t *turn) loggedIn(ctx context.Context, role models.Role) error {
	if err := t.move(ctx, fresh(models.PhaseAuthenticated).WithRole(role)); err != nil {
		return err
	}
	phone := t.sess.Phone

	welcome, result := msgWelcomeAdmin, metrics.LoginAdmin
	if role == models.RoleMember {
		welcome, result = msgWelcomeMember, metrics.LoginMember
		sctx, cancel := t.storeCtx(ctx)
		err := t.m.accounts.BindChat(sctx, phone, t.in.ChatID)
		cancel()
		if err != nil {
			t.log.Warn("chat binding not saved", zap.String("phone", phone), zap.Error(err))
		}
	}

	t.m.audit.LoginSuccess(ctx, t.in.CallerID, phone, string(role))
	t.m.metrics.RecordLogin(result)
	return t.reply(ctx, welcome, startKeyboard(role))
}

// verify reloads the caller's account so that deleted accounts lose their
// privileges on the very next turn. It fills t.subj and reports whether the
// turn may continue.
func (t *turn) verify(ctx context.Context) (bool, error) {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()

	phone := t.sess.Phone
	var err error
	switch t.sess.Role {
	case models.RoleAdmin:
		if _, err = t.m.accounts.GetAdmin(sctx, phone); err == nil {
			t.subj = authz.Subject{Role: models.RoleAdmin, Phone: phone}
			return true, nil
		}
	case models.RoleMember:
		var m models.Member
		if m, err = t.m.accounts.GetMember(sctx, phone); err == nil {
			t.subj = authz.Subject{Role: models.RoleMember, Phone: phone, Group: m.Group}
			return true, nil
		}
	default:
		err = accounts.ErrNotFound
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return false, fmt.Errorf("recheck account: %w", err)
	}
	return false, t.demote(ctx)
}

// demote ends a session whose account no longer exists.
func (t *turn) demote(ctx context.Context) error {
	role, phone := t.sess.Role, t.sess.Phone
	sctx, cancel := t.storeCtx(ctx)
	err := t.m.sessions.Clear(sctx, t.in.CallerID)
	cancel()
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	t.sess = models.Session{CallerID: t.in.CallerID, Phase: models.PhaseUnauthenticated}
	t.log.Info("session demoted", zap.String("phone", phone), zap.String("role", string(role)))
	t.m.audit.SessionDemoted(ctx, t.in.CallerID, phone, string(role))

	if t.in.IsCallback() {
		if err := t.answer(ctx, msgDemoted); err != nil {
			return err
		}
	}
	return t.reply(ctx, msgDemoted, loginKeyboard())
}

// Package conversation is the per-caller session state machine. Each
// inbound event is one turn: load the session, route on phase and input,
// perform the effect, persist the next phase and reply.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/filescout/internal/app/administration"
	"github.com/dalemusser/filescout/internal/app/chat"
	"github.com/dalemusser/filescout/internal/app/directory"
	"github.com/dalemusser/filescout/internal/app/store/audit"
	"github.com/dalemusser/filescout/internal/app/store/sessions"
	"github.com/dalemusser/filescout/internal/app/system/auditlog"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"github.com/dalemusser/filescout/internal/app/system/timeouts"
	"github.com/dalemusser/filescout/internal/domain/models"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// SessionStore persists conversation state per caller.
type SessionStore interface {
	Get(ctx context.Context, callerID int64) (models.Session, error)
	Update(ctx context.Context, callerID int64, p sessions.Patch) (models.Session, error)
	Clear(ctx context.Context, callerID int64) error
}

// Accounts is the slice of the account repository needed for login and
// privilege re-checks.
type Accounts interface {
	GetAdmin(ctx context.Context, phone string) (models.Admin, error)
	GetMember(ctx context.Context, phone string) (models.Member, error)
	BindChat(ctx context.Context, phone string, chatID int64) error
}

// Directory resolves folder names to listings.
type Directory interface {
	Resolve(ctx context.Context, name, scope string) (directory.Listing, error)
}

// History returns recent audit events that name an account.
type History interface {
	GetByPhone(ctx context.Context, phone string, limit int64) ([]audit.Event, error)
}

// Deps are the collaborators of a Machine. Audit, History and Metrics may
// be nil.
type Deps struct {
	Sessions  SessionStore
	Accounts  Accounts
	Directory Directory
	Admin     *administration.Service
	Messenger chat.Messenger
	Audit     *auditlog.Logger
	History   History
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// Machine handles turns. It keeps no per-caller state in memory; callers
// must not run two turns for the same caller concurrently.
type Machine struct {
	sessions SessionStore
	accounts Accounts
	dir      Directory
	admin    *administration.Service
	out      chat.Messenger
	audit    *auditlog.Logger
	history  History
	metrics  *metrics.Metrics
	log      *zap.Logger

	// sanitize escapes names from the file store before they are embedded
	// in HTML replies.
	sanitize *bluemonday.Policy
}

func New(d Deps) *Machine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		sessions: d.Sessions,
		accounts: d.Accounts,
		dir:      d.Directory,
		admin:    d.Admin,
		out:      d.Messenger,
		audit:    d.Audit,
		history:  d.History,
		metrics:  d.Metrics,
		log:      log,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Handle runs one turn for in. A returned error has already been logged
// and answered with a generic message; it is returned for the caller's
// bookkeeping only.
func (m *Machine) Handle(ctx context.Context, in chat.Inbound) error {
	start := time.Now()
	turnID := uuid.NewString()
	ctx = auditlog.WithTurnID(ctx, turnID)

	kind := metrics.KindMessage
	if in.IsCallback() {
		kind = metrics.KindCallback
	}

	t := &turn{
		m:   m,
		in:  in,
		log: m.log.With(zap.String("turn_id", turnID), zap.Int64("caller_id", in.CallerID)),
	}

	err := t.run(ctx)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		t.log.Error("turn failed",
			zap.String("kind", kind),
			zap.String("phase", string(t.sess.Phase)),
			zap.Error(err))
		t.fail(ctx)
	}
	m.metrics.RecordTurn(kind, outcome, time.Since(start))
	return err
}

// turn is the working state of one Handle call.
type turn struct {
	m    *Machine
	in   chat.Inbound
	log  *zap.Logger
	sess models.Session

	// subj is set by verify and only meaningful after it returned true.
	subj authz.Subject
}

func (t *turn) run(ctx context.Context) error {
	if err := t.load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if t.in.IsCallback() {
		return t.callback(ctx)
	}

	text := strings.TrimSpace(t.in.Text)
	switch {
	case text == cmdStart:
		return t.start(ctx)
	case text == btnLogout:
		return t.logout(ctx)
	case t.in.Contact != nil:
		return t.contact(ctx)
	}

	switch t.sess.Phase {
	case models.PhaseUnauthenticated:
		return t.unauthenticated(ctx, text)
	case models.PhaseAwaitingPassword:
		return t.password(ctx, text)
	}

	if !t.sess.Authenticated() {
		t.log.Warn("session in authenticated phase without a role; resetting",
			zap.String("phase", string(t.sess.Phase)))
		if err := t.move(ctx, fresh(models.PhaseUnauthenticated).WithRole(models.RoleNone)); err != nil {
			return err
		}
		return t.reply(ctx, msgPressLoginFirst, loginKeyboard())
	}

	ok, err := t.verify(ctx)
	if err != nil || !ok {
		return err
	}
	return t.authenticated(ctx, text)
}

// authenticated routes a message from a verified caller. Menu labels take
// precedence over whatever the current phase expects.
func (t *turn) authenticated(ctx context.Context, text string) error {
	switch text {
	case btnSearch:
		return t.startBrowse(ctx)
	case btnLogin:
		return t.reply(ctx, msgAlreadyIn, startKeyboard(t.subj.Role))
	}
	if _, ok := menuActions[text]; ok {
		return t.adminMenu(ctx, text)
	}

	if phase := t.sess.Phase; phase.AdminSubflow() {
		if !t.subj.IsAdmin() {
			t.log.Warn("non-admin session in admin sub-flow", zap.String("phase", string(phase)))
			if err := t.move(ctx, fresh(models.PhaseAuthenticated)); err != nil {
				return err
			}
			return t.deny(ctx, authz.Action(phase))
		}
		// Any input keeps the sub-flow alive for the stale sweep.
		if err := t.move(ctx, sessions.Patch{}); err != nil {
			return err
		}
	}

	switch t.sess.Phase {
	case models.PhaseBrowsingFolder:
		return t.browse(ctx, text)
	case models.PhaseAddingAdminPhone:
		return t.collectPhone(ctx, text, authz.ActionAddAdmin)
	case models.PhaseAddingUserPhone:
		return t.collectPhone(ctx, text, authz.ActionAddUser)
	case models.PhaseSearchingUserPhone:
		return t.searchUser(ctx, text)
	case models.PhaseComposingBroadcast:
		return t.composeBroadcast(ctx, text)
	case models.PhaseAddingAdminConfirm, models.PhaseAddingUserSelectGroup:
		return t.reply(ctx, msgUseButtons, nil)
	}
	return t.reply(ctx, msgUseKeyboard, startKeyboard(t.subj.Role))
}

// fresh is a patch to phase p that drops all scratch data.
func fresh(p models.Phase) sessions.Patch {
	patch := sessions.To(p)
	patch.ClearScratch = true
	return patch
}

func (t *turn) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(ctx, timeouts.Store(), t.log, "conversation.store")
}

func (t *turn) load(ctx context.Context) error {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()
	sess, err := t.m.sessions.Get(ctx, t.in.CallerID)
	if err != nil {
		return err
	}
	t.sess = sess
	return nil
}

// move persists p and keeps t.sess in step with the stored document.
func (t *turn) move(ctx context.Context, p sessions.Patch) error {
	ctx, cancel := t.storeCtx(ctx)
	defer cancel()
	sess, err := t.m.sessions.Update(ctx, t.in.CallerID, p)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	t.sess = sess
	return nil
}

func (t *turn) send(ctx context.Context, out chat.Outbound) error {
	if out.ChatID == 0 {
		out.ChatID = t.in.ChatID
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Send())
	defer cancel()
	if err := t.m.out.Send(ctx, out); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// reply sends an HTML message. A nil keyboard leaves the current one.
func (t *turn) reply(ctx context.Context, text string, kb [][]chat.ReplyButton) error {
	return t.send(ctx, chat.Outbound{Text: text, HTML: true, Reply: kb})
}

// edit rewrites the message the pressed button belongs to.
func (t *turn) edit(ctx context.Context, text string, inline [][]chat.InlineButton) error {
	return t.send(ctx, chat.Outbound{
		Text:          text,
		HTML:          true,
		Inline:        inline,
		EditMessageID: t.in.MessageID,
	})
}

func (t *turn) answer(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Send())
	defer cancel()
	if err := t.m.out.AnswerCallback(ctx, t.in.CallbackID, text); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// notify answers a button press or replies to a message.
func (t *turn) notify(ctx context.Context, text string) error {
	if t.in.IsCallback() {
		return t.answer(ctx, stripTags(text))
	}
	return t.reply(ctx, text, nil)
}

// fail tells the caller something went wrong. Errors are only logged.
func (t *turn) fail(ctx context.Context) {
	if err := t.notify(ctx, msgInternal); err != nil {
		t.log.Warn("could not report failure to caller", zap.Error(err))
	}
}

// deny is the single response to any unauthorized request.
func (t *turn) deny(ctx context.Context, action authz.Action) error {
	t.m.audit.AccessDenied(ctx, t.in.CallerID, t.sess.Phone, string(action))
	if t.in.IsCallback() {
		return t.answer(ctx, msgDenied)
	}
	var kb [][]chat.ReplyButton
	if t.subj.Authenticated() {
		kb = startKeyboard(t.subj.Role)
	}
	return t.reply(ctx, msgDenied, kb)
}

// stripTags drops the few HTML tags used in replies; callback answers are
// plain text.
func stripTags(s string) string {
	r := strings.NewReplacer("<b>", "", "</b>", "")
	return r.Replace(s)
}

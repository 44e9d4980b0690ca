// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/filescout/internal/app/store/audit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, demotion).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for administration events (account CRUD, group changes, broadcasts).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil, in which case events
// only reach zap.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type turnKey struct{}

// WithTurnID attaches a conversation turn id to ctx. Events logged with the
// returned context carry it, which ties audit rows to turn log lines.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnKey{}, id)
}

// TurnID returns the turn id stored in ctx, or "".
func TurnID(ctx context.Context) string {
	id, _ := ctx.Value(turnKey{}).(string)
	return id
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.TurnID != "" {
		fields = append(fields, zap.String("turn_id", event.TurnID))
	}
	if event.CallerID != 0 {
		fields = append(fields, zap.Int64("caller_id", event.CallerID))
	}
	if event.ActorPhone != "" {
		fields = append(fields, zap.String("actor_phone", event.ActorPhone))
	}
	if event.TargetPhone != "" {
		fields = append(fields, zap.String("target_phone", event.TargetPhone))
	}
	if event.Group != "" {
		fields = append(fields, zap.String("group", event.Group))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if event.TurnID == "" {
		event.TurnID = TurnID(ctx)
	}

	if (setting == "all" || setting == "log") && l.zapLog != nil {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a verified login.
func (l *Logger) LoginSuccess(ctx context.Context, callerID int64, phone, role string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventLoginSuccess,
		CallerID:   callerID,
		ActorPhone: phone,
		Success:    true,
		Details:    map[string]string{"role": role},
	})
}

// LoginFailedNotFound logs a password attempt for a phone with no account.
func (l *Logger) LoginFailedNotFound(ctx context.Context, callerID int64, phone string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedNotFound,
		CallerID:      callerID,
		ActorPhone:    phone,
		FailureReason: "account not found",
	})
}

// LoginFailedWrongPassword logs a password mismatch.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, callerID int64, phone string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		CallerID:      callerID,
		ActorPhone:    phone,
		FailureReason: "wrong password",
	})
}

// Logout logs an explicit logout.
func (l *Logger) Logout(ctx context.Context, callerID int64, phone string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventLogout,
		CallerID:   callerID,
		ActorPhone: phone,
		Success:    true,
	})
}

// SessionDemoted logs a session that lost its role because the account
// behind it no longer exists.
func (l *Logger) SessionDemoted(ctx context.Context, callerID int64, phone, role string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSessionDemoted,
		CallerID:      callerID,
		ActorPhone:    phone,
		FailureReason: "account removed",
		Details:       map[string]string{"role": role},
	})
}

// --- Admin Events ---

// AdminCreated logs a new admin account.
func (l *Logger) AdminCreated(ctx context.Context, actorPhone, targetPhone string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventAdminCreated,
		ActorPhone:  actorPhone,
		TargetPhone: targetPhone,
		Success:     true,
	})
}

// AdminDeleted logs a removed admin account.
func (l *Logger) AdminDeleted(ctx context.Context, actorPhone, targetPhone string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventAdminDeleted,
		ActorPhone:  actorPhone,
		TargetPhone: targetPhone,
		Success:     true,
	})
}

// MemberCreated logs a new member account.
func (l *Logger) MemberCreated(ctx context.Context, actorPhone, targetPhone, group string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventMemberCreated,
		ActorPhone:  actorPhone,
		TargetPhone: targetPhone,
		Group:       group,
		Success:     true,
	})
}

// MemberDeleted logs a removed member account.
func (l *Logger) MemberDeleted(ctx context.Context, actorPhone, targetPhone string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventMemberDeleted,
		ActorPhone:  actorPhone,
		TargetPhone: targetPhone,
		Success:     true,
	})
}

// MemberGroupChanged logs a group reassignment.
func (l *Logger) MemberGroupChanged(ctx context.Context, actorPhone, targetPhone, from, to string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventMemberGroupChanged,
		ActorPhone:  actorPhone,
		TargetPhone: targetPhone,
		Group:       to,
		Success:     true,
		Details:     map[string]string{"from_group": from},
	})
}

// BroadcastSent logs a completed group broadcast with its delivery counts.
func (l *Logger) BroadcastSent(ctx context.Context, actorPhone, group, kind string, sent, skipped, failed int) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventBroadcastSent,
		ActorPhone: actorPhone,
		Group:      group,
		Success:    failed == 0,
		Details: map[string]string{
			"kind":    kind,
			"sent":    strconv.Itoa(sent),
			"skipped": strconv.Itoa(skipped),
			"failed":  strconv.Itoa(failed),
		},
	})
}

// --- Security Events ---

// AccessDenied logs a refused action. The caller only ever sees a generic
// denial; the action name is kept here for operators.
func (l *Logger) AccessDenied(ctx context.Context, callerID int64, phone, action string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventAccessDenied,
		CallerID:      callerID,
		ActorPhone:    phone,
		FailureReason: "not permitted",
		Details:       map[string]string{"action": action},
	})
}

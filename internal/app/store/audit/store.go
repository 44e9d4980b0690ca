// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth     = "auth"
	CategoryAdmin    = "admin"
	CategorySecurity = "security"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedNotFound      = "login_failed_account_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLogout                   = "logout"
	EventSessionDemoted           = "session_demoted"
)

// Admin event types
const (
	EventAdminCreated       = "admin_created"
	EventAdminDeleted       = "admin_deleted"
	EventMemberCreated      = "member_created"
	EventMemberDeleted      = "member_deleted"
	EventMemberGroupChanged = "member_group_changed"
	EventBroadcastSent      = "broadcast_sent"
)

// Security event types
const (
	EventAccessDenied = "access_denied"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`
	TurnID    string             `bson:"turn_id,omitempty"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	CallerID    int64  `bson:"caller_id,omitempty"`    // chat-side caller
	ActorPhone  string `bson:"actor_phone,omitempty"`  // who performed the action
	TargetPhone string `bson:"target_phone,omitempty"` // affected account
	Group       string `bson:"group,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// GetByPhone returns up to limit of the most recent events where phone is
// the actor or the target, newest first.
func (s *Store) GetByPhone(ctx context.Context, phone string, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	filter := bson.M{"$or": bson.A{
		bson.M{"actor_phone": phone},
		bson.M{"target_phone": phone},
	}}
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

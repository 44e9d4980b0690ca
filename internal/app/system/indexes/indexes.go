// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureAdmins(ctx, db); err != nil {
		problems = append(problems, "admins: "+err.Error())
	}
	if err := ensureMembers(ctx, db); err != nil {
		problems = append(problems, "members: "+err.Error())
	}
	if err := ensureSessions(ctx, db); err != nil {
		problems = append(problems, "sessions: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// duplicatesHint points the operator at an aggregation that lists the
// values blocking a unique index.
func duplicatesHint(coll, sig string) string {
	field, _, ok := strings.Cut(sig, ":")
	if !ok || strings.Contains(sig, ",") {
		return ""
	}
	return fmt.Sprintf(". Example finder:\ndb.%s.aggregate([{ $group: { _id: \"$%s\", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])",
		coll, field)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
		cur.Close(ctx)
	}

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))
		unique := desiredUnique != nil && *desiredUnique

		start := time.Now()

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}

			// Name or options differ: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			if isDuplicateKeyErr(err) && unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s",
					coll.Name(), desiredName, duplicatesHint(coll.Name(), desiredSig)))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", unique),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", created),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groups_nameci"),
		},
	})
}

func ensureAdmins(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("admins"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_admins_phone"),
		},
	})
}

func ensureMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("members"), []mongo.IndexModel{
		// 1) Phone is the account identifier
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_members_phone"),
		},
		// 2) Broadcast fan-out and group listings
		{
			Keys:    bson.D{{Key: "group", Value: 1}, {Key: "phone", Value: 1}},
			Options: options.Index().SetName("idx_members_group_phone"),
		},
		// 3) A chat is bound to at most one member
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_members_chat").SetPartialFilterExpression(bson.M{"chat_id": bson.M{"$exists": true}}),
		},
	})
}

func ensureSessions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("sessions"), []mongo.IndexModel{
		// stale sub-flow sweep
		{
			Keys:    bson.D{{Key: "phase", Value: 1}, {Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("idx_sessions_phase_updated"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "actor_phone", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_ts"),
		},
		{
			Keys:    bson.D{{Key: "target_phone", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_target_ts"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_ts"),
		},
	})
}

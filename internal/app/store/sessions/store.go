// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists conversation state keyed by caller id.
//
// Each caller's turns are serialized by the transport dispatcher, so the
// store only needs read-your-own-writes per caller. Concurrent partial
// updates for the same caller are last-writer-wins per field.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// Patch is a partial update of a session. Nil pointers leave a field
// untouched. An empty Phone or Role removes the field.
type Patch struct {
	Phase *models.Phase
	Phone *string
	Role  *models.Role

	// Scratch changes. ClearScratch drops every scratch value before Set is
	// applied.
	Set          map[string]string
	Unset        []string
	ClearScratch bool
}

// To returns a patch that only moves the session to phase p.
func To(p models.Phase) Patch {
	return Patch{Phase: &p}
}

// WithPhone sets the claimed phone on the patch.
func (p Patch) WithPhone(phone string) Patch {
	p.Phone = &phone
	return p
}

// WithRole sets the role on the patch.
func (p Patch) WithRole(r models.Role) Patch {
	p.Role = &r
	return p
}

// Apply mutates sess as Update would. Used to keep in-memory copies in step
// with the stored document.
func (p Patch) Apply(sess *models.Session) {
	if p.Phase != nil {
		sess.Phase = *p.Phase
	}
	if p.Phone != nil {
		sess.Phone = *p.Phone
	}
	if p.Role != nil {
		sess.Role = *p.Role
	}
	if p.ClearScratch {
		sess.Scratch = nil
	}
	for _, k := range p.Unset {
		delete(sess.Scratch, k)
	}
	if len(p.Set) > 0 {
		if sess.Scratch == nil {
			sess.Scratch = make(map[string]string, len(p.Set))
		}
		for k, v := range p.Set {
			sess.Scratch[k] = v
		}
	}
	if len(sess.Scratch) == 0 {
		sess.Scratch = nil
	}
}

func (p Patch) update(now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	unset := bson.M{}

	if p.Phase != nil {
		set["phase"] = *p.Phase
	}
	if p.Phone != nil {
		if *p.Phone == "" {
			unset["phone"] = ""
		} else {
			set["phone"] = *p.Phone
		}
	}
	if p.Role != nil {
		if *p.Role == models.RoleNone {
			unset["role"] = ""
		} else {
			set["role"] = *p.Role
		}
	}

	if p.ClearScratch {
		if len(p.Set) > 0 {
			set["scratch"] = p.Set
		} else {
			unset["scratch"] = ""
		}
	} else {
		for _, k := range p.Unset {
			if _, overwritten := p.Set[k]; !overwritten {
				unset["scratch."+k] = ""
			}
		}
		for k, v := range p.Set {
			set["scratch."+k] = v
		}
	}

	upd := bson.M{"$set": set}
	if p.Phase == nil {
		upd["$setOnInsert"] = bson.M{"phase": models.PhaseUnauthenticated}
	}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	return upd
}

// Get returns the session for callerID. A caller seen for the first time
// gets a fresh unauthenticated session; nothing is written until Update.
func (s *Store) Get(ctx context.Context, callerID int64) (models.Session, error) {
	var sess models.Session
	err := s.c.FindOne(ctx, bson.M{"_id": callerID}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Session{CallerID: callerID, Phase: models.PhaseUnauthenticated}, nil
	}
	if err != nil {
		return models.Session{}, err
	}
	sess.Role = authz.ParseRole(string(sess.Role))
	if !sess.Phase.Valid() {
		sess.Phase = models.PhaseUnauthenticated
		sess.Role = models.RoleNone
	}
	return sess, nil
}

// Update applies p to the caller's session, creating it if needed, and
// returns the stored result.
func (s *Store) Update(ctx context.Context, callerID int64, p Patch) (models.Session, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var sess models.Session
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": callerID}, p.update(time.Now().UTC()), opts).Decode(&sess)
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// Clear removes everything stored for the caller.
func (s *Store) Clear(ctx context.Context, callerID int64) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": callerID})
	return err
}

// ResetStaleSubflows returns admin sessions that have sat in a sub-flow
// phase longer than olderThan to the authenticated phase and drops their
// scratch data. Returns the number of sessions reset.
func (s *Store) ResetStaleSubflows(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"phase": bson.M{"$in": []models.Phase{
				models.PhaseAddingAdminPhone,
				models.PhaseAddingAdminConfirm,
				models.PhaseAddingUserPhone,
				models.PhaseAddingUserSelectGroup,
				models.PhaseSearchingUserPhone,
				models.PhaseComposingBroadcast,
			}},
			"role":       models.RoleAdmin,
			"updated_at": bson.M{"$lt": cutoff},
		},
		bson.M{
			"$set":   bson.M{"phase": models.PhaseAuthenticated, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"scratch": ""},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountAuthenticated returns how many stored sessions carry a verified
// role in a post-login phase, matching models.Session.Authenticated.
func (s *Store) CountAuthenticated(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"role": bson.M{"$in": []models.Role{models.RoleAdmin, models.RoleMember}},
		"phase": bson.M{"$nin": []models.Phase{
			models.PhaseUnauthenticated,
			models.PhaseAwaitingPassword,
		}},
	})
}

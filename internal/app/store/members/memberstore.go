// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/filescout/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicatePhone is returned when a member with the phone already exists.
var ErrDuplicatePhone = errors.New("a member with this phone already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// boundChatIndex keeps chat ids unique among bound members only.
var boundChatIndex = options.Index().
	SetName("uniq_members_chat").
	SetUnique(true).
	SetPartialFilterExpression(bson.M{"chat_id": bson.M{"$exists": true}})

// Create inserts a new member of group. The group is not checked here;
// callers resolve it first.
func (s *Store) Create(ctx context.Context, phone, hash, group string) (models.Member, error) {
	now := time.Now().UTC()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		Phone:     phone,
		Hash:      hash,
		Group:     group,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, ErrDuplicatePhone
		}
		return models.Member{}, err
	}
	return m, nil
}

// GetByPhone returns mongo.ErrNoDocuments if no member has the phone.
func (s *Store) GetByPhone(ctx context.Context, phone string) (models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"phone": phone}).Decode(&m); err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// Delete removes the member and with it any chat binding.
// Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, phone string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"phone": phone})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SetGroup moves the member to group. Returns mongo.ErrNoDocuments if the
// member does not exist.
func (s *Store) SetGroup(ctx context.Context, phone, group string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"phone": phone},
		bson.M{"$set": bson.M{"group": group, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// BindChat records chatID as the member's delivery address. A chat belongs
// to at most one member, so any other member bound to the same chat loses
// the binding. Returns mongo.ErrNoDocuments if the member does not exist.
//
// The two writes are not atomic. If the second fails, the previous holder
// stays unbound until its next login; no transaction is used since that
// needs a replica set.
func (s *Store) BindChat(ctx context.Context, phone string, chatID int64) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"phone": phone}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	if _, err := s.c.UpdateMany(ctx,
		bson.M{"chat_id": chatID, "phone": bson.M{"$ne": phone}},
		bson.M{"$unset": bson.M{"chat_id": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	); err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"phone": phone},
		bson.M{"$set": bson.M{"chat_id": chatID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// List returns all members ordered by group then phone.
func (s *Store) List(ctx context.Context) ([]models.Member, error) {
	return s.find(ctx, bson.M{})
}

// ListByGroup returns the members of group ordered by phone.
func (s *Store) ListByGroup(ctx context.Context, group string) ([]models.Member, error) {
	return s.find(ctx, bson.M{"group": group})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "group", Value: 1}, {Key: "phone", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/filescout/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateGroupName = errors.New("a group with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// Ensure creates the group if it does not exist yet. Existing groups are
// left untouched, so calling it on every start is safe.
func (s *Store) Ensure(ctx context.Context, name string) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"name_ci": text.Fold(name)},
		bson.M{"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"name":       name,
			"name_ci":    text.Fold(name),
			"created_at": now,
			"updated_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && wafflemongo.IsDup(err) {
		// lost an upsert race with another instance; the group exists
		return nil
	}
	return err
}

func (s *Store) Create(ctx context.Context, name string) (models.Group, error) {
	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupName
		}
		return models.Group{}, err
	}
	return g, nil
}

// GetByName looks a group up by its short name, ignoring case.
// Returns mongo.ErrNoDocuments when there is none.
func (s *Store) GetByName(ctx context.Context, name string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name)}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Exists reports whether a group with name exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"name_ci": text.Fold(name)}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns all groups sorted by name.
func (s *Store) List(ctx context.Context) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// internal/app/store/admins/adminstore.go
package adminstore

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

// ErrDuplicatePhone is returned when an admin with the phone already exists.
var ErrDuplicatePhone = errors.New("an admin with this phone already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("admins")}
}

// Create inserts a new admin. phone must already be normalized and hash
// must be a bcrypt hash.
func (s *Store) Create(ctx context.Context, phone, hash string) (models.Admin, error) {
	now := time.Now().UTC()
	a := models.Admin{
		ID:        primitive.NewObjectID(),
		Phone:     phone,
		Hash:      hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Admin{}, ErrDuplicatePhone
		}
		return models.Admin{}, err
	}
	return a, nil
}

// GetByPhone returns mongo.ErrNoDocuments if no admin has the phone.
func (s *Store) GetByPhone(ctx context.Context, phone string) (models.Admin, error) {
	var a models.Admin
	if err := s.c.FindOne(ctx, bson.M{"phone": phone}).Decode(&a); err != nil {
		return models.Admin{}, err
	}
	return a, nil
}

// Delete removes the admin with phone. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, phone string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"phone": phone})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// List returns all admins ordered by creation time.
func (s *Store) List(ctx context.Context) ([]models.Admin, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Admin
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

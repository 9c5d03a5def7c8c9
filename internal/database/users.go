// Package database is the MongoDB-backed credential store.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"authchat/internal/models"
)

// opTimeout bounds every single store call.
const opTimeout = 5 * time.Second

var (
	// ErrNotFound is returned when no user matches the query.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("user already exists")
)

// UserStore persists users in a MongoDB collection.
type UserStore struct {
	col *mongo.Collection
	now func() time.Time
}

// NewUserStore returns a store backed by col.
func NewUserStore(col *mongo.Collection) *UserStore {
	return &UserStore{col: col, now: time.Now}
}

// EnsureIndexes creates the unique email index. It is idempotent.
// Create relies on this index to reject duplicate signups atomically.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("error creating email index: %w", err)
	}
	return nil
}

// Create inserts u. It assigns an ID when u has none and returns
// ErrDuplicateEmail when the email is already taken.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

// FindByEmail returns the user with the given email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// FindByResetToken returns the user with the given email whose pending reset
// token equals token.
func (s *UserStore) FindByResetToken(ctx context.Context, email, token string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email, "reset_token": token})
}

// SetResetToken stores a pending reset on the user, replacing any earlier one.
func (s *UserStore) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"reset_token":        token,
			"reset_token_expiry": expiry,
			"updated_at":         s.now().UTC(),
		},
	}
	return s.updateOne(ctx, bson.M{"_id": id}, update)
}

// ClearResetToken removes the pending reset if it still holds token.
func (s *UserStore) ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{
		"$set":   bson.M{"updated_at": s.now().UTC()},
		"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
	}
	return s.updateOne(ctx, bson.M{"_id": id, "reset_token": token}, update)
}

// CompleteReset replaces the password hash and clears the pending reset in a
// single write, provided the stored token still equals token. It returns
// ErrNotFound when the token was superseded or already consumed.
func (s *UserStore) CompleteReset(ctx context.Context, id primitive.ObjectID, token, passwordHash string) error {
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updated_at": s.now().UTC()},
		"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
	}
	return s.updateOne(ctx, bson.M{"_id": id, "reset_token": token}, update)
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) updateOne(ctx context.Context, filter, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

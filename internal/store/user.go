package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"geoponto/internal/model"
)

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(ctx context.Context, db *MongoDB) (*UserStore, error) {
	users := db.Collection("users")

	if _, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "role", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create users indexes: %w", err)
	}

	return &UserStore{coll: users}, nil
}

// GetByEmail returns the profile registered for email, or nil if not found.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	var user model.UserProfile
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Create inserts a new profile.
func (s *UserStore) Create(ctx context.Context, user *model.UserProfile) error {
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CountByRole counts a company's users with the given role.
func (s *UserStore) CountByRole(ctx context.Context, companyID string, role model.UserRole) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"company_id": companyID, "role": role})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

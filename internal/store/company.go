package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"geoponto/internal/model"
)

type CompanyStore struct {
	coll *mongo.Collection
}

func NewCompanyStore(db *MongoDB) *CompanyStore {
	return &CompanyStore{coll: db.Collection("companies")}
}

// Get returns the company configuration, or nil if not found.
func (s *CompanyStore) Get(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &c, nil
}

// Save replaces the company configuration, creating it if needed.
func (s *CompanyStore) Save(ctx context.Context, c *model.Company) error {
	c.UpdatedAt = time.Now()
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

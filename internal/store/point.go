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

type PointStore struct {
	coll *mongo.Collection
}

func NewPointStore(ctx context.Context, db *MongoDB) (*PointStore, error) {
	points := db.Collection("point_records")

	if _, err := points.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("create point_records indexes: %w", err)
	}

	return &PointStore{coll: points}, nil
}

// Insert appends a record. Records are never updated afterwards.
func (s *PointStore) Insert(ctx context.Context, record *model.PointRecord) error {
	record.CreatedAt = time.Now()
	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert point record: %w", err)
	}
	return nil
}

// ListByUser returns a user's records newest first. A limit <= 0 means no limit.
func (s *PointStore) ListByUser(ctx context.Context, userID string, limit int) ([]*model.PointRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{"user_id": userID}, opts)
}

// ListByUserBetween returns a user's records in [from, to), newest first.
func (s *PointStore) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.PointRecord, error) {
	filter := bson.M{
		"user_id":   userID,
		"timestamp": bson.M{"$gte": from, "$lt": to},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
}

// ListByCompanyBetween returns a company's records in [from, to), newest first.
func (s *PointStore) ListByCompanyBetween(ctx context.Context, companyID string, from, to time.Time) ([]*model.PointRecord, error) {
	filter := bson.M{
		"company_id": companyID,
		"timestamp":  bson.M{"$gte": from, "$lt": to},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
}

func (s *PointStore) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*model.PointRecord, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find point records: %w", err)
	}
	var results []*model.PointRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode point records: %w", err)
	}
	return results, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

type mongoReviews struct {
	collection *mongo.Collection
}

// NewReviewStore returns a ReviewStore backed by the reviews collection.
func NewReviewStore(db *mongo.Database) ReviewStore {
	return &mongoReviews{collection: db.Collection("reviews")}
}

func (s *mongoReviews) Insert(ctx context.Context, review *models.Review) error {
	now := time.Now()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	if review.Status == "" {
		review.Status = models.ReviewPending
	}

	result, err := s.collection.InsertOne(ctx, review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		review.ID = id
	}
	return nil
}

func (s *mongoReviews) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ReviewStatus, reason string) (*models.Review, error) {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if reason != "" {
		set["rejection_reason"] = reason
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Review
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to set review status: %w", err)
	}
	return &updated, nil
}

func (s *mongoReviews) ListByProduct(ctx context.Context, productID primitive.ObjectID, onlyApproved bool) ([]models.Review, error) {
	filter := bson.M{"product_id": productID}
	if onlyApproved {
		filter["status"] = models.ReviewApproved
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []models.Review
	for cursor.Next(ctx) {
		var review models.Review
		if err := cursor.Decode(&review); err != nil {
			return nil, fmt.Errorf("failed to decode review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return reviews, nil
}

func (s *mongoReviews) AggregateRating(ctx context.Context, productID primitive.ObjectID) (int, float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product_id": productID, "status": models.ReviewApproved}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$product_id",
			"rating": bson.M{"$avg": "$rating"},
			"count":  bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var stats struct {
		Rating float64 `bson:"rating"`
		Count  int     `bson:"count"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&stats); err != nil {
			return 0, 0, fmt.Errorf("failed to decode rating stats: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, 0, fmt.Errorf("cursor error: %w", err)
	}
	return stats.Count, stats.Rating, nil
}

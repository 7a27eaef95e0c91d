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

type mongoProducts struct {
	collection *mongo.Collection
}

// NewProductStore returns a ProductStore backed by the products collection.
func NewProductStore(db *mongo.Database) ProductStore {
	return &mongoProducts{collection: db.Collection("products")}
}

func (s *mongoProducts) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (s *mongoProducts) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make(map[primitive.ObjectID]*models.Product, len(ids))
	for cursor.Next(ctx) {
		var product models.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products[product.ID] = &product
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return products, nil
}

func (s *mongoProducts) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	// The filter admits the decrement only when inventory is untracked,
	// backorders are allowed, or enough stock is on hand. A single $inc keeps
	// concurrent purchases from losing updates.
	filter := bson.M{
		"_id": id,
		"$or": []bson.M{
			{"track_inventory": false},
			{"allow_backorders": true},
			{"stock": bson.M{"$gte": qty}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updated_at": time.Now()},
	}
	return s.adjustStock(ctx, id, filter, update)
}

func (s *mongoProducts) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updated_at": time.Now()},
	}
	return s.adjustStock(ctx, id, filter, update)
}

func (s *mongoProducts) adjustStock(ctx context.Context, id primitive.ObjectID, filter, update bson.M) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		// Distinguish a missing product from a stock shortfall.
		if count, countErr := s.collection.CountDocuments(ctx, bson.M{"_id": id}); countErr == nil && count > 0 {
			return ErrInsufficientStock
		}
		return ErrNotFound
	}

	// Keep the derived status in step with the new stock level.
	if status := updated.Availability(); status != updated.Status {
		_, err = s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
		if err != nil {
			return fmt.Errorf("failed to refresh product status: %w", err)
		}
	}
	return nil
}

func (s *mongoProducts) SetRating(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error {
	update := bson.M{"$set": bson.M{
		"ratings_quantity": quantity,
		"ratings_average":  average,
		"updated_at":       time.Now(),
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set product rating: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

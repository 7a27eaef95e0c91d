package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-storefront/models"
)

type mongoCarts struct {
	collection *mongo.Collection
}

// NewCartStore returns a CartStore backed by the carts collection.
func NewCartStore(db *mongo.Database) CartStore {
	return &mongoCarts{collection: db.Collection("carts")}
}

func ownerFilter(owner models.CartOwner) bson.M {
	if owner.Anonymous() {
		return bson.M{"session_id": owner.SessionID}
	}
	return bson.M{"user_id": owner.UserID}
}

func (s *mongoCarts) GetByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	var cart models.Cart
	err := s.collection.FindOne(ctx, ownerFilter(owner)).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (s *mongoCarts) Insert(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Version = 1

	result, err := s.collection.InsertOne(ctx, cart)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return nil
}

// Update replaces the cart document, guarded by the version the caller read.
// A concurrent writer bumps the version first and this write fails with
// ErrVersionConflict instead of silently clobbering its totals.
func (s *mongoCarts) Update(ctx context.Context, cart *models.Cart) error {
	prev := cart.Version
	cart.Version = prev + 1
	cart.UpdatedAt = time.Now()

	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": cart.ID, "version": prev}, cart)
	if err != nil {
		cart.Version = prev
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		cart.Version = prev
		return ErrVersionConflict
	}
	return nil
}

func (s *mongoCarts) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

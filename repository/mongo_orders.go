package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

type mongoOrders struct {
	collection *mongo.Collection
}

// NewOrderStore returns an OrderStore backed by the orders collection.
func NewOrderStore(db *mongo.Database) OrderStore {
	return &mongoOrders{collection: db.Collection("orders")}
}

func (s *mongoOrders) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (s *mongoOrders) GetByPaymentID(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	err := s.collection.FindOne(ctx, bson.M{"payment_info.transaction_id": transactionID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by payment id: %w", err)
	}
	return &order, nil
}

func (s *mongoOrders) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return orders, nil
}

func (s *mongoOrders) Insert(ctx context.Context, order *models.Order) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	result, err := s.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Two unique indexes can trip here; the index name tells which.
			if strings.Contains(err.Error(), "order_number") {
				return ErrDuplicateOrderNumber
			}
			return ErrDuplicatePayment
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func stampFieldFor(status models.OrderStatus) string {
	switch status {
	case models.OrderProcessing:
		return "processing_at"
	case models.OrderShipped:
		return "shipped_at"
	case models.OrderDelivered:
		return "delivered_at"
	case models.OrderCancelled:
		return "cancelled_at"
	case models.OrderRefunded:
		return "refunded_at"
	}
	return ""
}

func (s *mongoOrders) Transition(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, to models.OrderStatus, details *TransitionDetails) (*models.Order, error) {
	now := time.Now()
	set := bson.M{
		"status":     to,
		"updated_at": now,
	}
	if field := stampFieldFor(to); field != "" {
		set[field] = now
	}
	if details != nil {
		if details.TrackingNumber != "" {
			set["tracking_number"] = details.TrackingNumber
		}
		if details.TrackingURL != "" {
			set["tracking_url"] = details.TrackingURL
		}
		if details.Notes != "" {
			set["notes"] = details.Notes
		}
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Order
	err := s.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to transition order: %w", err)
		}
		if count, countErr := s.collection.CountDocuments(ctx, bson.M{"_id": id}); countErr == nil && count > 0 {
			return nil, ErrInvalidState
		}
		return nil, ErrNotFound
	}
	return &updated, nil
}

// claim flips a boolean field from false to true atomically. The caller that
// wins the flip owns the follow-up work; everyone else skips it.
func (s *mongoOrders) claim(ctx context.Context, id primitive.ObjectID, field string) (bool, error) {
	filter := bson.M{"_id": id, field: false}
	update := bson.M{"$set": bson.M{field: true, "updated_at": time.Now()}}
	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", field, err)
	}
	return result.ModifiedCount == 1, nil
}

func (s *mongoOrders) release(ctx context.Context, id primitive.ObjectID, field string) error {
	update := bson.M{"$set": bson.M{field: false, "updated_at": time.Now()}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to release %s: %w", field, err)
	}
	return nil
}

func (s *mongoOrders) ClaimInventoryApplied(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.claim(ctx, id, "inventory_applied")
}

func (s *mongoOrders) ReleaseInventoryApplied(ctx context.Context, id primitive.ObjectID) error {
	return s.release(ctx, id, "inventory_applied")
}

func (s *mongoOrders) ClaimInventoryRestored(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.claim(ctx, id, "inventory_restored")
}

func (s *mongoOrders) ReleaseInventoryRestored(ctx context.Context, id primitive.ObjectID) error {
	return s.release(ctx, id, "inventory_restored")
}

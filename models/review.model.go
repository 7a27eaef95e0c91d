package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewStatus is the moderation state of a review. Only approved reviews
// count toward a product's rating.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review represents a customer review of a product. One review per
// (product, user) pair, enforced by a unique index.
type Review struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ProductID       primitive.ObjectID `bson:"product_id" json:"product_id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Rating          int                `bson:"rating" json:"rating"`
	Title           string             `bson:"title,omitempty" json:"title,omitempty"`
	Body            string             `bson:"body" json:"body"`
	Verified        bool               `bson:"verified" json:"verified"`
	Status          ReviewStatus       `bson:"status" json:"status"`
	RejectionReason string             `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem represents an item in the cart
type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Cart represents a pending purchase for one shopper. Exactly one of UserID
// and SessionID is set: authenticated carts carry the account id, anonymous
// carts carry the session token. Totals are derived fields owned by the
// totals engine and are never accepted from clients.
type Cart struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID         primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	SessionID      string             `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Items          []CartItem         `bson:"items" json:"items"`
	Subtotal       float64            `bson:"subtotal" json:"subtotal"`
	TaxAmount      float64            `bson:"tax_amount" json:"tax_amount"`
	ShippingAmount float64            `bson:"shipping_amount" json:"shipping_amount"`
	DiscountAmount float64            `bson:"discount_amount" json:"discount_amount"`
	Total          float64            `bson:"total" json:"total"`
	CouponCode     string             `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	Version        int64              `bson:"version" json:"version"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// CartOwner identifies the shopper a cart belongs to.
type CartOwner struct {
	UserID    primitive.ObjectID
	SessionID string
}

// Anonymous reports whether the owner is a guest session.
func (o CartOwner) Anonymous() bool {
	return o.UserID.IsZero()
}

// Key returns the cache/log key for the owner.
func (o CartOwner) Key() string {
	if o.Anonymous() {
		return "session:" + o.SessionID
	}
	return "user:" + o.UserID.Hex()
}

// Item returns the line for productID, or nil if the cart does not carry it.
func (c *Cart) Item(productID primitive.ObjectID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveItem drops the line for productID. Removing an absent product is a
// no-op.
func (c *Cart) RemoveItem(productID primitive.ObjectID) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Owner returns the cart's owner identity.
func (c *Cart) Owner() CartOwner {
	return CartOwner{UserID: c.UserID, SessionID: c.SessionID}
}

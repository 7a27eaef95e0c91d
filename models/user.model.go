package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address represents a delivery or billing address
type Address struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	AddressLine1 string `bson:"address_line1" json:"address_line1"`
	AddressLine2 string `bson:"address_line2,omitempty" json:"address_line2,omitempty"`
	City         string `bson:"city" json:"city"`
	State        string `bson:"state" json:"state"`
	ZipCode      string `bson:"zipcode" json:"zipcode"`
	Country      string `bson:"country" json:"country"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// User represents a user in the system
type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name              string               `bson:"name" json:"name"`
	Email             string               `bson:"email" json:"email"`
	Password          string               `bson:"password,omitempty" json:"-"`
	Addresses         []Address            `bson:"addresses,omitempty" json:"addresses,omitempty"`
	Wishlist          []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
	Role              string               `bson:"role" json:"role"` // "user" or "admin"
	IsVerified        bool                 `bson:"is_verified" json:"is_verified"`
	VerificationToken string               `bson:"verification_token" json:"-"`
}

// InWishlist reports whether the user's wishlist carries productID.
func (u *User) InWishlist(productID primitive.ObjectID) bool {
	for _, id := range u.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}

package services

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientStock = errors.New("not enough stock available")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidCoupon     = errors.New("invalid or expired coupon code")
	ErrInvalidTransition = errors.New("illegal order status transition")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrUnauthorized      = errors.New("not authorized for this resource")
	ErrDuplicateCheckout = errors.New("payment confirmation already processed")
	ErrDuplicateReview   = errors.New("product already reviewed by this user")
	ErrConflict          = errors.New("cart was modified concurrently")
	ErrEmptyCart         = errors.New("cart is empty")
)

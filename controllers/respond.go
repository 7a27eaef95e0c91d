package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-storefront/services"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serviceError maps a service-layer error onto an HTTP status and message.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "Resource not found", http.StatusNotFound)
	case errors.Is(err, services.ErrInsufficientStock):
		http.Error(w, "Not enough stock available", http.StatusConflict)
	case errors.Is(err, services.ErrInvalidQuantity):
		http.Error(w, "Quantity must be at least 1", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidCoupon):
		http.Error(w, "Invalid or expired coupon code", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidTransition):
		http.Error(w, "Illegal order status transition", http.StatusConflict)
	case errors.Is(err, services.ErrInvalidRating):
		http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
	case errors.Is(err, services.ErrUnauthorized):
		http.Error(w, "Not authorized for this resource", http.StatusForbidden)
	case errors.Is(err, services.ErrDuplicateReview):
		http.Error(w, "Product already reviewed", http.StatusConflict)
	case errors.Is(err, services.ErrConflict):
		http.Error(w, "Cart was modified concurrently, please retry", http.StatusConflict)
	case errors.Is(err, services.ErrEmptyCart):
		http.Error(w, "Cart is empty", http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/services"
)

// CartController handles cart-related requests
type CartController struct {
	carts *services.CartService
}

// NewCartController creates a new CartController
func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

// cartOwner resolves the requesting shopper from either the JWT claims or
// the anonymous session cookie.
func cartOwner(r *http.Request) (models.CartOwner, bool) {
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return models.CartOwner{}, false
		}
		return models.CartOwner{UserID: userID}, true
	}
	if sessionID, ok := middleware.SessionFrom(r.Context()); ok {
		return models.CartOwner{SessionID: sessionID}, true
	}
	return models.CartOwner{}, false
}

// GetCart retrieves the shopper's cart, creating an empty one if needed
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart, err := cc.carts.GetCart(r.Context(), owner)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddToCart adds a product to the shopper's cart
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	productID, err := primitive.ObjectIDFromHex(payload.ProductID)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	cart, err := cc.carts.AddItem(r.Context(), owner, productID, payload.Quantity)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// UpdateCartItem changes the quantity of a line in the shopper's cart
func (cc *CartController) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	params := mux.Vars(r)
	productID, err := primitive.ObjectIDFromHex(params["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	cart, err := cc.carts.UpdateItemQuantity(r.Context(), owner, productID, payload.Quantity)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCart removes a product from the shopper's cart
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	params := mux.Vars(r)
	productID, err := primitive.ObjectIDFromHex(params["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	cart, err := cc.carts.RemoveItem(r.Context(), owner, productID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ClearCart removes every line from the shopper's cart
func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart, err := cc.carts.Clear(r.Context(), owner)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ApplyCoupon attaches a coupon code to the shopper's cart
func (cc *CartController) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	cart, err := cc.carts.ApplyCoupon(r.Context(), owner, payload.Code)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

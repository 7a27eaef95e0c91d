// controllers/order.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/services"
	"go-storefront/utils"
)

// OrderController handles order-related requests
type OrderController struct {
	orders         *services.OrderService
	checkout       *services.CheckoutService
	UserCollection *mongo.Collection
	EmailService   *utils.EmailService
}

// NewOrderController creates a new OrderController
func NewOrderController(orders *services.OrderService, checkout *services.CheckoutService, db *mongo.Database, emailService *utils.EmailService) *OrderController {
	return &OrderController{
		orders:         orders,
		checkout:       checkout,
		UserCollection: db.Collection("users"),
		EmailService:   emailService,
	}
}

// actorFrom builds the acting identity from the request's JWT claims.
func actorFrom(r *http.Request) (services.Actor, bool) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return services.Actor{}, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Admin: claims.Role == "admin"}, true
}

// ConfirmPayment receives the payment gateway's checkout-completed webhook
// and materializes an order from the payer's cart. Redelivered confirmations
// return the original order instead of creating a second one.
func (oc *OrderController) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var conf models.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if conf.TransactionID == "" {
		http.Error(w, "Missing transaction ID", http.StatusBadRequest)
		return
	}
	if conf.PaymentMethod != "" && !models.ValidPaymentMethod(conf.PaymentMethod) {
		http.Error(w, "Invalid payment method", http.StatusBadRequest)
		return
	}

	order, err := oc.checkout.CompleteCheckout(r.Context(), conf)
	if errors.Is(err, services.ErrDuplicateCheckout) {
		writeJSON(w, http.StatusOK, order)
		return
	}
	if err != nil {
		serviceError(w, err)
		return
	}
	if order == nil {
		// Confirmation acknowledged but there was no cart to convert.
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Payment acknowledged"})
		return
	}

	oc.notifyByEmail(order, func(email string, o *models.Order) error {
		return oc.EmailService.SendOrderConfirmationEmail(email, o)
	})

	writeJSON(w, http.StatusCreated, order)
}

// GetOrders retrieves all orders for the authenticated user
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := oc.orders.ListOrders(r.Context(), actor.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder retrieves a single order. Admins can read any order, customers
// only their own.
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	order, err := oc.orders.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus allows admins to move an order through its lifecycle
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
		TrackingURL    string `json:"tracking_url"`
		Notes          string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var details *repository.TransitionDetails
	if payload.TrackingNumber != "" || payload.TrackingURL != "" || payload.Notes != "" {
		details = &repository.TransitionDetails{
			TrackingNumber: payload.TrackingNumber,
			TrackingURL:    payload.TrackingURL,
			Notes:          payload.Notes,
		}
	}

	order, err := oc.orders.UpdateStatus(r.Context(), actor, orderID, models.OrderStatus(payload.Status), details)
	if err != nil {
		serviceError(w, err)
		return
	}

	if order.Status == models.OrderCancelled {
		oc.notifyByEmail(order, func(email string, o *models.Order) error {
			return oc.EmailService.SendOrderCancellationEmail(email, o)
		})
	}

	writeJSON(w, http.StatusOK, order)
}

// CancelOrder cancels an order on behalf of its owner (or an admin) and
// releases the reserved stock
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	order, err := oc.orders.Cancel(r.Context(), actor, orderID)
	if err != nil {
		serviceError(w, err)
		return
	}

	oc.notifyByEmail(order, func(email string, o *models.Order) error {
		return oc.EmailService.SendOrderCancellationEmail(email, o)
	})

	writeJSON(w, http.StatusOK, order)
}

// ReconcileOrder retries a failed post-checkout or post-cancel stock
// adjustment. Admin only.
func (oc *OrderController) ReconcileOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Action string `json:"action"` // "apply" or "restore"
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch payload.Action {
	case "apply":
		err = oc.checkout.ReconcileInventory(r.Context(), orderID)
	case "restore":
		err = oc.orders.RestoreInventory(r.Context(), orderID)
	default:
		http.Error(w, "Action must be 'apply' or 'restore'", http.StatusBadRequest)
		return
	}
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reconciliation complete"})
}

// notifyByEmail looks up the order's owner and sends them a notification in
// the background. Mail failures are logged, never surfaced.
func (oc *OrderController) notifyByEmail(order *models.Order, send func(string, *models.Order) error) {
	if oc.EmailService == nil || order == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var user models.User
		if err := oc.UserCollection.FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&user); err != nil {
			log.Printf("Failed to look up user %s for order email: %v", order.UserID.Hex(), err)
			return
		}
		if err := send(user.Email, order); err != nil {
			log.Printf("Failed to send email to %s: %v", user.Email, err)
		}
	}()
}

package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/services"
)

// ReviewController handles product review requests
type ReviewController struct {
	reviews *services.ReviewService
}

// NewReviewController creates a new ReviewController
func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

// SubmitReview records a review for a product by the authenticated user.
// Reviews start out pending and only count toward the product rating once
// approved.
func (rc *ReviewController) SubmitReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Rating int    `json:"rating"`
		Title  string `json:"title"`
		Body   string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    actor.UserID,
		Rating:    payload.Rating,
		Title:     payload.Title,
		Body:      payload.Body,
		Status:    models.ReviewPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := rc.reviews.RecordReview(r.Context(), review); err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// ListReviews returns a product's approved reviews. Admins may pass
// ?all=true to include pending and rejected ones.
func (rc *ReviewController) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	includeUnmoderated := false
	if r.URL.Query().Get("all") == "true" {
		actor, ok := actorFrom(r)
		if !ok || !actor.Admin {
			http.Error(w, "Forbidden: Admins only", http.StatusForbidden)
			return
		}
		includeUnmoderated = true
	}

	reviews, err := rc.reviews.ListReviews(r.Context(), productID, includeUnmoderated)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ModerateReview approves or rejects a pending review (Admin only)
func (rc *ReviewController) ModerateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid review ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	status := models.ReviewStatus(payload.Status)
	if status != models.ReviewApproved && status != models.ReviewRejected {
		http.Error(w, "Status must be 'approved' or 'rejected'", http.StatusBadRequest)
		return
	}

	review, err := rc.reviews.Moderate(r.Context(), reviewID, status, payload.Reason)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

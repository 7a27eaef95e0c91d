package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

// ContentController serves the storefront's blog posts and testimonials
type ContentController struct {
	BlogCollection        *mongo.Collection
	TestimonialCollection *mongo.Collection
}

// NewContentController creates a new ContentController
func NewContentController(db *mongo.Database) *ContentController {
	return &ContentController{
		BlogCollection:        db.Collection("blog_posts"),
		TestimonialCollection: db.Collection("testimonials"),
	}
}

// CreateBlogPost creates a blog post (Admin only)
func (cc *ContentController) CreateBlogPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var post models.BlogPost
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if post.Title == "" || post.Content == "" {
		http.Error(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	post.ID = primitive.NewObjectID()
	post.AuthorID = actor.UserID
	post.CreatedAt = time.Now()
	post.Normalize()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cc.BlogCollection.InsertOne(ctx, post); err != nil {
		http.Error(w, "Error creating blog post", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// ListBlogPosts returns published blog posts, newest first
func (cc *ContentController) ListBlogPosts(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{"status": models.BlogPublished}
	if category := r.URL.Query().Get("category"); category != "" {
		filter["category"] = category
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cursor, err := cc.BlogCollection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}}))
	if err != nil {
		http.Error(w, "Error fetching blog posts", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	posts := []models.BlogPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		http.Error(w, "Error reading blog posts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetBlogPost returns a published blog post by slug
func (cc *ContentController) GetBlogPost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var post models.BlogPost
	err := cc.BlogCollection.FindOne(ctx, bson.M{
		"slug":   mux.Vars(r)["slug"],
		"status": models.BlogPublished,
	}).Decode(&post)
	if err != nil {
		http.Error(w, "Blog post not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// UpdateBlogPost updates a blog post (Admin only)
func (cc *ContentController) UpdateBlogPost(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid blog post ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var post models.BlogPost
	if err := cc.BlogCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		http.Error(w, "Blog post not found", http.StatusNotFound)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	post.ID = id
	post.Normalize()

	if _, err := cc.BlogCollection.ReplaceOne(ctx, bson.M{"_id": id}, post); err != nil {
		http.Error(w, "Error updating blog post", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeleteBlogPost deletes a blog post (Admin only)
func (cc *ContentController) DeleteBlogPost(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid blog post ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := cc.BlogCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		http.Error(w, "Error deleting blog post", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		http.Error(w, "Blog post not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Blog post deleted"})
}

// SubmitTestimonial accepts a customer testimonial, pending moderation
func (cc *ContentController) SubmitTestimonial(w http.ResponseWriter, r *http.Request) {
	var t models.Testimonial
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if t.Name == "" || t.Text == "" {
		http.Error(w, "Name and text are required", http.StatusBadRequest)
		return
	}
	if t.Rating < 1 || t.Rating > 5 {
		http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	t.ID = primitive.NewObjectID()
	t.Status = models.ReviewPending
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cc.TestimonialCollection.InsertOne(ctx, t); err != nil {
		http.Error(w, "Error saving testimonial", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTestimonials returns approved testimonials
func (cc *ContentController) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := cc.TestimonialCollection.Find(ctx,
		bson.M{"status": models.ReviewApproved},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		http.Error(w, "Error fetching testimonials", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	testimonials := []models.Testimonial{}
	if err := cursor.All(ctx, &testimonials); err != nil {
		http.Error(w, "Error reading testimonials", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, testimonials)
}

// ModerateTestimonial approves or rejects a testimonial (Admin only)
func (cc *ContentController) ModerateTestimonial(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid testimonial ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Status string `json:"status"`
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := cc.TestimonialCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	if err != nil {
		http.Error(w, "Error updating testimonial", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Testimonial not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Testimonial updated"})
}

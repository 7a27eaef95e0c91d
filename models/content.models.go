package models

import (
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlogStatus is the publication state of a blog post.
type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
	BlogScheduled BlogStatus = "scheduled"
)

// BlogPost represents an article on the storefront blog
type BlogPost struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title         string             `bson:"title" json:"title"`
	Slug          string             `bson:"slug" json:"slug"`
	Category      string             `bson:"category" json:"category"`
	AuthorID      primitive.ObjectID `bson:"author_id" json:"author_id"`
	Content       string             `bson:"content" json:"content"`
	Excerpt       string             `bson:"excerpt" json:"excerpt"`
	FeaturedImage string             `bson:"featured_image" json:"featured_image"`
	Images        []string           `bson:"images,omitempty" json:"images,omitempty"`
	Status        BlogStatus         `bson:"status" json:"status"`
	PublishedAt   *time.Time         `bson:"published_at,omitempty" json:"published_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// BlogCategories are the allowed values for BlogPost.Category.
var BlogCategories = []string{"wellness", "recipes", "education", "lifestyle", "news"}

// Normalize derives the slug and stamps publishing metadata. Call before
// every insert or update.
func (b *BlogPost) Normalize() {
	b.Slug = slug.Make(b.Title)
	if b.Status == "" {
		b.Status = BlogDraft
	}
	if b.Status == BlogPublished && b.PublishedAt == nil {
		now := time.Now()
		b.PublishedAt = &now
	}
	b.UpdatedAt = time.Now()
}

// Testimonial represents a customer testimonial shown on the storefront
type Testimonial struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Title     string             `bson:"title" json:"title"`
	Text      string             `bson:"text" json:"text"`
	Rating    int                `bson:"rating" json:"rating"`
	Photo     string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Position  string             `bson:"position,omitempty" json:"position,omitempty"`
	Location  string             `bson:"location,omitempty" json:"location,omitempty"`
	Status    ReviewStatus       `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

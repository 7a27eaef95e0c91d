package services

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-storefront/models"
	"go-storefront/repository"
)

// defaultRating is shown for products with no approved reviews.
const defaultRating = 4.5

// ReviewService records reviews and keeps the product's aggregate rating in
// step. The recording and the recompute run sequentially in one code path;
// there is no persistence hook staging state between callbacks.
type ReviewService struct {
	reviews  repository.ReviewStore
	products repository.ProductStore
	logger   *zap.Logger
}

func NewReviewService(reviews repository.ReviewStore, products repository.ProductStore, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		logger:   logger,
	}
}

// RecordReview stores the review and recomputes the product's rating. One
// review per (product, user) pair.
func (s *ReviewService) RecordReview(ctx context.Context, review *models.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}
	if _, err := s.products.Get(ctx, review.ProductID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.reviews.Insert(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return ErrDuplicateReview
		}
		return err
	}

	return s.recomputeProductRating(ctx, review.ProductID)
}

// Moderate sets the review's moderation status and recomputes the product's
// rating, since only approved reviews count.
func (s *ReviewService) Moderate(ctx context.Context, id primitive.ObjectID, status models.ReviewStatus, reason string) (*models.Review, error) {
	review, err := s.reviews.SetStatus(ctx, id, status, reason)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.recomputeProductRating(ctx, review.ProductID); err != nil {
		return nil, err
	}
	return review, nil
}

// ListReviews returns a product's reviews; non-admin callers only see
// approved ones.
func (s *ReviewService) ListReviews(ctx context.Context, productID primitive.ObjectID, includeUnmoderated bool) ([]models.Review, error) {
	return s.reviews.ListByProduct(ctx, productID, !includeUnmoderated)
}

func (s *ReviewService) recomputeProductRating(ctx context.Context, productID primitive.ObjectID) error {
	count, average, err := s.reviews.AggregateRating(ctx, productID)
	if err != nil {
		return err
	}
	if count == 0 {
		average = defaultRating
	}
	average = math.Round(average*10) / 10

	if err := s.products.SetRating(ctx, productID, count, average); err != nil {
		s.logger.Error("failed to update product rating",
			zap.String("product_id", productID.Hex()), zap.Error(err))
		return err
	}
	return nil
}

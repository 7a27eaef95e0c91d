package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

var (
	ErrNotFound             = errors.New("document not found")
	ErrVersionConflict      = errors.New("cart was modified concurrently")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidState         = errors.New("order is not in a valid state for this transition")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrDuplicatePayment     = errors.New("payment already processed")
	ErrDuplicateReview      = errors.New("user already reviewed this product")
)

// ProductStore provides the catalog operations the cart and order workflows
// depend on. Stock adjustments are atomic increments against the stored
// value, never read-then-write.
type ProductStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error)
	// DecrementStock atomically takes qty units. Fails with
	// ErrInsufficientStock when the product tracks inventory, disallows
	// backorders and holds fewer than qty units.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	// IncrementStock atomically returns qty units.
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	SetRating(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error
}

// CartStore persists cart aggregates. Update is guarded by the cart's
// version: a write over a stale read fails with ErrVersionConflict and must
// be retried from a fresh read.
type CartStore interface {
	GetByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	Insert(ctx context.Context, cart *models.Cart) error
	Update(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TransitionDetails carries optional fields written together with a status
// transition.
type TransitionDetails struct {
	TrackingNumber string
	TrackingURL    string
	Notes          string
}

// OrderStore persists order aggregates. Transition applies the status change
// as a single conditional update; the claim methods are atomic test-and-set
// flips used to make stock reconciliation idempotent.
type OrderStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetByPaymentID(ctx context.Context, transactionID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	Insert(ctx context.Context, order *models.Order) error
	// Transition moves the order to the given status if its current status is
	// one of from, stamping the state's timestamp. Fails with ErrInvalidState
	// when the order exists but is not in an accepted source state.
	Transition(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, to models.OrderStatus, details *TransitionDetails) (*models.Order, error)
	ClaimInventoryApplied(ctx context.Context, id primitive.ObjectID) (bool, error)
	ReleaseInventoryApplied(ctx context.Context, id primitive.ObjectID) error
	ClaimInventoryRestored(ctx context.Context, id primitive.ObjectID) (bool, error)
	ReleaseInventoryRestored(ctx context.Context, id primitive.ObjectID) error
}

// ReviewStore persists product reviews.
type ReviewStore interface {
	Insert(ctx context.Context, review *models.Review) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.ReviewStatus, reason string) (*models.Review, error)
	ListByProduct(ctx context.Context, productID primitive.ObjectID, onlyApproved bool) ([]models.Review, error)
	// AggregateRating returns the count and mean rating of approved reviews
	// for the product. A product with no approved reviews yields (0, 0).
	AggregateRating(ctx context.Context, productID primitive.ObjectID) (int, float64, error)
}

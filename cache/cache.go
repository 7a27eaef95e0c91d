package cache

import (
	"context"
	"errors"

	"go-storefront/models"
)

// CartCache is a read-through cache over cart lookups, keyed by the owner
// identity. Every cart mutation must invalidate the owner's entry.
type CartCache interface {
	Get(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	Set(ctx context.Context, owner models.CartOwner, cart *models.Cart) error
	Delete(ctx context.Context, owner models.CartOwner) error
}

var ErrCacheMiss = errors.New("cache miss")

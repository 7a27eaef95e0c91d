package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-storefront/cache"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/repository"
)

// maxWriteRetries bounds how often a cart mutation is replayed over a fresh
// read after losing the optimistic version check.
const maxWriteRetries = 3

// cacheOpTimeout caps cache writes and invalidations done off the request
// path.
const cacheOpTimeout = time.Second

// CartService owns the cart aggregate: item mutations, coupon application,
// the synchronous totals recomputation after every change, and the
// guest-to-account merge.
type CartService struct {
	carts    repository.CartStore
	products repository.ProductStore
	coupons  CouponValidator
	cache    cache.CartCache
	metrics  *metrics.StoreMetrics
	logger   *zap.Logger
	sfg      singleflight.Group
}

func NewCartService(carts repository.CartStore, products repository.ProductStore, coupons CouponValidator, cartCache cache.CartCache, m *metrics.StoreMetrics, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		coupons:  coupons,
		cache:    cartCache,
		metrics:  m,
		logger:   logger,
	}
}

// GetCart returns the owner's cart, creating an empty one lazily on first
// access. Reads go through the cache; singleflight collapses concurrent
// misses for the same owner.
func (s *CartService) GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, owner)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cart cache get failed", zap.String("owner", owner.Key()), zap.Error(err))
		}

		cart, err = s.loadOrCreate(ctx, owner)
		if err != nil {
			return nil, err
		}

		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
			defer cancel()
			if err := s.cache.Set(cacheCtx, owner, cart); err != nil {
				s.logger.Warn("cart cache set failed", zap.String("owner", owner.Key()), zap.Error(err))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart), nil
}

// AddItem puts qty units of the product in the cart, merging into an
// existing line when the product is already present. The combined quantity
// is validated against live stock.
func (s *CartService) AddItem(ctx context.Context, owner models.CartOwner, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(cart *models.Cart) error {
		target := qty
		if line := cart.Item(productID); line != nil {
			target = line.Quantity + qty
		}
		if !product.CanFulfill(target) {
			return ErrInsufficientStock
		}
		if line := cart.Item(productID); line != nil {
			line.Quantity = target
		} else {
			cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: qty})
		}
		return nil
	})
}

// UpdateItemQuantity replaces the quantity of an existing line. A quantity
// of zero or less is rejected; callers remove the line instead.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner models.CartOwner, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(cart *models.Cart) error {
		line := cart.Item(productID)
		if line == nil {
			return ErrNotFound
		}
		if !product.CanFulfill(qty) {
			return ErrInsufficientStock
		}
		line.Quantity = qty
		return nil
	})
}

// RemoveItem drops the product's line from the cart. Removing a product the
// cart does not carry is a no-op, not an error.
func (s *CartService) RemoveItem(ctx context.Context, owner models.CartOwner, productID primitive.ObjectID) (*models.Cart, error) {
	return s.mutate(ctx, owner, func(cart *models.Cart) error {
		cart.RemoveItem(productID)
		return nil
	})
}

// Clear empties the cart and resets the coupon and all derived totals.
func (s *CartService) Clear(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	return s.mutate(ctx, owner, func(cart *models.Cart) error {
		cart.Items = nil
		cart.CouponCode = ""
		return nil
	})
}

// ApplyCoupon validates and stores the code, then re-derives the totals.
func (s *CartService) ApplyCoupon(ctx context.Context, owner models.CartOwner, code string) (*models.Cart, error) {
	result, err := s.coupons.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, ErrInvalidCoupon
	}
	return s.mutate(ctx, owner, func(cart *models.Cart) error {
		cart.CouponCode = code
		return nil
	})
}

// MergeGuestCart folds the guest cart identified by sessionID into the
// account cart, summing quantities for products both carts carry, and
// destroys the guest cart. Retrying after completion is a no-op because the
// guest cart no longer exists.
func (s *CartService) MergeGuestCart(ctx context.Context, sessionID string, userID primitive.ObjectID) error {
	guestOwner := models.CartOwner{SessionID: sessionID}
	guest, err := s.carts.GetByOwner(ctx, guestOwner)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if len(guest.Items) > 0 {
		ids := make([]primitive.ObjectID, 0, len(guest.Items))
		for _, item := range guest.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.products.GetMany(ctx, ids)
		if err != nil {
			return err
		}

		accountOwner := models.CartOwner{UserID: userID}
		_, err = s.mutate(ctx, accountOwner, func(cart *models.Cart) error {
			for _, item := range guest.Items {
				product, ok := products[item.ProductID]
				if !ok {
					s.logger.Warn("guest cart references missing product, line dropped",
						zap.String("product_id", item.ProductID.Hex()))
					continue
				}
				target := item.Quantity
				if line := cart.Item(item.ProductID); line != nil {
					target = line.Quantity + item.Quantity
				}
				if !product.CanFulfill(target) {
					// Keep as much as the shelf holds rather than failing the
					// login flow.
					s.logger.Warn("merged quantity capped at available stock",
						zap.String("product_id", item.ProductID.Hex()),
						zap.Int("requested", target),
						zap.Int("stock", product.Stock))
					target = product.Stock
				}
				if target < 1 {
					cart.RemoveItem(item.ProductID)
					continue
				}
				if line := cart.Item(item.ProductID); line != nil {
					line.Quantity = target
				} else {
					cart.Items = append(cart.Items, models.CartItem{ProductID: item.ProductID, Quantity: target})
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := s.carts.Delete(ctx, guest.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	s.invalidate(guestOwner)
	return nil
}

func (s *CartService) getProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, err := s.products.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return product, err
}

func (s *CartService) loadOrCreate(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	cart = &models.Cart{
		UserID:    owner.UserID,
		SessionID: owner.SessionID,
		Items:     []models.CartItem{},
	}
	if err := s.carts.Insert(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// mutate applies fn to the owner's cart, recomputes the totals, and
// persists. Either the item change and totals land together or the stored
// cart is left untouched. A lost version race reloads and replays fn.
func (s *CartService) mutate(ctx context.Context, owner models.CartOwner, fn func(*models.Cart) error) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		if err := fn(cart); err != nil {
			return nil, err
		}
		if err := s.recompute(ctx, cart); err != nil {
			return nil, err
		}

		err = s.carts.Update(ctx, cart)
		if err == nil {
			s.invalidate(owner)
			return cart, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.CartConflicts.Inc()
		}
		cart, err = s.carts.GetByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}

func (s *CartService) recompute(ctx context.Context, cart *models.Cart) error {
	prices := map[primitive.ObjectID]float64{}
	if len(cart.Items) > 0 {
		ids := make([]primitive.ObjectID, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.products.GetMany(ctx, ids)
		if err != nil {
			return err
		}
		for _, item := range cart.Items {
			product, ok := products[item.ProductID]
			if !ok {
				return ErrNotFound
			}
			prices[item.ProductID] = product.Price
		}
	}

	rate := 0.0
	if cart.CouponCode != "" {
		result, err := s.coupons.Validate(ctx, cart.CouponCode)
		if err != nil {
			return err
		}
		if result.Valid {
			rate = result.DiscountRate
		}
	}

	recomputeTotals(cart, prices, rate)
	return nil
}

func (s *CartService) invalidate(owner models.CartOwner) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("owner", owner.Key()), zap.Error(err))
	}
}

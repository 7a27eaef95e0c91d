package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-storefront/cache"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/repository"
)

// orderNumberAttempts bounds regeneration after an order number collision.
const orderNumberAttempts = 5

// EventPublisher pushes order lifecycle events to the message bus.
// Implementations log their own failures; the order is already durable when
// an event is published.
type EventPublisher interface {
	PublishOrderCreated(order *models.Order) error
	PublishOrderCancelled(order *models.Order) error
}

// CheckoutService materializes orders from confirmed payments. The payment's
// transaction id is the idempotency key: the same confirmation delivered
// twice yields exactly one order.
type CheckoutService struct {
	orders   repository.OrderStore
	carts    repository.CartStore
	products repository.ProductStore
	cache    cache.CartCache
	events   EventPublisher
	metrics  *metrics.StoreMetrics
	logger   *zap.Logger
}

func NewCheckoutService(orders repository.OrderStore, carts repository.CartStore, products repository.ProductStore, cartCache cache.CartCache, events EventPublisher, m *metrics.StoreMetrics, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		carts:    carts,
		products: products,
		cache:    cartCache,
		events:   events,
		metrics:  m,
		logger:   logger,
	}
}

// CompleteCheckout converts the payer's cart into an order in response to a
// payment confirmation. The order carries snapshots of the purchased items
// and the cart's totals verbatim; the charged amount must match what the
// customer approved, so nothing is recomputed here.
//
// Once the order is durable the cart deletion and stock decrement are
// reconciliation work: failures are logged and retried, never surfaced as a
// failed checkout, because the payment has already been taken.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, conf models.PaymentConfirmation) (*models.Order, error) {
	if conf.TransactionID == "" {
		return nil, fmt.Errorf("payment confirmation is missing a transaction id")
	}

	if existing, err := s.orders.GetByPaymentID(ctx, conf.TransactionID); err == nil {
		if s.metrics != nil {
			s.metrics.DuplicateCheckouts.Inc()
		}
		s.logger.Info("duplicate payment confirmation discarded",
			zap.String("transaction_id", conf.TransactionID),
			zap.String("order_number", existing.OrderNumber))
		return existing, ErrDuplicateCheckout
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	owner := models.CartOwner{UserID: conf.PayerID}
	cart, err := s.carts.GetByOwner(ctx, owner)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
		// Nothing to convert. Logged, not raised: the gateway's delivery
		// must not be failed for a cart that was already consumed or never
		// existed.
		s.logger.Warn("payment confirmed but no cart to convert",
			zap.String("transaction_id", conf.TransactionID),
			zap.String("payer_id", conf.PayerID.Hex()))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := s.snapshotItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(conf, cart, items)
	if err := s.insertWithFreshNumber(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// Lost a race against a concurrent delivery of the same
			// confirmation.
			if s.metrics != nil {
				s.metrics.DuplicateCheckouts.Inc()
			}
			if existing, getErr := s.orders.GetByPaymentID(ctx, conf.TransactionID); getErr == nil {
				return existing, ErrDuplicateCheckout
			}
			return nil, ErrDuplicateCheckout
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	s.logger.Info("order materialized from checkout",
		zap.String("order_number", order.OrderNumber),
		zap.String("transaction_id", conf.TransactionID),
		zap.Float64("total", order.Total))

	if s.events != nil {
		_ = s.events.PublishOrderCreated(order)
	}

	s.applyInventory(ctx, order)

	if err := s.carts.Delete(ctx, cart.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("failed to delete cart after checkout, needs reconciliation",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.ReconcileFailures.Inc()
		}
	}
	s.invalidate(owner)

	return order, nil
}

// ReconcileInventory retries the stock decrement for an order whose
// post-checkout reconciliation failed.
func (s *CheckoutService) ReconcileInventory(ctx context.Context, orderID primitive.ObjectID) error {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if order.InventoryApplied {
		return nil
	}
	s.applyInventory(ctx, order)
	return nil
}

func (s *CheckoutService) snapshotItems(ctx context.Context, cart *models.Cart) ([]models.OrderItem, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		snapshot := models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if product, ok := products[item.ProductID]; ok {
			snapshot.Name = product.Name
			snapshot.Price = product.Price
			snapshot.Image = product.ImageCover
		} else {
			// The product vanished between cart and payment. The customer
			// was still charged, so the line is kept with what the cart
			// knows.
			s.logger.Error("purchased product missing from catalog",
				zap.String("product_id", item.ProductID.Hex()))
		}
		items = append(items, snapshot)
	}
	return items, nil
}

func (s *CheckoutService) buildOrder(conf models.PaymentConfirmation, cart *models.Cart, items []models.OrderItem) *models.Order {
	method := conf.PaymentMethod
	if !models.ValidPaymentMethod(method) {
		method = "credit_card"
	}
	currency := conf.Currency
	if currency == "" {
		currency = "USD"
	}
	paidAt := conf.PaidAt
	if paidAt.IsZero() {
		paidAt = cart.UpdatedAt
	}

	return &models.Order{
		UserID:          conf.PayerID,
		Items:           items,
		ShippingAddress: conf.ShippingAddress,
		BillingAddress:  conf.ShippingAddress,
		PaymentMethod:   method,
		PaymentInfo: models.PaymentInfo{
			TransactionID: conf.TransactionID,
			Status:        "completed",
			Amount:        conf.AmountCharged,
			Currency:      currency,
			PaymentDate:   paidAt,
		},
		Subtotal:       cart.Subtotal,
		TaxAmount:      cart.TaxAmount,
		ShippingAmount: cart.ShippingAmount,
		DiscountAmount: cart.DiscountAmount,
		Total:          cart.Total,
		CouponCode:     cart.CouponCode,
		Status:         models.OrderPaid,
	}
}

func (s *CheckoutService) insertWithFreshNumber(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = models.NewOrderNumber()
		err = s.orders.Insert(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
	}
	return err
}

// applyInventory decrements the stock of every purchased product exactly
// once per order. The inventory_applied claim is taken before the
// decrements and given back if any of them fails, so a retry can finish the
// job.
func (s *CheckoutService) applyInventory(ctx context.Context, order *models.Order) {
	claimed, err := s.orders.ClaimInventoryApplied(ctx, order.ID)
	if err != nil {
		s.logger.Error("failed to claim inventory application",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ReconcileFailures.Inc()
		}
		return
	}
	if !claimed {
		return
	}

	for _, item := range order.Items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("stock decrement failed after order persistence",
				zap.String("order_number", order.OrderNumber),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			if s.metrics != nil {
				s.metrics.ReconcileFailures.Inc()
			}
			if relErr := s.orders.ReleaseInventoryApplied(ctx, order.ID); relErr != nil {
				s.logger.Error("failed to release inventory claim",
					zap.String("order_number", order.OrderNumber), zap.Error(relErr))
			}
			return
		}
	}
	order.InventoryApplied = true
}

func (s *CheckoutService) invalidate(owner models.CartOwner) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("owner", owner.Key()), zap.Error(err))
	}
}

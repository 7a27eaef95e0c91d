package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/repository"
)

// Actor identifies who is driving an order operation.
type Actor struct {
	UserID primitive.ObjectID
	Admin  bool
}

// OrderService owns the order status lifecycle and the stock restoration
// that mirrors checkout's decrement.
type OrderService struct {
	orders   repository.OrderStore
	products repository.ProductStore
	events   EventPublisher
	metrics  *metrics.StoreMetrics
	logger   *zap.Logger
}

func NewOrderService(orders repository.OrderStore, products repository.ProductStore, events EventPublisher, m *metrics.StoreMetrics, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		events:   events,
		metrics:  m,
		logger:   logger,
	}
}

// GetOrder returns the order when the actor is an admin or its owner.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, ErrUnauthorized
	}
	return order, nil
}

// ListOrders returns the account's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// UpdateStatus moves the order along its lifecycle. Only admins drive
// forward transitions; cancellation goes through Cancel so stock
// restoration applies.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id primitive.ObjectID, to models.OrderStatus, details *repository.TransitionDetails) (*models.Order, error) {
	if !actor.Admin {
		return nil, ErrUnauthorized
	}
	if to == models.OrderCancelled {
		return s.Cancel(ctx, actor, id)
	}

	from := models.TransitionSources(to)
	if from == nil {
		return nil, ErrInvalidTransition
	}

	order, err := s.orders.Transition(ctx, id, from, to, details)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidState):
			return nil, ErrInvalidTransition
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(to)))
	return order, nil
}

// Cancel moves the order to cancelled and credits every purchased quantity
// back to stock. Admins may cancel any order; the owner only their own, and
// only while it has not shipped. The transition's state filter makes a
// second cancel fail with ErrInvalidTransition rather than credit stock
// twice.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, ErrUnauthorized
	}

	cancelled, err := s.orders.Transition(ctx, id, models.TransitionSources(models.OrderCancelled), models.OrderCancelled, nil)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidState):
			return nil, ErrInvalidTransition
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCancelled.Inc()
	}
	s.logger.Info("order cancelled",
		zap.String("order_number", cancelled.OrderNumber),
		zap.Bool("by_admin", actor.Admin))

	if s.events != nil {
		_ = s.events.PublishOrderCancelled(cancelled)
	}

	s.restoreInventory(ctx, cancelled)
	return cancelled, nil
}

// RestoreInventory retries the stock restoration for a cancelled order whose
// earlier attempt failed.
func (s *OrderService) RestoreInventory(ctx context.Context, orderID primitive.ObjectID) error {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if order.Status != models.OrderCancelled || order.InventoryRestored {
		return nil
	}
	s.restoreInventory(ctx, order)
	return nil
}

// restoreInventory is the mirror of checkout's stock decrement, under the
// same claim discipline: the inventory_restored flag is taken once and given
// back on failure so a retry can complete the credit without doubling it.
func (s *OrderService) restoreInventory(ctx context.Context, order *models.Order) {
	claimed, err := s.orders.ClaimInventoryRestored(ctx, order.ID)
	if err != nil {
		s.logger.Error("failed to claim inventory restoration",
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
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("stock restoration failed",
				zap.String("order_number", order.OrderNumber),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			if s.metrics != nil {
				s.metrics.ReconcileFailures.Inc()
			}
			if relErr := s.orders.ReleaseInventoryRestored(ctx, order.ID); relErr != nil {
				s.logger.Error("failed to release restoration claim",
					zap.String("order_number", order.OrderNumber), zap.Error(relErr))
			}
			return
		}
	}
	order.InventoryRestored = true
}

package events

import (
	"time"

	"go-storefront/models"
)

const (
	TypeOrderCreated   = "order.created"
	TypeOrderCancelled = "order.cancelled"
)

// OrderEventItem mirrors an order line in the published payload.
type OrderEventItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderEvent is published on order creation and cancellation so downstream
// consumers (fulfilment, analytics, inventory reconciliation) can react.
type OrderEvent struct {
	EventID     string           `json:"event_id"`
	Type        string           `json:"type"`
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      string           `json:"user_id"`
	Total       float64          `json:"total"`
	Status      string           `json:"status"`
	Items       []OrderEventItem `json:"items"`
	Timestamp   time.Time        `json:"timestamp"`
}

func eventItems(order *models.Order) []OrderEventItem {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderEventItem{
			ProductID: it.ProductID.Hex(),
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return items
}

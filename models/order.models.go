package models

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// orderTransitions lists, per target state, the states an order may come
// from. Checkout materializes orders directly in "paid", which stands in for
// "pending" everywhere the older state would be accepted.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderPending, OrderPaid},
	OrderShipped:    {OrderProcessing},
	OrderDelivered:  {OrderShipped},
	OrderCancelled:  {OrderPending, OrderPaid, OrderProcessing},
	OrderRefunded:   {OrderPaid, OrderProcessing, OrderShipped, OrderDelivered},
}

// TransitionSources returns the states from which to is reachable. A nil
// result means to is never a valid transition target.
func TransitionSources(to OrderStatus) []OrderStatus {
	return orderTransitions[to]
}

// CanTransition reports whether an order in state from may move to state to.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// OrderItem is a snapshot of a cart line at the moment of purchase. Name,
// price and image are captured copies; later product edits never alter them.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
}

// PaymentInfo carries the gateway's confirmation data. TransactionID is the
// idempotency key for checkout materialization.
type PaymentInfo struct {
	TransactionID string    `bson:"transaction_id" json:"transaction_id"`
	Status        string    `bson:"status" json:"status"`
	Amount        float64   `bson:"amount" json:"amount"`
	Currency      string    `bson:"currency" json:"currency"`
	PaymentDate   time.Time `bson:"payment_date" json:"payment_date"`
}

// Order represents an immutable post-checkout snapshot with a status
// lifecycle. Orders are never deleted by normal flow.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrderNumber     string             `bson:"order_number" json:"order_number"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress Address            `bson:"shipping_address" json:"shipping_address"`
	BillingAddress  Address            `bson:"billing_address" json:"billing_address"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"`
	PaymentInfo     PaymentInfo        `bson:"payment_info" json:"payment_info"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	TaxAmount       float64            `bson:"tax_amount" json:"tax_amount"`
	ShippingAmount  float64            `bson:"shipping_amount" json:"shipping_amount"`
	DiscountAmount  float64            `bson:"discount_amount" json:"discount_amount"`
	Total           float64            `bson:"total" json:"total"`
	Status          OrderStatus        `bson:"status" json:"status"`
	CouponCode      string             `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	TrackingNumber  string             `bson:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	TrackingURL     string             `bson:"tracking_url,omitempty" json:"tracking_url,omitempty"`

	// Reconciliation claims; see services.CheckoutService and
	// services.OrderService.
	InventoryApplied  bool `bson:"inventory_applied" json:"-"`
	InventoryRestored bool `bson:"inventory_restored" json:"-"`

	ProcessingAt *time.Time `bson:"processing_at,omitempty" json:"processing_at,omitempty"`
	ShippedAt    *time.Time `bson:"shipped_at,omitempty" json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

const orderNumberCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber builds a human-readable order number: a prefix, the last six
// digits of the current epoch milliseconds, and four random base36
// characters. Collisions are improbable but not impossible; callers must
// regenerate on a uniqueness violation.
func NewOrderNumber() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	ts = ts[len(ts)-6:]
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = orderNumberCharset[rand.IntN(len(orderNumberCharset))]
	}
	return fmt.Sprintf("ORD-%s-%s", ts, suffix)
}

// StampStatus sets the status and records the first entry into the new state.
// The matching timestamp is only written when it has not been set before.
func (o *Order) StampStatus(status OrderStatus, at time.Time) {
	o.Status = status
	switch status {
	case OrderProcessing:
		if o.ProcessingAt == nil {
			o.ProcessingAt = &at
		}
	case OrderShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &at
		}
	case OrderDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &at
		}
	case OrderCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &at
		}
	case OrderRefunded:
		if o.RefundedAt == nil {
			o.RefundedAt = &at
		}
	}
	o.UpdatedAt = at
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentMethods are the accepted values for Order.PaymentMethod.
var PaymentMethods = []string{"credit_card", "paypal", "bank_transfer"}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// PaymentConfirmation is the gateway's checkout-completed event. The
// TransactionID doubles as the idempotency key: delivering the same
// confirmation twice must not materialize a second order.
type PaymentConfirmation struct {
	PayerID         primitive.ObjectID `json:"payer_id"`
	TransactionID   string             `json:"transaction_id"`
	PaymentMethod   string             `json:"payment_method"`
	AmountCharged   float64            `json:"amount_charged"`
	Currency        string             `json:"currency"`
	ShippingAddress Address            `json:"shipping_address"`
	PaidAt          time.Time          `json:"paid_at"`
}

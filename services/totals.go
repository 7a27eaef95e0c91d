package services

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

const (
	taxRate               = 0.08
	freeShippingThreshold = 75.00
	flatShippingFee       = 5.99
)

// recomputeTotals re-derives every totals field of the cart from the given
// live unit prices and the discount rate of the applied coupon (0 when
// none). It runs synchronously after every cart mutation and stamps the
// modification time; callers must persist the cart afterward.
//
// The invariant held on exit:
//
//	total == subtotal + taxAmount + shippingAmount - discountAmount
//
// with all amounts rounded half-up to 2 decimal places. An empty cart has
// every field at zero, shipping included.
func recomputeTotals(cart *models.Cart, prices map[primitive.ObjectID]float64, discountRate float64) {
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		price := decimal.NewFromFloat(prices[item.ProductID])
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Round(2)

	shipping := decimal.Zero
	if len(cart.Items) > 0 && !subtotal.GreaterThan(decimal.NewFromFloat(freeShippingThreshold)) {
		shipping = decimal.NewFromFloat(flatShippingFee)
	}

	discount := decimal.Zero
	if discountRate > 0 {
		discount = subtotal.Mul(decimal.NewFromFloat(discountRate)).Round(2)
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount).Round(2)

	cart.Subtotal = subtotal.InexactFloat64()
	cart.TaxAmount = tax.InexactFloat64()
	cart.ShippingAmount = shipping.InexactFloat64()
	cart.DiscountAmount = discount.InexactFloat64()
	cart.Total = total.InexactFloat64()
	cart.UpdatedAt = time.Now()
}

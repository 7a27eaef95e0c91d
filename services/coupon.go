package services

import (
	"context"
	"strings"
)

// CouponResult is the outcome of validating a coupon code.
type CouponResult struct {
	Valid        bool
	DiscountRate float64
}

// CouponValidator checks a coupon code and yields its discount rate. The
// storefront does not own a coupon registry; this is the seam where one
// plugs in.
type CouponValidator interface {
	Validate(ctx context.Context, code string) (CouponResult, error)
}

// FlatRateCoupons accepts any non-empty code at a fixed rate. It stands in
// until a real coupon registry backs the validator.
type FlatRateCoupons struct {
	Rate float64
}

func NewFlatRateCoupons() FlatRateCoupons {
	return FlatRateCoupons{Rate: 0.10}
}

func (f FlatRateCoupons) Validate(_ context.Context, code string) (CouponResult, error) {
	if strings.TrimSpace(code) == "" {
		return CouponResult{}, nil
	}
	return CouponResult{Valid: true, DiscountRate: f.Rate}, nil
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-storefront/models"
)

func newTestCartService(carts *memCarts, products *memProducts) *CartService {
	return NewCartService(carts, products, NewFlatRateCoupons(), newMemCache(), nil, zap.NewNop())
}

func testProduct(price float64, stock int) *models.Product {
	return &models.Product{
		ID:             primitive.NewObjectID(),
		Name:           "Lavender Tincture",
		Price:          price,
		Stock:          stock,
		TrackInventory: true,
	}
}

func TestAddItemComputesTotals(t *testing.T) {
	product := testProduct(20.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	cart, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)

	assert.InDelta(t, 40.00, cart.Subtotal, 0.001)
	assert.InDelta(t, 3.20, cart.TaxAmount, 0.001)
	assert.InDelta(t, 5.99, cart.ShippingAmount, 0.001)
	assert.InDelta(t, 0.00, cart.DiscountAmount, 0.001)
	assert.InDelta(t, 49.19, cart.Total, 0.001)
}

func TestApplyCouponDiscountsSubtotal(t *testing.T) {
	product := testProduct(20.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)

	cart, err := svc.ApplyCoupon(context.Background(), owner, "WELCOME10")
	require.NoError(t, err)

	assert.InDelta(t, 4.00, cart.DiscountAmount, 0.001)
	assert.InDelta(t, 45.19, cart.Total, 0.001)
	assert.Equal(t, "WELCOME10", cart.CouponCode)
}

func TestApplyCouponRejectsBlankCode(t *testing.T) {
	svc := newTestCartService(newMemCarts(), newMemProducts())
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.ApplyCoupon(context.Background(), owner, "   ")
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestFreeShippingAboveThreshold(t *testing.T) {
	product := testProduct(76.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	cart, err := svc.AddItem(context.Background(), owner, product.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.00, cart.ShippingAmount, 0.001)

	// Exactly at the threshold still pays shipping.
	exact := testProduct(75.00, 10)
	svc = newTestCartService(newMemCarts(), newMemProducts(exact))
	cart, err = svc.AddItem(context.Background(), owner, exact.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.99, cart.ShippingAmount, 0.001)
}

func TestAddThenRemoveRestoresTotals(t *testing.T) {
	kept := testProduct(20.00, 10)
	extra := testProduct(13.37, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(kept, extra))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	before, err := svc.AddItem(context.Background(), owner, kept.ID, 2)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), owner, extra.ID, 3)
	require.NoError(t, err)

	after, err := svc.RemoveItem(context.Background(), owner, extra.ID)
	require.NoError(t, err)

	assert.Equal(t, before.Subtotal, after.Subtotal)
	assert.Equal(t, before.TaxAmount, after.TaxAmount)
	assert.Equal(t, before.ShippingAmount, after.ShippingAmount)
	assert.Equal(t, before.Total, after.Total)
}

func TestClearZeroesEverything(t *testing.T) {
	product := testProduct(20.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), owner, "WELCOME10")
	require.NoError(t, err)

	cart, err := svc.Clear(context.Background(), owner)
	require.NoError(t, err)

	assert.Empty(t, cart.Items)
	assert.Empty(t, cart.CouponCode)
	assert.Zero(t, cart.Subtotal)
	assert.Zero(t, cart.TaxAmount)
	assert.Zero(t, cart.ShippingAmount)
	assert.Zero(t, cart.DiscountAmount)
	assert.Zero(t, cart.Total)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	product := testProduct(10.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)
	cart, err := svc.AddItem(context.Background(), owner, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemRejectsOverselling(t *testing.T) {
	product := testProduct(10.00, 4)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.AddItem(context.Background(), owner, product.ID, 3)
	require.NoError(t, err)

	// The merged quantity of 6 exceeds the 4 on the shelf.
	_, err = svc.AddItem(context.Background(), owner, product.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestAddItemAllowsBackorders(t *testing.T) {
	product := testProduct(10.00, 0)
	product.AllowBackorders = true
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	cart, err := svc.AddItem(context.Background(), owner, product.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	product := testProduct(10.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.AddItem(context.Background(), owner, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), owner, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemQuantity(t *testing.T) {
	product := testProduct(10.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.UpdateItemQuantity(context.Background(), owner, product.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)

	cart, err := svc.UpdateItemQuantity(context.Background(), owner, product.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)
	assert.InDelta(t, 70.00, cart.Subtotal, 0.001)

	_, err = svc.UpdateItemQuantity(context.Background(), owner, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRemoveAbsentItemIsNoop(t *testing.T) {
	product := testProduct(10.00, 10)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.AddItem(context.Background(), owner, product.ID, 1)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(context.Background(), owner, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestMutationRetriesOnVersionConflict(t *testing.T) {
	product := testProduct(10.00, 10)
	carts := newMemCarts()
	svc := newTestCartService(carts, newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)

	carts.conflictsLeft = 2
	cart, err := svc.AddItem(context.Background(), owner, product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestMutationGivesUpAfterRepeatedConflicts(t *testing.T) {
	product := testProduct(10.00, 10)
	carts := newMemCarts()
	svc := newTestCartService(carts, newMemProducts(product))
	owner := models.CartOwner{UserID: primitive.NewObjectID()}

	_, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)

	carts.conflictsLeft = maxWriteRetries
	_, err = svc.AddItem(context.Background(), owner, product.ID, 1)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMergeGuestCartSumsQuantities(t *testing.T) {
	shared := testProduct(10.00, 20)
	guestOnly := testProduct(5.00, 20)
	carts := newMemCarts()
	svc := newTestCartService(carts, newMemProducts(shared, guestOnly))

	userID := primitive.NewObjectID()
	accountOwner := models.CartOwner{UserID: userID}
	guestOwner := models.CartOwner{SessionID: "sess-123"}

	_, err := svc.AddItem(context.Background(), accountOwner, shared.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), guestOwner, shared.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), guestOwner, guestOnly.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuestCart(context.Background(), "sess-123", userID))

	cart, err := svc.GetCart(context.Background(), accountOwner)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 5, cart.Item(shared.ID).Quantity)
	assert.Equal(t, 1, cart.Item(guestOnly.ID).Quantity)

	// The guest cart is gone; only the account cart remains.
	assert.Equal(t, 1, carts.count())
}

func TestMergeGuestCartIsIdempotent(t *testing.T) {
	product := testProduct(10.00, 20)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))

	userID := primitive.NewObjectID()
	guestOwner := models.CartOwner{SessionID: "sess-456"}

	_, err := svc.AddItem(context.Background(), guestOwner, product.ID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuestCart(context.Background(), "sess-456", userID))
	require.NoError(t, svc.MergeGuestCart(context.Background(), "sess-456", userID))

	cart, err := svc.GetCart(context.Background(), models.CartOwner{UserID: userID})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestMergeGuestCartWithoutGuestCartIsNoop(t *testing.T) {
	svc := newTestCartService(newMemCarts(), newMemProducts())
	assert.NoError(t, svc.MergeGuestCart(context.Background(), "never-seen", primitive.NewObjectID()))
}

func TestMergeGuestCartCapsAtStock(t *testing.T) {
	product := testProduct(10.00, 4)
	svc := newTestCartService(newMemCarts(), newMemProducts(product))

	userID := primitive.NewObjectID()
	accountOwner := models.CartOwner{UserID: userID}
	guestOwner := models.CartOwner{SessionID: "sess-789"}

	_, err := svc.AddItem(context.Background(), accountOwner, product.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), guestOwner, product.ID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuestCart(context.Background(), "sess-789", userID))

	cart, err := svc.GetCart(context.Background(), accountOwner)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Item(product.ID).Quantity)
}

func TestGetCartCreatesEmptyCartLazily(t *testing.T) {
	svc := newTestCartService(newMemCarts(), newMemProducts())
	owner := models.CartOwner{SessionID: "fresh-session"}

	cart, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
	assert.Equal(t, owner, cart.Owner())
}

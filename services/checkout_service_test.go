package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-storefront/models"
	"go-storefront/repository"
)

type checkoutFixture struct {
	svc      *CheckoutService
	carts    *memCarts
	products *memProducts
	orders   *memOrders
	events   *memPublisher
}

func newCheckoutFixture(products ...*models.Product) *checkoutFixture {
	f := &checkoutFixture{
		carts:    newMemCarts(),
		products: newMemProducts(products...),
		orders:   newMemOrders(),
		events:   &memPublisher{},
	}
	f.svc = NewCheckoutService(f.orders, f.carts, f.products, newMemCache(), f.events, nil, zap.NewNop())
	return f
}

// seedCart stores a cart for the user with the given lines and derived
// totals, the way the cart service would have left it.
func (f *checkoutFixture) seedCart(t *testing.T, userID primitive.ObjectID, items []models.CartItem, prices map[primitive.ObjectID]float64) *models.Cart {
	t.Helper()
	cart := &models.Cart{
		UserID:    userID,
		Items:     items,
		UpdatedAt: time.Now(),
	}
	recomputeTotals(cart, prices, 0)
	require.NoError(t, f.carts.Insert(context.Background(), cart))
	return cart
}

func confirmationFor(userID primitive.ObjectID, txn string) models.PaymentConfirmation {
	return models.PaymentConfirmation{
		PayerID:       userID,
		TransactionID: txn,
		PaymentMethod: "credit_card",
		Currency:      "USD",
		PaidAt:        time.Now(),
		ShippingAddress: models.Address{
			AddressLine1: "12 Meadow Lane",
			City:         "Portland",
			State:        "OR",
			ZipCode:      "97201",
			Country:      "US",
		},
	}
}

func TestCompleteCheckoutMaterializesOrder(t *testing.T) {
	product := testProduct(20.00, 10)
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()
	cart := f.seedCart(t, userID,
		[]models.CartItem{{ProductID: product.ID, Quantity: 2}},
		map[primitive.ObjectID]float64{product.ID: product.Price})

	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-001"))
	require.NoError(t, err)
	require.NotNil(t, order)

	// The order carries the cart's totals verbatim.
	assert.Equal(t, cart.Subtotal, order.Subtotal)
	assert.Equal(t, cart.TaxAmount, order.TaxAmount)
	assert.Equal(t, cart.ShippingAmount, order.ShippingAmount)
	assert.Equal(t, cart.Total, order.Total)
	assert.Equal(t, models.OrderPaid, order.Status)

	// Item snapshot captures the product's name and price at purchase.
	require.Len(t, order.Items, 1)
	assert.Equal(t, product.Name, order.Items[0].Name)
	assert.InDelta(t, 20.00, order.Items[0].Price, 0.001)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// Stock went down, the cart is gone, the event went out.
	assert.Equal(t, 8, f.products.stock(product.ID))
	assert.Equal(t, 0, f.carts.count())
	assert.Equal(t, []string{order.OrderNumber}, f.events.created)
}

func TestCompleteCheckoutIsIdempotentPerTransaction(t *testing.T) {
	product := testProduct(20.00, 10)
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()
	f.seedCart(t, userID,
		[]models.CartItem{{ProductID: product.ID, Quantity: 2}},
		map[primitive.ObjectID]float64{product.ID: product.Price})

	first, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-dup"))
	require.NoError(t, err)

	second, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-dup"))
	assert.ErrorIs(t, err, ErrDuplicateCheckout)
	require.NotNil(t, second)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	// One order, one decrement.
	assert.Equal(t, 1, f.orders.count())
	assert.Equal(t, 8, f.products.stock(product.ID))
}

func TestCompleteCheckoutWithoutCartIsAcknowledged(t *testing.T) {
	f := newCheckoutFixture()

	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(primitive.NewObjectID(), "txn-nocart"))
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, 0, f.orders.count())
}

func TestCompleteCheckoutRequiresTransactionID(t *testing.T) {
	f := newCheckoutFixture()
	conf := confirmationFor(primitive.NewObjectID(), "")

	_, err := f.svc.CompleteCheckout(context.Background(), conf)
	assert.Error(t, err)
}

func TestCompleteCheckoutSurvivesStockFailure(t *testing.T) {
	product := testProduct(20.00, 1)
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()
	f.seedCart(t, userID,
		[]models.CartItem{{ProductID: product.ID, Quantity: 5}},
		map[primitive.ObjectID]float64{product.ID: product.Price})

	// The shelf cannot cover the purchase anymore, but the payment is
	// already taken: the order must still materialize.
	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-short"))
	require.NoError(t, err)
	require.NotNil(t, order)

	stored, err := f.orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, stored.InventoryApplied)
	assert.Equal(t, 1, f.products.stock(product.ID))
}

func TestReconcileInventoryRetriesDecrement(t *testing.T) {
	product := testProduct(20.00, 1)
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()
	f.seedCart(t, userID,
		[]models.CartItem{{ProductID: product.ID, Quantity: 5}},
		map[primitive.ObjectID]float64{product.ID: product.Price})

	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-recon"))
	require.NoError(t, err)

	// Restock, then retry the reconciliation.
	require.NoError(t, f.products.IncrementStock(context.Background(), product.ID, 10))
	require.NoError(t, f.svc.ReconcileInventory(context.Background(), order.ID))

	stored, err := f.orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.InventoryApplied)
	assert.Equal(t, 6, f.products.stock(product.ID))

	// A second retry finds the claim already taken and does nothing.
	require.NoError(t, f.svc.ReconcileInventory(context.Background(), order.ID))
	assert.Equal(t, 6, f.products.stock(product.ID))
}

func TestOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{6}-[0-9A-Z]{4}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, models.NewOrderNumber())
	}
}

func TestCompleteCheckoutRegeneratesCollidingOrderNumber(t *testing.T) {
	product := testProduct(20.00, 10)
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()
	f.seedCart(t, userID,
		[]models.CartItem{{ProductID: product.ID, Quantity: 1}},
		map[primitive.ObjectID]float64{product.ID: product.Price})

	// Pre-claim a swath of numbers; the retry loop must find a free one.
	for i := 0; i < 20; i++ {
		n := models.NewOrderNumber()
		f.orders.numbers[n] = true
	}

	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-collide"))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestBuildOrderDefaults(t *testing.T) {
	f := newCheckoutFixture()
	cart := &models.Cart{UpdatedAt: time.Now()}

	conf := models.PaymentConfirmation{
		PayerID:       primitive.NewObjectID(),
		TransactionID: "txn-defaults",
		PaymentMethod: "stripe_magic", // not an accepted method
	}
	order := f.svc.buildOrder(conf, cart, nil)

	assert.Equal(t, "credit_card", order.PaymentMethod)
	assert.Equal(t, "USD", order.PaymentInfo.Currency)
	assert.Equal(t, cart.UpdatedAt, order.PaymentInfo.PaymentDate)
	assert.Equal(t, order.ShippingAddress, order.BillingAddress)
}

func TestCompleteCheckoutMissingProductKeepsLine(t *testing.T) {
	product := testProduct(20.00, 10)
	vanished := primitive.NewObjectID()
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()

	cart := &models.Cart{
		UserID: userID,
		Items: []models.CartItem{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: vanished, Quantity: 2},
		},
		Subtotal:  40.00,
		Total:     49.19,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.carts.Insert(context.Background(), cart))

	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-gone"))
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	var ghost *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ProductID == vanished {
			ghost = &order.Items[i]
		}
	}
	require.NotNil(t, ghost)
	assert.Empty(t, ghost.Name)
	assert.Equal(t, 2, ghost.Quantity)
}

func TestCompleteCheckoutLosingInsertRaceReturnsExisting(t *testing.T) {
	product := testProduct(20.00, 10)
	f := newCheckoutFixture(product)
	userID := primitive.NewObjectID()
	f.seedCart(t, userID,
		[]models.CartItem{{ProductID: product.ID, Quantity: 1}},
		map[primitive.ObjectID]float64{product.ID: product.Price})

	// A rival delivery already bound the payment id to an order.
	rival := &models.Order{
		UserID:      userID,
		OrderNumber: "ORD-000000-AAAA",
		PaymentInfo: models.PaymentInfo{TransactionID: "txn-race"},
		Status:      models.OrderPaid,
	}
	require.NoError(t, f.orders.Insert(context.Background(), rival))

	order, err := f.svc.CompleteCheckout(context.Background(), confirmationFor(userID, "txn-race"))
	assert.ErrorIs(t, err, ErrDuplicateCheckout)
	require.NotNil(t, order)
	assert.Equal(t, rival.OrderNumber, order.OrderNumber)
}

func TestCheckoutFixtureDecrementContract(t *testing.T) {
	product := testProduct(10.00, 2)
	products := newMemProducts(product)

	require.NoError(t, products.DecrementStock(context.Background(), product.ID, 2))
	err := products.DecrementStock(context.Background(), product.ID, 1)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

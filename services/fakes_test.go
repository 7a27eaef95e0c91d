package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/cache"
	"go-storefront/models"
	"go-storefront/repository"
)

// In-memory store fakes. They honor the same contracts as the Mongo-backed
// implementations: version-checked cart updates, conditional stock
// decrements, status-filtered transitions and test-and-set claims.

type memProducts struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*models.Product
	ratings map[primitive.ObjectID]float64
}

func newMemProducts(products ...*models.Product) *memProducts {
	m := &memProducts{
		byID:    map[primitive.ObjectID]*models.Product{},
		ratings: map[primitive.ObjectID]float64{},
	}
	for _, p := range products {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) Get(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetMany(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]*models.Product{}
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memProducts) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.TrackInventory && !p.AllowBackorders && p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (m *memProducts) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += qty
	return nil
}

func (m *memProducts) SetRating(_ context.Context, id primitive.ObjectID, quantity int, average float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.RatingsQuantity = quantity
	p.RatingsAverage = average
	m.ratings[id] = average
	return nil
}

func (m *memProducts) stock(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Stock
}

type memCarts struct {
	mu sync.Mutex
	// byID holds the authoritative copies.
	byID map[primitive.ObjectID]*models.Cart
	// conflictsLeft injects version races: each conflict bumps the stored
	// version, as a concurrent writer would, and fails the update.
	conflictsLeft int
}

func newMemCarts() *memCarts {
	return &memCarts{byID: map[primitive.ObjectID]*models.Cart{}}
}

func cloneCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp
}

func (m *memCarts) GetByOwner(_ context.Context, owner models.CartOwner) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Owner() == owner {
			return cloneCart(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCarts) Insert(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	cart.Version = 1
	m.byID[cart.ID] = cloneCart(cart)
	return nil
}

func (m *memCarts) Update(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[cart.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		stored.Version++
		return repository.ErrVersionConflict
	}
	if stored.Version != cart.Version {
		return repository.ErrVersionConflict
	}
	cart.Version++
	m.byID[cart.ID] = cloneCart(cart)
	return nil
}

func (m *memCarts) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memCarts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memOrders struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]*models.Order
	byPayment map[string]primitive.ObjectID
	numbers   map[string]bool
}

func newMemOrders() *memOrders {
	return &memOrders{
		byID:      map[primitive.ObjectID]*models.Order{},
		byPayment: map[string]primitive.ObjectID{},
		numbers:   map[string]bool{},
	}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (m *memOrders) Get(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *memOrders) GetByPaymentID(_ context.Context, transactionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPayment[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(m.byID[id]), nil
}

func (m *memOrders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memOrders) Insert(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.numbers[order.OrderNumber] {
		return repository.ErrDuplicateOrderNumber
	}
	if _, ok := m.byPayment[order.PaymentInfo.TransactionID]; ok {
		return repository.ErrDuplicatePayment
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	m.byID[order.ID] = cloneOrder(order)
	m.byPayment[order.PaymentInfo.TransactionID] = order.ID
	m.numbers[order.OrderNumber] = true
	return nil
}

func (m *memOrders) Transition(_ context.Context, id primitive.ObjectID, from []models.OrderStatus, to models.OrderStatus, details *repository.TransitionDetails) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if o.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, repository.ErrInvalidState
	}
	o.StampStatus(to, time.Now())
	if details != nil {
		o.TrackingNumber = details.TrackingNumber
		o.TrackingURL = details.TrackingURL
		o.Notes = details.Notes
	}
	return cloneOrder(o), nil
}

func (m *memOrders) claim(field *bool) (bool, error) {
	if *field {
		return false, nil
	}
	*field = true
	return true, nil
}

func (m *memOrders) ClaimInventoryApplied(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return m.claim(&o.InventoryApplied)
}

func (m *memOrders) ReleaseInventoryApplied(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok {
		o.InventoryApplied = false
	}
	return nil
}

func (m *memOrders) ClaimInventoryRestored(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return m.claim(&o.InventoryRestored)
}

func (m *memOrders) ReleaseInventoryRestored(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok {
		o.InventoryRestored = false
	}
	return nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memReviews struct {
	mu      sync.Mutex
	reviews []*models.Review
}

func newMemReviews() *memReviews { return &memReviews{} }

func (m *memReviews) Insert(_ context.Context, review *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ProductID == review.ProductID && r.UserID == review.UserID {
			return repository.ErrDuplicateReview
		}
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	cp := *review
	m.reviews = append(m.reviews, &cp)
	return nil
}

func (m *memReviews) SetStatus(_ context.Context, id primitive.ObjectID, status models.ReviewStatus, reason string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ID == id {
			r.Status = status
			r.RejectionReason = reason
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReviews) ListByProduct(_ context.Context, productID primitive.ObjectID, onlyApproved bool) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Review{}
	for _, r := range m.reviews {
		if r.ProductID != productID {
			continue
		}
		if onlyApproved && r.Status != models.ReviewApproved {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *memReviews) AggregateRating(_ context.Context, productID primitive.ObjectID) (int, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	sum := 0
	for _, r := range m.reviews {
		if r.ProductID == productID && r.Status == models.ReviewApproved {
			count++
			sum += r.Rating
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return count, float64(sum) / float64(count), nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]*models.Cart
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]*models.Cart{}}
}

func (m *memCache) Get(_ context.Context, owner models.CartOwner) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[owner.Key()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cloneCart(c), nil
}

func (m *memCache) Set(_ context.Context, owner models.CartOwner, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[owner.Key()] = cloneCart(cart)
	return nil
}

func (m *memCache) Delete(_ context.Context, owner models.CartOwner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, owner.Key())
	return nil
}

type memPublisher struct {
	mu      sync.Mutex
	created []string
	cancels []string
}

func (m *memPublisher) PublishOrderCreated(order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, order.OrderNumber)
	return nil
}

func (m *memPublisher) PublishOrderCancelled(order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels = append(m.cancels, order.OrderNumber)
	return nil
}

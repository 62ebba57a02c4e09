package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/providers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/repository"
)

// ---- payment provider ----

type mockProvider struct {
	createIn  providers.CreateSessionInput
	createOut *providers.CheckoutSession
	createErr error

	mu       sync.Mutex
	sessions map[string]*providers.CheckoutSession
	getErr   error
	getCalls int

	event    *providers.WebhookEvent
	eventErr error
}

func (m *mockProvider) CreateCheckoutSession(_ context.Context, in providers.CreateSessionInput) (*providers.CheckoutSession, error) {
	m.createIn = in
	return m.createOut, m.createErr
}

func (m *mockProvider) GetCheckoutSession(ctx context.Context, id string) (*providers.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("session fetch without deadline")
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout.session")
	}
	return s, nil
}

func (m *mockProvider) ConstructEvent(_ []byte, _ string) (*providers.WebhookEvent, error) {
	return m.event, m.eventErr
}

// ---- order repository ----

// memOrderRepo enforces session uniqueness the way the database unique index does.
type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	createErr error
	findErr   error
	creates   int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	for _, o := range r.orders {
		if o.SessionID == order.SessionID {
			return repository.ErrDuplicateSession
		}
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) FindByUserID(_ context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return r.list(func(o *models.Order) bool { return o.UserID == userID }, page, limit)
}

func (r *memOrderRepo) FindAll(_ context.Context, status models.OrderStatus, page, limit int) ([]models.Order, int64, error) {
	return r.list(func(o *models.Order) bool { return status == "" || o.Status == status }, page, limit)
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) list(keep func(*models.Order) bool, page, limit int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Order
	for _, o := range r.orders {
		if keep(o) {
			all = append(all, *o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SessionID < all[j].SessionID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *memOrderRepo) only() *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		cp := *o
		return &cp
	}
	return nil
}

// ---- catalog ----

type mockCatalog struct {
	products map[string]*models.Product
	err      error
}

func (m *mockCatalog) FindProductByName(_ context.Context, name string) (*models.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[name]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

// ---- notifier / archiver / metrics ----

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event models.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.EventType)
	}
	return out
}

type mockArchiver struct {
	ids []string
	err error
}

func (a *mockArchiver) Archive(_ context.Context, eventID, _ string, _ []byte) error {
	a.ids = append(a.ids, eventID)
	return a.err
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]int)}
}

func (c *countingRecorder) RecordCount(_ context.Context, name string, _ map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name]++
	return nil
}

func (c *countingRecorder) RecordLatency(_ context.Context, _ string, _ time.Duration, _ map[string]string) error {
	return nil
}

func (c *countingRecorder) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

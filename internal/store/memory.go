package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"table-orders/internal/models"
)

// Memory is an in-process store used by tests and local development. It
// implements the same push-snapshot semantics as the Postgres store:
// every create or update delivers a fresh full snapshot to the device's
// subscribers.
type Memory struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	bindings    map[string]int
	categories  []models.Category
	menuItems   []models.MenuItem
	payees      map[string]models.GCashPayee
	subscribers map[string][]chan []models.Order

	// Failure injection for tests.
	CreateErr error
	UpdateErr map[string]error

	// CreateBarrier, when set, blocks Create until the channel is closed.
	// CreateEntered receives once the blocked call is in flight. Tests use
	// the pair to hold a submission open.
	CreateBarrier chan struct{}
	CreateEntered chan struct{}

	CreateCalls int
	UpdateCalls int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		orders:      make(map[string]*models.Order),
		bindings:    make(map[string]int),
		payees:      make(map[string]models.GCashPayee),
		subscribers: make(map[string][]chan []models.Order),
		UpdateErr:   make(map[string]error),
	}
}

// SeedCatalog loads the menu served by the catalog side of the store.
func (m *Memory) SeedCatalog(categories []models.Category, items []models.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = categories
	m.menuItems = items
}

// SeedGCashPayee stores a payee details document.
func (m *Memory) SeedGCashPayee(docID string, payee models.GCashPayee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payees[docID] = payee
}

func (m *Memory) Create(ctx context.Context, order *models.Order) (string, error) {
	if m.CreateBarrier != nil {
		if m.CreateEntered != nil {
			m.CreateEntered <- struct{}{}
		}
		<-m.CreateBarrier
	}

	m.mu.Lock()
	m.CreateCalls++
	if m.CreateErr != nil {
		err := m.CreateErr
		m.mu.Unlock()
		return "", &StoreError{Op: "create", Err: err}
	}

	stored := *order
	stored.ID = uuid.NewString()
	m.orders[stored.ID] = &stored
	deviceID := stored.DeviceID
	m.mu.Unlock()

	m.broadcast(deviceID)
	return stored.ID, nil
}

func (m *Memory) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	m.UpdateCalls++
	if err := m.UpdateErr[id]; err != nil {
		m.mu.Unlock()
		return &StoreError{Op: "update", Err: err}
	}

	order, ok := m.orders[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}

	for key, value := range fields {
		switch key {
		case "status":
			order.Status = models.OrderStatus(toString(value))
		case "table_number":
			if n, ok := value.(int); ok {
				order.TableNumber = n
			}
		case "payment_method":
			order.PaymentMethod = models.PaymentMethod(toString(value))
		case "payment_status":
			order.PaymentStatus = models.PaymentStatus(toString(value))
		case "payment_proof":
			order.PaymentProof = toString(value)
		}
	}
	deviceID := order.DeviceID
	m.mu.Unlock()

	m.broadcast(deviceID)
	return nil
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case models.OrderStatus:
		return string(s)
	case models.PaymentStatus:
		return string(s)
	case models.PaymentMethod:
		return string(s)
	}
	return ""
}

func (m *Memory) Get(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *Memory) ListByDevice(ctx context.Context, deviceID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByDeviceLocked(deviceID), nil
}

func (m *Memory) listByDeviceLocked(deviceID string) []models.Order {
	var orders []models.Order
	for _, order := range m.orders {
		if order.DeviceID == deviceID {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

func (m *Memory) ListPendingByDevice(ctx context.Context, deviceID string) ([]models.Order, error) {
	all, _ := m.ListByDevice(ctx, deviceID)
	var pending []models.Order
	for _, order := range all {
		if order.Status == models.StatusPending {
			pending = append(pending, order)
		}
	}
	return pending, nil
}

func (m *Memory) Subscribe(ctx context.Context, deviceID string) (<-chan []models.Order, func(), error) {
	ch := make(chan []models.Order, 16)

	m.mu.Lock()
	m.subscribers[deviceID] = append(m.subscribers[deviceID], ch)
	initial := m.listByDeviceLocked(deviceID)
	m.mu.Unlock()

	ch <- initial

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subscribers[deviceID]
		for i, sub := range subs {
			if sub == ch {
				m.subscribers[deviceID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, unsubscribe, nil
}

// broadcast delivers a fresh snapshot to every subscriber of the device.
func (m *Memory) broadcast(deviceID string) {
	m.mu.Lock()
	snapshot := m.listByDeviceLocked(deviceID)
	subs := append([]chan []models.Order(nil), m.subscribers[deviceID]...)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber; it will catch up on the next snapshot.
		}
	}
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Category(nil), m.categories...), nil
}

func (m *Memory) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MenuItem(nil), m.menuItems...), nil
}

func (m *Memory) GetGCashPayee(ctx context.Context, docID string) (*models.GCashPayee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payee, ok := m.payees[docID]
	if !ok {
		return nil, ErrNotFound
	}
	return &payee, nil
}

func (m *Memory) SaveTableBinding(ctx context.Context, deviceID string, tableNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[deviceID] = tableNumber
	return nil
}

func (m *Memory) LoadTableBinding(ctx context.Context, deviceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.bindings[deviceID]
	if !ok {
		return 0, ErrNotFound
	}
	return n, nil
}

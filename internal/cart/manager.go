package cart

import "sync"

// Manager hands out one cart per device id.
type Manager struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewManager creates an empty cart registry.
func NewManager() *Manager {
	return &Manager{
		carts: make(map[string]*Cart),
	}
}

// Get returns the cart for a device, creating it on first use.
func (m *Manager) Get(deviceID string) *Cart {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[deviceID]
	if !ok {
		c = New()
		m.carts[deviceID] = c
	}
	return c
}

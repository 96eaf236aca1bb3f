package store

import (
	"context"
	"errors"
	"fmt"

	"table-orders/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// StoreError wraps transport and write failures from the backing store.
// Callers surface these as retryable alerts; in-memory state is left
// untouched so the user may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// OrderStore is the document store holding orders. Orders are never
// deleted; cancellation is a status, not removal.
type OrderStore interface {
	// Create persists a new order and returns the store-assigned id.
	Create(ctx context.Context, order *models.Order) (string, error)
	// Update applies a partial-field update to an order.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Get fetches a single order, ErrNotFound if absent.
	Get(ctx context.Context, id string) (*models.Order, error)
	// ListByDevice returns all of a device's orders, newest first.
	ListByDevice(ctx context.Context, deviceID string) ([]models.Order, error)
	// ListPendingByDevice returns the device's orders still in pending.
	ListPendingByDevice(ctx context.Context, deviceID string) ([]models.Order, error)
	// Subscribe delivers full snapshot sets of the device's orders for the
	// lifetime of the subscription. The returned func cancels it.
	Subscribe(ctx context.Context, deviceID string) (<-chan []models.Order, func(), error)
}

// CatalogStore is the read-only menu catalog, fetched once at session start.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	// GetGCashPayee fetches the payee details document shown before a
	// GCash payment, ErrNotFound if not configured.
	GetGCashPayee(ctx context.Context, docID string) (*models.GCashPayee, error)
}

// SessionStore persists per-device session state (the table binding).
type SessionStore interface {
	SaveTableBinding(ctx context.Context, deviceID string, tableNumber int) error
	// LoadTableBinding returns ErrNotFound when the device has no binding.
	LoadTableBinding(ctx context.Context, deviceID string) (int, error)
}

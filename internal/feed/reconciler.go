package feed

import (
	"sync"

	"table-orders/internal/models"
)

// Reconciler maps authoritative order snapshots for one device into the
// local order list and computes notification effects. It is decoupled from
// any transport or rendering: OnSnapshot is pure with respect to I/O, so
// the reconciliation rules are testable on their own.
type Reconciler struct {
	deviceID string

	mu     sync.Mutex
	orders []models.Order
	// notified is the seen-set: order ids already notified this session.
	// It grows monotonically and is never reset, which makes duplicate
	// snapshot deliveries idempotent.
	notified map[string]struct{}
}

// NewReconciler creates a reconciler scoped to one device session.
func NewReconciler(deviceID string) *Reconciler {
	return &Reconciler{
		deviceID: deviceID,
		notified: make(map[string]struct{}),
	}
}

// OptimisticInsert prepends a locally created order so it is visible before
// the authoritative feed confirms it. Records already present under the
// same id are replaced, never duplicated.
func (r *Reconciler) OptimisticInsert(order models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID != "" {
		for i, existing := range r.orders {
			if existing.ID == order.ID {
				r.orders[i] = order
				return
			}
		}
	}
	r.orders = append([]models.Order{order}, r.orders...)
}

// OnSnapshot applies a full authoritative snapshot (newest first) and
// returns exactly one notification for every order that entered accepted,
// ready or cancelled since this session last saw it. Delivering the same
// snapshot twice produces no further notifications: the seen-set check is
// addressed by order id, not by snapshot sequence.
func (r *Reconciler) OnSnapshot(orders []models.Order) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var notifications []models.Notification
	for i := range orders {
		order := orders[i]
		if order.ID == "" {
			continue
		}
		if _, seen := r.notified[order.ID]; seen {
			continue
		}
		if n, ok := models.NotificationFor(&order); ok {
			notifications = append(notifications, n)
			r.notified[order.ID] = struct{}{}
		}
	}

	r.orders = r.merge(orders)
	return notifications
}

// merge replaces the local list with the authoritative snapshot while
// keeping optimistic records the snapshot has not delivered yet. A local
// record without a store id is considered confirmed, and dropped, once a
// snapshot record with its order number and creation time arrives.
func (r *Reconciler) merge(snapshot []models.Order) []models.Order {
	inSnapshot := make(map[string]struct{}, len(snapshot))
	for _, order := range snapshot {
		if order.ID != "" {
			inSnapshot[order.ID] = struct{}{}
		}
	}

	var kept []models.Order
	for _, local := range r.orders {
		if local.ID != "" {
			if _, ok := inSnapshot[local.ID]; ok {
				continue
			}
			kept = append(kept, local)
			continue
		}
		if !containsOrder(snapshot, local) {
			kept = append(kept, local)
		}
	}

	return append(kept, snapshot...)
}

func containsOrder(snapshot []models.Order, local models.Order) bool {
	for _, order := range snapshot {
		if order.OrderNumber == local.OrderNumber && order.CreatedAt.Equal(local.CreatedAt) {
			return true
		}
	}
	return false
}

// Orders returns the current local order list, newest first.
func (r *Reconciler) Orders() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Order(nil), r.orders...)
}

// DeviceID returns the device this reconciler is scoped to.
func (r *Reconciler) DeviceID() string {
	return r.deviceID
}

package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"table-orders/internal/logger"
	"table-orders/internal/models"
	"table-orders/internal/store"
)

func makeOrder(id, number string, status models.OrderStatus, createdAt time.Time) models.Order {
	return models.Order{
		ID:          id,
		DeviceID:    "dev-1",
		TableNumber: 5,
		Items:       []models.CartItem{{Item: models.MenuItem{ID: "m1", Price: 100}, Quantity: 1}},
		Total:       100,
		Status:      status,
		CreatedAt:   createdAt,
		OrderNumber: number,
	}
}

func TestOnSnapshot_NotifiesOnceForAcceptedOrder(t *testing.T) {
	r := NewReconciler("dev-1")
	snapshot := []models.Order{makeOrder("ord-1", "0042", models.StatusAccepted, time.Now())}

	first := r.OnSnapshot(snapshot)
	if len(first) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(first))
	}
	if first[0].Title != "Order Accepted!" {
		t.Errorf("unexpected title %q", first[0].Title)
	}

	// An identical consecutive snapshot must not notify again.
	second := r.OnSnapshot(snapshot)
	if len(second) != 0 {
		t.Errorf("expected no notifications for duplicate snapshot, got %d", len(second))
	}
}

func TestOnSnapshot_NoNotificationForPending(t *testing.T) {
	r := NewReconciler("dev-1")
	snapshot := []models.Order{makeOrder("ord-1", "0042", models.StatusPending, time.Now())}

	if got := r.OnSnapshot(snapshot); len(got) != 0 {
		t.Errorf("expected no notifications for pending, got %d", len(got))
	}

	// The later transition into accepted notifies exactly once.
	snapshot[0].Status = models.StatusAccepted
	if got := r.OnSnapshot(snapshot); len(got) != 1 {
		t.Errorf("expected 1 notification after transition, got %d", len(got))
	}
}

func TestOnSnapshot_SeenSetIsPerOrder(t *testing.T) {
	r := NewReconciler("dev-1")
	now := time.Now()

	first := r.OnSnapshot([]models.Order{
		makeOrder("ord-1", "0001", models.StatusAccepted, now),
		makeOrder("ord-2", "0002", models.StatusReady, now.Add(-time.Minute)),
	})
	if len(first) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(first))
	}

	// A third order appearing later still notifies even though the other
	// two are already in the seen-set.
	second := r.OnSnapshot([]models.Order{
		makeOrder("ord-3", "0003", models.StatusCancelled, now.Add(time.Minute)),
		makeOrder("ord-1", "0001", models.StatusAccepted, now),
		makeOrder("ord-2", "0002", models.StatusReady, now.Add(-time.Minute)),
	})
	if len(second) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(second))
	}
	if second[0].OrderID != "ord-3" {
		t.Errorf("expected notification for ord-3, got %s", second[0].OrderID)
	}
}

func TestOnSnapshot_OrderAlreadyAcceptedAtFirstSight(t *testing.T) {
	// A status change that happened while the session was not looking still
	// notifies on the first snapshot that shows it.
	r := NewReconciler("dev-1")
	got := r.OnSnapshot([]models.Order{makeOrder("ord-1", "0042", models.StatusReady, time.Now())})
	if len(got) != 1 || got[0].Title != "Order Ready to Serve!" {
		t.Fatalf("expected ready notification, got %+v", got)
	}
}

func TestOptimisticInsert_ReplacedByAuthoritativeSnapshot(t *testing.T) {
	r := NewReconciler("dev-1")
	createdAt := time.Now()

	local := makeOrder("ord-1", "0042", models.StatusPending, createdAt)
	r.OptimisticInsert(local)

	if got := len(r.Orders()); got != 1 {
		t.Fatalf("expected 1 local order, got %d", got)
	}

	// The authoritative record carrying the same id supersedes the local
	// one instead of duplicating it.
	r.OnSnapshot([]models.Order{makeOrder("ord-1", "0042", models.StatusPending, createdAt)})
	orders := r.Orders()
	if len(orders) != 1 {
		t.Fatalf("expected 1 order after reconciliation, got %d", len(orders))
	}
	if orders[0].ID != "ord-1" {
		t.Errorf("unexpected order id %s", orders[0].ID)
	}
}

func TestOptimisticInsert_WithoutIDMatchedByNumberAndTime(t *testing.T) {
	r := NewReconciler("dev-1")
	createdAt := time.Now()

	r.OptimisticInsert(makeOrder("", "0042", models.StatusPending, createdAt))
	r.OnSnapshot([]models.Order{makeOrder("ord-1", "0042", models.StatusPending, createdAt)})

	orders := r.Orders()
	if len(orders) != 1 {
		t.Fatalf("expected id-less local record to be replaced, got %d orders", len(orders))
	}
	if orders[0].ID != "ord-1" {
		t.Errorf("expected the authoritative record to remain, got id %q", orders[0].ID)
	}
}

func TestOptimisticInsert_SameIDNotDuplicated(t *testing.T) {
	r := NewReconciler("dev-1")
	order := makeOrder("ord-1", "0042", models.StatusPending, time.Now())

	r.OptimisticInsert(order)
	r.OptimisticInsert(order)

	if got := len(r.Orders()); got != 1 {
		t.Errorf("expected 1 order, got %d", got)
	}
}

func TestOptimisticInsert_KeptUntilSnapshotDeliversIt(t *testing.T) {
	r := NewReconciler("dev-1")
	now := time.Now()

	older := makeOrder("ord-1", "0001", models.StatusPending, now.Add(-time.Hour))
	r.OnSnapshot([]models.Order{older})

	// Optimistic record not yet in the feed survives an older snapshot.
	fresh := makeOrder("ord-2", "0002", models.StatusPending, now)
	r.OptimisticInsert(fresh)
	r.OnSnapshot([]models.Order{older})

	orders := r.Orders()
	if len(orders) != 2 {
		t.Fatalf("expected optimistic record kept, got %d orders", len(orders))
	}
	if orders[0].ID != "ord-2" {
		t.Errorf("expected optimistic record first, got %s", orders[0].ID)
	}
}

type captureSink struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (c *captureSink) Deliver(ctx context.Context, n models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, n)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notifications)
}

func TestManager_EndToEndNotification(t *testing.T) {
	mem := store.NewMemory()
	sink := &captureSink{}
	manager := NewManager(mem, logger.New("test"), sink)
	defer manager.Close()

	ctx := context.Background()
	reconciler, err := manager.Attach("dev-1")
	if err != nil {
		t.Fatalf("Attach returned error: %v", err)
	}
	if again, _ := manager.Attach("dev-1"); again != reconciler {
		t.Error("expected one reconciler per device")
	}

	id, err := mem.Create(ctx, &models.Order{
		DeviceID:    "dev-1",
		TableNumber: 5,
		Items:       []models.CartItem{{Item: models.MenuItem{ID: "m1", Price: 100}, Quantity: 1}},
		Total:       100,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
		OrderNumber: "0042",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := mem.Update(ctx, id, map[string]interface{}{"status": models.StatusAccepted}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for notification")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.notifications[0].Status != models.StatusAccepted {
		t.Errorf("expected accepted notification, got %s", sink.notifications[0].Status)
	}
}

func TestManager_WatchStreamsEvents(t *testing.T) {
	mem := store.NewMemory()
	manager := NewManager(mem, logger.New("test"))
	defer manager.Close()

	events, detach, err := manager.Watch("dev-1")
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer detach()

	select {
	case event := <-events:
		if len(event.Orders) != 0 {
			t.Errorf("expected empty initial order set, got %d", len(event.Orders))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial event")
	}

	if _, err := mem.Create(context.Background(), &models.Order{
		DeviceID:    "dev-1",
		Items:       []models.CartItem{{Item: models.MenuItem{ID: "m1", Price: 100}, Quantity: 1}},
		Total:       100,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
		OrderNumber: "0042",
	}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if len(event.Orders) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for order event")
		}
	}
}

package feed

import (
	"context"
	"sync"

	"table-orders/internal/logger"
	"table-orders/internal/metrics"
	"table-orders/internal/models"
	"table-orders/internal/store"
)

// Sink receives the notification effects computed by a reconciler.
type Sink interface {
	Deliver(ctx context.Context, notification models.Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, notification models.Notification) error

func (f SinkFunc) Deliver(ctx context.Context, notification models.Notification) error {
	return f(ctx, notification)
}

// Manager owns one reconciler and store subscription per device session.
// Snapshot callbacks run synchronously on the subscription goroutine and
// never block on a sink: sink failures are logged and dropped.
type Manager struct {
	store  store.OrderStore
	logger *logger.Logger
	sinks  []Sink

	// ctx bounds every subscription; it outlives any single request so a
	// device's feed keeps running between connections.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*feedSession
}

type feedSession struct {
	reconciler *Reconciler
	cancel     func()

	mu       sync.Mutex
	watchers map[chan Event]struct{}
}

// Event is one update pushed to a live feed watcher: the reconciled order
// set plus any notifications the snapshot produced.
type Event struct {
	Orders        []models.Order        `json:"orders"`
	Notifications []models.Notification `json:"notifications,omitempty"`
}

func (s *feedSession) addWatcher(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[ch] = struct{}{}
}

func (s *feedSession) removeWatcher(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, ch)
}

// broadcast pushes an event to every watcher without blocking. A watcher
// that is not draining misses the event and catches up on the next one.
func (s *feedSession) broadcast(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}

// NewManager creates a feed manager fanning notifications out to sinks.
func NewManager(orderStore store.OrderStore, log *logger.Logger, sinks ...Sink) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    orderStore,
		logger:   log,
		sinks:    sinks,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*feedSession),
	}
}

// Attach returns the device's reconciler, starting its store subscription
// on first use. The subscription lives until Close.
func (m *Manager) Attach(deviceID string) (*Reconciler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[deviceID]; ok {
		return existing.reconciler, nil
	}

	snapshots, unsubscribe, err := m.store.Subscribe(m.ctx, deviceID)
	if err != nil {
		return nil, err
	}

	reconciler := NewReconciler(deviceID)
	session := &feedSession{
		reconciler: reconciler,
		cancel:     unsubscribe,
		watchers:   make(map[chan Event]struct{}),
	}
	m.sessions[deviceID] = session

	go m.run(session, snapshots)
	return reconciler, nil
}

// Watch attaches the device's feed and returns a channel of live events.
// The first event carries the current reconciled order set. The returned
// func detaches the watcher; the underlying subscription stays alive for
// the device until Close.
func (m *Manager) Watch(deviceID string) (<-chan Event, func(), error) {
	reconciler, err := m.Attach(deviceID)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	session := m.sessions[deviceID]
	m.mu.Unlock()

	ch := make(chan Event, 8)
	ch <- Event{Orders: reconciler.Orders()}
	session.addWatcher(ch)

	return ch, func() { session.removeWatcher(ch) }, nil
}

// run consumes snapshots for one device and dispatches notifications.
func (m *Manager) run(session *feedSession, snapshots <-chan []models.Order) {
	for snapshot := range snapshots {
		notifications := session.reconciler.OnSnapshot(snapshot)
		for _, notification := range notifications {
			m.dispatch(m.ctx, notification)
		}
		session.broadcast(Event{
			Orders:        session.reconciler.Orders(),
			Notifications: notifications,
		})
	}
}

func (m *Manager) dispatch(ctx context.Context, notification models.Notification) {
	m.logger.Info("notification_emitted", notification.Title, "", map[string]interface{}{
		"order_id":     notification.OrderID,
		"order_number": notification.OrderNumber,
		"status":       string(notification.Status),
	})

	for _, sink := range m.sinks {
		if err := sink.Deliver(ctx, notification); err != nil {
			m.logger.Error("notification_delivery_failed", "Sink rejected notification", "", err, map[string]interface{}{
				"order_id": notification.OrderID,
				"status":   string(notification.Status),
			})
			continue
		}
		metrics.RecordNotificationSent()
	}
}

// Close cancels every live subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()
	for deviceID, session := range m.sessions {
		session.cancel()
		delete(m.sessions, deviceID)
	}
}

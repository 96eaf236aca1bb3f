package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"table-orders/internal/cart"
	"table-orders/internal/logger"
	"table-orders/internal/models"
	"table-orders/internal/session"
	"table-orders/internal/store"
)

var (
	// ErrSubmitInFlight rejects a submit while another one for the same
	// device has not settled yet. The second attempt is dropped, not queued.
	ErrSubmitInFlight = errors.New("a submission is already in flight")

	// ErrConfirmationRequired is returned when a cancel has been requested
	// but not yet confirmed by the customer.
	ErrConfirmationRequired = errors.New("cancellation requires confirmation")

	// ErrNotCancellable rejects a cancel on any status other than pending.
	ErrNotCancellable = errors.New("order can no longer be cancelled")

	// ErrAlreadyPaid rejects a payment on an order whose payment settled.
	ErrAlreadyPaid = errors.New("order is already paid")

	// ErrPaymentInProgress rejects a payment while an earlier one is still
	// being processed.
	ErrPaymentInProgress = errors.New("a payment is already being processed")
)

// Service drives the customer-side order lifecycle: submit, cancel and
// payment. Staff-side transitions (accepted, ready, served) happen outside
// this service and are only observed through the order feed.
type Service struct {
	store    store.OrderStore
	catalog  store.CatalogStore
	binding  *session.Binding
	carts    *cart.Manager
	logger   *logger.Logger
	payeeDoc string

	mu         sync.Mutex
	submitting map[string]bool
}

// NewService creates the order lifecycle service.
func NewService(orderStore store.OrderStore, catalog store.CatalogStore, binding *session.Binding, carts *cart.Manager, log *logger.Logger, payeeDoc string) *Service {
	return &Service{
		store:      orderStore,
		catalog:    catalog,
		binding:    binding,
		carts:      carts,
		logger:     log,
		payeeDoc:   payeeDoc,
		submitting: make(map[string]bool),
	}
}

// Submit freezes the device's cart into a new pending order. Preconditions:
// cart non-empty, table number bound, no submission already in flight for
// the device. On success the cart is cleared and the created order, carrying
// the store-assigned id, is returned for an optimistic local insert. On a
// store failure the cart is left untouched so the customer may retry.
func (s *Service) Submit(ctx context.Context, deviceID, requestID string) (*models.Order, error) {
	s.mu.Lock()
	if s.submitting[deviceID] {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.submitting[deviceID] = true
	s.mu.Unlock()

	// The guard stays set until the store call settles, success or not.
	defer func() {
		s.mu.Lock()
		delete(s.submitting, deviceID)
		s.mu.Unlock()
	}()

	deviceCart := s.carts.Get(deviceID)
	items := deviceCart.Items()
	if len(items) == 0 {
		return nil, models.NewValidationError("cart", "cart is empty")
	}

	tableNumber, err := s.binding.TableFor(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if tableNumber < 1 {
		return nil, models.NewValidationError("table_number", "no table number bound")
	}

	newOrder := &models.Order{
		DeviceID:      deviceID,
		TableNumber:   tableNumber,
		Items:         items,
		Status:        models.StatusPending,
		CreatedAt:     time.Now().UTC(),
		PaymentMethod: models.MethodCash,
		PaymentStatus: models.PaymentPending,
		OrderNumber:   models.GenerateOrderNumber(),
	}
	newOrder.Total = newOrder.RecomputeTotal()

	id, err := s.store.Create(ctx, newOrder)
	if err != nil {
		s.logger.Error("order_create_failed", "Failed to persist order", requestID, err, map[string]interface{}{
			"device_id": deviceID,
		})
		return nil, err
	}
	newOrder.ID = id

	deviceCart.Clear()

	s.logger.Info("order_submitted", "Order submitted", requestID, map[string]interface{}{
		"order_id":     id,
		"order_number": newOrder.OrderNumber,
		"device_id":    deviceID,
		"table_number": tableNumber,
		"total":        newOrder.Total,
	})
	return newOrder, nil
}

// Cancel moves a pending order to cancelled. The customer confirms in two
// steps: a request without confirmation is rejected with
// ErrConfirmationRequired and nothing is written. Cancelled is terminal.
func (s *Service) Cancel(ctx context.Context, deviceID, orderID, requestID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	existing, err := s.ownedOrder(ctx, deviceID, orderID)
	if err != nil {
		return err
	}
	if !existing.CanCancel() {
		return ErrNotCancellable
	}

	if err := s.store.Update(ctx, orderID, map[string]interface{}{
		"status": models.StatusCancelled,
	}); err != nil {
		return err
	}

	s.logger.Info("order_cancelled", "Order cancelled by customer", requestID, map[string]interface{}{
		"order_id":     orderID,
		"order_number": existing.OrderNumber,
	})
	return nil
}

// SubmitPayment records the chosen payment method on an accepted order
// whose payment is still pending; a payment already processing or settled
// is rejected. GCash requires a non-empty reference number; without it the
// action is rejected before any store call and no partial write occurs.
func (s *Service) SubmitPayment(ctx context.Context, deviceID, orderID, requestID string, method models.PaymentMethod, proof string) error {
	method = models.PaymentMethod(strings.ToLower(string(method)))
	switch method {
	case models.MethodCash, models.MethodGCash:
	default:
		return models.NewValidationError("payment_method", "must be cash or gcash")
	}

	proof = strings.TrimSpace(proof)
	if method == models.MethodGCash && proof == "" {
		return models.NewValidationError("payment_proof", "GCash reference number is required")
	}

	existing, err := s.ownedOrder(ctx, deviceID, orderID)
	if err != nil {
		return err
	}
	if existing.PaymentStatus == models.PaymentPaid {
		return ErrAlreadyPaid
	}
	if existing.PaymentStatus == models.PaymentProcessing {
		return ErrPaymentInProgress
	}
	if existing.Status != models.StatusAccepted {
		return models.NewValidationError("status", "payment is only available on accepted orders")
	}

	fields := map[string]interface{}{
		"payment_method": method,
		"payment_status": models.PaymentPaid,
		"status":         models.StatusPaid,
	}
	if method == models.MethodGCash {
		fields["payment_proof"] = proof
	}

	if err := s.store.Update(ctx, orderID, fields); err != nil {
		return err
	}

	s.logger.Info("payment_submitted", "Payment recorded", requestID, map[string]interface{}{
		"order_id":       orderID,
		"order_number":   existing.OrderNumber,
		"payment_method": string(method),
	})
	return nil
}

// Orders returns all of the device's orders, newest first.
func (s *Service) Orders(ctx context.Context, deviceID string) ([]models.Order, error) {
	return s.store.ListByDevice(ctx, deviceID)
}

// GetOrder returns one of the device's orders.
func (s *Service) GetOrder(ctx context.Context, deviceID, orderID string) (*models.Order, error) {
	return s.ownedOrder(ctx, deviceID, orderID)
}

// GCashPayee returns the payee details shown before a GCash payment.
func (s *Service) GCashPayee(ctx context.Context) (*models.GCashPayee, error) {
	return s.catalog.GetGCashPayee(ctx, s.payeeDoc)
}

// ownedOrder fetches an order and hides it behind ErrNotFound when it
// belongs to another device.
func (s *Service) ownedOrder(ctx context.Context, deviceID, orderID string) (*models.Order, error) {
	existing, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.DeviceID != deviceID {
		return nil, store.ErrNotFound
	}
	return existing, nil
}

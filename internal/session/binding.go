package session

import (
	"context"
	"errors"
	"strconv"

	"table-orders/internal/logger"
	"table-orders/internal/models"
	"table-orders/internal/store"
)

// Binding manages the table number bound to a device session. A bind
// persists the number and then best-effort propagates it to the device's
// orders still in pending; orders already accepted or later are never
// touched retroactively.
type Binding struct {
	sessions store.SessionStore
	orders   store.OrderStore
	logger   *logger.Logger
}

// NewBinding creates a table binding service.
func NewBinding(sessions store.SessionStore, orders store.OrderStore, log *logger.Logger) *Binding {
	return &Binding{
		sessions: sessions,
		orders:   orders,
		logger:   log,
	}
}

// Resolve picks the session's table number with query parameter taking
// priority over the persisted value. A non-empty parameter rebinds the
// session. Returns 0 when no binding exists yet.
func (b *Binding) Resolve(ctx context.Context, deviceID, queryParam string) (int, error) {
	if queryParam != "" {
		tableNumber, err := strconv.Atoi(queryParam)
		if err != nil || tableNumber < 1 {
			return 0, models.NewValidationError("table_number", "must be a positive integer")
		}
		if err := b.Bind(ctx, deviceID, tableNumber); err != nil {
			var partial *models.PartialBatchError
			if !errors.As(err, &partial) {
				return 0, err
			}
		}
		return tableNumber, nil
	}

	tableNumber, err := b.sessions.LoadTableBinding(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return tableNumber, nil
}

// Bind persists the table number and updates every pending order of the
// device to carry it. Individual update failures are logged but not
// retried; updates that succeeded are not rolled back.
func (b *Binding) Bind(ctx context.Context, deviceID string, tableNumber int) error {
	if tableNumber < 1 {
		return models.NewValidationError("table_number", "must be a positive integer")
	}

	if err := b.sessions.SaveTableBinding(ctx, deviceID, tableNumber); err != nil {
		return err
	}

	pending, err := b.orders.ListPendingByDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	failures := make(map[string]error)
	for _, order := range pending {
		if err := b.orders.Update(ctx, order.ID, map[string]interface{}{
			"table_number": tableNumber,
		}); err != nil {
			failures[order.ID] = err
			b.logger.Error("table_rebind_partial", "Failed to update table number on pending order", "", err, map[string]interface{}{
				"order_id":     order.ID,
				"device_id":    deviceID,
				"table_number": tableNumber,
			})
		}
	}

	b.logger.Info("table_bound", "Table number bound to device session", "", map[string]interface{}{
		"device_id":    deviceID,
		"table_number": tableNumber,
		"pending":      len(pending),
		"failed":       len(failures),
	})

	if len(failures) > 0 {
		return &models.PartialBatchError{Op: "table rebind", Failures: failures}
	}
	return nil
}

// TableFor returns the persisted table number, 0 when none is bound.
func (b *Binding) TableFor(ctx context.Context, deviceID string) (int, error) {
	tableNumber, err := b.sessions.LoadTableBinding(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return tableNumber, nil
}

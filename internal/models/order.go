package models

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPaid      OrderStatus = "paid"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents the payment sub-state of an order
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
)

// PaymentMethod is how the customer chooses to pay
type PaymentMethod string

const (
	MethodCash  PaymentMethod = "cash"
	MethodGCash PaymentMethod = "gcash"
)

// CartItem is a menu item snapshot plus quantity and the options selected
// for it. The snapshot is frozen into the order at submission time.
type CartItem struct {
	Item            MenuItem         `json:"item"`
	Quantity        int              `json:"quantity"`
	SelectedOptions []SelectedOption `json:"selected_options"`
}

// UnitPrice returns the item price including all selected option deltas.
func (ci CartItem) UnitPrice() float64 {
	price := ci.Item.Price
	for _, opt := range ci.SelectedOptions {
		price += opt.Price
	}
	return price
}

// Subtotal returns the line total for this cart entry.
func (ci CartItem) Subtotal() float64 {
	return ci.UnitPrice() * float64(ci.Quantity)
}

// Order represents a customer order. The id is assigned by the store on
// creation and is empty on records that have not been persisted yet.
type Order struct {
	ID            string        `json:"id,omitempty"`
	DeviceID      string        `json:"device_id"`
	TableNumber   int           `json:"table_number"`
	Items         []CartItem    `json:"items"`
	Total         float64       `json:"total"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentProof  string        `json:"payment_proof,omitempty"`
	OrderNumber   string        `json:"order_number"`
}

// RecomputeTotal sums the order's item subtotals. The stored Total field is
// a cache of this value and is never authoritative over the items list.
func (o *Order) RecomputeTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// CanCancel reports whether the customer may still cancel the order.
// Cancellation is only reachable from pending.
func (o *Order) CanCancel() bool {
	return o.Status == StatusPending
}

// IsTerminal reports whether no further status transitions are possible.
func IsTerminal(status OrderStatus) bool {
	return status == StatusServed || status == StatusCancelled
}

// ValidTransition reports whether an order may move from one status to
// another. pending -> accepted -> paid -> ready -> served is the happy
// path; cancelled is reachable from pending (customer) and accepted (staff).
func ValidTransition(from, to OrderStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusCancelled
	case StatusAccepted:
		return to == StatusPaid || to == StatusReady || to == StatusCancelled
	case StatusPaid:
		return to == StatusReady
	case StatusReady:
		return to == StatusServed
	default:
		return false
	}
}

// GenerateOrderNumber returns a short rotating display code shown to the
// customer. It is distinct from the store-assigned id and need not be
// unique across all time.
func GenerateOrderNumber() string {
	n := 10000 + rand.Intn(90000)
	return fmt.Sprintf("%05d", n)[1:]
}

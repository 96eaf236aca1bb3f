package models

import "fmt"

// Notification is a customer-facing status change message. The same text is
// used for the in-app modal and for OS-level notifications where available.
type Notification struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
}

// NotificationFor builds the notification for an order's current status.
// Only accepted, ready and cancelled produce customer notifications; for
// every other status it returns false.
func NotificationFor(order *Order) (Notification, bool) {
	n := Notification{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
	}

	switch order.Status {
	case StatusAccepted:
		n.Title = "Order Accepted!"
		n.Body = fmt.Sprintf("Your order #%s has been accepted. Total: ₱%.2f", order.OrderNumber, order.Total)
	case StatusReady:
		n.Title = "Order Ready to Serve!"
		n.Body = fmt.Sprintf("Your order #%s is ready to serve.", order.OrderNumber)
	case StatusCancelled:
		n.Title = "Order Cancelled!"
		n.Body = fmt.Sprintf("Your order #%s has been cancelled.", order.OrderNumber)
	default:
		return Notification{}, false
	}

	return n, true
}

package models

import (
	"testing"
)

func TestCartItem_Subtotal(t *testing.T) {
	item := CartItem{
		Item:     MenuItem{ID: "b1", Name: "Burger", Price: 50},
		Quantity: 1,
		SelectedOptions: []SelectedOption{
			{ID: "o1", Name: "Extra cheese", Price: 10},
		},
	}
	if got := item.Subtotal(); got != 60 {
		t.Errorf("Subtotal() = %.2f, want 60.00", got)
	}
}

func TestOrder_RecomputeTotal(t *testing.T) {
	order := Order{
		Items: []CartItem{
			{Item: MenuItem{ID: "a", Price: 100}, Quantity: 2},
			{Item: MenuItem{ID: "b", Price: 50}, Quantity: 1,
				SelectedOptions: []SelectedOption{{ID: "o", Price: 10}}},
		},
	}
	if got := order.RecomputeTotal(); got != 260 {
		t.Errorf("RecomputeTotal() = %.2f, want 260.00", got)
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to ready", StatusPending, StatusReady, false},
		{"accepted to paid", StatusAccepted, StatusPaid, true},
		{"accepted to cancelled", StatusAccepted, StatusCancelled, true},
		{"paid to ready", StatusPaid, StatusReady, true},
		{"ready to served", StatusReady, StatusServed, true},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"served is terminal", StatusServed, StatusReady, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanCancel(t *testing.T) {
	for _, status := range []OrderStatus{StatusAccepted, StatusPaid, StatusReady, StatusServed, StatusCancelled} {
		order := Order{Status: status}
		if order.CanCancel() {
			t.Errorf("expected CanCancel() to be false for status %s", status)
		}
	}
	order := Order{Status: StatusPending}
	if !order.CanCancel() {
		t.Error("expected CanCancel() to be true for pending")
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	for i := 0; i < 100; i++ {
		number := GenerateOrderNumber()
		if len(number) != 4 {
			t.Fatalf("expected 4-digit order number, got %q", number)
		}
		for _, r := range number {
			if r < '0' || r > '9' {
				t.Fatalf("expected numeric order number, got %q", number)
			}
		}
	}
}

func TestNotificationFor(t *testing.T) {
	order := &Order{ID: "ord-1", OrderNumber: "0042", Total: 260, Status: StatusAccepted}

	n, ok := NotificationFor(order)
	if !ok {
		t.Fatal("expected notification for accepted order")
	}
	if n.Title != "Order Accepted!" {
		t.Errorf("unexpected title %q", n.Title)
	}
	if n.Body != "Your order #0042 has been accepted. Total: ₱260.00" {
		t.Errorf("unexpected body %q", n.Body)
	}

	order.Status = StatusReady
	n, _ = NotificationFor(order)
	if n.Body != "Your order #0042 is ready to serve." {
		t.Errorf("unexpected body %q", n.Body)
	}

	order.Status = StatusCancelled
	n, _ = NotificationFor(order)
	if n.Body != "Your order #0042 has been cancelled." {
		t.Errorf("unexpected body %q", n.Body)
	}

	order.Status = StatusPending
	if _, ok := NotificationFor(order); ok {
		t.Error("expected no notification for pending order")
	}
}

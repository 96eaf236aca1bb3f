package order

import (
	"context"
	"errors"
	"strings"
	"testing"

	"table-orders/internal/cart"
	"table-orders/internal/logger"
	"table-orders/internal/models"
	"table-orders/internal/session"
	"table-orders/internal/store"
)

var (
	burger = models.MenuItem{ID: "m1", Name: "Burger", Price: 100, Category: "mains"}
	fries  = models.MenuItem{ID: "m2", Name: "Fries", Price: 50, Category: "sides"}
	cheese = models.SelectedOption{ID: "o1", Name: "Extra cheese", Price: 10}
)

type fixture struct {
	mem     *store.Memory
	carts   *cart.Manager
	binding *session.Binding
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	carts := cart.NewManager()
	log := logger.New("test")
	binding := session.NewBinding(mem, mem, log)
	return &fixture{
		mem:     mem,
		carts:   carts,
		binding: binding,
		service: NewService(mem, mem, binding, carts, log, "gcash-payee"),
	}
}

func (f *fixture) bindTable(t *testing.T, deviceID string, table int) {
	t.Helper()
	if err := f.binding.Bind(context.Background(), deviceID, table); err != nil {
		t.Fatalf("failed to bind table: %v", err)
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)

	c := f.carts.Get("dev-1")
	c.AddItem(burger, nil)
	c.AddItem(burger, nil)
	c.AddItem(fries, []models.SelectedOption{cheese})

	created, err := f.service.Submit(ctx, "dev-1", "req-1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected a store-assigned id")
	}
	if created.Status != models.StatusPending {
		t.Errorf("expected pending status, got %s", created.Status)
	}
	if created.Total != 260 {
		t.Errorf("expected total 260, got %.2f", created.Total)
	}
	if created.TableNumber != 5 {
		t.Errorf("expected table 5, got %d", created.TableNumber)
	}
	if created.OrderNumber == "" {
		t.Error("expected an order number at creation")
	}
	if c.Len() != 0 {
		t.Error("expected cart cleared after submit")
	}

	// Total stays frozen: later cart mutations must not touch the order.
	c.AddItem(burger, nil)
	stored, _ := f.mem.Get(ctx, created.ID)
	if stored.Total != 260 {
		t.Errorf("expected frozen total 260, got %.2f", stored.Total)
	}
}

func TestSubmit_EmptyCartRejectedBeforeStore(t *testing.T) {
	f := newFixture(t)
	f.bindTable(t, "dev-1", 5)

	_, err := f.service.Submit(context.Background(), "dev-1", "req-1")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.mem.CreateCalls != 0 {
		t.Errorf("expected no store create call, got %d", f.mem.CreateCalls)
	}
}

func TestSubmit_RequiresTableBinding(t *testing.T) {
	f := newFixture(t)
	f.carts.Get("dev-1").AddItem(burger, nil)

	_, err := f.service.Submit(context.Background(), "dev-1", "req-1")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.mem.CreateCalls != 0 {
		t.Errorf("expected no store create call, got %d", f.mem.CreateCalls)
	}
}

func TestSubmit_StoreFailureLeavesCartIntact(t *testing.T) {
	f := newFixture(t)
	f.bindTable(t, "dev-1", 5)
	f.mem.CreateErr = errors.New("store unreachable")

	c := f.carts.Get("dev-1")
	c.AddItem(burger, nil)

	_, err := f.service.Submit(context.Background(), "dev-1", "req-1")
	var serr *store.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if c.Len() != 1 {
		t.Error("expected cart untouched after store failure so the user may retry")
	}

	// And the guard was released: a retry reaches the store again.
	f.mem.CreateErr = nil
	if _, err := f.service.Submit(context.Background(), "dev-1", "req-2"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestSubmit_SecondAttemptWhileInFlightIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)
	f.carts.Get("dev-1").AddItem(burger, nil)

	f.mem.CreateBarrier = make(chan struct{})
	f.mem.CreateEntered = make(chan struct{}, 1)
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.service.Submit(ctx, "dev-1", "req-1")
		firstDone <- err
	}()

	// Wait until the first submit is inside the store call, then try again.
	<-f.mem.CreateEntered
	if _, err := f.service.Submit(ctx, "dev-1", "req-2"); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(f.mem.CreateBarrier)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}
	if f.mem.CreateCalls != 1 {
		t.Errorf("expected exactly one store create, got %d", f.mem.CreateCalls)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)
	f.carts.Get("dev-1").AddItem(burger, nil)
	created, err := f.service.Submit(ctx, "dev-1", "req-1")
	if err != nil {
		t.Fatal(err)
	}

	// First step: request without confirmation writes nothing.
	if err := f.service.Cancel(ctx, "dev-1", created.ID, "req-2", false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	stored, _ := f.mem.Get(ctx, created.ID)
	if stored.Status != models.StatusPending {
		t.Fatalf("expected status unchanged, got %s", stored.Status)
	}

	// Second step: confirmed cancel applies.
	if err := f.service.Cancel(ctx, "dev-1", created.ID, "req-3", true); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	stored, _ = f.mem.Get(ctx, created.ID)
	if stored.Status != models.StatusCancelled {
		t.Errorf("expected cancelled, got %s", stored.Status)
	}
}

func TestCancel_OnlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)

	for _, status := range []models.OrderStatus{
		models.StatusAccepted, models.StatusPaid, models.StatusReady,
		models.StatusServed, models.StatusCancelled,
	} {
		f.carts.Get("dev-1").AddItem(burger, nil)
		created, err := f.service.Submit(ctx, "dev-1", "req-1")
		if err != nil {
			t.Fatal(err)
		}
		if err := f.mem.Update(ctx, created.ID, map[string]interface{}{"status": status}); err != nil {
			t.Fatal(err)
		}

		if err := f.service.Cancel(ctx, "dev-1", created.ID, "req-2", true); !errors.Is(err, ErrNotCancellable) {
			t.Errorf("status %s: expected ErrNotCancellable, got %v", status, err)
		}
		stored, _ := f.mem.Get(ctx, created.ID)
		if stored.Status != status {
			t.Errorf("status %s: expected status unchanged, got %s", status, stored.Status)
		}
	}
}

func TestCancel_OtherDeviceOrderHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)
	f.carts.Get("dev-1").AddItem(burger, nil)
	created, _ := f.service.Submit(ctx, "dev-1", "req-1")

	err := f.service.Cancel(ctx, "dev-2", created.ID, "req-2", true)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another device's order, got %v", err)
	}
}

func submitAccepted(t *testing.T, f *fixture) *models.Order {
	t.Helper()
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)
	f.carts.Get("dev-1").AddItem(burger, nil)
	created, err := f.service.Submit(ctx, "dev-1", "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mem.Update(ctx, created.ID, map[string]interface{}{"status": models.StatusAccepted}); err != nil {
		t.Fatal(err)
	}
	return created
}

func TestSubmitPayment_Cash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := submitAccepted(t, f)

	if err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-2", models.MethodCash, ""); err != nil {
		t.Fatalf("SubmitPayment returned error: %v", err)
	}

	stored, _ := f.mem.Get(ctx, created.ID)
	if stored.PaymentStatus != models.PaymentPaid {
		t.Errorf("expected payment status paid, got %s", stored.PaymentStatus)
	}
	if stored.Status != models.StatusPaid {
		t.Errorf("expected status paid, got %s", stored.Status)
	}
	if stored.PaymentMethod != models.MethodCash {
		t.Errorf("expected payment method cash, got %s", stored.PaymentMethod)
	}
}

func TestSubmitPayment_GCashRequiresProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := submitAccepted(t, f)

	for _, proof := range []string{"", "   "} {
		err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-2", models.MethodGCash, proof)
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error for blank proof, got %v", err)
		}
		stored, _ := f.mem.Get(ctx, created.ID)
		if stored.PaymentStatus != models.PaymentPending {
			t.Errorf("expected payment status unchanged, got %s", stored.PaymentStatus)
		}
	}

	if err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-3", models.MethodGCash, " REF-12345 "); err != nil {
		t.Fatalf("SubmitPayment returned error: %v", err)
	}
	stored, _ := f.mem.Get(ctx, created.ID)
	if stored.PaymentProof != "REF-12345" {
		t.Errorf("expected trimmed proof stored, got %q", stored.PaymentProof)
	}
}

func TestSubmitPayment_OnlyOnAcceptedOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindTable(t, "dev-1", 5)
	f.carts.Get("dev-1").AddItem(burger, nil)
	created, _ := f.service.Submit(ctx, "dev-1", "req-1")

	err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-2", models.MethodCash, "")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error on pending order, got %v", err)
	}
}

func TestSubmitPayment_AlreadyPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := submitAccepted(t, f)

	if err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-2", models.MethodCash, ""); err != nil {
		t.Fatal(err)
	}
	if err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-3", models.MethodCash, ""); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestSubmitPayment_ProcessingPaymentIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := submitAccepted(t, f)

	if err := f.mem.Update(ctx, created.ID, map[string]interface{}{
		"payment_status": models.PaymentProcessing,
	}); err != nil {
		t.Fatal(err)
	}

	err := f.service.SubmitPayment(ctx, "dev-1", created.ID, "req-2", models.MethodCash, "")
	if !errors.Is(err, ErrPaymentInProgress) {
		t.Fatalf("expected ErrPaymentInProgress, got %v", err)
	}

	stored, _ := f.mem.Get(ctx, created.ID)
	if stored.PaymentStatus != models.PaymentProcessing {
		t.Errorf("expected payment status untouched, got %s", stored.PaymentStatus)
	}
	if stored.Status != models.StatusAccepted {
		t.Errorf("expected status untouched, got %s", stored.Status)
	}
}

func TestGCashPayee(t *testing.T) {
	f := newFixture(t)
	f.mem.SeedGCashPayee("gcash-payee", models.GCashPayee{FullName: "Maria Santos", PhoneNumber: "09171234567"})

	payee, err := f.service.GCashPayee(context.Background())
	if err != nil {
		t.Fatalf("GCashPayee returned error: %v", err)
	}
	if payee.FullName != "Maria Santos" {
		t.Errorf("unexpected payee %+v", payee)
	}
}

func TestReceipt(t *testing.T) {
	o := &models.Order{
		ID:            "ord-1",
		OrderNumber:   "0042",
		TableNumber:   7,
		Total:         260,
		PaymentMethod: models.MethodCash,
		Items: []models.CartItem{
			{Item: burger, Quantity: 2},
			{Item: fries, Quantity: 1, SelectedOptions: []models.SelectedOption{cheese}},
		},
	}

	text := Receipt(o)
	for _, want := range []string{
		"Order No: 0042",
		"Table: 7",
		"Burger x2",
		"Fries x1 - ₱60.00",
		"+ Extra cheese",
		"Total: ₱260.00",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("receipt missing %q:\n%s", want, text)
		}
	}
}

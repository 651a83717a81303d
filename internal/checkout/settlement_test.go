package checkout_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
)

// placeOrder places a pending order for 3 units of variant 1 (total 3000
// with the standard seed).
func placeOrder(t *testing.T, svc *checkout.Service) *orders.Order {
	t.Helper()
	ord, err := svc.PlaceOrder(context.Background(), nil, []checkout.LineInput{{VariantID: 1, Qty: 3}})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return ord
}

func TestInitiatePayment(t *testing.T) {
	svc, st, _ := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)

	txn, paymentURL, err := svc.InitiatePayment(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if txn.Status != payments.StatusInitiated {
		t.Fatalf("status = %s, want initiated", txn.Status)
	}
	if txn.Amount != ord.TotalAmount {
		t.Fatalf("amount = %d, want %d (copied from order)", txn.Amount, ord.TotalAmount)
	}
	if txn.Gateway != payments.GatewayMock {
		t.Fatalf("gateway = %s, want mock", txn.Gateway)
	}
	if txn.Authority == "" {
		t.Fatal("authority not generated")
	}
	if !strings.Contains(paymentURL, txn.Authority) {
		t.Fatalf("payment url %q does not embed authority", paymentURL)
	}
}

func TestInitiatePaymentOrderNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	if _, _, err := svc.InitiatePayment(context.Background(), 42); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("err = %v, want orders.ErrNotFound", err)
	}
}

func TestInitiatePaymentOrderNotPending(t *testing.T) {
	svc, st, _ := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)

	txn, _, err := svc.InitiatePayment(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if _, err := svc.SettleCallback(context.Background(), txn.Authority, true); err != nil {
		t.Fatalf("SettleCallback: %v", err)
	}

	// Order is paid now; a second initiation must be rejected with no side
	// effect.
	if _, _, err := svc.InitiatePayment(context.Background(), ord.ID); !errors.Is(err, payments.ErrOrderNotPending) {
		t.Fatalf("err = %v, want ErrOrderNotPending", err)
	}
}

func TestSettleCallbackOK(t *testing.T) {
	svc, st, bus := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)
	txn, _, err := svc.InitiatePayment(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}

	res, err := svc.SettleCallback(context.Background(), txn.Authority, true)
	if err != nil {
		t.Fatalf("SettleCallback: %v", err)
	}
	if !res.Settled || res.OrderID != ord.ID {
		t.Fatalf("bad settlement: %+v", res)
	}
	if len(res.RefID) != 12 {
		t.Fatalf("ref id %q, want 12 chars", res.RefID)
	}

	status, err := svc.OrderStatus(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if status != orders.StatusPaid {
		t.Fatalf("order status = %s, want paid", status)
	}
	if len(bus.paid) != 1 || bus.paid[0].RefID != res.RefID || bus.paid[0].Amount != 3000 {
		t.Fatalf("OrderPaid event not published correctly: %+v", bus.paid)
	}
}

func TestSettleCallbackIdempotent(t *testing.T) {
	svc, st, bus := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)
	txn, _, _ := svc.InitiatePayment(context.Background(), ord.ID)

	first, err := svc.SettleCallback(context.Background(), txn.Authority, true)
	if err != nil {
		t.Fatalf("first SettleCallback: %v", err)
	}

	// Duplicate delivery, both outcomes: the stored result replays, nothing
	// moves.
	for _, outcome := range []bool{true, false} {
		again, err := svc.SettleCallback(context.Background(), txn.Authority, outcome)
		if err != nil {
			t.Fatalf("repeat SettleCallback(%v): %v", outcome, err)
		}
		if !again.Settled || again.RefID != first.RefID || again.OrderID != first.OrderID {
			t.Fatalf("repeat result diverged: %+v vs %+v", again, first)
		}
	}
	if len(bus.paid) != 1 {
		t.Fatalf("OrderPaid published %d times, want 1", len(bus.paid))
	}
	if q, _ := st.Stock(1); q != 2 {
		t.Fatalf("stock = %d, want 2 (no double decrement)", q)
	}
}

func TestSettleCallbackFail(t *testing.T) {
	svc, st, bus := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)
	txn, _, _ := svc.InitiatePayment(context.Background(), ord.ID)

	res, err := svc.SettleCallback(context.Background(), txn.Authority, false)
	if err != nil {
		t.Fatalf("SettleCallback: %v", err)
	}
	if res.Settled {
		t.Fatalf("failed settlement reported as settled: %+v", res)
	}

	// The order stays pending and can open a fresh attempt.
	status, _ := svc.OrderStatus(context.Background(), ord.ID)
	if status != orders.StatusPending {
		t.Fatalf("order status = %s, want pending", status)
	}
	if len(bus.failed) != 1 || bus.failed[0].OrderID != ord.ID {
		t.Fatalf("PaymentFailed event not published: %+v", bus.failed)
	}

	if _, _, err := svc.InitiatePayment(context.Background(), ord.ID); err != nil {
		t.Fatalf("re-initiate after failure: %v", err)
	}
}

func TestSettleCallbackFailedIsTerminal(t *testing.T) {
	svc, st, bus := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)
	txn, _, _ := svc.InitiatePayment(context.Background(), ord.ID)

	if _, err := svc.SettleCallback(context.Background(), txn.Authority, false); err != nil {
		t.Fatalf("fail SettleCallback: %v", err)
	}

	// A late "ok" for a failed transaction must not resurrect it.
	res, err := svc.SettleCallback(context.Background(), txn.Authority, true)
	if err != nil {
		t.Fatalf("late ok SettleCallback: %v", err)
	}
	if res.Settled || res.RefID != "" {
		t.Fatalf("failed transaction resurrected: %+v", res)
	}

	status, _ := svc.OrderStatus(context.Background(), ord.ID)
	if status != orders.StatusPending {
		t.Fatalf("order status = %s, want pending", status)
	}
	if len(bus.paid) != 0 {
		t.Fatalf("OrderPaid published for a failed transaction")
	}
}

func TestSettleCallbackConcurrentDuplicates(t *testing.T) {
	svc, st, bus := newService(t)
	seedVariant(st, 1, "SKU-1", 1000, 5)
	ord := placeOrder(t, svc)
	txn, _, _ := svc.InitiatePayment(context.Background(), ord.ID)

	// Gateway retries can deliver the same callback in parallel, with mixed
	// outcomes. The first committer decides the terminal state; everyone else
	// observes it unchanged.
	const callers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []checkout.Settlement
	)
	for i := 0; i < callers; i++ {
		ok := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.SettleCallback(context.Background(), txn.Authority, ok)
			if err != nil {
				t.Errorf("SettleCallback(%v): %v", ok, err)
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(results) != callers {
		t.Fatalf("results = %d, want %d", len(results), callers)
	}
	first := results[0]
	for _, res := range results[1:] {
		if res.Settled != first.Settled || res.RefID != first.RefID || res.OrderID != first.OrderID {
			t.Fatalf("divergent settlement results: %+v vs %+v", res, first)
		}
	}

	status, err := svc.OrderStatus(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if first.Settled {
		if status != orders.StatusPaid || len(bus.paid) != 1 || len(bus.failed) != 0 {
			t.Fatalf("settled race: status=%s paid=%d failed=%d", status, len(bus.paid), len(bus.failed))
		}
	} else {
		if status != orders.StatusPending || len(bus.paid) != 0 || len(bus.failed) != 1 {
			t.Fatalf("failed race: status=%s paid=%d failed=%d", status, len(bus.paid), len(bus.failed))
		}
	}
}

func TestSettleCallbackUnknownAuthority(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.SettleCallback(context.Background(), "nope", true); !errors.Is(err, payments.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/soleshop/checkout/internal/catalog"
	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/inventory"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
)

func TestWithTxRollbackDiscardsMutations(t *testing.T) {
	st := New()
	st.AddVariant(catalog.Snapshot{VariantID: 1, SKU: "SKU-1", UnitPrice: 100}, true, true)
	st.SetStock(1, 10)

	boom := errors.New("boom")
	err := st.WithTx(context.Background(), func(tx checkout.Tx) error {
		if _, err := tx.ReserveStock(context.Background(), 1, 4); err != nil {
			t.Fatalf("ReserveStock: %v", err)
		}
		o := &orders.Order{Status: orders.StatusPending}
		if err := tx.CreateOrder(context.Background(), o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if q, _ := st.Stock(1); q != 10 {
		t.Fatalf("stock = %d, want 10 after rollback", q)
	}
	if st.OrderCount() != 0 {
		t.Fatalf("orders = %d, want 0 after rollback", st.OrderCount())
	}
}

func TestWithTxCommitPersists(t *testing.T) {
	st := New()
	st.AddVariant(catalog.Snapshot{VariantID: 1, SKU: "SKU-1", UnitPrice: 100}, true, true)
	st.SetStock(1, 10)

	var orderID int64
	err := st.WithTx(context.Background(), func(tx checkout.Tx) error {
		if _, err := tx.ReserveStock(context.Background(), 1, 4); err != nil {
			return err
		}
		o := &orders.Order{Status: orders.StatusPending}
		if err := tx.CreateOrder(context.Background(), o); err != nil {
			return err
		}
		orderID = o.ID
		return tx.SetOrderTotal(context.Background(), o.ID, 400)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	if q, _ := st.Stock(1); q != 6 {
		t.Fatalf("stock = %d, want 6", q)
	}
	status, err := st.OrderStatus(context.Background(), orderID)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if status != orders.StatusPending {
		t.Fatalf("status = %s, want pending", status)
	}
}

func TestReserveStockErrors(t *testing.T) {
	st := New()
	st.AddVariant(catalog.Snapshot{VariantID: 1, SKU: "SKU-1", UnitPrice: 100}, true, true)
	st.SetStock(1, 2)

	err := st.WithTx(context.Background(), func(tx checkout.Tx) error {
		if _, err := tx.ReserveStock(context.Background(), 99, 1); !errors.Is(err, inventory.ErrNotFound) {
			t.Fatalf("missing record: err = %v, want ErrNotFound", err)
		}
		_, err := tx.ReserveStock(context.Background(), 1, 3)
		var stockErr *inventory.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("shortage: err = %v, want InsufficientStockError", err)
		}
		if stockErr.Available != 2 || stockErr.Requested != 3 {
			t.Fatalf("shortage detail: %+v", stockErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	if q, _ := st.Stock(1); q != 2 {
		t.Fatalf("stock = %d, want 2 (failures never mutate)", q)
	}
}

func TestTerminalTransactionCannotBeOverwritten(t *testing.T) {
	st := New()

	var txnID int64
	err := st.WithTx(context.Background(), func(tx checkout.Tx) error {
		txn := &payments.Transaction{OrderID: 1, Amount: 1000, Status: payments.StatusInitiated, Authority: "auth-1"}
		if err := tx.CreateTransaction(context.Background(), txn); err != nil {
			return err
		}
		txnID = txn.ID
		return tx.MarkTransactionPaid(context.Background(), txn.ID, "ref-original")
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	_ = st.WithTx(context.Background(), func(tx checkout.Tx) error {
		if err := tx.MarkTransactionPaid(context.Background(), txnID, "ref-overwrite"); !errors.Is(err, payments.ErrTransactionSettled) {
			t.Fatalf("re-pay: err = %v, want ErrTransactionSettled", err)
		}
		if err := tx.MarkTransactionFailed(context.Background(), txnID); !errors.Is(err, payments.ErrTransactionSettled) {
			t.Fatalf("fail after paid: err = %v, want ErrTransactionSettled", err)
		}
		txn, err := tx.TransactionByAuthority(context.Background(), "auth-1")
		if err != nil {
			t.Fatalf("TransactionByAuthority: %v", err)
		}
		if txn.Status != payments.StatusPaid || txn.RefID != "ref-original" {
			t.Fatalf("terminal state mutated: %+v", txn)
		}
		return nil
	})
}

func TestVariantSnapshotActiveFilter(t *testing.T) {
	st := New()
	st.AddVariant(catalog.Snapshot{VariantID: 1, SKU: "A", UnitPrice: 1}, true, true)
	st.AddVariant(catalog.Snapshot{VariantID: 2, SKU: "B", UnitPrice: 1}, false, true)
	st.AddVariant(catalog.Snapshot{VariantID: 3, SKU: "C", UnitPrice: 1}, true, false)

	_ = st.WithTx(context.Background(), func(tx checkout.Tx) error {
		if _, err := tx.VariantSnapshot(context.Background(), 1); err != nil {
			t.Fatalf("active variant: %v", err)
		}
		for _, id := range []int64{2, 3, 4} {
			if _, err := tx.VariantSnapshot(context.Background(), id); !errors.Is(err, catalog.ErrVariantNotFound) {
				t.Fatalf("variant %d: err = %v, want ErrVariantNotFound", id, err)
			}
		}
		return nil
	})
}

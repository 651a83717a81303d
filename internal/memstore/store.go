// Package memstore is an in-memory implementation of the checkout store,
// meant for local development and tests. Transactions work on a deep copy of
// the state and swap it in on commit, so an error anywhere in the unit of
// work leaves nothing behind. The single mutex stands in for the row locks
// the SQL store takes: writers serialize fully, which is stricter than
// Postgres but preserves every ordering guarantee the orchestrators rely on.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/soleshop/checkout/internal/catalog"
	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/inventory"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
)

type variantRow struct {
	snap          catalog.Snapshot
	productActive bool
	variantActive bool
}

type state struct {
	variants map[int64]variantRow
	stock    map[int64]int // variant id -> quantity; absent key = no inventory record
	orders   map[int64]*orders.Order
	txns     map[int64]*payments.Transaction
	byAuth   map[string]int64

	nextOrderID int64
	nextItemID  int64
	nextTxnID   int64
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ checkout.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		variants: map[int64]variantRow{},
		stock:    map[int64]int{},
		orders:   map[int64]*orders.Order{},
		txns:     map[int64]*payments.Transaction{},
		byAuth:   map[string]int64{},
	}}
}

// AddVariant registers a purchasable variant. Inventory is separate: a
// variant without SetStock has no inventory record at all.
func (s *Store) AddVariant(snap catalog.Snapshot, productActive, variantActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.variants[snap.VariantID] = variantRow{snap: snap, productActive: productActive, variantActive: variantActive}
}

func (s *Store) SetStock(variantID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.stock[variantID] = qty
}

// Stock reports the stored quantity; ok is false when no inventory record
// exists.
func (s *Store) Stock(variantID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.st.stock[variantID]
	return q, ok
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.st.clone()
	if err := fn(&memTx{st: next}); err != nil {
		return err // clone discarded, nothing committed
	}
	s.st = next
	return nil
}

func (s *Store) OrdersByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []orders.Order
	for _, o := range s.st.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) OrderStatus(ctx context.Context, orderID int64) (orders.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.st.orders[orderID]
	if !ok {
		return "", orders.ErrNotFound
	}
	return o.Status, nil
}

func (st *state) clone() *state {
	next := &state{
		variants:    make(map[int64]variantRow, len(st.variants)),
		stock:       make(map[int64]int, len(st.stock)),
		orders:      make(map[int64]*orders.Order, len(st.orders)),
		txns:        make(map[int64]*payments.Transaction, len(st.txns)),
		byAuth:      make(map[string]int64, len(st.byAuth)),
		nextOrderID: st.nextOrderID,
		nextItemID:  st.nextItemID,
		nextTxnID:   st.nextTxnID,
	}
	for k, v := range st.variants {
		next.variants[k] = v
	}
	for k, v := range st.stock {
		next.stock[k] = v
	}
	for k, v := range st.orders {
		next.orders[k] = cloneOrder(v)
	}
	for k, v := range st.txns {
		cp := *v
		next.txns[k] = &cp
	}
	for k, v := range st.byAuth {
		next.byAuth[k] = v
	}
	return next
}

func cloneOrder(o *orders.Order) *orders.Order {
	cp := *o
	if o.UserID != nil {
		uid := *o.UserID
		cp.UserID = &uid
	}
	cp.Items = append([]orders.Item(nil), o.Items...)
	return &cp
}

type memTx struct {
	st *state
}

func (t *memTx) VariantSnapshot(ctx context.Context, variantID int64) (*catalog.Snapshot, error) {
	row, ok := t.st.variants[variantID]
	if !ok || !row.productActive || !row.variantActive {
		return nil, catalog.ErrVariantNotFound
	}
	snap := row.snap
	return &snap, nil
}

func (t *memTx) ReserveStock(ctx context.Context, variantID int64, qty int) (int, error) {
	available, ok := t.st.stock[variantID]
	if !ok {
		return 0, inventory.ErrNotFound
	}
	if available < qty {
		sku := ""
		if row, ok := t.st.variants[variantID]; ok {
			sku = row.snap.SKU
		}
		return 0, &inventory.InsufficientStockError{SKU: sku, Available: available, Requested: qty}
	}
	t.st.stock[variantID] = available - qty
	return available - qty, nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *orders.Order) error {
	t.st.nextOrderID++
	o.ID = t.st.nextOrderID
	t.st.orders[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) AddOrderItems(ctx context.Context, items []orders.Item) error {
	for _, it := range items {
		o, ok := t.st.orders[it.OrderID]
		if !ok {
			return orders.ErrNotFound
		}
		t.st.nextItemID++
		it.ID = t.st.nextItemID
		o.Items = append(o.Items, it)
	}
	return nil
}

func (t *memTx) SetOrderTotal(ctx context.Context, orderID, total int64) error {
	o, ok := t.st.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.TotalAmount = total
	return nil
}

func (t *memTx) SetOrderStatus(ctx context.Context, orderID int64, st orders.Status) error {
	o, ok := t.st.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = st
	return nil
}

func (t *memTx) OrderByID(ctx context.Context, orderID int64) (*orders.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (t *memTx) CreateTransaction(ctx context.Context, txn *payments.Transaction) error {
	t.st.nextTxnID++
	txn.ID = t.st.nextTxnID
	cp := *txn
	t.st.txns[txn.ID] = &cp
	t.st.byAuth[txn.Authority] = txn.ID
	return nil
}

func (t *memTx) TransactionByAuthority(ctx context.Context, authority string) (*payments.Transaction, error) {
	id, ok := t.st.byAuth[authority]
	if !ok {
		return nil, payments.ErrTransactionNotFound
	}
	cp := *t.st.txns[id]
	return &cp, nil
}

func (t *memTx) MarkTransactionPaid(ctx context.Context, txID int64, refID string) error {
	txn, ok := t.st.txns[txID]
	if !ok {
		return payments.ErrTransactionNotFound
	}
	if txn.Status != payments.StatusInitiated {
		return payments.ErrTransactionSettled
	}
	txn.Status = payments.StatusPaid
	txn.RefID = refID
	return nil
}

func (t *memTx) MarkTransactionFailed(ctx context.Context, txID int64) error {
	txn, ok := t.st.txns[txID]
	if !ok {
		return payments.ErrTransactionNotFound
	}
	if txn.Status != payments.StatusInitiated {
		return payments.ErrTransactionSettled
	}
	txn.Status = payments.StatusFailed
	return nil
}

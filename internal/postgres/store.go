package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soleshop/checkout/internal/catalog"
	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/inventory"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ checkout.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err // rollback via defer
	}
	return tx.Commit(ctx)
}

func (s *Store) OrdersByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, status, total_amount, created_at
		FROM orders WHERE user_id=$1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	byID := map[int64]int{}
	ids := make([]int64, 0, 8)
	for rows.Next() {
		var o orders.Order
		var st string
		if err := rows.Scan(&o.ID, &o.UserID, &st, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = orders.Status(st)
		byID[o.ID] = len(out)
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	itemRows, err := s.pool.Query(ctx, `
		SELECT id, order_id, variant_id, sku, title, size, color, unit_price, quantity, line_total
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it orders.Item
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.SKU, &it.Title,
			&it.Size, &it.Color, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return nil, err
		}
		i := byID[it.OrderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, itemRows.Err()
}

func (s *Store) OrderStatus(ctx context.Context, orderID int64) (orders.Status, error) {
	var st string
	err := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&st)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", orders.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return orders.Status(st), nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) VariantSnapshot(ctx context.Context, variantID int64) (*catalog.Snapshot, error) {
	var snap catalog.Snapshot
	err := t.tx.QueryRow(ctx, `
		SELECT v.id, v.sku, p.title, v.size, v.color, v.price
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id=$1 AND v.is_active AND p.is_active`, variantID).
		Scan(&snap.VariantID, &snap.SKU, &snap.Title, &snap.Size, &snap.Color, &snap.UnitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReserveStock locks the inventory row (FOR UPDATE) before reading, so two
// reservations against the same variant serialize instead of both seeing a
// stale quantity. The lock stays until the surrounding tx commits or rolls
// back.
func (t *pgTx) ReserveStock(ctx context.Context, variantID int64, qty int) (int, error) {
	var (
		available int
		sku       string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT i.quantity, v.sku
		FROM inventories i
		JOIN variants v ON v.id = i.variant_id
		WHERE i.variant_id=$1
		FOR UPDATE OF i`, variantID).Scan(&available, &sku)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, inventory.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if available < qty {
		return 0, &inventory.InsufficientStockError{SKU: sku, Available: available, Requested: qty}
	}

	_, err = t.tx.Exec(ctx, `UPDATE inventories SET quantity = quantity - $2 WHERE variant_id=$1`, variantID, qty)
	if err != nil {
		return 0, err
	}
	return available - qty, nil
}

func (t *pgTx) CreateOrder(ctx context.Context, o *orders.Order) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, o.UserID, string(o.Status), o.TotalAmount, o.CreatedAt).Scan(&o.ID)
}

func (t *pgTx) AddOrderItems(ctx context.Context, items []orders.Item) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, variant_id, sku, title, size, color, unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.OrderID, it.VariantID, it.SKU, it.Title, it.Size, it.Color, it.UnitPrice, it.Quantity, it.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) SetOrderTotal(ctx context.Context, orderID, total int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET total_amount=$2 WHERE id=$1`, orderID, total)
	return err
}

func (t *pgTx) SetOrderStatus(ctx context.Context, orderID int64, st orders.Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, string(st))
	return err
}

// OrderByID locks the order row so a status check made here stays valid for
// the rest of the transaction.
func (t *pgTx) OrderByID(ctx context.Context, orderID int64) (*orders.Order, error) {
	var (
		o  orders.Order
		st string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, status, total_amount, created_at
		FROM orders WHERE id=$1
		FOR UPDATE`, orderID).
		Scan(&o.ID, &o.UserID, &st, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = orders.Status(st)
	return &o, nil
}

func (t *pgTx) CreateTransaction(ctx context.Context, txn *payments.Transaction) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO payment_transactions(order_id, amount, gateway, status, authority, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		txn.OrderID, txn.Amount, txn.Gateway, string(txn.Status), txn.Authority, txn.RefID, txn.CreatedAt).
		Scan(&txn.ID)
}

// TransactionByAuthority locks the transaction row. Duplicate callbacks for
// the same authority then serialize here: the second one blocks until the
// first commits and reads the terminal state instead of a stale "initiated".
func (t *pgTx) TransactionByAuthority(ctx context.Context, authority string) (*payments.Transaction, error) {
	var (
		txn payments.Transaction
		st  string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, order_id, amount, gateway, status, authority, ref_id, created_at
		FROM payment_transactions WHERE authority=$1
		FOR UPDATE`, authority).
		Scan(&txn.ID, &txn.OrderID, &txn.Amount, &txn.Gateway, &st, &txn.Authority, &txn.RefID, &txn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payments.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	txn.Status = payments.Status(st)
	return &txn, nil
}

// The terminal updates only move an initiated transaction. A zero row count
// means someone else already settled it; paid and failed must never be
// overwritten.
func (t *pgTx) MarkTransactionPaid(ctx context.Context, txID int64, refID string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE payment_transactions SET status='paid', ref_id=$2
		WHERE id=$1 AND status='initiated'`, txID, refID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payments.ErrTransactionSettled
	}
	return nil
}

func (t *pgTx) MarkTransactionFailed(ctx context.Context, txID int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE payment_transactions SET status='failed'
		WHERE id=$1 AND status='initiated'`, txID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payments.ErrTransactionSettled
	}
	return nil
}

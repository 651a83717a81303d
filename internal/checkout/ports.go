package checkout

import (
	"context"

	"github.com/soleshop/checkout/internal/catalog"
	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
)

// Tx is one unit of work against the store. Every mutation made through it
// commits together or not at all; implementations must hold any row locks
// taken by ReserveStock until the transaction ends.
type Tx interface {
	// VariantSnapshot resolves an active variant of an active product.
	// Returns catalog.ErrVariantNotFound otherwise.
	VariantSnapshot(ctx context.Context, variantID int64) (*catalog.Snapshot, error)

	// ReserveStock locks the inventory row, checks availability and decrements
	// it, returning the remaining quantity. Returns inventory.ErrNotFound or
	// *inventory.InsufficientStockError without mutating on failure.
	ReserveStock(ctx context.Context, variantID int64, qty int) (int, error)

	CreateOrder(ctx context.Context, o *orders.Order) error
	AddOrderItems(ctx context.Context, items []orders.Item) error
	SetOrderTotal(ctx context.Context, orderID, total int64) error
	SetOrderStatus(ctx context.Context, orderID int64, st orders.Status) error
	OrderByID(ctx context.Context, orderID int64) (*orders.Order, error)

	CreateTransaction(ctx context.Context, t *payments.Transaction) error
	TransactionByAuthority(ctx context.Context, authority string) (*payments.Transaction, error)
	MarkTransactionPaid(ctx context.Context, txID int64, refID string) error
	MarkTransactionFailed(ctx context.Context, txID int64) error
}

type Store interface {
	// WithTx runs fn inside a single transaction. An error from fn rolls the
	// whole transaction back with zero partial effects.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// OrdersByUser lists a user's orders with their item snapshots,
	// most-recent-first.
	OrdersByUser(ctx context.Context, userID int64) ([]orders.Order, error)

	// OrderStatus returns orders.ErrNotFound for unknown orders.
	OrderStatus(ctx context.Context, orderID int64) (orders.Status, error)
}

// EventBus publishes domain events after the owning transaction has
// committed. Publishing is fire-and-forget and never affects the outcome of
// the request it trails.
type EventBus interface {
	OrderCreated(ctx context.Context, p orders.OrderCreatedPayload)
	OrderPaid(ctx context.Context, p orders.OrderPaidPayload)
	PaymentFailed(ctx context.Context, p orders.PaymentFailedPayload)
}

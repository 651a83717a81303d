package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/soleshop/checkout/internal/orders"
)

type Service struct {
	store  Store
	events EventBus // optional, nil disables publishing
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, events EventBus, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

type LineInput struct {
	VariantID int64 `json:"variantId"`
	Qty       int   `json:"qty"`
}

// ItemError ties a placement failure to the cart line that caused it.
type ItemError struct {
	VariantID int64
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("variant %d: %v", e.VariantID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// PlaceOrder turns a cart into a committed pending order inside one
// transaction: create the order row, then per line (ascending variant ID, so
// overlapping carts cannot deadlock on lock order) resolve the variant,
// reserve stock and snapshot the priced line, then finalize the total.
// Any failure rolls the whole thing back; no inventory decrement, item or
// order row survives a partial run.
func (s *Service) PlaceOrder(ctx context.Context, userID *int64, items []LineInput) (*orders.Order, error) {
	if len(items) == 0 {
		return nil, orders.ErrEmptyCart
	}
	for _, in := range items {
		if in.VariantID <= 0 || in.Qty < 1 {
			return nil, orders.ErrInvalidItem
		}
	}

	sorted := make([]LineInput, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })

	ord := &orders.Order{
		UserID:    userID,
		Status:    orders.StatusPending,
		CreatedAt: s.now().UTC(),
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		// The order row goes first so line items have their foreign key.
		// Total stays 0 until every line is reserved and priced.
		if err := tx.CreateOrder(ctx, ord); err != nil {
			return err
		}

		var total int64
		lines := make([]orders.Item, 0, len(sorted))
		for _, in := range sorted {
			snap, err := tx.VariantSnapshot(ctx, in.VariantID)
			if err != nil {
				return &ItemError{VariantID: in.VariantID, Err: err}
			}
			remaining, err := tx.ReserveStock(ctx, in.VariantID, in.Qty)
			if err != nil {
				return &ItemError{VariantID: in.VariantID, Err: err}
			}
			s.log.Debug("stock reserved",
				zap.Int64("order_id", ord.ID),
				zap.String("sku", snap.SKU),
				zap.Int("qty", in.Qty),
				zap.Int("remaining", remaining),
			)

			line := snap.UnitPrice * int64(in.Qty)
			lines = append(lines, orders.Item{
				OrderID:   ord.ID,
				VariantID: snap.VariantID,
				SKU:       snap.SKU,
				Title:     snap.Title,
				Size:      snap.Size,
				Color:     snap.Color,
				UnitPrice: snap.UnitPrice,
				Quantity:  in.Qty,
				LineTotal: line,
			})
			total += line
		}

		if err := tx.AddOrderItems(ctx, lines); err != nil {
			return err
		}
		if err := tx.SetOrderTotal(ctx, ord.ID, total); err != nil {
			return err
		}
		ord.TotalAmount = total
		ord.Items = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.Int64("order_id", ord.ID),
		zap.Int64("total", ord.TotalAmount),
		zap.Int("items", len(ord.Items)),
	)

	if s.events != nil {
		ev := make([]orders.ItemSnapshot, 0, len(ord.Items))
		for _, it := range ord.Items {
			ev = append(ev, orders.ItemSnapshot{
				VariantID: it.VariantID,
				SKU:       it.SKU,
				Qty:       it.Quantity,
				UnitPrice: it.UnitPrice,
				LineTotal: it.LineTotal,
			})
		}
		s.events.OrderCreated(ctx, orders.OrderCreatedPayload{
			OrderID: ord.ID,
			UserID:  ord.UserID,
			Items:   ev,
			Total:   ord.TotalAmount,
		})
	}

	return ord, nil
}

// MyOrders lists the user's own orders with their immutable item snapshots,
// newest first.
func (s *Service) MyOrders(ctx context.Context, userID int64) ([]orders.Order, error) {
	return s.store.OrdersByUser(ctx, userID)
}

func (s *Service) OrderStatus(ctx context.Context, orderID int64) (orders.Status, error) {
	return s.store.OrderStatus(ctx, orderID)
}

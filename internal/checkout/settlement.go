package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soleshop/checkout/internal/orders"
	"github.com/soleshop/checkout/internal/payments"
)

// InitiatePayment opens a settlement attempt for a pending order: a fresh
// transaction in state "initiated" with a unique authority token and the
// order's current total as its amount. The returned URL is the mock gateway
// redirect target embedding the authority.
func (s *Service) InitiatePayment(ctx context.Context, orderID int64) (*payments.Transaction, string, error) {
	txn := &payments.Transaction{
		OrderID:   orderID,
		Gateway:   payments.GatewayMock,
		Status:    payments.StatusInitiated,
		Authority: uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		ord, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if ord.Status != orders.StatusPending {
			return payments.ErrOrderNotPending
		}
		txn.Amount = ord.TotalAmount
		return tx.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, "", err
	}

	s.log.Info("payment initiated",
		zap.Int64("order_id", orderID),
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("amount", txn.Amount),
	)

	paymentURL := fmt.Sprintf("/pay/mock?authority=%s", txn.Authority)
	return txn, paymentURL, nil
}

// Settlement is the observable outcome of a gateway callback.
type Settlement struct {
	Settled bool
	OrderID int64
	RefID   string
}

// SettleCallback processes one gateway callback, keyed by authority, in a
// single transaction. Callback delivery is not exactly-once, so both terminal
// states short-circuit: "paid" replays its stored ref id, "failed" replays
// the stored failure and never resurrects to paid. Only initiated
// transactions move, and only once.
func (s *Service) SettleCallback(ctx context.Context, authority string, ok bool) (Settlement, error) {
	var (
		res    Settlement
		paidEv *orders.OrderPaidPayload
		failEv *orders.PaymentFailedPayload
	)

	err := s.store.WithTx(ctx, func(tx Tx) error {
		txn, err := tx.TransactionByAuthority(ctx, authority)
		if err != nil {
			return err
		}
		res.OrderID = txn.OrderID

		switch txn.Status {
		case payments.StatusPaid:
			// Duplicate delivery of a settled payment, regardless of the
			// incoming outcome.
			res.Settled = true
			res.RefID = txn.RefID
			return nil

		case payments.StatusFailed:
			res.Settled = false
			return nil
		}

		if !ok {
			if err := tx.MarkTransactionFailed(ctx, txn.ID); err != nil {
				return err
			}
			// The order stays pending and remains payable via a fresh
			// initiation.
			res.Settled = false
			failEv = &orders.PaymentFailedPayload{
				OrderID:       txn.OrderID,
				TransactionID: txn.ID,
				Reason:        "GATEWAY_DECLINED",
			}
			return nil
		}

		refID := uuid.NewString()[:12]
		if err := tx.MarkTransactionPaid(ctx, txn.ID, refID); err != nil {
			return err
		}

		ord, err := tx.OrderByID(ctx, txn.OrderID)
		if err != nil {
			return err
		}
		if orders.CanTransition(ord.Status, orders.StatusPaid) {
			if err := tx.SetOrderStatus(ctx, ord.ID, orders.StatusPaid); err != nil {
				return err
			}
		} else {
			s.log.Warn("settled payment for order not in a payable state",
				zap.Int64("order_id", ord.ID),
				zap.String("order_status", string(ord.Status)),
			)
		}

		res.Settled = true
		res.RefID = refID
		paidEv = &orders.OrderPaidPayload{
			OrderID:       txn.OrderID,
			TransactionID: txn.ID,
			RefID:         refID,
			Amount:        txn.Amount,
		}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	if s.events != nil {
		if paidEv != nil {
			s.events.OrderPaid(ctx, *paidEv)
		}
		if failEv != nil {
			s.events.PaymentFailed(ctx, *failEv)
		}
	}

	return res, nil
}

package payments

import "time"

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
)

const GatewayMock = "mock"

// Transaction tracks one payment attempt against an order. Status moves
// strictly one way: initiated -> paid or initiated -> failed, never back.
type Transaction struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Amount    int64     `json:"amount"` // equals the order total at initiation
	Gateway   string    `json:"gateway"`
	Status    Status    `json:"status"`
	Authority string    `json:"authority"`        // correlation key for the gateway callback
	RefID     string    `json:"ref_id,omitempty"` // settlement reference, set only on success
	CreatedAt time.Time `json:"created_at"`
}

func (t *Transaction) Terminal() bool {
	return t.Status == StatusPaid || t.Status == StatusFailed
}

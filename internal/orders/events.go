package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventOrderPaid     = "OrderPaid"
	EventPaymentFailed = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "checkout-api"
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload types per event ----

type ItemSnapshot struct {
	VariantID int64  `json:"variant_id"`
	SKU       string `json:"sku"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type OrderCreatedPayload struct {
	OrderID int64          `json:"order_id"`
	UserID  *int64         `json:"user_id,omitempty"`
	Items   []ItemSnapshot `json:"items"`
	Total   int64          `json:"total"`
}

type OrderPaidPayload struct {
	OrderID       int64  `json:"order_id"`
	TransactionID int64  `json:"transaction_id"`
	RefID         string `json:"ref_id"`
	Amount        int64  `json:"amount"`
}

type PaymentFailedPayload struct {
	OrderID       int64  `json:"order_id"`
	TransactionID int64  `json:"transaction_id"`
	Reason        string `json:"reason"` // e.g. GATEWAY_DECLINED
}

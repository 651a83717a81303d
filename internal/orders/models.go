package orders

import "time"

type Order struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"` // nil = anonymous order
	Status      Status    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	Items       []Item    `json:"items,omitempty"`
}

// Item is an immutable snapshot of the variant at order time. VariantID is a
// back-reference only, never a live join; later catalog changes must not
// retroactively alter a placed order.
type Item struct {
	ID        int64  `json:"-"`
	OrderID   int64  `json:"-"`
	VariantID int64  `json:"variant_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"` // unit_price * quantity
}

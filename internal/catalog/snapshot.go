package catalog

import "errors"

// ErrVariantNotFound covers both nonexistent and inactive variants; callers
// cannot tell them apart and both block ordering.
var ErrVariantNotFound = errors.New("catalog: variant not found")

// Snapshot is a point-in-time read of a purchasable variant. It is only
// trustworthy inside the same transaction as the stock reservation.
type Snapshot struct {
	VariantID int64
	SKU       string
	Title     string
	Size      string
	Color     string
	UnitPrice int64 // smallest currency unit
}

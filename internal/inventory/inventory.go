package inventory

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("inventory: record not found")

// InsufficientStockError reports a failed reservation against the quantity
// observed under the row lock, so `Available` is accurate at decision time.
type InsufficientStockError struct {
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: not enough stock for %s: available=%d requested=%d", e.SKU, e.Available, e.Requested)
}

package orders

import "errors"

var (
	ErrNotFound    = errors.New("orders: order not found")
	ErrEmptyCart   = errors.New("orders: cart is empty")
	ErrInvalidItem = errors.New("orders: invalid item format")
)

package payments

import "errors"

var (
	ErrOrderNotPending     = errors.New("payments: order is not pending")
	ErrTransactionNotFound = errors.New("payments: transaction not found")
	ErrTransactionSettled  = errors.New("payments: transaction already settled")
)

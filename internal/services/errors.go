package services

import (
	"errors"
	"fmt"
)

// Business-level errors surfaced to the API layer. All are expected
// outcomes, never process faults; every failure path leaves stored data
// exactly as it was.
var (
	ErrProductNotFound        = errors.New("product not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidQuantity        = errors.New("quantity must be a positive integer")
	ErrInvalidTimestamp       = errors.New("transaction_date must be a valid RFC 3339 timestamp")
	ErrInvalidStock           = errors.New("stock cannot be negative")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductHasTransactions = errors.New("product has recorded transactions")
)

// InsufficientStockError carries the stock context the caller needs to act
// on an ErrInsufficientStock outcome.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed request the caller must fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProductNotFound indicates a referenced product does not exist (or is inactive for sale).
	ErrProductNotFound = errors.New("product not found")
	// ErrStockItemNotFound indicates a recipe or direct stock link points at a missing stock item
	// or at a stock item of another location.
	ErrStockItemNotFound = errors.New("stock item not found")
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStatus indicates an unknown order status value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition indicates a status change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrOrderNotFound indicates the order could not be located in the caller's scope.
	ErrOrderNotFound = errors.New("order not found")
	// ErrTransactionAborted signals store contention or a transaction timeout. Safe to retry the whole call.
	ErrTransactionAborted = errors.New("transaction aborted")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// InsufficientStockError carries the quantities so a terminal operator can act on it.
type InsufficientStockError struct {
	StockItemID string
	ItemName    string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: required %d, available %d", e.ItemName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Invalidf wraps ErrInvalidInput with a formatted detail message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

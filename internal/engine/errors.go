package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError rejects malformed or unknown input (unknown order, product
// or material reference, bad quantity, bad unit, bad mode) before any state
// is touched.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// MaterialNotFoundError rejects a ledger write against a material that does
// not (or no longer) exist.
type MaterialNotFoundError struct {
	MaterialID int64
}

func (e *MaterialNotFoundError) Error() string {
	return fmt.Sprintf("material %d not found", e.MaterialID)
}

// InsufficientStockError rejects a reservation atomically: no counter was
// changed, and Missing carries the full per-material shortfall breakdown so
// operators can see exactly what is lacking.
type InsufficientStockError struct {
	OrderID uuid.UUID
	Missing []MaterialFeasibility
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for order %s: %d material(s) short", e.OrderID, len(e.Missing))
}

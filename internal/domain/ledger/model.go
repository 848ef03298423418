package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	// MoveReceipt is goods received into stock, usually with a unit price.
	MoveReceipt MovementType = "receipt"
	// MoveConsumption is material consumed by fulfilling an order.
	MoveConsumption MovementType = "consumption"
	// MoveAdjustment is a manual correction (count, waste, loss).
	MoveAdjustment MovementType = "adjustment"
)

func (t MovementType) Valid() bool {
	switch t {
	case MoveReceipt, MoveConsumption, MoveAdjustment:
		return true
	}
	return false
}

// SourceType identifies what caused a movement.
type SourceType string

const (
	SourceOrder  SourceType = "order"
	SourceManual SourceType = "manual"
)

// Movement is one immutable ledger entry. Every change to a material's
// physical stock is written together with exactly one Movement row; rows are
// never updated or deleted.
type Movement struct {
	ID            int64
	MaterialID    int64
	Type          MovementType
	QuantityDelta decimal.Decimal // signed, in the material's native unit
	Unit          units.Unit      // the material's native unit at record time
	UnitPrice     *decimal.Decimal
	ValueDelta    *decimal.Decimal // QuantityDelta x UnitPrice when priced
	SourceType    SourceType
	SourceID      string
	Comment       string
	CreatedAt     time.Time
}

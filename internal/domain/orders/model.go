package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
)

// Product is a sellable made-to-order item with a fixed material recipe.
// Products and recipes are read-only inputs owned by the catalog system.
type Product struct {
	ID        int64
	Name      string
	Active    bool
	CreatedAt time.Time
}

// RecipeEntry is one material requirement per single product unit.
type RecipeEntry struct {
	ProductID  int64
	MaterialID int64
	Quantity   decimal.Decimal
	Unit       units.Unit
}

// QuantificationMode governs how a supplement quantity scales with the
// ordered product quantity.
type QuantificationMode string

const (
	// PerProductUnit multiplies the supplement quantity by the line's
	// ordered quantity.
	PerProductUnit QuantificationMode = "per_product_unit"
	// PerLine applies the supplement quantity once per order line.
	PerLine QuantificationMode = "per_line"
)

func (m QuantificationMode) Valid() bool {
	return m == PerProductUnit || m == PerLine
}

// Multiplier returns the factor the supplement quantity is scaled by for a
// line ordering orderedQty product units.
func (m QuantificationMode) Multiplier(orderedQty int64) decimal.Decimal {
	if m == PerProductUnit {
		return decimal.NewFromInt(orderedQty)
	}
	return decimal.NewFromInt(1)
}

// Supplement is an ad hoc extra material demand attached to an order line.
type Supplement struct {
	ID         int64
	MaterialID int64
	Quantity   decimal.Decimal
	Unit       units.Unit
	Mode       QuantificationMode
}

// OrderLine orders a quantity of one product, optionally with supplements.
type OrderLine struct {
	ID              int64
	ProductID       int64
	OrderedQuantity int64
	Supplements     []Supplement
}

// Order is a sales order as read from the order workflow system.
type Order struct {
	ID        uuid.UUID
	Reference string
	Lines     []OrderLine
	CreatedAt time.Time
}

package materials

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
)

// Material is a raw material tracked by the stock engine. Catalog fields
// (name, category, unit, cost) are maintained by the external catalog system;
// PhysicalStock is owned by the stock ledger and ReservedStock by the
// reservation manager. Both are expressed in the material's native unit.
type Material struct {
	ID            int64
	Name          string
	Category      string
	Unit          units.Unit
	CostPerUnit   decimal.Decimal
	PhysicalStock decimal.Decimal
	ReservedStock decimal.Decimal
	CreatedAt     time.Time
}

// Available is the stock still open to new reservations.
func (m *Material) Available() decimal.Decimal {
	return m.PhysicalStock.Sub(m.ReservedStock)
}

package reservations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation is the reserve-time snapshot of one material hold for an
// order. The quantity is fixed when the order is reserved; release and
// consume work from these rows instead of recomputing requirements, so a
// recipe edit between reserve and release cannot desynchronize the
// reserved-stock counters.
type Reservation struct {
	OrderID    uuid.UUID
	MaterialID int64
	Quantity   decimal.Decimal // material's native unit
	CreatedAt  time.Time
}

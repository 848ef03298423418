package engine

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/reservations"
)

// Store is the persistence surface the engine runs on. Read methods return
// (nil, nil) for missing records. Mutations happen only inside WithTx; the
// postgres implementation maps a call to one database transaction, the
// in-memory implementation to a mutex-guarded snapshot.
type Store interface {
	Material(ctx context.Context, id int64) (*materials.Material, error)
	Materials(ctx context.Context) ([]materials.Material, error)
	Product(ctx context.Context, id int64) (*orders.Product, error)
	Recipe(ctx context.Context, productID int64) ([]orders.RecipeEntry, error)
	Order(ctx context.Context, id uuid.UUID) (*orders.Order, error)

	MovementsForMaterial(ctx context.Context, materialID int64) ([]ledger.Movement, error)
	MovementsForSource(ctx context.Context, sourceType ledger.SourceType, sourceID string) ([]ledger.Movement, error)

	// WithTx runs fn atomically: either every mutation made through tx is
	// applied, or none is.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the mutation surface inside one atomic engine operation.
type Tx interface {
	// MaterialsForUpdate reads the given materials with their rows locked
	// against concurrent mutation until the transaction ends. Implementations
	// lock in ascending id order so concurrent operations cannot deadlock.
	MaterialsForUpdate(ctx context.Context, ids []int64) (map[int64]*materials.Material, error)

	// AddReserved increments (delta may be negative) a material's reserved
	// stock counter.
	AddReserved(ctx context.Context, materialID int64, delta decimal.Decimal) error

	// ApplyMovement appends one immutable ledger row and applies its
	// QuantityDelta to the material's physical stock in the same atomic step.
	// ID and CreatedAt are filled in on success.
	ApplyMovement(ctx context.Context, mv *ledger.Movement) error

	InsertReservations(ctx context.Context, rs []reservations.Reservation) error
	ReservationsForOrder(ctx context.Context, orderID uuid.UUID) ([]reservations.Reservation, error)
	DeleteReservations(ctx context.Context, orderID uuid.UUID) error
}

// Requirements maps material id to the required quantity in that material's
// native unit.
type Requirements map[int64]decimal.Decimal

// MaterialIDs returns the referenced material ids in ascending order, which
// is also the lock acquisition order.
func (r Requirements) MaterialIDs() []int64 {
	ids := make([]int64, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

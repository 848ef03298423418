package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
	"github.com/nRudzy/medicandle-sub000/internal/infra/metrics"
)

// RecordInput describes one stock movement to append. QuantityDelta may be
// expressed in any unit of the material's dimension; it is converted to the
// native unit before recording. UnitPrice, when given, is per native unit.
type RecordInput struct {
	MaterialID    int64
	Type          ledger.MovementType
	QuantityDelta decimal.Decimal
	Unit          units.Unit
	UnitPrice     *decimal.Decimal
	SourceType    ledger.SourceType
	SourceID      string
	Comment       string
}

// Ledger appends immutable stock movements. Appending a movement and
// applying its delta to the material's physical stock happen in one atomic
// step, so every physical-stock change is traceable to exactly one row.
// The ledger does not reject movements that drive stock negative; shortfall
// states are surfaced by the Analyzer instead.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger { return &Ledger{store: store} }

// Record validates the input, computes the value delta and appends the
// movement.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (*ledger.Movement, error) {
	mv, err := l.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	err = l.store.WithTx(ctx, func(tx Tx) error {
		return tx.ApplyMovement(ctx, mv)
	})
	if err != nil {
		return nil, err
	}
	metrics.StockMovementsTotal.WithLabelValues(string(mv.Type)).Inc()
	return mv, nil
}

func (l *Ledger) prepare(ctx context.Context, in RecordInput) (*ledger.Movement, error) {
	if !in.Type.Valid() {
		return nil, validationf("unknown movement type %q", in.Type)
	}
	if in.QuantityDelta.IsZero() {
		return nil, validationf("movement quantity delta must be non-zero")
	}
	if !in.Unit.Valid() {
		return nil, validationf("unknown unit %q", in.Unit)
	}
	if in.SourceType != ledger.SourceOrder && in.SourceType != ledger.SourceManual {
		return nil, validationf("unknown movement source type %q", in.SourceType)
	}

	m, err := l.store.Material(ctx, in.MaterialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &MaterialNotFoundError{MaterialID: in.MaterialID}
	}

	nativeDelta, err := units.Convert(in.QuantityDelta, in.Unit, m.Unit)
	if err != nil {
		return nil, err
	}

	mv := &ledger.Movement{
		MaterialID:    m.ID,
		Type:          in.Type,
		QuantityDelta: nativeDelta,
		Unit:          m.Unit,
		SourceType:    in.SourceType,
		SourceID:      in.SourceID,
		Comment:       in.Comment,
	}
	if in.UnitPrice != nil {
		price := *in.UnitPrice
		value := nativeDelta.Mul(price)
		mv.UnitPrice = &price
		mv.ValueDelta = &value
	}
	return mv, nil
}

// MovementsForMaterial returns a material's audit trail, newest first.
func (l *Ledger) MovementsForMaterial(ctx context.Context, materialID int64) ([]ledger.Movement, error) {
	m, err := l.store.Material(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &MaterialNotFoundError{MaterialID: materialID}
	}
	return l.store.MovementsForMaterial(ctx, materialID)
}

// MovementsForSource returns all movements produced by one source, e.g. the
// consumption entries of an order.
func (l *Ledger) MovementsForSource(ctx context.Context, sourceType ledger.SourceType, sourceID string) ([]ledger.Movement, error) {
	return l.store.MovementsForSource(ctx, sourceType, sourceID)
}

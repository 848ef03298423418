package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
)

// Aggregator sums the material demand of an order from recipe entries and
// per-line supplements. Accumulation happens in base units so mixed-unit
// demand (0.18 KG here, 40 G there) folds into one total per material; the
// result is converted back into each material's native unit at the end.
// Pure accumulation is commutative, so the result does not depend on
// line/recipe/supplement iteration order.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator { return &Aggregator{store: store} }

// ComputeRequirements returns the total demand of the order per material, in
// each material's native unit. The whole computation aborts on the first
// invalid reference or cross-dimension unit; no partial result is returned.
func (a *Aggregator) ComputeRequirements(ctx context.Context, order *orders.Order) (Requirements, error) {
	totals := make(map[int64]decimal.Decimal) // material id -> base units
	mats := make(map[int64]*materials.Material)

	materialFor := func(id int64) (*materials.Material, error) {
		if m, ok := mats[id]; ok {
			return m, nil
		}
		m, err := a.store.Material(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, validationf("order %s references unknown material %d", order.ID, id)
		}
		if !m.Unit.Valid() {
			return nil, validationf("material %d has unknown native unit %q", id, m.Unit)
		}
		mats[id] = m
		return m, nil
	}

	addDemand := func(materialID int64, qty decimal.Decimal, unit units.Unit) error {
		if qty.IsNegative() {
			return validationf("order %s has negative quantity %s for material %d", order.ID, qty, materialID)
		}
		if !unit.Valid() {
			return validationf("order %s references unknown unit %q", order.ID, unit)
		}
		m, err := materialFor(materialID)
		if err != nil {
			return err
		}
		if unit.Dimension() != m.Unit.Dimension() {
			return &units.IncompatibleUnitError{From: unit, To: m.Unit}
		}
		base, err := units.ToBase(qty, unit)
		if err != nil {
			return err
		}
		totals[materialID] = totals[materialID].Add(base)
		return nil
	}

	for _, line := range order.Lines {
		if line.OrderedQuantity < 0 {
			return nil, validationf("order %s line %d has negative ordered quantity %d",
				order.ID, line.ID, line.OrderedQuantity)
		}

		product, err := a.store.Product(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, validationf("order %s references unknown product %d", order.ID, line.ProductID)
		}

		recipe, err := a.store.Recipe(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		orderedQty := decimal.NewFromInt(line.OrderedQuantity)
		for _, entry := range recipe {
			if err := addDemand(entry.MaterialID, entry.Quantity.Mul(orderedQty), entry.Unit); err != nil {
				return nil, err
			}
		}

		for _, sup := range line.Supplements {
			if !sup.Mode.Valid() {
				return nil, validationf("order %s supplement %d has unknown quantification mode %q",
					order.ID, sup.ID, sup.Mode)
			}
			qty := sup.Quantity.Mul(sup.Mode.Multiplier(line.OrderedQuantity))
			if err := addDemand(sup.MaterialID, qty, sup.Unit); err != nil {
				return nil, err
			}
		}
	}

	reqs := make(Requirements, len(totals))
	for id, base := range totals {
		native, err := units.FromBase(base, mats[id].Unit)
		if err != nil {
			return nil, err
		}
		reqs[id] = native
	}
	return reqs, nil
}

package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
)

// MaterialFeasibility is one line of a feasibility report.
type MaterialFeasibility struct {
	MaterialID    int64           `json:"material_id"`
	Name          string          `json:"name"`
	Unit          units.Unit      `json:"unit"`
	Required      decimal.Decimal `json:"required"`
	PhysicalStock decimal.Decimal `json:"physical_stock"`
	ReservedStock decimal.Decimal `json:"reserved_stock"`
	Available     decimal.Decimal `json:"available"`
	Shortfall     decimal.Decimal `json:"shortfall"`
}

// FeasibilityReport answers "can this order be fulfilled from current
// stock". It is a point-in-time estimate: stock is read without locks, so a
// concurrent reservation can invalidate it before Reserve is called.
type FeasibilityReport struct {
	OrderID     uuid.UUID             `json:"order_id"`
	IsFeasible  bool                  `json:"is_feasible"`
	PerMaterial []MaterialFeasibility `json:"per_material"`
	Missing     []MaterialFeasibility `json:"missing"`
}

// Analyzer compares an order's requirements against available stock.
type Analyzer struct {
	store Store
	agg   *Aggregator
}

func NewAnalyzer(store Store) *Analyzer {
	return &Analyzer{store: store, agg: NewAggregator(store)}
}

func feasibilityRow(m *materials.Material, required decimal.Decimal) MaterialFeasibility {
	available := m.Available()
	shortfall := required.Sub(available)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	return MaterialFeasibility{
		MaterialID:    m.ID,
		Name:          m.Name,
		Unit:          m.Unit,
		Required:      required,
		PhysicalStock: m.PhysicalStock,
		ReservedStock: m.ReservedStock,
		Available:     available,
		Shortfall:     shortfall,
	}
}

// Analyze computes the feasibility report for an order. Entries are ordered
// by material id.
func (a *Analyzer) Analyze(ctx context.Context, orderID uuid.UUID) (*FeasibilityReport, error) {
	order, err := a.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, validationf("unknown order %s", orderID)
	}

	reqs, err := a.agg.ComputeRequirements(ctx, order)
	if err != nil {
		return nil, err
	}

	report := &FeasibilityReport{
		OrderID:     orderID,
		PerMaterial: make([]MaterialFeasibility, 0, len(reqs)),
	}
	for _, id := range reqs.MaterialIDs() {
		m, err := a.store.Material(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, &MaterialNotFoundError{MaterialID: id}
		}
		row := feasibilityRow(m, reqs[id])
		report.PerMaterial = append(report.PerMaterial, row)
		if row.Shortfall.IsPositive() {
			report.Missing = append(report.Missing, row)
		}
	}
	report.IsFeasible = len(report.Missing) == 0
	return report, nil
}

package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/reservations"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
	"github.com/nRudzy/medicandle-sub000/internal/infra/metrics"
)

// Manager drives the reserve -> consume/release lifecycle of an order.
//
// Reserve snapshots the computed requirements into per-order reservation
// rows; Release and Consume work from that snapshot, so catalog edits
// between reserve and settlement cannot desynchronize the reserved-stock
// counters, and Release is idempotent. Each operation runs in one store
// transaction with the touched material rows locked in ascending id order.
type Manager struct {
	store    Store
	agg      *Aggregator
	analyzer *Analyzer
	ledger   *Ledger
	log      *slog.Logger
}

func NewManager(store Store, log *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		agg:      NewAggregator(store),
		analyzer: NewAnalyzer(store),
		ledger:   NewLedger(store),
		log:      log,
	}
}

// Ledger exposes the stock ledger for manual adjustments and audit queries.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// Materials returns the material catalog with current stock levels.
func (m *Manager) Materials(ctx context.Context) ([]materials.Material, error) {
	return m.store.Materials(ctx)
}

func (m *Manager) loadOrder(ctx context.Context, orderID uuid.UUID) (*orders.Order, error) {
	order, err := m.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, validationf("unknown order %s", orderID)
	}
	return order, nil
}

// requirementsFor computes the order's demand, dropping zero rows: a
// zero-quantity supplement is legal and holds nothing.
func (m *Manager) requirementsFor(ctx context.Context, order *orders.Order) (Requirements, error) {
	reqs, err := m.agg.ComputeRequirements(ctx, order)
	if err != nil {
		return nil, err
	}
	for id, qty := range reqs {
		if qty.IsZero() {
			delete(reqs, id)
		}
	}
	return reqs, nil
}

// AnalyzeFeasibility reports whether the order can be fulfilled from
// currently available stock, with the per-material breakdown.
func (m *Manager) AnalyzeFeasibility(ctx context.Context, orderID uuid.UUID) (*FeasibilityReport, error) {
	return m.analyzer.Analyze(ctx, orderID)
}

// Reserve places a hold for the order's full requirements. All-or-nothing:
// if any material is short, the call fails with InsufficientStockError
// carrying the complete shortfall list and no counter is changed.
func (m *Manager) Reserve(ctx context.Context, orderID uuid.UUID) error {
	order, err := m.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	reqs, err := m.requirementsFor(ctx, order)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return nil
	}

	ids := reqs.MaterialIDs()
	err = m.store.WithTx(ctx, func(tx Tx) error {
		mats, err := tx.MaterialsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		var missing []MaterialFeasibility
		for _, id := range ids {
			mat, ok := mats[id]
			if !ok {
				return &MaterialNotFoundError{MaterialID: id}
			}
			if mat.Available().LessThan(reqs[id]) {
				missing = append(missing, feasibilityRow(mat, reqs[id]))
			}
		}
		if len(missing) > 0 {
			return &InsufficientStockError{OrderID: orderID, Missing: missing}
		}

		now := time.Now().UTC()
		rows := make([]reservations.Reservation, 0, len(ids))
		for _, id := range ids {
			if err := tx.AddReserved(ctx, id, reqs[id]); err != nil {
				return err
			}
			rows = append(rows, reservations.Reservation{
				OrderID:    orderID,
				MaterialID: id,
				Quantity:   reqs[id],
				CreatedAt:  now,
			})
		}
		return tx.InsertReservations(ctx, rows)
	})
	if err != nil {
		if _, short := err.(*InsufficientStockError); short {
			metrics.ReservationsTotal.WithLabelValues("insufficient").Inc()
			m.log.Info("reserve rejected", "order", orderID, "err", err)
		}
		return err
	}

	metrics.ReservationsTotal.WithLabelValues("reserved").Inc()
	m.log.Info("order reserved", "order", orderID, "materials", len(ids))
	return nil
}

// Release frees the order's hold. The reserved counters are decremented by
// the snapshotted amounts, clamped at zero; an order without a hold is a
// no-op, so repeated releases are safe.
func (m *Manager) Release(ctx context.Context, orderID uuid.UUID) error {
	if _, err := m.loadOrder(ctx, orderID); err != nil {
		return err
	}

	released := false
	err := m.store.WithTx(ctx, func(tx Tx) error {
		held, err := tx.ReservationsForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if len(held) == 0 {
			return nil
		}
		released = true

		mats, err := tx.MaterialsForUpdate(ctx, reservationMaterialIDs(held))
		if err != nil {
			return err
		}
		for _, r := range held {
			mat, ok := mats[r.MaterialID]
			if !ok {
				return &MaterialNotFoundError{MaterialID: r.MaterialID}
			}
			delta := r.Quantity
			if delta.GreaterThan(mat.ReservedStock) {
				delta = mat.ReservedStock
			}
			if delta.IsPositive() {
				if err := tx.AddReserved(ctx, r.MaterialID, delta.Neg()); err != nil {
					return err
				}
				mat.ReservedStock = mat.ReservedStock.Sub(delta)
			}
		}
		return tx.DeleteReservations(ctx, orderID)
	})
	if err != nil {
		return err
	}
	if released {
		metrics.ReservationsTotal.WithLabelValues("released").Inc()
		m.log.Info("order released", "order", orderID)
	}
	return nil
}

// Consume settles the order: one consumption movement per held material
// decrements physical stock through the ledger, the reserved counters drop
// by the same amounts and the hold is removed. An order without a hold is
// consumed from freshly computed requirements without touching reserved
// stock.
func (m *Manager) Consume(ctx context.Context, orderID uuid.UUID) error {
	order, err := m.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	// Fallback amounts for an unreserved order; unused when a hold exists.
	fallback, err := m.requirementsFor(ctx, order)
	if err != nil {
		return err
	}

	movements := 0
	err = m.store.WithTx(ctx, func(tx Tx) error {
		held, err := tx.ReservationsForOrder(ctx, orderID)
		if err != nil {
			return err
		}

		fromHold := len(held) > 0
		amounts := make(map[int64]decimal.Decimal)
		if fromHold {
			for _, r := range held {
				amounts[r.MaterialID] = amounts[r.MaterialID].Add(r.Quantity)
			}
		} else {
			for id, qty := range fallback {
				amounts[id] = qty
			}
		}
		if len(amounts) == 0 {
			return nil
		}

		ids := Requirements(amounts).MaterialIDs()
		mats, err := tx.MaterialsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		for _, id := range ids {
			mat, ok := mats[id]
			if !ok {
				return &MaterialNotFoundError{MaterialID: id}
			}
			qty := amounts[id]

			price := mat.CostPerUnit
			value := qty.Neg().Mul(price)
			mv := &ledger.Movement{
				MaterialID:    id,
				Type:          ledger.MoveConsumption,
				QuantityDelta: qty.Neg(),
				Unit:          mat.Unit,
				UnitPrice:     &price,
				ValueDelta:    &value,
				SourceType:    ledger.SourceOrder,
				SourceID:      orderID.String(),
				Comment:       order.Reference,
			}
			if err := tx.ApplyMovement(ctx, mv); err != nil {
				return err
			}
			movements++

			if fromHold {
				release := qty
				if release.GreaterThan(mat.ReservedStock) {
					release = mat.ReservedStock
				}
				if release.IsPositive() {
					if err := tx.AddReserved(ctx, id, release.Neg()); err != nil {
						return err
					}
					mat.ReservedStock = mat.ReservedStock.Sub(release)
				}
			}
		}

		if fromHold {
			return tx.DeleteReservations(ctx, orderID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := 0; i < movements; i++ {
		metrics.StockMovementsTotal.WithLabelValues(string(ledger.MoveConsumption)).Inc()
	}
	metrics.ReservationsTotal.WithLabelValues("consumed").Inc()
	m.log.Info("order consumed", "order", orderID, "movements", movements)
	return nil
}

// AdjustmentInput is a manual stock correction or goods receipt.
type AdjustmentInput struct {
	MaterialID int64
	Delta      decimal.Decimal
	Unit       units.Unit
	UnitPrice  *decimal.Decimal
	Comment    string
	// Type defaults to MoveAdjustment; receipts pass MoveReceipt.
	Type ledger.MovementType
}

// RecordManualAdjustment appends a manual movement to the ledger and returns
// the created row.
func (m *Manager) RecordManualAdjustment(ctx context.Context, in AdjustmentInput) (*ledger.Movement, error) {
	movementType := in.Type
	if movementType == "" {
		movementType = ledger.MoveAdjustment
	}
	return m.ledger.Record(ctx, RecordInput{
		MaterialID:    in.MaterialID,
		Type:          movementType,
		QuantityDelta: in.Delta,
		Unit:          in.Unit,
		UnitPrice:     in.UnitPrice,
		SourceType:    ledger.SourceManual,
		Comment:       in.Comment,
	})
}

func reservationMaterialIDs(rs []reservations.Reservation) []int64 {
	seen := make(map[int64]bool, len(rs))
	ids := make([]int64, 0, len(rs))
	for _, r := range rs {
		if !seen[r.MaterialID] {
			seen[r.MaterialID] = true
			ids = append(ids, r.MaterialID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
	"github.com/nRudzy/medicandle-sub000/internal/engine"
	"github.com/nRudzy/medicandle-sub000/internal/store/memory"
)

func mustMaterial(t *testing.T, st *memory.Store, id int64) *materials.Material {
	t.Helper()
	m, err := st.Material(context.Background(), id)
	if err != nil {
		t.Fatalf("Material(%d): %v", id, err)
	}
	if m == nil {
		t.Fatalf("material %d not found", id)
	}
	return m
}

func TestReserveHoldsAllMaterials(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	if err := mgr.Reserve(context.Background(), order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	want := map[int64]string{
		matWax:       "0.96",
		matWick:      "5",
		matFragrance: "45",
	}
	for id, w := range want {
		m := mustMaterial(t, st, id)
		if !m.ReservedStock.Equal(dec(w)) {
			t.Errorf("material %d: expected %s reserved, got %s", id, w, m.ReservedStock)
		}
	}

	// Physical stock is untouched by a reservation.
	if m := mustMaterial(t, st, matWax); !m.PhysicalStock.Equal(dec("5")) {
		t.Errorf("expected physical stock 5, got %s", m.PhysicalStock)
	}
}

func TestReserveAllOrNothing(t *testing.T) {
	st := newCatalogStore()
	// Short on wax and fragrance; wicks are plentiful.
	st.PutMaterial(materials.Material{
		ID: matWax, Name: "soy wax", Unit: units.UnitKG,
		PhysicalStock: dec("0.5"),
	})
	st.PutMaterial(materials.Material{
		ID: matFragrance, Name: "lavender oil", Unit: units.UnitML,
		PhysicalStock: dec("40"),
	})
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	err := mgr.Reserve(context.Background(), order.ID)
	var iserr *engine.InsufficientStockError
	if !errors.As(err, &iserr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if iserr.OrderID != order.ID {
		t.Errorf("error carries order %s, expected %s", iserr.OrderID, order.ID)
	}
	if len(iserr.Missing) != 2 {
		t.Fatalf("expected the full shortfall list (2 materials), got %d", len(iserr.Missing))
	}
	if iserr.Missing[0].MaterialID != matWax || iserr.Missing[1].MaterialID != matFragrance {
		t.Errorf("unexpected shortfall materials: %d, %d",
			iserr.Missing[0].MaterialID, iserr.Missing[1].MaterialID)
	}

	// Nothing was held, not even the material that had enough stock.
	for _, id := range []int64{matWax, matWick, matFragrance} {
		if m := mustMaterial(t, st, id); !m.ReservedStock.IsZero() {
			t.Errorf("material %d: expected zero reserved after failed reserve, got %s", id, m.ReservedStock)
		}
	}
}

func TestReserveExactlyAvailable(t *testing.T) {
	st := newCatalogStore()
	st.PutMaterial(materials.Material{
		ID: matWax, Name: "soy wax", Unit: units.UnitKG,
		PhysicalStock: dec("1.06"), ReservedStock: dec("0.1"),
	})
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	// Available is exactly the 0.96 KG requirement.
	if err := mgr.Reserve(context.Background(), order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if m := mustMaterial(t, st, matWax); !m.ReservedStock.Equal(dec("1.06")) {
		t.Errorf("expected 1.06 reserved, got %s", m.ReservedStock)
	}
}

func TestReserveUnknownOrder(t *testing.T) {
	st := newCatalogStore()
	mgr := engine.NewManager(st, testLogger())

	err := mgr.Reserve(context.Background(), newOrder().ID)
	var verr *engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReleaseFreesHold(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	if err := mgr.Reserve(context.Background(), order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := mgr.Release(context.Background(), order.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}

	for _, id := range []int64{matWax, matWick, matFragrance} {
		if m := mustMaterial(t, st, id); !m.ReservedStock.IsZero() {
			t.Errorf("material %d: expected zero reserved after release, got %s", id, m.ReservedStock)
		}
	}
}

func TestReleaseWithoutHoldIsNoOp(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	if err := mgr.Release(context.Background(), order.ID); err != nil {
		t.Fatalf("Release without hold: %v", err)
	}

	// Releasing twice after a reserve is equally safe.
	if err := mgr.Reserve(context.Background(), order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := mgr.Release(context.Background(), order.ID); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := mgr.Release(context.Background(), order.ID); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if m := mustMaterial(t, st, matWax); !m.ReservedStock.IsZero() {
		t.Errorf("expected zero reserved, got %s", m.ReservedStock)
	}
}

func TestReleaseClampsAtZero(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	if err := mgr.Reserve(context.Background(), order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// Simulate an out-of-band correction that dropped the counter below the
	// snapshotted hold.
	m := mustMaterial(t, st, matWax)
	m.ReservedStock = dec("0.2")
	st.PutMaterial(*m)

	if err := mgr.Release(context.Background(), order.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if m := mustMaterial(t, st, matWax); !m.ReservedStock.IsZero() {
		t.Errorf("expected reserved clamped to zero, got %s", m.ReservedStock)
	}
}

func TestConsumeSettlesReservedOrder(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())
	ctx := context.Background()

	if err := mgr.Reserve(ctx, order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := mgr.Consume(ctx, order.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	wax := mustMaterial(t, st, matWax)
	if !wax.PhysicalStock.Equal(dec("4.04")) {
		t.Errorf("expected 4.04 KG wax left, got %s", wax.PhysicalStock)
	}
	if !wax.ReservedStock.IsZero() {
		t.Errorf("expected zero reserved after consume, got %s", wax.ReservedStock)
	}

	mvs, err := st.MovementsForSource(ctx, ledger.SourceOrder, order.ID.String())
	if err != nil {
		t.Fatalf("MovementsForSource: %v", err)
	}
	if len(mvs) != 3 {
		t.Fatalf("expected 3 consumption movements, got %d", len(mvs))
	}
	for _, mv := range mvs {
		if mv.Type != ledger.MoveConsumption {
			t.Errorf("movement %d: expected consumption, got %s", mv.ID, mv.Type)
		}
		if !mv.QuantityDelta.IsNegative() {
			t.Errorf("movement %d: expected negative delta, got %s", mv.ID, mv.QuantityDelta)
		}
		if mv.Comment != order.Reference {
			t.Errorf("movement %d: expected comment %q, got %q", mv.ID, order.Reference, mv.Comment)
		}
		if mv.UnitPrice == nil || mv.ValueDelta == nil {
			t.Fatalf("movement %d: expected priced movement", mv.ID)
		}
		if want := mv.QuantityDelta.Mul(*mv.UnitPrice); !mv.ValueDelta.Equal(want) {
			t.Errorf("movement %d: value delta %s, expected %s", mv.ID, mv.ValueDelta, want)
		}
	}
}

func TestConsumeWithoutReserve(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())
	ctx := context.Background()

	if err := mgr.Consume(ctx, order.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	wax := mustMaterial(t, st, matWax)
	if !wax.PhysicalStock.Equal(dec("4.04")) {
		t.Errorf("expected 4.04 KG wax left, got %s", wax.PhysicalStock)
	}
	if !wax.ReservedStock.IsZero() {
		t.Errorf("reserved stock touched on unreserved consume: %s", wax.ReservedStock)
	}
}

func TestConsumeMayDriveStockNegative(t *testing.T) {
	st := newCatalogStore()
	st.PutMaterial(materials.Material{
		ID: matWax, Name: "soy wax", Unit: units.UnitKG,
		CostPerUnit: dec("9.50"), PhysicalStock: dec("0.5"),
	})
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())

	// No reservation gate: consumption records what was actually used.
	if err := mgr.Consume(context.Background(), order.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if m := mustMaterial(t, st, matWax); !m.PhysicalStock.Equal(dec("-0.46")) {
		t.Errorf("expected -0.46 KG, got %s", m.PhysicalStock)
	}
}

func TestConsumeUsesHoldSnapshotAfterCatalogEdit(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())
	ctx := context.Background()

	if err := mgr.Reserve(ctx, order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// Double the recipe after the hold was taken; settlement still uses the
	// snapshotted amounts.
	st.PutRecipe(productCandle, doubledWaxRecipe())

	if err := mgr.Consume(ctx, order.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if m := mustMaterial(t, st, matWax); !m.PhysicalStock.Equal(dec("4.04")) {
		t.Errorf("expected 4.04 KG (snapshot amounts), got %s", m.PhysicalStock)
	}
}

func TestLedgerBalancesWithPhysicalStock(t *testing.T) {
	st := newCatalogStore()
	order := newOrder()
	st.PutOrder(order)
	mgr := engine.NewManager(st, testLogger())
	ctx := context.Background()

	price := dec("9.20")
	if _, err := mgr.RecordManualAdjustment(ctx, engine.AdjustmentInput{
		MaterialID: matWax,
		Delta:      dec("2"),
		Unit:       units.UnitKG,
		UnitPrice:  &price,
		Type:       ledger.MoveReceipt,
		Comment:    "delivery #88",
	}); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if err := mgr.Reserve(ctx, order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := mgr.Consume(ctx, order.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if _, err := mgr.RecordManualAdjustment(ctx, engine.AdjustmentInput{
		MaterialID: matWax,
		Delta:      dec("-0.04"),
		Unit:       units.UnitKG,
		Comment:    "spillage",
	}); err != nil {
		t.Fatalf("adjustment: %v", err)
	}

	mvs, err := mgr.Ledger().MovementsForMaterial(ctx, matWax)
	if err != nil {
		t.Fatalf("MovementsForMaterial: %v", err)
	}

	sum := decimal.Zero
	for _, mv := range mvs {
		sum = sum.Add(mv.QuantityDelta)
	}
	m := mustMaterial(t, st, matWax)
	if initial := dec("5"); !initial.Add(sum).Equal(m.PhysicalStock) {
		t.Errorf("ledger sum %s does not reconcile stock %s from initial %s",
			sum, m.PhysicalStock, initial)
	}
}

func TestConsumptionConservation(t *testing.T) {
	st := memory.New()
	st.PutMaterial(materials.Material{
		ID:            matWax,
		Name:          "soy wax",
		Unit:          units.UnitKG,
		CostPerUnit:   dec("12.50"),
		PhysicalStock: dec("10"),
	})
	st.PutProduct(orders.Product{ID: productCandle, Name: "candle 180g", Active: true})
	st.PutRecipe(productCandle, []orders.RecipeEntry{
		{ProductID: productCandle, MaterialID: matWax, Quantity: dec("0.18"), Unit: units.UnitKG},
	})
	order := newOrder()
	order.Lines = []orders.OrderLine{{ID: 1, ProductID: productCandle, OrderedQuantity: 50}}
	st.PutOrder(order)

	mgr := engine.NewManager(st, testLogger())
	ctx := context.Background()

	if err := mgr.Reserve(ctx, order.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if m := mustMaterial(t, st, matWax); !m.ReservedStock.Equal(dec("9")) {
		t.Fatalf("expected 9 KG reserved, got %s", m.ReservedStock)
	}

	if err := mgr.Consume(ctx, order.ID); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	m := mustMaterial(t, st, matWax)
	if !m.PhysicalStock.Equal(dec("1")) {
		t.Errorf("expected 1 KG physical, got %s", m.PhysicalStock)
	}
	if !m.ReservedStock.IsZero() {
		t.Errorf("expected zero reserved, got %s", m.ReservedStock)
	}

	mvs, err := st.MovementsForSource(ctx, ledger.SourceOrder, order.ID.String())
	if err != nil {
		t.Fatalf("MovementsForSource: %v", err)
	}
	if len(mvs) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(mvs))
	}
	if !mvs[0].QuantityDelta.Equal(dec("-9")) {
		t.Errorf("expected -9 KG delta, got %s", mvs[0].QuantityDelta)
	}
	if mvs[0].ValueDelta == nil || !mvs[0].ValueDelta.Equal(dec("-112.5")) {
		t.Errorf("expected -112.5 value delta, got %v", mvs[0].ValueDelta)
	}
}

// doubledWaxRecipe returns the candle recipe with the wax line doubled.
func doubledWaxRecipe() []orders.RecipeEntry {
	return []orders.RecipeEntry{
		{ProductID: productCandle, MaterialID: matWax, Quantity: dec("360"), Unit: units.UnitG},
		{ProductID: productCandle, MaterialID: matWick, Quantity: dec("1"), Unit: units.UnitPiece},
		{ProductID: productCandle, MaterialID: matFragrance, Quantity: dec("8"), Unit: units.UnitML},
	}
}

package engine_test

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
	"github.com/nRudzy/medicandle-sub000/internal/store/memory"
)

const (
	matWax       int64 = 1
	matWick      int64 = 2
	matFragrance int64 = 3

	productCandle int64 = 10
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCatalogStore seeds a store with three materials and one product whose
// recipe spans all three dimensions: wax is kept in KG but consumed by the
// recipe in G, the wick is counted in pieces and fragrance is measured in ML.
func newCatalogStore() *memory.Store {
	st := memory.New()

	st.PutMaterial(materials.Material{
		ID:            matWax,
		Name:          "soy wax",
		Category:      "base",
		Unit:          units.UnitKG,
		CostPerUnit:   dec("9.50"),
		PhysicalStock: dec("5"),
	})
	st.PutMaterial(materials.Material{
		ID:            matWick,
		Name:          "cotton wick",
		Category:      "hardware",
		Unit:          units.UnitPiece,
		CostPerUnit:   dec("0.30"),
		PhysicalStock: dec("200"),
	})
	st.PutMaterial(materials.Material{
		ID:            matFragrance,
		Name:          "lavender oil",
		Category:      "fragrance",
		Unit:          units.UnitML,
		CostPerUnit:   dec("0.85"),
		PhysicalStock: dec("500"),
	})

	st.PutProduct(orders.Product{ID: productCandle, Name: "candle 180g", Active: true})
	st.PutRecipe(productCandle, []orders.RecipeEntry{
		{ProductID: productCandle, MaterialID: matWax, Quantity: dec("180"), Unit: units.UnitG},
		{ProductID: productCandle, MaterialID: matWick, Quantity: dec("1"), Unit: units.UnitPiece},
		{ProductID: productCandle, MaterialID: matFragrance, Quantity: dec("8"), Unit: units.UnitML},
	})

	return st
}

// newOrder builds a two-line order for the candle product:
//
//	line 1: 3 candles, plus 20 G of wax per candle (60 G total)
//	line 2: 2 candles, plus 5 ML of fragrance once for the line
//
// Total demand: 0.96 KG wax, 5 wicks, 45 ML fragrance.
func newOrder() orders.Order {
	return orders.Order{
		ID:        uuid.MustParse("5e0bb9f3-07a4-4b0e-9a3d-1f2c6a9d4e21"),
		Reference: "CMD-2051",
		Lines: []orders.OrderLine{
			{
				ID:              1,
				ProductID:       productCandle,
				OrderedQuantity: 3,
				Supplements: []orders.Supplement{
					{ID: 1, MaterialID: matWax, Quantity: dec("20"), Unit: units.UnitG, Mode: orders.PerProductUnit},
				},
			},
			{
				ID:              2,
				ProductID:       productCandle,
				OrderedQuantity: 2,
				Supplements: []orders.Supplement{
					{ID: 2, MaterialID: matFragrance, Quantity: dec("5"), Unit: units.UnitML, Mode: orders.PerLine},
				},
			},
		},
	}
}

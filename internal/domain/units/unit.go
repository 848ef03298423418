package units

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Dimension is the physical dimension a unit measures.
type Dimension string

const (
	DimMass   Dimension = "mass"
	DimVolume Dimension = "volume"
	DimCount  Dimension = "count"
)

// Unit is a measurement unit understood by the stock engine.
// Quantities are stored per material in that material's native unit and
// summed internally in the base unit of the dimension (g, ml, piece).
type Unit string

const (
	UnitG     Unit = "G"
	UnitKG    Unit = "KG"
	UnitML    Unit = "ML"
	UnitL     Unit = "L"
	UnitPiece Unit = "PIECE"
)

var thousand = decimal.NewFromInt(1000)

var unitDefs = map[Unit]struct {
	dim    Dimension
	factor decimal.Decimal // multiplier into the dimension's base unit
}{
	UnitG:     {DimMass, decimal.NewFromInt(1)},
	UnitKG:    {DimMass, thousand},
	UnitML:    {DimVolume, decimal.NewFromInt(1)},
	UnitL:     {DimVolume, thousand},
	UnitPiece: {DimCount, decimal.NewFromInt(1)},
}

// IncompatibleUnitError reports a conversion across dimensions, e.g. a mass
// quantity requested in a volume unit. This is catalog-data corruption and is
// never swallowed.
type IncompatibleUnitError struct {
	From Unit
	To   Unit
}

func (e *IncompatibleUnitError) Error() string {
	return fmt.Sprintf("incompatible units: cannot convert %s (%s) to %s (%s)",
		e.From, e.From.Dimension(), e.To, e.To.Dimension())
}

// Dimension returns the dimension of the unit, or "" for an unknown unit.
func (u Unit) Dimension() Dimension {
	return unitDefs[u].dim
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	_, ok := unitDefs[u]
	return ok
}

// Parse maps a raw string to a Unit.
func Parse(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", fmt.Errorf("unknown unit %q", s)
	}
	return u, nil
}

// ToBase converts q expressed in u into the base unit of u's dimension.
// Exact multiplication, no rounding.
func ToBase(q decimal.Decimal, u Unit) (decimal.Decimal, error) {
	def, ok := unitDefs[u]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown unit %q", u)
	}
	return q.Mul(def.factor), nil
}

// FromBase is the exact inverse of ToBase.
func FromBase(q decimal.Decimal, u Unit) (decimal.Decimal, error) {
	def, ok := unitDefs[u]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown unit %q", u)
	}
	return q.Div(def.factor), nil
}

// Convert re-expresses q from one unit into another of the same dimension.
// Cross-dimension conversion fails with IncompatibleUnitError.
func Convert(q decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	fd, ok := unitDefs[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown unit %q", from)
	}
	td, ok := unitDefs[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown unit %q", to)
	}
	if fd.dim != td.dim {
		return decimal.Zero, &IncompatibleUnitError{From: from, To: to}
	}
	return q.Mul(fd.factor).Div(td.factor), nil
}

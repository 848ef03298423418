// Package postgres implements engine.Store on a pgx pool. Every engine
// transaction maps to one database transaction; material rows are locked
// with SELECT ... FOR UPDATE in ascending id order and counter updates are
// expressed as SQL increments, so concurrent reserve/release/consume calls
// on the same materials serialize without lost updates.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/orders"
	"github.com/nRudzy/medicandle-sub000/internal/domain/reservations"
	"github.com/nRudzy/medicandle-sub000/internal/engine"
)

type Store struct {
	pool      *pgxpool.Pool
	materials *materials.Repo
	orders    *orders.Repo
}

var _ engine.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:      pool,
		materials: materials.NewRepo(pool),
		orders:    orders.NewRepo(pool),
	}
}

func (s *Store) Material(ctx context.Context, id int64) (*materials.Material, error) {
	return s.materials.GetByID(ctx, id)
}

func (s *Store) Materials(ctx context.Context) ([]materials.Material, error) {
	return s.materials.List(ctx)
}

func (s *Store) Product(ctx context.Context, id int64) (*orders.Product, error) {
	return s.orders.GetProduct(ctx, id)
}

func (s *Store) Recipe(ctx context.Context, productID int64) ([]orders.RecipeEntry, error) {
	return s.orders.RecipeFor(ctx, productID)
}

func (s *Store) Order(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

const movementCols = `id, material_id, movement_type, quantity_delta, unit, unit_price, value_delta, source_type, source_id, comment, created_at`

func scanMovements(rows pgx.Rows) ([]ledger.Movement, error) {
	defer rows.Close()
	var out []ledger.Movement
	for rows.Next() {
		var mv ledger.Movement
		var price, value decimal.NullDecimal
		if err := rows.Scan(
			&mv.ID,
			&mv.MaterialID,
			&mv.Type,
			&mv.QuantityDelta,
			&mv.Unit,
			&price,
			&value,
			&mv.SourceType,
			&mv.SourceID,
			&mv.Comment,
			&mv.CreatedAt,
		); err != nil {
			return nil, err
		}
		if price.Valid {
			mv.UnitPrice = &price.Decimal
		}
		if value.Valid {
			mv.ValueDelta = &value.Decimal
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func (s *Store) MovementsForMaterial(ctx context.Context, materialID int64) ([]ledger.Movement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+movementCols+`
		FROM stock_movements
		WHERE material_id = $1
		ORDER BY created_at DESC, id DESC
	`, materialID)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

func (s *Store) MovementsForSource(ctx context.Context, sourceType ledger.SourceType, sourceID string) ([]ledger.Movement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+movementCols+`
		FROM stock_movements
		WHERE source_type = $1 AND source_id = $2
		ORDER BY created_at DESC, id DESC
	`, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx engine.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

var _ engine.Tx = (*pgTx)(nil)

func (t *pgTx) MaterialsForUpdate(ctx context.Context, ids []int64) (map[int64]*materials.Material, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, category, unit, cost_per_unit, physical_stock, reserved_stock, created_at
		FROM materials
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*materials.Material, len(ids))
	for rows.Next() {
		var m materials.Material
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Category,
			&m.Unit,
			&m.CostPerUnit,
			&m.PhysicalStock,
			&m.ReservedStock,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out[m.ID] = &m
	}
	return out, rows.Err()
}

func (t *pgTx) AddReserved(ctx context.Context, materialID int64, delta decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE materials SET reserved_stock = reserved_stock + $2 WHERE id = $1
	`, materialID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("material %d not found", materialID)
	}
	return nil
}

func nullDec(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (t *pgTx) ApplyMovement(ctx context.Context, mv *ledger.Movement) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements
		(material_id, movement_type, quantity_delta, unit, unit_price, value_delta, source_type, source_id, comment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at
	`, mv.MaterialID, mv.Type, mv.QuantityDelta, mv.Unit,
		nullDec(mv.UnitPrice), nullDec(mv.ValueDelta), mv.SourceType, mv.SourceID, mv.Comment)
	if err := row.Scan(&mv.ID, &mv.CreatedAt); err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE materials SET physical_stock = physical_stock + $2 WHERE id = $1
	`, mv.MaterialID, mv.QuantityDelta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("material %d not found", mv.MaterialID)
	}
	return nil
}

func (t *pgTx) InsertReservations(ctx context.Context, rows []reservations.Reservation) error {
	for _, r := range rows {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO reservations (order_id, material_id, quantity, created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (order_id, material_id)
			DO UPDATE SET quantity = reservations.quantity + EXCLUDED.quantity
		`, r.OrderID, r.MaterialID, r.Quantity, r.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) ReservationsForOrder(ctx context.Context, orderID uuid.UUID) ([]reservations.Reservation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT order_id, material_id, quantity, created_at
		FROM reservations
		WHERE order_id = $1
		ORDER BY material_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservations.Reservation
	for rows.Next() {
		var r reservations.Reservation
		if err := rows.Scan(&r.OrderID, &r.MaterialID, &r.Quantity, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *pgTx) DeleteReservations(ctx context.Context, orderID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM reservations WHERE order_id = $1`, orderID)
	return err
}

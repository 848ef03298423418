package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// GetProduct returns the product or (nil, nil) when it does not exist.
func (r *Repo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, active, created_at FROM products WHERE id = $1
	`, id)
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// RecipeFor returns the recipe entries of a product in catalog order.
func (r *Repo) RecipeFor(ctx context.Context, productID int64) ([]RecipeEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, material_id, quantity, unit
		FROM recipe_entries
		WHERE product_id = $1
		ORDER BY position
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecipeEntry
	for rows.Next() {
		var e RecipeEntry
		if err := rows.Scan(&e.ProductID, &e.MaterialID, &e.Quantity, &e.Unit); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetOrder loads an order with its lines and supplements, or (nil, nil) when
// it does not exist.
func (r *Repo) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, reference, created_at FROM orders WHERE id = $1
	`, id)
	var o Order
	if err := row.Scan(&o.ID, &o.Reference, &o.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	lineRows, err := r.pool.Query(ctx, `
		SELECT id, product_id, ordered_quantity
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	lineIdx := make(map[int64]int)
	for lineRows.Next() {
		var l OrderLine
		if err := lineRows.Scan(&l.ID, &l.ProductID, &l.OrderedQuantity); err != nil {
			return nil, err
		}
		lineIdx[l.ID] = len(o.Lines)
		o.Lines = append(o.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	supRows, err := r.pool.Query(ctx, `
		SELECT s.id, s.order_line_id, s.material_id, s.quantity, s.unit, s.mode
		FROM order_supplements s
		JOIN order_lines l ON l.id = s.order_line_id
		WHERE l.order_id = $1
		ORDER BY s.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer supRows.Close()

	for supRows.Next() {
		var s Supplement
		var lineID int64
		if err := supRows.Scan(&s.ID, &lineID, &s.MaterialID, &s.Quantity, &s.Unit, &s.Mode); err != nil {
			return nil, err
		}
		if i, ok := lineIdx[lineID]; ok {
			o.Lines[i].Supplements = append(o.Lines[i].Supplements, s)
		}
	}
	if err := supRows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

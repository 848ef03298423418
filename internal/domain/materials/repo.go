package materials

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const materialCols = `id, name, category, unit, cost_per_unit, physical_stock, reserved_stock, created_at`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	if err := row.Scan(
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
	return &m, nil
}

// GetByID returns the material or (nil, nil) when it does not exist.
func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+materialCols+` FROM materials WHERE id = $1`, id)
	m, err := scanMaterial(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repo) List(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+materialCols+` FROM materials ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
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
		out = append(out, m)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shoplist/server/internal/models"
)

// ItemRepositoryPostgres handles item persistence for PostgreSQL
type ItemRepositoryPostgres struct {
	db *sql.DB
}

// NewItemRepositoryPostgres creates a new ItemRepositoryPostgres
func NewItemRepositoryPostgres(db *sql.DB) *ItemRepositoryPostgres {
	return &ItemRepositoryPostgres{db: db}
}

// GetByID retrieves an item by its ID
func (r *ItemRepositoryPostgres) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `
		SELECT id, name, completed, position, created_at, updated_at
		FROM items WHERE id = $1
	`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetAll retrieves all items in list order
func (r *ItemRepositoryPostgres) GetAll(ctx context.Context) ([]*models.Item, error) {
	query := `
		SELECT id, name, completed, position, created_at, updated_at
		FROM items
		ORDER BY completed ASC, position ASC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Add upserts an item by id
func (r *ItemRepositoryPostgres) Add(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, name, completed, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			completed = EXCLUDED.completed,
			position = EXCLUDED.position,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, boolToInt(item.Completed), item.Position,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// Update applies the patch to an existing item. Returns nil if the id
// is unknown.
func (r *ItemRepositoryPostgres) Update(ctx context.Context, id string, patch models.ItemPatch, updatedAt time.Time) (*models.Item, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sets := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Name != nil {
		sets = append(sets, "name = "+arg(strings.TrimSpace(*patch.Name)))
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = "+arg(boolToInt(*patch.Completed)))
	}
	if patch.Position != nil {
		sets = append(sets, "position = "+arg(*patch.Position))
	}
	if len(sets) == 0 {
		return existing, nil
	}

	sets = append(sets, "updated_at = "+arg(updatedAt))
	query := `UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + arg(id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes an item. Returns false if the id was unknown.
func (r *ItemRepositoryPostgres) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// NextPosition returns max(position)+1 among incomplete items
func (r *ItemRepositoryPostgres) NextPosition(ctx context.Context) (int64, error) {
	var maxPos sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM items WHERE completed = 0`,
	).Scan(&maxPos)
	if err != nil {
		return 0, err
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return maxPos.Int64 + 1, nil
}

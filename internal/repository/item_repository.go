package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shoplist/server/internal/models"
)

// ItemRepository handles item persistence for SQLite
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// GetByID retrieves an item by its ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `
		SELECT id, name, completed, position, created_at, updated_at
		FROM items WHERE id = ?
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

// GetAll retrieves all items, incomplete first by position, then
// completed, newest created first within equal positions
func (r *ItemRepository) GetAll(ctx context.Context) ([]*models.Item, error) {
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

// Add upserts an item by id. A sync batch replayed after a failed
// response must not duplicate rows, so the whole record is replaced.
func (r *ItemRepository) Add(ctx context.Context, item *models.Item) error {
	query := `
		INSERT OR REPLACE INTO items (id, name, completed, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, boolToInt(item.Completed), item.Position,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// Update applies the patch to an existing item. Returns nil if the id
// is unknown.
func (r *ItemRepository) Update(ctx context.Context, id string, patch models.ItemPatch, updatedAt time.Time) (*models.Item, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sets := []string{}
	args := []interface{}{}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*patch.Completed))
	}
	if patch.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *patch.Position)
	}
	if len(sets) == 0 {
		return existing, nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt, id)

	query := `UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes an item. Returns false if the id was unknown.
func (r *ItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
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
func (r *ItemRepository) NextPosition(ctx context.Context) (int64, error) {
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var completed int
	if err := row.Scan(
		&item.ID, &item.Name, &completed, &item.Position,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Completed = completed == 1
	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

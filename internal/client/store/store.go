// Package store is the client's durable local persistence: the item
// cache, the pending-change queue, and the last-sync marker. It never
// touches the network.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shoplist/server/internal/models"
)

const lastSyncKey = "lastSync"

// Store is the on-device database backing the offline-first client
type Store struct {
	db *sql.DB
}

// Open creates or opens the client database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_completed ON items(completed);
	CREATE INDEX IF NOT EXISTS idx_items_position ON items(position);

	CREATE TABLE IF NOT EXISTS pending_changes (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		item_id TEXT,
		payload TEXT,
		client_timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_changes_ts ON pending_changes(client_timestamp);

	CREATE TABLE IF NOT EXISTS sync_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAllItems returns every cached item in render order: incomplete
// first ascending by position, then completed newest-updated first,
// ties broken by position then id.
func (s *Store) GetAllItems(ctx context.Context) ([]*models.Item, error) {
	query := `
		SELECT id, name, completed, position, created_at, updated_at
		FROM items
		ORDER BY completed ASC,
			CASE WHEN completed = 0 THEN position END ASC,
			CASE WHEN completed = 1 THEN updated_at END DESC,
			position ASC,
			id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		var item models.Item
		var completed int
		if err := rows.Scan(
			&item.ID, &item.Name, &completed, &item.Position,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Completed = completed == 1
		items = append(items, &item)
	}
	return items, rows.Err()
}

// GetItem returns the item with the given id, or nil if not cached
func (s *Store) GetItem(ctx context.Context, id string) (*models.Item, error) {
	query := `
		SELECT id, name, completed, position, created_at, updated_at
		FROM items WHERE id = ?
	`

	var item models.Item
	var completed int
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Name, &completed, &item.Position,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Completed = completed == 1
	return &item, nil
}

// SaveItem upserts a single item by id, overwriting the whole record
func (s *Store) SaveItem(ctx context.Context, item *models.Item) error {
	return saveItemTx(ctx, s.db, item)
}

// SaveItems upserts a batch of items in one transaction
func (s *Store) SaveItems(ctx context.Context, items []*models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := saveItemTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceAllItems atomically swaps the whole cached item set for the
// given list. Used when server state fully replaces local state.
func (s *Store) ReplaceAllItems(ctx context.Context, items []*models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return err
	}
	for _, item := range items {
		if err := saveItemTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveItem deletes an item from the cache. Removing an unknown id is
// a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return err
}

// ClearItems empties the item cache
func (s *Store) ClearItems(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items`)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func saveItemTx(ctx context.Context, db execer, item *models.Item) error {
	completed := 0
	if item.Completed {
		completed = 1
	}
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO items (id, name, completed, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, completed, item.Position,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// QueueChange appends a pending change to the offline queue
func (s *Store) QueueChange(ctx context.Context, change *models.PendingChange) error {
	var payload []byte
	if change.Item != nil {
		var err error
		payload, err = json.Marshal(change.Item)
		if err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_changes (id, action, item_id, payload, client_timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		change.ID, string(change.Action), change.ItemID, payload, change.ClientTimestamp,
	)
	return err
}

// GetQueuedChanges returns the queue ordered by client timestamp,
// insertion order breaking ties
func (s *Store) GetQueuedChanges(ctx context.Context) ([]*models.PendingChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, item_id, payload, client_timestamp
		FROM pending_changes
		ORDER BY client_timestamp ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []*models.PendingChange{}
	for rows.Next() {
		var change models.PendingChange
		var action string
		var itemID sql.NullString
		var payload []byte
		if err := rows.Scan(&change.ID, &action, &itemID, &payload, &change.ClientTimestamp); err != nil {
			return nil, err
		}
		change.Action = models.ChangeAction(action)
		if itemID.Valid {
			change.ItemID = itemID.String
		}
		if len(payload) > 0 {
			change.Item = &models.ChangePayload{}
			if err := json.Unmarshal(payload, change.Item); err != nil {
				return nil, err
			}
		}
		changes = append(changes, &change)
	}
	return changes, rows.Err()
}

// RemoveQueuedChange deletes a single queued change by its own id
func (s *Store) RemoveQueuedChange(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE id = ?`, id)
	return err
}

// ClearQueuedChanges empties the offline queue
func (s *Store) ClearQueuedChanges(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_changes`)
	return err
}

// GetLastSyncTime returns the timestamp of the last successful sync,
// or "" if the client has never synced
func (s *Store) GetLastSyncTime(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sync_meta WHERE key = ?`, lastSyncKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetLastSyncTime records the timestamp of a successful sync
func (s *Store) SetLastSyncTime(ctx context.Context, ts string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)`,
		lastSyncKey, ts,
	)
	return err
}

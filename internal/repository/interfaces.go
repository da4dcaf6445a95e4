package repository

import (
	"context"
	"time"

	"github.com/shoplist/server/internal/models"
)

// ItemRepo defines the interface for item persistence operations
type ItemRepo interface {
	GetByID(ctx context.Context, id string) (*models.Item, error)
	GetAll(ctx context.Context) ([]*models.Item, error)
	// Add upserts by id so that a replayed sync batch stays idempotent
	Add(ctx context.Context, item *models.Item) error
	// Update applies the patch and returns the updated item, or nil if
	// the id is unknown
	Update(ctx context.Context, id string, patch models.ItemPatch, updatedAt time.Time) (*models.Item, error)
	Delete(ctx context.Context, id string) (bool, error)
	// NextPosition returns max(position)+1 among incomplete items
	NextPosition(ctx context.Context) (int64, error)
}

// SessionRepo defines the interface for bearer session persistence
type SessionRepo interface {
	Add(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SettingsRepo defines the interface for key/value settings
type SettingsRepo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

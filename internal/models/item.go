package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item represents a single shopping-list entry
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem creates a new incomplete Item with validation.
// Position is the creation time in milliseconds so that items created
// later sort after earlier ones without a server round-trip.
func NewItem(name string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	now := time.Now().UTC()
	return &Item{
		ID:        uuid.New().String(),
		Name:      name,
		Completed: false,
		Position:  now.UnixMilli(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ItemPatch is a partial update of an item. Nil fields are left untouched.
type ItemPatch struct {
	Name      *string `json:"name,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Position  *int64  `json:"position,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Completed == nil && p.Position == nil
}

// Validate rejects patches that would leave the item in an invalid state
func (p ItemPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Apply merges the patch into the item and bumps updated_at
func (p ItemPatch) Apply(item *Item, updatedAt time.Time) {
	if p.Name != nil {
		item.Name = strings.TrimSpace(*p.Name)
	}
	if p.Completed != nil {
		item.Completed = *p.Completed
	}
	if p.Position != nil {
		item.Position = *p.Position
	}
	item.UpdatedAt = updatedAt
}

// Errors
type ItemError struct {
	Message string
}

func (e ItemError) Error() string {
	return e.Message
}

var (
	ErrEmptyName     = ItemError{"item name cannot be empty"}
	ErrEmptyPatch    = ItemError{"no updates provided"}
	ErrItemNotFound  = ItemError{"item not found"}
	ErrPINInvalid    = ItemError{"PIN must be 4-6 digits"}
	ErrPINAlreadySet = ItemError{"PIN has already been configured"}
	ErrPINNotSet     = ItemError{"PIN has not been configured"}
	ErrPINMismatch   = ItemError{"invalid PIN"}
)

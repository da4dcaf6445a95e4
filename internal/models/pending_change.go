package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeAction identifies the kind of a queued mutation
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ChangePayload carries the item fields relevant to a queued change:
// the full minimal item for a create, the changed fields for an update.
type ChangePayload struct {
	ID        string  `json:"id,omitempty"`
	Name      *string `json:"name,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Position  *int64  `json:"position,omitempty"`
}

// PendingChange is a durable record of a local mutation not yet
// confirmed by the server. The queue drains in ClientTimestamp order.
type PendingChange struct {
	ID              string         `json:"id"`
	Action          ChangeAction   `json:"action"`
	ItemID          string         `json:"itemId,omitempty"`
	Item            *ChangePayload `json:"item,omitempty"`
	ClientTimestamp time.Time      `json:"clientTimestamp"`
}

// NewCreateChange queues the creation of item, preserving its client id
func NewCreateChange(item *Item, ts time.Time) *PendingChange {
	name := item.Name
	completed := item.Completed
	return &PendingChange{
		ID:     uuid.New().String(),
		Action: ActionCreate,
		Item: &ChangePayload{
			ID:        item.ID,
			Name:      &name,
			Completed: &completed,
		},
		ClientTimestamp: ts,
	}
}

// NewUpdateChange queues a partial update for itemID
func NewUpdateChange(itemID string, patch ItemPatch, ts time.Time) *PendingChange {
	return &PendingChange{
		ID:     uuid.New().String(),
		Action: ActionUpdate,
		ItemID: itemID,
		Item: &ChangePayload{
			Name:      patch.Name,
			Completed: patch.Completed,
			Position:  patch.Position,
		},
		ClientTimestamp: ts,
	}
}

// NewDeleteChange queues the deletion of itemID
func NewDeleteChange(itemID string, ts time.Time) *PendingChange {
	return &PendingChange{
		ID:              uuid.New().String(),
		Action:          ActionDelete,
		ItemID:          itemID,
		ClientTimestamp: ts,
	}
}

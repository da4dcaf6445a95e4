package models

import "time"

// APIItem is the wire representation of an Item. The completed flag
// travels as 0|1 to match the relational column it comes from.
type APIItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Completed int       `json:"completed"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToItem maps the wire representation back to the domain model
func (a APIItem) ToItem() *Item {
	return &Item{
		ID:        a.ID,
		Name:      a.Name,
		Completed: a.Completed == 1,
		Position:  a.Position,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// APIItemFrom maps a domain item to its wire representation
func APIItemFrom(item *Item) APIItem {
	completed := 0
	if item.Completed {
		completed = 1
	}
	return APIItem{
		ID:        item.ID,
		Name:      item.Name,
		Completed: completed,
		Position:  item.Position,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// CreateItemRequest is the body for POST /api/items. The client may
// supply its own id so that an optimistic local create keeps its
// identity once confirmed by the server.
type CreateItemRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Completed *bool  `json:"completed,omitempty"`
}

// ItemResponse wraps a single item
type ItemResponse struct {
	Item APIItem `json:"item"`
}

// ItemListResponse is returned when listing items
type ItemListResponse struct {
	Items []APIItem `json:"items"`
}

// DeleteResponse is returned after deleting an item
type DeleteResponse struct {
	Success bool `json:"success"`
}

// SyncRequest is the body for POST /api/items/sync
type SyncRequest struct {
	Changes []*PendingChange `json:"changes"`
}

// ChangeError reports a single change the server could not apply
type ChangeError struct {
	ItemID string `json:"itemId"`
	Error  string `json:"error"`
}

// SyncResponse is the authoritative outcome of a batch sync: ids of
// applied changes, per-change errors, the full post-sync item list,
// and the server-side sync timestamp.
type SyncResponse struct {
	Applied       []string      `json:"applied"`
	Errors        []ChangeError `json:"errors"`
	Items         []APIItem     `json:"items"`
	SyncTimestamp string        `json:"syncTimestamp"`
}

// PINRequest is the body for auth setup and verify
type PINRequest struct {
	PIN string `json:"pin"`
}

// AuthSetupResponse is returned after configuring the PIN
type AuthSetupResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// AuthVerifyResponse is returned after a PIN verification attempt
type AuthVerifyResponse struct {
	Valid bool   `json:"valid"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// AuthCheckResponse reports whether a PIN has been configured
type AuthCheckResponse struct {
	PinConfigured bool `json:"pinConfigured"`
	RequireSetup  bool `json:"requireSetup,omitempty"`
}

// ErrorResponse is the generic error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

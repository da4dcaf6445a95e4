package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoplist/server/internal/models"
	"github.com/shoplist/server/internal/repository"
	"github.com/shoplist/server/internal/services"
)

// SyncHandler handles the batch sync endpoint that drains a client's
// offline change queue
type SyncHandler struct {
	itemRepo repository.ItemRepo
	hub      *services.WebSocketHub
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(itemRepo repository.ItemRepo, hub *services.WebSocketHub) *SyncHandler {
	return &SyncHandler{itemRepo: itemRepo, hub: hub}
}

// Sync applies a batch of queued changes best-effort, continuing past
// per-change failures, and returns the authoritative post-sync item
// list. A replayed batch converges because creates upsert by id and
// updates/deletes address items by id.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Changes == nil {
		writeError(w, http.StatusBadRequest, "Invalid sync data")
		return
	}

	applied := []string{}
	errors := []models.ChangeError{}

	for _, change := range req.Changes {
		itemID, err := h.applyChange(r.Context(), change)
		if err != nil {
			if itemID == "" {
				itemID = "unknown"
			}
			errors = append(errors, models.ChangeError{ItemID: itemID, Error: err.Error()})
			continue
		}
		applied = append(applied, itemID)
	}

	items, err := h.itemRepo.GetAll(r.Context())
	if err != nil {
		log.Printf("Error listing items after sync: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if len(applied) > 0 {
		h.hub.NotifyItemsChanged()
	}

	writeJSON(w, http.StatusOK, models.SyncResponse{
		Applied:       applied,
		Errors:        errors,
		Items:         toAPIItems(items),
		SyncTimestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *SyncHandler) applyChange(ctx context.Context, change *models.PendingChange) (string, error) {
	switch change.Action {
	case models.ActionCreate:
		if change.Item == nil || change.Item.Name == nil {
			return change.ItemID, models.ErrEmptyName
		}
		name := strings.TrimSpace(*change.Item.Name)
		if name == "" {
			return change.Item.ID, models.ErrEmptyName
		}

		id := change.Item.ID
		if id == "" {
			id = uuid.New().String()
		}
		completed := change.Item.Completed != nil && *change.Item.Completed

		position, err := h.itemRepo.NextPosition(ctx)
		if err != nil {
			return id, err
		}

		now := time.Now().UTC()
		item := &models.Item{
			ID:        id,
			Name:      name,
			Completed: completed,
			Position:  position,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.itemRepo.Add(ctx, item); err != nil {
			return id, err
		}
		return id, nil

	case models.ActionUpdate:
		if change.ItemID == "" || change.Item == nil {
			return change.ItemID, models.ErrEmptyPatch
		}
		patch := models.ItemPatch{
			Name:      change.Item.Name,
			Completed: change.Item.Completed,
			Position:  change.Item.Position,
		}
		if !patch.IsEmpty() {
			if err := patch.Validate(); err != nil {
				return change.ItemID, err
			}
			// An update for an id the server never saw applies to zero
			// rows; the change is still consumed.
			if _, err := h.itemRepo.Update(ctx, change.ItemID, patch, time.Now().UTC()); err != nil {
				return change.ItemID, err
			}
		}
		return change.ItemID, nil

	case models.ActionDelete:
		if change.ItemID == "" {
			return "", models.ErrItemNotFound
		}
		if _, err := h.itemRepo.Delete(ctx, change.ItemID); err != nil {
			return change.ItemID, err
		}
		return change.ItemID, nil
	}

	return change.ItemID, models.ItemError{Message: "unknown action: " + string(change.Action)}
}

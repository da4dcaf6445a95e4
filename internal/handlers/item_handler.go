package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplist/server/internal/models"
	"github.com/shoplist/server/internal/repository"
	"github.com/shoplist/server/internal/services"
)

// ItemHandler handles item CRUD endpoints
type ItemHandler struct {
	itemRepo repository.ItemRepo
	hub      *services.WebSocketHub
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemRepo repository.ItemRepo, hub *services.WebSocketHub) *ItemHandler {
	return &ItemHandler{itemRepo: itemRepo, hub: hub}
}

// List returns all items in list order
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemRepo.GetAll(r.Context())
	if err != nil {
		log.Printf("Error listing items: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, models.ItemListResponse{Items: toAPIItems(items)})
}

// Create inserts a new item. The client may supply its own id so an
// optimistic local create keeps its identity once the server confirms.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	completed := req.Completed != nil && *req.Completed

	position, err := h.itemRepo.NextPosition(r.Context())
	if err != nil {
		log.Printf("Error computing position: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
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

	if err := h.itemRepo.Add(r.Context(), item); err != nil {
		log.Printf("Error creating item: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.hub.NotifyItemsChanged()
	writeJSON(w, http.StatusCreated, models.ItemResponse{Item: models.APIItemFrom(item)})
}

// Update applies a partial update to an item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch models.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.itemRepo.Update(r.Context(), id, patch, time.Now().UTC())
	if err != nil {
		log.Printf("Error updating item %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	h.hub.NotifyItemsChanged()
	writeJSON(w, http.StatusOK, models.ItemResponse{Item: models.APIItemFrom(item)})
}

// Delete removes an item
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.itemRepo.Delete(r.Context(), id)
	if err != nil {
		log.Printf("Error deleting item %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	h.hub.NotifyItemsChanged()
	writeJSON(w, http.StatusOK, models.DeleteResponse{Success: true})
}

func toAPIItems(items []*models.Item) []models.APIItem {
	out := make([]models.APIItem, len(items))
	for i, item := range items {
		out[i] = models.APIItemFrom(item)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

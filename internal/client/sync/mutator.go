package sync

import (
	"context"
	"strings"
	"time"

	"github.com/shoplist/server/internal/client/api"
	"github.com/shoplist/server/internal/client/connectivity"
	"github.com/shoplist/server/internal/client/store"
	"github.com/shoplist/server/internal/models"
	"github.com/shoplist/server/internal/observability"
)

// Mutator implements the offline-first mutation entry points. Every
// operation writes to the local store first, then makes a best-effort
// remote call, and queues the change when that call is skipped or
// fails. A change is queued if and only if the remote did not confirm
// it.
type Mutator struct {
	store   *store.Store
	client  *api.Client
	monitor *connectivity.Monitor

	log *observability.Logger
}

// NewMutator creates a mutator over the given store, remote client,
// and connectivity monitor
func NewMutator(st *store.Store, client *api.Client, monitor *connectivity.Monitor) *Mutator {
	return &Mutator{
		store:   st,
		client:  client,
		monitor: monitor,
		log:     observability.GetLogger().WithField("component", "mutator"),
	}
}

// Create adds a named item. The item is visible locally before any
// network attempt. A blank name is a safe no-op returning nil.
// Returned errors are local-storage failures only; a remote failure
// degrades to a queued change.
func (m *Mutator) Create(ctx context.Context, name string) (*models.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	item, err := models.NewItem(name)
	if err != nil {
		return nil, err
	}

	// Save locally first
	if err := m.store.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	if m.monitor.Online() {
		serverItem, err := m.client.CreateItem(ctx, item.ID, item.Name)
		if err == nil {
			// Server copy is canonical
			if err := m.store.SaveItem(ctx, serverItem); err != nil {
				return nil, err
			}
			return serverItem, nil
		}
		m.log.WithContext(ctx).Warnf("create failed on server, queuing: %v", err)
	}

	if err := m.store.QueueChange(ctx, models.NewCreateChange(item, item.CreatedAt)); err != nil {
		return nil, err
	}
	return item, nil
}

// Update merges the patch into an existing item. Returns (nil, nil)
// when the id is not in the local store; no remote call or queue entry
// is made in that case.
func (m *Mutator) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	existing, err := m.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	patch.Apply(existing, now)

	// Save locally first
	if err := m.store.SaveItem(ctx, existing); err != nil {
		return nil, err
	}

	if m.monitor.Online() {
		serverItem, err := m.client.UpdateItem(ctx, id, patch)
		if err == nil {
			if err := m.store.SaveItem(ctx, serverItem); err != nil {
				return nil, err
			}
			return serverItem, nil
		}
		m.log.WithContext(ctx).Warnf("update failed on server, queuing: %v", err)
	}

	if err := m.store.QueueChange(ctx, models.NewUpdateChange(id, patch, now)); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes an item. The local removal always succeeds from the
// caller's perspective; a remote failure degrades to a queued delete,
// never to an error.
func (m *Mutator) Delete(ctx context.Context, id string) error {
	now := time.Now().UTC()

	// Remove locally first
	if err := m.store.RemoveItem(ctx, id); err != nil {
		return err
	}

	if m.monitor.Online() {
		err := m.client.DeleteItem(ctx, id)
		if err == nil {
			return nil
		}
		m.log.WithContext(ctx).Warnf("delete failed on server, queuing: %v", err)
	}

	return m.store.QueueChange(ctx, models.NewDeleteChange(id, now))
}

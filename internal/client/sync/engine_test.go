package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplist/server/internal/client/api"
	"github.com/shoplist/server/internal/client/connectivity"
	"github.com/shoplist/server/internal/client/store"
	"github.com/shoplist/server/internal/models"
)

type clientEnv struct {
	store   *store.Store
	monitor *connectivity.Monitor
	engine  *Engine
	mutator *Mutator
}

func newClientEnv(t *testing.T, handler http.Handler, online bool) *clientEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	baseURL := "http://127.0.0.1:0"
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		baseURL = server.URL
	}

	client := api.NewClient(baseURL, func() (string, error) { return "test-token", nil }, 5*time.Second)
	monitor := connectivity.NewMonitor(online)
	t.Cleanup(monitor.Close)

	return &clientEnv{
		store:   st,
		monitor: monitor,
		engine:  NewEngine(st, client, monitor),
		mutator: NewMutator(st, client, monitor),
	}
}

func wireItem(id, name string, completed int, position int64) models.APIItem {
	now := time.Now().UTC()
	return models.APIItem{
		ID: id, Name: name, Completed: completed, Position: position,
		CreatedAt: now, UpdatedAt: now,
	}
}

func queueDelete(t *testing.T, st *store.Store, itemID string) {
	t.Helper()
	require.NoError(t, st.QueueChange(context.Background(),
		models.NewDeleteChange(itemID, time.Now().UTC())))
}

func TestEngine_SyncPendingChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected while offline", func(t *testing.T) {
		env := newClientEnv(t, nil, false)
		queueDelete(t, env.store, "item-1")

		res := env.engine.SyncPendingChanges(ctx)

		assert.False(t, res.Success)
		assert.Equal(t, ErrBusyOrOffline, res.Error)

		changes, err := env.store.GetQueuedChanges(ctx)
		require.NoError(t, err)
		assert.Len(t, changes, 1)
	})

	t.Run("empty queue succeeds without a network call", func(t *testing.T) {
		var hits atomic.Int32
		env := newClientEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}), true)

		res := env.engine.SyncPendingChanges(ctx)

		assert.True(t, res.Success)
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("success drains the queue and replaces local state", func(t *testing.T) {
		var gotChanges []*models.PendingChange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req models.SyncRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode sync request: %v", err)
			}
			gotChanges = req.Changes

			json.NewEncoder(w).Encode(models.SyncResponse{
				Applied:       []string{"server-item"},
				Errors:        []models.ChangeError{},
				Items:         []models.APIItem{wireItem("server-item", "from server", 0, 1)},
				SyncTimestamp: "2025-06-01T12:00:00Z",
			})
		})
		env := newClientEnv(t, handler, true)

		local, err := models.NewItem("local only")
		require.NoError(t, err)
		require.NoError(t, env.store.SaveItem(ctx, local))
		queueDelete(t, env.store, "item-1")
		queueDelete(t, env.store, "item-2")

		res := env.engine.SyncPendingChanges(ctx)

		require.True(t, res.Success)
		assert.Equal(t, []string{"server-item"}, res.Applied)
		assert.Len(t, gotChanges, 2)

		// Server response is authoritative: the local-only item is gone.
		items, err := env.store.GetAllItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "server-item", items[0].ID)

		changes, err := env.store.GetQueuedChanges(ctx)
		require.NoError(t, err)
		assert.Empty(t, changes)

		last, err := env.store.GetLastSyncTime(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01T12:00:00Z", last)
	})

	t.Run("queue is cleared even when some changes errored", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(models.SyncResponse{
				Applied:       []string{},
				Errors:        []models.ChangeError{{ItemID: "item-1", Error: "item name cannot be empty"}},
				Items:         []models.APIItem{},
				SyncTimestamp: "2025-06-01T12:00:00Z",
			})
		})
		env := newClientEnv(t, handler, true)
		queueDelete(t, env.store, "item-1")

		res := env.engine.SyncPendingChanges(ctx)

		require.True(t, res.Success)
		require.Len(t, res.Errors, 1)

		changes, err := env.store.GetQueuedChanges(ctx)
		require.NoError(t, err)
		assert.Empty(t, changes)
	})

	t.Run("server failure leaves everything untouched", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		env := newClientEnv(t, handler, true)

		local, err := models.NewItem("kept")
		require.NoError(t, err)
		require.NoError(t, env.store.SaveItem(ctx, local))
		queueDelete(t, env.store, "item-1")

		res := env.engine.SyncPendingChanges(ctx)

		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)

		changes, err := env.store.GetQueuedChanges(ctx)
		require.NoError(t, err)
		assert.Len(t, changes, 1)

		items, err := env.store.GetAllItems(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("at most one run in flight", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			<-release
			json.NewEncoder(w).Encode(models.SyncResponse{
				Applied: []string{}, Errors: []models.ChangeError{},
				Items: []models.APIItem{}, SyncTimestamp: "2025-06-01T12:00:00Z",
			})
		})
		env := newClientEnv(t, handler, true)
		queueDelete(t, env.store, "item-1")

		first := make(chan Result, 1)
		go func() { first <- env.engine.SyncPendingChanges(ctx) }()

		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("first sync never reached the server")
		}

		second := env.engine.SyncPendingChanges(ctx)
		assert.False(t, second.Success)
		assert.Equal(t, ErrBusyOrOffline, second.Error)

		close(release)
		res := <-first
		assert.True(t, res.Success)

		// The guard is released after the run finishes.
		third := env.engine.SyncPendingChanges(ctx)
		assert.True(t, third.Success)
	})
}

func TestEngine_FetchItemsWithFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("online fetch replaces the cache", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(models.ItemListResponse{
				Items: []models.APIItem{wireItem("remote-1", "remote", 0, 1)},
			})
		})
		env := newClientEnv(t, handler, true)

		stale, err := models.NewItem("stale")
		require.NoError(t, err)
		require.NoError(t, env.store.SaveItem(ctx, stale))

		items, fromCache, err := env.engine.FetchItemsWithFallback(ctx)

		require.NoError(t, err)
		assert.False(t, fromCache)
		require.Len(t, items, 1)
		assert.Equal(t, "remote-1", items[0].ID)

		cached, err := env.store.GetAllItems(ctx)
		require.NoError(t, err)
		require.Len(t, cached, 1)
		assert.Equal(t, "remote-1", cached[0].ID)
	})

	t.Run("falls back to cache on server failure", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		env := newClientEnv(t, handler, true)

		cached, err := models.NewItem("cached")
		require.NoError(t, err)
		require.NoError(t, env.store.SaveItem(ctx, cached))

		items, fromCache, err := env.engine.FetchItemsWithFallback(ctx)

		require.NoError(t, err)
		assert.True(t, fromCache)
		require.Len(t, items, 1)
		assert.Equal(t, "cached", items[0].Name)
	})

	t.Run("serves the cache while offline", func(t *testing.T) {
		env := newClientEnv(t, nil, false)

		cached, err := models.NewItem("offline item")
		require.NoError(t, err)
		require.NoError(t, env.store.SaveItem(ctx, cached))

		items, fromCache, err := env.engine.FetchItemsWithFallback(ctx)

		require.NoError(t, err)
		assert.True(t, fromCache)
		assert.Len(t, items, 1)
	})
}

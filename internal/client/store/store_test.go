package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplist/server/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func cachedItem(t *testing.T, name string, completed bool, position int64, updatedAt time.Time) *models.Item {
	t.Helper()
	item, err := models.NewItem(name)
	require.NoError(t, err)
	item.Completed = completed
	item.Position = position
	item.UpdatedAt = updatedAt
	return item
}

func TestStore_Items(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round-trips", func(t *testing.T) {
		st := newTestStore(t)
		item := cachedItem(t, "milk", false, 5, time.Now().UTC())

		require.NoError(t, st.SaveItem(ctx, item))

		got, err := st.GetItem(ctx, item.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "milk", got.Name)
		assert.Equal(t, int64(5), got.Position)
	})

	t.Run("get returns nil for unknown id", func(t *testing.T) {
		st := newTestStore(t)

		got, err := st.GetItem(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		st := newTestStore(t)
		item := cachedItem(t, "eggs", false, 1, time.Now().UTC())
		require.NoError(t, st.SaveItem(ctx, item))

		item.Name = "brown eggs"
		item.Completed = true
		require.NoError(t, st.SaveItem(ctx, item))

		all, err := st.GetAllItems(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "brown eggs", all[0].Name)
		assert.True(t, all[0].Completed)
	})

	t.Run("remove unknown id is a no-op", func(t *testing.T) {
		st := newTestStore(t)
		assert.NoError(t, st.RemoveItem(ctx, "missing"))
	})

	t.Run("replace swaps the whole cache", func(t *testing.T) {
		st := newTestStore(t)
		stale := cachedItem(t, "stale", false, 1, time.Now().UTC())
		require.NoError(t, st.SaveItem(ctx, stale))

		fresh := cachedItem(t, "fresh", false, 2, time.Now().UTC())
		require.NoError(t, st.ReplaceAllItems(ctx, []*models.Item{fresh}))

		all, err := st.GetAllItems(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "fresh", all[0].Name)
	})
}

func TestStore_RenderOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Incomplete items sort by position; completed items sort by most
	// recently updated first.
	items := []*models.Item{
		cachedItem(t, "done old", true, 1, now.Add(-time.Hour)),
		cachedItem(t, "active b", false, 20, now),
		cachedItem(t, "done new", true, 99, now),
		cachedItem(t, "active a", false, 10, now),
	}
	require.NoError(t, st.SaveItems(ctx, items))

	got, err := st.GetAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)

	names := make([]string, len(got))
	for i, it := range got {
		names[i] = it.Name
	}
	assert.Equal(t, []string{"active a", "active b", "done new", "done old"}, names)
}

func TestStore_Queue(t *testing.T) {
	ctx := context.Background()

	t.Run("drains in client timestamp order with stable ties", func(t *testing.T) {
		st := newTestStore(t)
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		later := models.NewDeleteChange("item-c", base.Add(time.Minute))
		tieFirst := models.NewDeleteChange("item-a", base)
		tieSecond := models.NewDeleteChange("item-b", base)

		require.NoError(t, st.QueueChange(ctx, later))
		require.NoError(t, st.QueueChange(ctx, tieFirst))
		require.NoError(t, st.QueueChange(ctx, tieSecond))

		changes, err := st.GetQueuedChanges(ctx)
		require.NoError(t, err)
		require.Len(t, changes, 3)
		assert.Equal(t, "item-a", changes[0].ItemID)
		assert.Equal(t, "item-b", changes[1].ItemID)
		assert.Equal(t, "item-c", changes[2].ItemID)
	})

	t.Run("payload survives the round-trip", func(t *testing.T) {
		st := newTestStore(t)
		item, err := models.NewItem("yoghurt")
		require.NoError(t, err)

		change := models.NewCreateChange(item, time.Now().UTC())
		require.NoError(t, st.QueueChange(ctx, change))

		changes, err := st.GetQueuedChanges(ctx)
		require.NoError(t, err)
		require.Len(t, changes, 1)

		got := changes[0]
		assert.Equal(t, models.ActionCreate, got.Action)
		require.NotNil(t, got.Item)
		assert.Equal(t, item.ID, got.Item.ID)
		require.NotNil(t, got.Item.Name)
		assert.Equal(t, "yoghurt", *got.Item.Name)
	})

	t.Run("delete change has no payload after reading back", func(t *testing.T) {
		st := newTestStore(t)

		require.NoError(t, st.QueueChange(ctx, models.NewDeleteChange("item-x", time.Now().UTC())))

		changes, err := st.GetQueuedChanges(ctx)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Nil(t, changes[0].Item)
	})

	t.Run("remove and clear", func(t *testing.T) {
		st := newTestStore(t)
		a := models.NewDeleteChange("a", time.Now().UTC())
		b := models.NewDeleteChange("b", time.Now().UTC())
		require.NoError(t, st.QueueChange(ctx, a))
		require.NoError(t, st.QueueChange(ctx, b))

		require.NoError(t, st.RemoveQueuedChange(ctx, a.ID))
		changes, err := st.GetQueuedChanges(ctx)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, b.ID, changes[0].ID)

		require.NoError(t, st.ClearQueuedChanges(ctx))
		changes, err = st.GetQueuedChanges(ctx)
		require.NoError(t, err)
		assert.Empty(t, changes)
	})
}

func TestStore_LastSyncTime(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ts, err := st.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", ts)

	stamp := time.Now().UTC().Format(time.RFC3339)
	require.NoError(t, st.SetLastSyncTime(ctx, stamp))

	ts, err = st.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, stamp, ts)

	// Overwrites are idempotent on the single key.
	require.NoError(t, st.SetLastSyncTime(ctx, stamp))
	ts, err = st.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, stamp, ts)
}

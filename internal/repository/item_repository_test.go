package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplist/server/internal/models"
)

func newTestRepo(t *testing.T) *ItemRepository {
	t.Helper()

	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewItemRepository(db)
}

func mustItem(t *testing.T, name string) *models.Item {
	t.Helper()
	item, err := models.NewItem(name)
	require.NoError(t, err)
	return item
}

func TestItemRepository_AddAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("round-trips an item", func(t *testing.T) {
		item := mustItem(t, "milk")
		require.NoError(t, repo.Add(ctx, item))

		got, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, "milk", got.Name)
		assert.False(t, got.Completed)
		assert.Equal(t, item.Position, got.Position)
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("add is an upsert by id", func(t *testing.T) {
		item := mustItem(t, "eggs")
		require.NoError(t, repo.Add(ctx, item))

		item.Name = "free range eggs"
		item.Completed = true
		require.NoError(t, repo.Add(ctx, item))

		got, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "free range eggs", got.Name)
		assert.True(t, got.Completed)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		count := 0
		for _, it := range all {
			if it.ID == item.ID {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestItemRepository_GetAllOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	add := func(name string, completed bool, position int64) *models.Item {
		item := mustItem(t, name)
		item.Completed = completed
		item.Position = position
		require.NoError(t, repo.Add(ctx, item))
		return item
	}

	// Insertion order is deliberately scrambled.
	add("done low", true, 1)
	add("active high", false, 20)
	add("active low", false, 5)
	add("done high", true, 30)

	items, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	assert.Equal(t, []string{"active low", "active high", "done low", "done high"}, names)
}

func TestItemRepository_Update(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	boolPtr := func(b bool) *bool { return &b }
	strPtr := func(s string) *string { return &s }

	t.Run("applies patch and bumps updated_at", func(t *testing.T) {
		item := mustItem(t, "bread")
		require.NoError(t, repo.Add(ctx, item))

		updatedAt := item.UpdatedAt.Add(time.Minute).Truncate(time.Second)
		got, err := repo.Update(ctx, item.ID, models.ItemPatch{
			Name:      strPtr("sourdough"),
			Completed: boolPtr(true),
		}, updatedAt)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "sourdough", got.Name)
		assert.True(t, got.Completed)
		assert.Equal(t, item.Position, got.Position)
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		got, err := repo.Update(ctx, "missing", models.ItemPatch{Completed: boolPtr(true)}, time.Now().UTC())
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestItemRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("removes an existing item", func(t *testing.T) {
		item := mustItem(t, "cheese")
		require.NoError(t, repo.Add(ctx, item))

		deleted, err := repo.Delete(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		got, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("reports unknown id", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestItemRepository_NextPosition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("zero on an empty table", func(t *testing.T) {
		pos, err := repo.NextPosition(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), pos)
	})

	t.Run("max incomplete position plus one", func(t *testing.T) {
		active := mustItem(t, "active")
		active.Position = 10
		require.NoError(t, repo.Add(ctx, active))

		done := mustItem(t, "done")
		done.Completed = true
		done.Position = 99
		require.NoError(t, repo.Add(ctx, done))

		pos, err := repo.NextPosition(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), pos)
	})
}

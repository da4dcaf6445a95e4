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

func newSessionRepo(t *testing.T) *SessionRepository {
	t.Helper()

	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSessionRepository(db)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("add and get round-trips", func(t *testing.T) {
		repo := newSessionRepo(t)
		session := models.NewSession(time.Hour)
		require.NoError(t, repo.Add(ctx, session))

		got, err := repo.Get(ctx, session.Token)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, session.Token, got.Token)
		assert.False(t, got.IsExpired())
	})

	t.Run("get returns nil for unknown token", func(t *testing.T) {
		repo := newSessionRepo(t)

		got, err := repo.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete removes the session", func(t *testing.T) {
		repo := newSessionRepo(t)
		session := models.NewSession(time.Hour)
		require.NoError(t, repo.Add(ctx, session))

		require.NoError(t, repo.Delete(ctx, session.Token))

		got, err := repo.Get(ctx, session.Token)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete expired sweeps only dead sessions", func(t *testing.T) {
		repo := newSessionRepo(t)

		live := models.NewSession(time.Hour)
		dead := models.NewSession(-time.Hour)
		require.NoError(t, repo.Add(ctx, live))
		require.NoError(t, repo.Add(ctx, dead))

		n, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.Get(ctx, live.Token)
		require.NoError(t, err)
		assert.NotNil(t, got)

		got, err = repo.Get(ctx, dead.Token)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

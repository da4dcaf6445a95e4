package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplist/server/internal/repository"
	"github.com/shoplist/server/internal/services"
)

func newAuthMiddleware(t *testing.T) (func(http.Handler) http.Handler, string) {
	t.Helper()

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "mw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authService := services.NewAuthService(
		repository.NewSettingsRepository(db),
		repository.NewSessionRepository(db),
		time.Hour,
	)
	token, err := authService.SetupPin(context.Background(), "1234")
	require.NoError(t, err)

	return SessionAuth(authService, []string{"/api/health", "/api/auth/*"}), token
}

func serve(mw func(http.Handler) http.Handler, path, token string) int {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestSessionAuth(t *testing.T) {
	t.Run("valid token passes", func(t *testing.T) {
		mw, token := newAuthMiddleware(t)
		assert.Equal(t, http.StatusOK, serve(mw, "/api/items", token))
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		mw, _ := newAuthMiddleware(t)
		assert.Equal(t, http.StatusUnauthorized, serve(mw, "/api/items", ""))
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		mw, _ := newAuthMiddleware(t)
		assert.Equal(t, http.StatusUnauthorized, serve(mw, "/api/items", "not-a-session"))
	})

	t.Run("exact skip path passes without a token", func(t *testing.T) {
		mw, _ := newAuthMiddleware(t)
		assert.Equal(t, http.StatusOK, serve(mw, "/api/health", ""))
	})

	t.Run("wildcard skip path passes without a token", func(t *testing.T) {
		mw, _ := newAuthMiddleware(t)
		assert.Equal(t, http.StatusOK, serve(mw, "/api/auth/verify", ""))
	})

	t.Run("non-api paths are not authenticated", func(t *testing.T) {
		mw, _ := newAuthMiddleware(t)
		assert.Equal(t, http.StatusOK, serve(mw, "/health", ""))
		assert.Equal(t, http.StatusOK, serve(mw, "/ws", ""))
	})
}

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled by default", func(t *testing.T) {
		t.Setenv("OTEL_ENABLED", "")

		tel, err := Setup(ctx, "test-service", "0.0.0")

		require.NoError(t, err)
		require.NotNil(t, tel)
		assert.NoError(t, tel.Shutdown(ctx))
	})

	t.Run("explicit opt-out", func(t *testing.T) {
		t.Setenv("OTEL_ENABLED", "false")

		tel, err := Setup(ctx, "test-service", "0.0.0")

		require.NoError(t, err)
		assert.NoError(t, tel.Shutdown(ctx))
	})

	t.Run("shutdown is safe to call twice", func(t *testing.T) {
		t.Setenv("OTEL_ENABLED", "")

		tel, err := Setup(ctx, "test-service", "0.0.0")
		require.NoError(t, err)

		assert.NoError(t, tel.Shutdown(ctx))
		assert.NoError(t, tel.Shutdown(ctx))
	})
}

package lumetric_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lumetric "github.com/lumetric/lumetric-go"
)

func TestPropertyStore(t *testing.T) {
	t.Parallel()

	t.Run("GetFallsBackToAllScope", func(t *testing.T) {
		t.Parallel()
		store := lumetric.NewPropertyStore()
		store.Register(lumetric.ScopeAll, map[string]any{"env": "prod", "region": "eu"})
		store.Register("signed_up", map[string]any{"region": "us"})

		v, ok := store.Get("signed_up", "region")
		require.True(t, ok)
		assert.Equal(t, "us", v)

		v, ok = store.Get("signed_up", "env")
		require.True(t, ok)
		assert.Equal(t, "prod", v)

		_, ok = store.Get("signed_up", "missing")
		assert.False(t, ok)
	})

	t.Run("ResolveMergesShallowly", func(t *testing.T) {
		t.Parallel()
		store := lumetric.NewPropertyStore()
		store.Register(lumetric.ScopeAll, map[string]any{
			"env":    "prod",
			"nested": map[string]any{"a": 1},
		})
		store.Register("signed_up", map[string]any{
			"nested": map[string]any{"b": 2},
		})

		merged := store.Resolve("signed_up")
		assert.Equal(t, "prod", merged["env"])
		// Shallow merge: the scoped value replaces the all-scope value
		// wholesale instead of merging nested keys.
		assert.Equal(t, map[string]any{"b": 2}, merged["nested"])
	})

	t.Run("ResolveReturnsACopy", func(t *testing.T) {
		t.Parallel()
		store := lumetric.NewPropertyStore()
		store.Register(lumetric.ScopeAll, map[string]any{"env": "prod"})

		merged := store.Resolve("any")
		merged["env"] = "mutated"

		v, ok := store.Get("any", "env")
		require.True(t, ok)
		assert.Equal(t, "prod", v)
	})

	t.Run("Clear", func(t *testing.T) {
		t.Parallel()
		store := lumetric.NewPropertyStore()
		store.Register("signed_up", map[string]any{"flow": "onboarding"})
		store.Clear("signed_up")

		_, ok := store.Get("signed_up", "flow")
		assert.False(t, ok)
	})
}

func TestWithProperties(t *testing.T) {
	t.Parallel()

	t.Run("CarriesProperties", func(t *testing.T) {
		t.Parallel()
		ctx := lumetric.WithProperties(context.Background(), map[string]any{"request_id": "r-1"})
		props := lumetric.PropertiesFromContext(ctx)
		assert.Equal(t, "r-1", props["request_id"])
	})

	t.Run("LayersShallowly", func(t *testing.T) {
		t.Parallel()
		ctx := lumetric.WithProperties(context.Background(), map[string]any{"a": 1, "b": 1})
		ctx = lumetric.WithProperties(ctx, map[string]any{"b": 2})

		props := lumetric.PropertiesFromContext(ctx)
		assert.Equal(t, 1, props["a"])
		assert.Equal(t, 2, props["b"])
	})

	t.Run("EmptyPropsReturnSameContext", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		assert.Equal(t, ctx, lumetric.WithProperties(ctx, nil))
		assert.Nil(t, lumetric.PropertiesFromContext(ctx))
	})
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCacheExpiry(t *testing.T) {
	cache := NewReportCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q", []byte("report"), 20*time.Millisecond))
	data, err := cache.Get(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []byte("report"), data)

	assert.Eventually(t, func() bool {
		data, _ := cache.Get(ctx, "q")
		return data == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, cache.Set(ctx, "q", []byte("forever"), 0))
	require.NoError(t, cache.Delete(ctx, "q"))
	data, err = cache.Get(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestTokenStoreRevocation(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti", 20*time.Millisecond))
	require.NoError(t, store.Revoke(ctx, "ignored", 0))

	revoked, err := store.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "ignored")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Eventually(t, func() bool {
		revoked, _ := store.IsRevoked(ctx, "jti")
		return !revoked
	}, time.Second, 5*time.Millisecond)
}

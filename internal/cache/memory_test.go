package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-price-service/internal/model"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	res := model.Resolution{Price: 1.25, Source: model.SourceProvider}
	require.NoError(t, mc.Set(ctx, "0xabc:eth-mainnet:1000", res, time.Minute))

	got, found, err := mc.Get(ctx, "0xabc:eth-mainnet:1000")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, res, got)
}

func TestMemoryCache_MissOnUnknownKey(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	_, found, err := mc.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_ExpiredEntryIsAMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "key", model.Resolution{Price: 3}, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := mc.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%10)
			_ = mc.Set(ctx, key, model.Resolution{Price: float64(n)}, time.Minute)
			_, _, _ = mc.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, mc.Size())
}

func TestMemoryCache_Connected(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	assert.True(t, mc.Connected(context.Background()))
}

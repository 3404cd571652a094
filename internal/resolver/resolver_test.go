package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-price-service/internal/cache"
	"token-price-service/internal/model"
	"token-price-service/internal/retry"
	"token-price-service/internal/store"
)

const (
	testToken   = "0xabc"
	testNetwork = "eth-mainnet"
)

// countingCache wraps the memory cache to observe writes
type countingCache struct {
	cache.Cache
	sets   int
	getErr error
	setErr error
}

func (cc *countingCache) Get(ctx context.Context, key string) (model.Resolution, bool, error) {
	if cc.getErr != nil {
		return model.Resolution{}, false, cc.getErr
	}
	return cc.Cache.Get(ctx, key)
}

func (cc *countingCache) Set(ctx context.Context, key string, value model.Resolution, ttl time.Duration) error {
	if cc.setErr != nil {
		return cc.setErr
	}
	cc.sets++
	return cc.Cache.Set(ctx, key, value, ttl)
}

// faultyStore wraps the memory store with injectable failures
type faultyStore struct {
	store.Store
	getErr    error
	insertErr error
	inserts   int
}

func (fs *faultyStore) GetPricePoint(ctx context.Context, token, network string, ts int64) (model.PricePoint, bool, error) {
	if fs.getErr != nil {
		return model.PricePoint{}, false, fs.getErr
	}
	return fs.Store.GetPricePoint(ctx, token, network, ts)
}

func (fs *faultyStore) InsertPricePoint(ctx context.Context, p model.PricePoint) error {
	if fs.insertErr != nil {
		return fs.insertErr
	}
	fs.inserts++
	return fs.Store.InsertPricePoint(ctx, p)
}

// stubProvider returns a fixed point or error
type stubProvider struct {
	point model.PricePoint
	err   error
	calls int
}

func (sp *stubProvider) GetPrice(_ context.Context, _, _ string, _ int64) (model.PricePoint, error) {
	sp.calls++
	if sp.err != nil {
		return model.PricePoint{}, sp.err
	}
	return sp.point, nil
}

func (sp *stubProvider) GetCreationTimestamp(_ context.Context, _, _ string) (int64, error) {
	return 0, retry.ErrNotFound
}

func (sp *stubProvider) GetPricesBatch(_ context.Context, _, _ string, timestamps []int64) ([]*model.PricePoint, error) {
	return make([]*model.PricePoint, len(timestamps)), nil
}

type fixture struct {
	resolver *Resolver
	cache    *countingCache
	store    *faultyStore
	memory   *store.MemoryStore
	provider *stubProvider
}

func newFixture() *fixture {
	mem := store.NewMemoryStore()
	cc := &countingCache{Cache: cache.NewMemoryCache()}
	fs := &faultyStore{Store: mem}
	sp := &stubProvider{err: retry.ErrNotFound}

	return &fixture{
		resolver: New(cc, fs, sp, NewStats()),
		cache:    cc,
		store:    fs,
		memory:   mem,
		provider: sp,
	}
}

func (f *fixture) auditLog(t *testing.T) []model.PriceQuery {
	t.Helper()
	queries, err := f.memory.RecentQueries(context.Background(), 0)
	require.NoError(t, err)
	return queries
}

func TestResolve_CacheHit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	key := model.PriceKey(testToken, testNetwork, 1000)
	cached := model.Resolution{Price: 2.5, Source: model.SourceProvider}
	require.NoError(t, f.cache.Cache.Set(ctx, key, cached, time.Minute))

	res, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2.5, res.Price)
	assert.Equal(t, model.SourceCache, res.Source)

	// A cache hit re-writes nothing
	assert.Equal(t, 0, f.cache.sets)
	assert.Equal(t, 0, f.store.inserts)

	log := f.auditLog(t)
	require.Len(t, log, 1)
	assert.Equal(t, model.SourceCache, log[0].Source)
}

func TestResolve_StorageHitWritesThroughToCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken,
		Network:      testNetwork,
		Timestamp:    1000,
		Price:        7.0,
	}))

	res, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.Price)
	assert.Equal(t, model.SourceStorage, res.Source)
	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, 0, f.provider.calls, "storage hit must short-circuit")

	// Second lookup is served by the cache tier
	res, err = f.resolver.Resolve(ctx, testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, model.SourceCache, res.Source)

	log := f.auditLog(t)
	require.Len(t, log, 2)
	assert.Equal(t, model.SourceCache, log[0].Source)
	assert.Equal(t, model.SourceStorage, log[1].Source)
}

func TestResolve_ProviderHitPersistsAndCaches(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mcap := 5000.0
	f.provider.err = nil
	f.provider.point = model.PricePoint{
		TokenAddress: testToken,
		Network:      testNetwork,
		Timestamp:    1000,
		Price:        3.3,
		MarketCap:    &mcap,
	}

	res, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3.3, res.Price)
	assert.Equal(t, model.SourceProvider, res.Source)
	require.NotNil(t, res.MarketCap)
	assert.Equal(t, 5000.0, *res.MarketCap)

	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, 1, f.store.inserts)

	persisted, found, err := f.memory.GetPricePoint(ctx, testToken, testNetwork, 1000)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3.3, persisted.Price)

	log := f.auditLog(t)
	require.Len(t, log, 1)
	assert.Equal(t, model.SourceProvider, log[0].Source)
	require.NotNil(t, log[0].ResolvedPrice)
	assert.Equal(t, 3.3, *log[0].ResolvedPrice)
}

func TestResolve_InterpolationIsCachedButNotPersisted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 1000, Price: 10,
	}))
	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 2000, Price: 20,
	}))

	res, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1500)
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.Price)
	assert.Equal(t, model.SourceInterpolated, res.Source)

	assert.Equal(t, 1, f.cache.sets)
	// The estimate must not become a persisted fact
	_, found, err := f.memory.GetPricePoint(ctx, testToken, testNetwork, 1500)
	require.NoError(t, err)
	assert.False(t, found)

	log := f.auditLog(t)
	require.Len(t, log, 1)
	assert.Equal(t, model.SourceInterpolated, log[0].Source)
}

func TestResolve_IneligibleInterpolationIsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Swing above 50 percent makes the bracket ineligible
	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 1000, Price: 10,
	}))
	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 2000, Price: 100,
	}))

	_, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1500)
	assert.ErrorIs(t, err, ErrNotFound)

	// A failed resolution leaves no audit record
	assert.Empty(t, f.auditLog(t))
}

func TestResolve_NotFoundAnywhere(t *testing.T) {
	f := newFixture()

	_, err := f.resolver.Resolve(context.Background(), testToken, testNetwork, 1000)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.auditLog(t))
	assert.Equal(t, 0, f.cache.sets)
}

func TestResolve_CacheErrorDegradesToMiss(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.cache.getErr = errors.New("redis down")
	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 1000, Price: 4.4,
	}))

	res, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, model.SourceStorage, res.Source)
	assert.Equal(t, 4.4, res.Price)
}

func TestResolve_StorageReadErrorFallsThroughToProvider(t *testing.T) {
	f := newFixture()

	f.store.getErr = errors.New("postgres down")
	f.provider.err = nil
	f.provider.point = model.PricePoint{Price: 9.9}

	res, err := f.resolver.Resolve(context.Background(), testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, model.SourceProvider, res.Source)
	assert.Equal(t, 9.9, res.Price)
}

func TestResolve_PersistenceWriteErrorDoesNotFailResponse(t *testing.T) {
	f := newFixture()

	f.store.insertErr = errors.New("postgres down")
	f.provider.err = nil
	f.provider.point = model.PricePoint{Price: 1.1}

	res, err := f.resolver.Resolve(context.Background(), testToken, testNetwork, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1.1, res.Price)
	assert.Equal(t, 1, f.cache.sets, "cache write still happens")
}

func TestResolve_StatsAreRealCounters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 1000, Price: 10,
	}))
	require.NoError(t, f.memory.InsertPricePoint(ctx, model.PricePoint{
		TokenAddress: testToken, Network: testNetwork, Timestamp: 2000, Price: 20,
	}))

	_, err := f.resolver.Resolve(ctx, testToken, testNetwork, 1000) // storage
	require.NoError(t, err)
	_, err = f.resolver.Resolve(ctx, testToken, testNetwork, 1500) // interpolated
	require.NoError(t, err)
	_, err = f.resolver.Resolve(ctx, testToken, testNetwork, 999999) // miss
	assert.ErrorIs(t, err, ErrNotFound)

	stats := f.resolver.Stats().Snapshot()
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.InterpolatedCount)
	assert.GreaterOrEqual(t, stats.AvgResponseTimeMs, 0.0)
}

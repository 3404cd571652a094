package resolver

import (
	"context"
	"time"

	"token-price-service/internal/cache"
	"token-price-service/internal/interpolate"
	"token-price-service/internal/logger"
	"token-price-service/internal/metrics"
	"token-price-service/internal/model"
	"token-price-service/internal/provider"
	"token-price-service/internal/retry"
	"token-price-service/internal/store"
)

// ErrNotFound is returned when no tier can produce a price.
var ErrNotFound = retry.ErrNotFound

// Resolver answers historical price lookups through an ordered fallback
// chain: cache, storage, provider, interpolation. Each tier error degrades to
// a miss so a broken backend never takes the whole chain down.
type Resolver struct {
	cache    cache.Cache
	store    store.Store
	provider provider.Provider
	stats    *Stats
	cacheTTL time.Duration
}

// New creates a resolver over the given collaborators
func New(c cache.Cache, s store.Store, p provider.Provider, stats *Stats) *Resolver {
	return &Resolver{
		cache:    c,
		store:    s,
		provider: p,
		stats:    stats,
		cacheTTL: cache.DefaultTTL,
	}
}

// SetCacheTTL overrides the TTL applied on cache write-back
func (r *Resolver) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		r.cacheTTL = ttl
	}
}

// Stats exposes the resolver's counters for the stats endpoint
func (r *Resolver) Stats() *Stats {
	return r.stats
}

// Resolve runs the resolution chain for one identity key. Tiers execute
// strictly in order and the first hit wins. Side effects per call: at most
// one cache write, at most one persistence write, and exactly one audit
// record when a price is returned.
func (r *Resolver) Resolve(ctx context.Context, tokenAddress, network string, timestamp int64) (model.Resolution, error) {
	start := time.Now()
	key := model.PriceKey(tokenAddress, network, timestamp)

	// Tier 1: cache. A hit is already mirrored everywhere it needs to be.
	if res, ok := r.fromCache(ctx, key); ok {
		r.finish(ctx, tokenAddress, network, timestamp, res, start)
		return res, nil
	}

	// Tier 2: persisted exact match.
	if res, ok := r.fromStore(ctx, tokenAddress, network, timestamp); ok {
		r.writeCache(ctx, key, res)
		r.finish(ctx, tokenAddress, network, timestamp, res, start)
		return res, nil
	}

	// Tier 3: external provider.
	if res, ok := r.fromProvider(ctx, tokenAddress, network, timestamp); ok {
		r.writeCache(ctx, key, res)
		r.persistPoint(ctx, tokenAddress, network, timestamp, res)
		r.finish(ctx, tokenAddress, network, timestamp, res, start)
		return res, nil
	}

	// Tier 4: interpolation between bracketing persisted points. Estimates
	// are cached but never persisted.
	if res, ok := r.fromInterpolation(ctx, tokenAddress, network, timestamp); ok {
		r.writeCache(ctx, key, res)
		r.finish(ctx, tokenAddress, network, timestamp, res, start)
		return res, nil
	}

	duration := time.Since(start)
	r.stats.RecordMiss(duration)
	metrics.RecordResolutionNotFound(duration)
	return model.Resolution{}, ErrNotFound
}

func (r *Resolver) fromCache(ctx context.Context, key string) (model.Resolution, bool) {
	res, found, err := r.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordTierError("cache")
		logger.GetLogger().WithField("error", err.Error()).Warn("Cache read failed, falling through")
		return model.Resolution{}, false
	}
	if !found {
		return model.Resolution{}, false
	}
	res.Source = model.SourceCache
	return res, true
}

func (r *Resolver) fromStore(ctx context.Context, tokenAddress, network string, timestamp int64) (model.Resolution, bool) {
	p, found, err := r.store.GetPricePoint(ctx, tokenAddress, network, timestamp)
	if err != nil {
		metrics.RecordTierError("storage")
		logger.GetLogger().WithField("error", err.Error()).Warn("Storage read failed, falling through")
		return model.Resolution{}, false
	}
	if !found {
		return model.Resolution{}, false
	}
	return model.Resolution{
		Price:     p.Price,
		Source:    model.SourceStorage,
		MarketCap: p.MarketCap,
		Volume:    p.Volume,
	}, true
}

func (r *Resolver) fromProvider(ctx context.Context, tokenAddress, network string, timestamp int64) (model.Resolution, bool) {
	p, err := r.provider.GetPrice(ctx, tokenAddress, network, timestamp)
	if err != nil {
		if !retry.IsNotFound(err) {
			metrics.RecordTierError("provider")
			logger.GetLogger().WithField("error", err.Error()).Warn("Provider lookup failed, falling through")
		}
		return model.Resolution{}, false
	}
	return model.Resolution{
		Price:     p.Price,
		Source:    model.SourceProvider,
		MarketCap: p.MarketCap,
		Volume:    p.Volume,
	}, true
}

func (r *Resolver) fromInterpolation(ctx context.Context, tokenAddress, network string, timestamp int64) (model.Resolution, bool) {
	before, foundBefore, err := r.store.NearestBefore(ctx, tokenAddress, network, timestamp)
	if err != nil {
		metrics.RecordTierError("interpolation")
		logger.GetLogger().WithField("error", err.Error()).Warn("Nearest-before lookup failed")
		return model.Resolution{}, false
	}
	after, foundAfter, err := r.store.NearestAfter(ctx, tokenAddress, network, timestamp)
	if err != nil {
		metrics.RecordTierError("interpolation")
		logger.GetLogger().WithField("error", err.Error()).Warn("Nearest-after lookup failed")
		return model.Resolution{}, false
	}
	if !foundBefore || !foundAfter {
		return model.Resolution{}, false
	}
	if !interpolate.CanInterpolate(before, after, timestamp) {
		return model.Resolution{}, false
	}

	est := interpolate.Interpolate(timestamp, before, after)
	return model.Resolution{
		Price:  est.Price,
		Source: model.SourceInterpolated,
	}, true
}

// writeCache mirrors a fresh resolution into the cache, best-effort
func (r *Resolver) writeCache(ctx context.Context, key string, res model.Resolution) {
	if err := r.cache.Set(ctx, key, res, r.cacheTTL); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("Cache write failed")
	}
}

// persistPoint stores a provider result as a durable price point. Failures
// are logged but never fail the response.
func (r *Resolver) persistPoint(ctx context.Context, tokenAddress, network string, timestamp int64, res model.Resolution) {
	p := model.PricePoint{
		TokenAddress: tokenAddress,
		Network:      network,
		Timestamp:    timestamp,
		Price:        res.Price,
		MarketCap:    res.MarketCap,
		Volume:       res.Volume,
		CreatedAt:    time.Now(),
	}
	if err := r.store.InsertPricePoint(ctx, p); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("Price point persistence failed")
	}
}

// finish records the audit entry, stats and metrics for a successful
// resolution.
func (r *Resolver) finish(ctx context.Context, tokenAddress, network string, timestamp int64, res model.Resolution, start time.Time) {
	price := res.Price
	audit := model.PriceQuery{
		TokenAddress:  tokenAddress,
		Network:       network,
		Timestamp:     timestamp,
		ResolvedPrice: &price,
		Source:        res.Source,
		CreatedAt:     time.Now(),
	}
	if err := r.store.AppendQuery(ctx, audit); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("Audit record write failed")
	}

	duration := time.Since(start)
	r.stats.RecordQuery(res.Source, duration)
	metrics.RecordResolution(string(res.Source), duration)
	logger.LogResolution(ctx, tokenAddress, network, timestamp, string(res.Source), duration.Milliseconds())
}

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-price-service/internal/backfill"
	"token-price-service/internal/cache"
	"token-price-service/internal/handler"
	"token-price-service/internal/model"
	"token-price-service/internal/provider"
	"token-price-service/internal/resolver"
	"token-price-service/internal/store"
)

type healthChecker struct {
	cache cache.Cache
	store store.Store
}

func (h *healthChecker) CacheConnected(ctx context.Context) bool {
	return h.cache.Connected(ctx)
}

func (h *healthChecker) StorePing(ctx context.Context) error {
	return h.store.Ping(ctx)
}

type testStack struct {
	router  http.Handler
	store   store.Store
	manager *backfill.Manager
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	priceCache := cache.NewMemoryCache()
	t.Cleanup(func() { priceCache.Close() })

	priceStore := store.NewMemoryStore()
	priceProvider := provider.NewMockProvider()

	stats := resolver.NewStats()
	priceResolver := resolver.New(priceCache, priceStore, priceProvider, stats)

	manager := backfill.NewManager(priceStore, priceProvider, backfill.Config{
		Workers:      3,
		BatchSize:    10,
		BatchDelay:   time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager.Start(ctx)

	h := handler.NewPriceHandler(priceResolver, manager, priceStore, &healthChecker{
		cache: priceCache,
		store: priceStore,
	})

	return &testStack{
		router:  handler.NewRouter(h),
		store:   priceStore,
		manager: manager,
	}
}

func (s *testStack) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPriceResolutionEndToEnd(t *testing.T) {
	stack := newTestStack(t)
	yesterday := time.Now().Add(-24 * time.Hour).Unix()

	t.Run("resolves from provider then serves from cache", func(t *testing.T) {
		target := fmt.Sprintf("/api/v1/price?token=0xabc&network=eth-mainnet&timestamp=%d", yesterday)

		w := stack.do(http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, w.Code)

		var first model.PriceResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&first))
		assert.Equal(t, model.SourceProvider, first.Source)
		assert.Greater(t, first.Price, 0.0)

		w = stack.do(http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, w.Code)

		var second model.PriceResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&second))
		assert.Equal(t, model.SourceCache, second.Source)
		assert.Equal(t, first.Price, second.Price)
	})

	t.Run("provider results are persisted", func(t *testing.T) {
		point, found, err := stack.store.GetPricePoint(context.Background(), "0xabc", "eth-mainnet", yesterday)
		require.NoError(t, err)
		require.True(t, found)
		assert.Greater(t, point.Price, 0.0)
	})

	t.Run("rejects missing parameters", func(t *testing.T) {
		w := stack.do(http.MethodGet, "/api/v1/price?token=0xabc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed timestamp", func(t *testing.T) {
		w := stack.do(http.MethodGet, "/api/v1/price?token=0xabc&network=eth-mainnet&timestamp=soon", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 before token creation", func(t *testing.T) {
		ancient := time.Now().AddDate(-2, 0, 0).Unix()
		target := fmt.Sprintf("/api/v1/price?token=0xdef&network=eth-mainnet&timestamp=%d", ancient)

		w := stack.do(http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, w.Code)

		var errResp model.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Contains(t, errResp.Error, "0xdef")
	})

	t.Run("audit trail records resolved lookups", func(t *testing.T) {
		w := stack.do(http.MethodGet, "/api/v1/queries?limit=10", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.QueriesResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.NotEmpty(t, resp.Queries)
		assert.Equal(t, "0xabc", resp.Queries[0].TokenAddress)
	})

	t.Run("stats reflect resolution activity", func(t *testing.T) {
		w := stack.do(http.MethodGet, "/api/v1/stats", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.StatsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.GreaterOrEqual(t, resp.TotalQueries, int64(2))
	})
}

func TestBackfillEndToEnd(t *testing.T) {
	stack := newTestStack(t)

	w := stack.do(http.MethodPost, "/api/v1/backfill", `{"tokenAddress":"0xfeed","network":"eth-mainnet"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var scheduled model.ScheduleResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scheduled))
	require.NotEmpty(t, scheduled.JobID)

	// Workers fetch ~90 days in batches of 10 with a 1ms inter-batch delay
	require.Eventually(t, func() bool {
		job, found, err := stack.store.GetJob(context.Background(), scheduled.JobID)
		return err == nil && found && job.Status == model.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)

	w = stack.do(http.MethodGet, "/api/v1/jobs/"+scheduled.JobID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var job model.BulkFetchJob
	require.NoError(t, json.NewDecoder(w.Body).Decode(&job))
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.TotalDays)
	assert.Greater(t, *job.TotalDays, 0)
	assert.NotNil(t, job.CompletedAt)

	// Backfilled days are now in persistence
	point, found, err := stack.store.NearestBefore(context.Background(), "0xfeed", "eth-mainnet", time.Now().Unix())
	require.NoError(t, err)
	require.True(t, found)
	assert.Greater(t, point.Price, 0.0)
}

func TestBackfillValidation(t *testing.T) {
	stack := newTestStack(t)

	t.Run("rejects missing fields", func(t *testing.T) {
		w := stack.do(http.MethodPost, "/api/v1/backfill", `{"tokenAddress":"0xfeed"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		w := stack.do(http.MethodPost, "/api/v1/backfill", `{not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown job returns 404", func(t *testing.T) {
		w := stack.do(http.MethodGet, "/api/v1/jobs/does-not-exist", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	stack := newTestStack(t)

	w := stack.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["cache"])
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"token-price-service/internal/logger"
	"token-price-service/internal/metrics"
	"token-price-service/internal/model"
	"token-price-service/internal/ratelimit"
	"token-price-service/internal/retry"
)

const (
	DefaultBaseURL = "https://api.g.alchemy.com/prices/v1"
	DefaultTimeout = 10 * time.Second
	RequestTimeout = 5 * time.Second // Context timeout per request

	day = int64(24 * 60 * 60)

	// earliestLookback bounds the creation-timestamp search window.
	earliestLookback = "2015-07-30T00:00:00Z" // Ethereum genesis day
)

// AlchemyClient fetches historical token prices from the Alchemy Prices API.
// Every call goes through the shared retry policy and a client-side token
// bucket so bursts do not trip the upstream rate limit.
type AlchemyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.TokenBucket
}

// AlchemyConfig holds the client settings
type AlchemyConfig struct {
	BaseURL            string
	APIKey             string
	Timeout            time.Duration
	RateLimitCapacity  int64
	RateLimitPerSecond int64
}

// NewAlchemyClient creates a new Alchemy Prices API client
func NewAlchemyClient(cfg AlchemyConfig) *AlchemyClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimitCapacity <= 0 {
		cfg.RateLimitCapacity = 10
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 5
	}

	return &AlchemyClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.NewTokenBucket(cfg.RateLimitCapacity, cfg.RateLimitPerSecond, time.Second),
	}
}

// historicalRequest is the Alchemy historical prices request body
type historicalRequest struct {
	Network   string `json:"network"`
	Address   string `json:"address"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Interval  string `json:"interval"`
}

// historicalResponse is the Alchemy historical prices response body
type historicalResponse struct {
	Data []struct {
		Value       string   `json:"value"`
		Timestamp   string   `json:"timestamp"`
		MarketCap   *float64 `json:"marketCap,omitempty"`
		TotalVolume *float64 `json:"totalVolume,omitempty"`
	} `json:"data"`
}

// GetPrice returns the daily price observation covering timestamp
func (c *AlchemyClient) GetPrice(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, error) {
	points, err := c.fetchRange(ctx, "get_price", tokenAddress, network, timestamp, timestamp+day)
	if err != nil {
		return model.PricePoint{}, err
	}
	if len(points) == 0 {
		return model.PricePoint{}, retry.ErrNotFound
	}

	p := points[0]
	p.Timestamp = timestamp
	return p, nil
}

// GetCreationTimestamp returns the unix time of the earliest price data the
// API holds for the token. A token with no data at all is a NotFound.
func (c *AlchemyClient) GetCreationTimestamp(ctx context.Context, tokenAddress, network string) (int64, error) {
	earliest, _ := time.Parse(time.RFC3339, earliestLookback)

	points, err := c.fetchRange(ctx, "get_creation_timestamp", tokenAddress, network, earliest.Unix(), time.Now().Unix())
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, retry.ErrNotFound
	}
	return points[0].Timestamp, nil
}

// GetPricesBatch resolves many timestamps with a single range request and
// matches returned daily points back to the requested slots by day. Slots
// with no matching data stay nil.
func (c *AlchemyClient) GetPricesBatch(ctx context.Context, tokenAddress, network string, timestamps []int64) ([]*model.PricePoint, error) {
	results := make([]*model.PricePoint, len(timestamps))
	if len(timestamps) == 0 {
		return results, nil
	}

	start, end := timestamps[0], timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts < start {
			start = ts
		}
		if ts > end {
			end = ts
		}
	}

	points, err := c.fetchRange(ctx, "get_prices_batch", tokenAddress, network, start, end+day)
	if err != nil {
		if retry.IsNotFound(err) {
			return results, nil // whole batch unresolved, not an error
		}
		return nil, err
	}

	byDay := make(map[int64]model.PricePoint, len(points))
	for _, p := range points {
		byDay[p.Timestamp/day] = p
	}

	for i, ts := range timestamps {
		if p, ok := byDay[ts/day]; ok {
			matched := p
			matched.Timestamp = ts
			results[i] = &matched
		}
	}
	return results, nil
}

// fetchRange performs one historical-prices request with retry and rate
// limiting, returning the parsed points in API order.
func (c *AlchemyClient) fetchRange(ctx context.Context, operation, tokenAddress, network string, start, end int64) ([]model.PricePoint, error) {
	var points []model.PricePoint

	retryErr := retry.Do(ctx, operation, func() error {
		if !c.limiter.Allow() {
			return fmt.Errorf("client-side throttle: %w", retry.ErrRateLimited)
		}

		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()

		fetched, err := c.doHistoricalRequest(reqCtx, operation, tokenAddress, network, start, end)
		if err != nil {
			return err
		}
		points = fetched
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return points, nil
}

func (c *AlchemyClient) doHistoricalRequest(ctx context.Context, operation, tokenAddress, network string, start, end int64) ([]model.PricePoint, error) {
	reqBody := historicalRequest{
		Network:   network,
		Address:   tokenAddress,
		StartTime: time.Unix(start, 0).UTC().Format(time.RFC3339),
		EndTime:   time.Unix(end, 0).UTC().Format(time.RFC3339),
		Interval:  "1d",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/tokens/historical", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", retry.ErrTransient)
	}
	defer resp.Body.Close()

	metrics.RecordProviderRequest(operation, resp.StatusCode, time.Since(startedAt))

	if err := classifyStatus(resp.StatusCode); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"operation":   operation,
			"status_code": resp.StatusCode,
			"token":       tokenAddress,
			"network":     network,
		}).Warn("Provider request rejected")
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", retry.ErrTransient)
	}

	var parsed historicalResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	points := make([]model.PricePoint, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		price, err := strconv.ParseFloat(d.Value, 64)
		if err != nil {
			continue // skip malformed slots rather than failing the call
		}
		ts, err := time.Parse(time.RFC3339, d.Timestamp)
		if err != nil {
			continue
		}
		points = append(points, model.PricePoint{
			TokenAddress: tokenAddress,
			Network:      network,
			Timestamp:    ts.Unix(),
			Price:        price,
			MarketCap:    d.MarketCap,
			Volume:       d.TotalVolume,
		})
	}
	return points, nil
}

// classifyStatus maps HTTP status codes onto the retry error taxonomy
func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("HTTP 404: %w", retry.ErrNotFound)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("HTTP 429: %w", retry.ErrRateLimited)
	case code >= 500:
		return fmt.Errorf("HTTP %d: %w", code, retry.ErrTransient)
	default:
		return fmt.Errorf("HTTP %d: unexpected provider response", code)
	}
}

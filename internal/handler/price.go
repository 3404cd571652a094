package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"token-price-service/internal/logger"
	"token-price-service/internal/model"
	"token-price-service/internal/resolver"
)

// PriceResolver is the resolution surface the handler consumes
type PriceResolver interface {
	Resolve(ctx context.Context, tokenAddress, network string, timestamp int64) (model.Resolution, error)
	Stats() *resolver.Stats
}

// JobManager is the backfill surface the handler consumes
type JobManager interface {
	Schedule(ctx context.Context, tokenAddress, network string) (string, error)
	ActiveJobs(ctx context.Context) ([]model.BulkFetchJob, error)
	GetJob(ctx context.Context, id string) (model.BulkFetchJob, bool, error)
}

// QueryLog is the audit surface the handler consumes
type QueryLog interface {
	RecentQueries(ctx context.Context, limit int) ([]model.PriceQuery, error)
}

// HealthChecker reports backend connectivity for the health endpoint
type HealthChecker interface {
	CacheConnected(ctx context.Context) bool
	StorePing(ctx context.Context) error
}

// PriceHandler handles HTTP requests for price resolution and backfill
type PriceHandler struct {
	resolver PriceResolver
	jobs     JobManager
	queries  QueryLog
	health   HealthChecker
}

// NewPriceHandler creates a new price handler instance
func NewPriceHandler(r PriceResolver, j JobManager, q QueryLog, h HealthChecker) *PriceHandler {
	return &PriceHandler{
		resolver: r,
		jobs:     j,
		queries:  q,
		health:   h,
	}
}

// HandlePrice handles GET /api/v1/price?token=&network=&timestamp=
func (h *PriceHandler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	network := strings.TrimSpace(r.URL.Query().Get("network"))
	tsParam := strings.TrimSpace(r.URL.Query().Get("timestamp"))

	if token == "" || network == "" || tsParam == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "token, network and timestamp are required")
		return
	}
	timestamp, err := strconv.ParseInt(tsParam, 10, 64)
	if err != nil || timestamp <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "timestamp must be a positive unix time in seconds")
		return
	}

	res, err := h.resolver.Resolve(r.Context(), token, network, timestamp)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("no price data for %s on %s at %d", token, network, timestamp))
			return
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"request_id": logger.GetRequestID(r.Context()),
			"error":      err.Error(),
		}).Error("Price resolution failed")
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to resolve price")
		return
	}

	h.writeJSON(w, http.StatusOK, model.PriceResponse{
		TokenAddress: token,
		Network:      network,
		Timestamp:    timestamp,
		Price:        res.Price,
		Source:       res.Source,
		MarketCap:    res.MarketCap,
		Volume:       res.Volume,
	})
}

type backfillRequest struct {
	TokenAddress string `json:"tokenAddress"`
	Network      string `json:"network"`
}

// HandleScheduleBackfill handles POST /api/v1/backfill
func (h *PriceHandler) HandleScheduleBackfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.TokenAddress = strings.TrimSpace(req.TokenAddress)
	req.Network = strings.TrimSpace(req.Network)
	if req.TokenAddress == "" || req.Network == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "tokenAddress and network are required")
		return
	}

	jobID, err := h.jobs.Schedule(r.Context(), req.TokenAddress, req.Network)
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Failed to schedule backfill")
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to schedule backfill")
		return
	}

	h.writeJSON(w, http.StatusAccepted, model.ScheduleResponse{JobID: jobID})
}

// HandleJobs handles GET /api/v1/jobs
func (h *PriceHandler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ActiveJobs(r.Context())
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Failed to list active jobs")
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []model.BulkFetchJob{}
	}
	h.writeJSON(w, http.StatusOK, model.JobsResponse{Jobs: jobs})
}

// HandleJob handles GET /api/v1/jobs/{id}
func (h *PriceHandler) HandleJob(w http.ResponseWriter, r *http.Request, id string) {
	job, found, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Failed to load job")
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if !found {
		h.writeErrorResponse(w, http.StatusNotFound, "job not found")
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

// HandleQueries handles GET /api/v1/queries?limit=
func (h *PriceHandler) HandleQueries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	queries, err := h.queries.RecentQueries(r.Context(), limit)
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Failed to list recent queries")
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list queries")
		return
	}
	if queries == nil {
		queries = []model.PriceQuery{}
	}
	h.writeJSON(w, http.StatusOK, model.QueriesResponse{Queries: queries})
}

// HandleStats handles GET /api/v1/stats
func (h *PriceHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.resolver.Stats().Snapshot())
}

// HandleHealth handles the health check endpoint
func (h *PriceHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cache":     h.health.CacheConnected(r.Context()),
	}

	if err := h.health.StorePing(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["store_error"] = err.Error()
	}

	h.writeJSON(w, status, body)
}

func (h *PriceHandler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Failed to encode response")
	}
}

func (h *PriceHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSON(w, statusCode, model.ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"token-price-service/internal/middleware"
)

// NewRouter builds the service router with logging and metrics middleware
// applied to every route.
func NewRouter(h *PriceHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.MetricsMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/price", h.HandlePrice).Methods(http.MethodGet)
	api.HandleFunc("/backfill", h.HandleScheduleBackfill).Methods(http.MethodPost)
	api.HandleFunc("/jobs", h.HandleJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleJob(w, r, mux.Vars(r)["id"])
	}).Methods(http.MethodGet)
	api.HandleFunc("/queries", h.HandleQueries).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// CreateServer creates an HTTP server with sane timeouts
func CreateServer(h *PriceHandler, port int) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewRouter(h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// StartTimeKey is the context key for start time
	StartTimeKey contextKey = "start_time"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})
	log.SetLevel(logrus.InfoLevel)
}

// GetLogger returns the singleton logger instance
func GetLogger() *logrus.Logger {
	return log
}

// SetLogLevel sets the global log level
func SetLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context) context.Context {
	requestID := uuid.New().String()
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithStartTime adds start time to the context
func WithStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, StartTimeKey, time.Now())
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetStartTime extracts start time from context
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

// LogHTTPRequest logs HTTP request information
func LogHTTPRequest(ctx context.Context, method, path, userAgent, remoteAddr string) {
	log.WithFields(logrus.Fields{
		"request_id":  GetRequestID(ctx),
		"method":      method,
		"path":        path,
		"user_agent":  userAgent,
		"remote_addr": remoteAddr,
		"event":       "http_request",
	}).Info("HTTP request received")
}

// LogHTTPResponse logs HTTP response information
func LogHTTPResponse(ctx context.Context, statusCode int, responseSize int64) {
	startTime := GetStartTime(ctx)
	var latency time.Duration
	if !startTime.IsZero() {
		latency = time.Since(startTime)
	}

	entry := log.WithFields(logrus.Fields{
		"request_id":    GetRequestID(ctx),
		"status_code":   statusCode,
		"response_size": responseSize,
		"latency_ms":    latency.Milliseconds(),
		"event":         "http_response",
	})

	if statusCode >= 500 {
		entry.Error("HTTP response sent")
	} else if statusCode >= 400 {
		entry.Warn("HTTP response sent")
	} else {
		entry.Info("HTTP response sent")
	}
}

// LogResolution logs the outcome of a price resolution with its source tier
func LogResolution(ctx context.Context, tokenAddress, network string, timestamp int64, source string, durationMs int64) {
	log.WithFields(logrus.Fields{
		"request_id":  GetRequestID(ctx),
		"token":       tokenAddress,
		"network":     network,
		"timestamp":   timestamp,
		"source":      source,
		"duration_ms": durationMs,
		"event":       "price_resolved",
	}).Info("Price resolved")
}

// LogJobEvent logs a backfill job lifecycle event
func LogJobEvent(jobID, event string, fields map[string]interface{}) {
	entry := log.WithFields(logrus.Fields{
		"job_id": jobID,
		"event":  event,
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("Backfill job event")
}

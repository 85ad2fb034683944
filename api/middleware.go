package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	userIDHeader   = "X-User-ID"
	adminKeyHeader = "X-Admin-Key"
)

type contextKey string

const userIDKey contextKey = "userID"

// requestLogger writes one log entry per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		fields := log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			log.WithFields(fields).Warn("HTTP request")
		} else {
			log.WithFields(fields).Debug("HTTP request")
		}
	})
}

// requestMetrics records the duration of every request by route pattern
func requestMetrics(metrics *observability.MetricsProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.RecordHTTPRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}

// requireUser takes the caller identity set by the gateway
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
				Kind:    entities.ErrorKindValidation,
				Code:    "unauthenticated",
				Message: userIDHeader + " header is required",
			}})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// requireAdmin checks the operator key. An empty key disables the admin routes.
func requireAdmin(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(adminKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
					Kind:    entities.ErrorKindValidation,
					Code:    "unauthorized",
					Message: "a valid " + adminKeyHeader + " header is required",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userIDFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

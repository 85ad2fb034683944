package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"channelpoints/application"
	"channelpoints/domain/entities"
	"channelpoints/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Config holds the HTTP server settings
type Config struct {
	Addr           string
	AllowedOrigins []string
	AdminAPIKey    string
}

// Services are the use cases exposed over HTTP
type Services struct {
	Ledger      application.PointsLedger
	Connections application.ConnectionManager
	Webhooks    application.WebhookIngestor
	Redemptions application.RedemptionEngine
}

// Server is the HTTP front of the ledger
type Server struct {
	cfg      Config
	services Services
	validate *validator.Validate
	router   chi.Router
	http     *http.Server
}

// NewServer builds the router. metrics may be nil.
func NewServer(cfg Config, services Services, metrics *observability.MetricsProvider) *Server {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	s := &Server{
		cfg:      cfg,
		services: services,
		validate: validate,
	}
	s.router = s.routes(metrics)
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(metrics *observability.MetricsProvider) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(metrics))

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", userIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)

	// Providers call these without the gateway identity
	r.Post("/webhooks/{platform}", s.handleWebhook)
	r.Get("/connections/{platform}/callback", s.handleCallback)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/connections", s.handleListConnections)
		r.Post("/connections/{platform}/link", s.handleBeginLink)
		r.Delete("/connections/{platform}", s.handleUnlink)
		r.Post("/connections/{platform}/refresh", s.handleRefreshConnection)

		r.Get("/accounts", s.handleBalances)
		r.Get("/accounts/{currency}/transactions", s.handleHistory)

		r.Get("/store/items", s.handleListItems)
		r.Get("/store/items/{id}", s.handleGetItem)
		r.Post("/store/items/{id}/redeem", s.handleRedeem)
		r.Get("/redemptions", s.handleListRedemptions)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin(s.cfg.AdminAPIKey))

		r.Post("/store/items", s.handleCreateItem)
		r.Post("/redemptions/{id}/status", s.handleTransition)
		r.Post("/accounts/{user_id}/{currency}", s.handleAdjust)
		r.Get("/accounts/{user_id}/{currency}/verify", s.handleVerify)
	})

	return r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called
func (s *Server) ListenAndServe() error {
	log.WithField("addr", s.cfg.Addr).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// decode reads a JSON body into dst and validates it.
// Returns false after writing the error response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Kind:    entities.ErrorKindValidation,
			Code:    "invalid_json",
			Message: "request body must be valid JSON",
		}})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

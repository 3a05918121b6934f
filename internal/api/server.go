// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/liveness-broker/internal/circuitbreaker"
	"github.com/liveness-broker/internal/codec"
	"github.com/liveness-broker/internal/logging"
	"github.com/liveness-broker/internal/store"
	"github.com/liveness-broker/internal/types"
	"github.com/liveness-broker/internal/verification"
)

// Service interfaces for dependency injection and testing

// VerificationServiceInterface defines the interface for submission lifecycle operations
type VerificationServiceInterface interface {
	CreateSubmission(ctx context.Context, input *verification.CreateSubmissionInput) (*types.Submission, error)
	CheckStatus(ctx context.Context, selfieCode string) (*verification.StatusView, error)
	GetResult(ctx context.Context, selfieCode string) (*verification.ResultView, error)
	ApplyCallback(ctx context.Context, selfieCode string, event *types.CallbackEvent) (*types.Submission, error)
}

// ProviderClientInterface defines the interface toward the verification provider
type ProviderClientInterface interface {
	RedirectURL(selfieCode string) (string, error)
	ResolveLinkID(id string) (string, error)
	Health(ctx context.Context) error
	BreakerState() circuitbreaker.State
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	verification VerificationServiceInterface
	provider     ProviderClientInterface
	codec        *codec.Codec
	sessions     store.BlobStore
	data         store.BlobStore
	config       *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	verificationService VerificationServiceInterface,
	providerClient ProviderClientInterface,
	cdc *codec.Codec,
	sessions store.BlobStore,
	data store.BlobStore,
) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		verification: verificationService,
		provider:     providerClient,
		codec:        cdc,
		sessions:     sessions,
		data:         data,
		config:       config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Middleware order matters: recovery must wrap everything downstream.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoints. The provider probe does outbound work, so it
	// gets its own route instead of loading the liveness check.
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/health/provider", s.handleProviderHealth).Methods("GET")

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/test", s.handleTest).Methods("GET")
	api.HandleFunc("/encrypt", s.handleEncrypt).Methods("POST")
	api.HandleFunc("/debug-encrypt", s.handleDebugEncrypt).Methods("GET")

	// Submission lifecycle
	api.HandleFunc("/save-selfie", s.handleSaveSelfie).Methods("POST")
	api.HandleFunc("/check-status", s.handleCheckStatus).Methods("GET")
	api.HandleFunc("/get-result", s.handleGetResult).Methods("GET")

	// Provider callback
	api.HandleFunc("/callback", s.handleCallback).Methods("GET")

	// Link resolution for browser sessions
	s.router.HandleFunc("/selfie/link", s.handleSelfieLink).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "liveness-broker",
	})
}

// handleProviderHealth probes the verification provider and reports its
// reachability together with the circuit breaker state.
func (s *Server) handleProviderHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.provider.Health(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unreachable",
			"breaker": s.provider.BreakerState(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"breaker": s.provider.BreakerState(),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

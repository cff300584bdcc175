// Package server exposes the validators over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/cache"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Config holds server configuration
type Config struct {
	// Address is the listen address (e.g., ":8080")
	Address string `mapstructure:"address"`
	// JWTSecret enables bearer-token auth on every route but /healthz
	JWTSecret string `mapstructure:"jwt_secret"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxBodyBytes bounds request bodies
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Address:         ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20, // 1 MB
	}
}

// Server serves validation requests
type Server struct {
	config    Config
	validator *cache.CachedValidator
	reports   *store.ReportStore
	logger    *zap.Logger
	authority *TokenAuthority
	handler   http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithStore persists every report and enables the /reports routes
func WithStore(reports *store.ReportStore) Option {
	return func(s *Server) {
		s.reports = reports
	}
}

// WithLogger sets the request and error logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server over v
func New(config Config, v *cache.CachedValidator, opts ...Option) (*Server, error) {
	if v == nil {
		return nil, errors.New("validator cannot be nil")
	}

	defaults := DefaultConfig()
	if config.Address == "" {
		config.Address = defaults.Address
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}

	s := &Server{
		config:    config,
		validator: v,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.JWTSecret != "" {
		s.authority = NewTokenAuthority(config.JWTSecret, time.Hour)
	}

	s.handler = s.routes()
	return s, nil
}

// Handler returns the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID(), Logging(s.logger, "/healthz"), Recovery(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.authority != nil {
			r.Use(RequireToken(s.authority))
		}

		r.Get("/kinds", s.handleKinds)
		r.Get("/kinds/{kind}/fields", s.handleKindFields)

		r.Route("/validate/{kind}", func(r chi.Router) {
			r.Post("/", s.handleValidate)
			r.Post("/core", s.handleValidateCore)
			r.Post("/fields", s.handleValidateFields)
		})
		r.Post("/metadata", s.handleMetadata)

		if s.reports != nil {
			r.Get("/reports", s.handleListReports)
			r.Get("/reports/{id}", s.handleGetReport)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("address", listener.Addr().String()))
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root: New receives the long-lived resources opened by
// the serve command (the SQLite pool and the token denylist), builds the
// services and handlers on top of them, and maps routes to handlers. The
// server never opens or closes those resources itself; whoever created them
// closes them after Start returns.
//
// ROUTE STRUCTURE:
//
//	GET    /, /add, /login, /signup   → HTML pages (guarded by auth.Gateway)
//	POST   /api/signup, /api/signin   → credentials (rate limited per client IP)
//	POST   /api/signout               → revoke + clear cookie
//	GET    /api/me                    → current user            (RequireAuth)
//	GET    /api/packages              → list own favorites      (RequireAuth)
//	POST   /api/package               → save a favorite         (RequireAuth)
//	GET    /api/package/{id}          → one favorite            (RequireAuth)
//	PUT    /api/package/{id}          → edit the note           (RequireAuth)
//	DELETE /api/package/{id}          → delete a favorite       (RequireAuth)
//	GET    /api/search                → npm registry search     (RequireAuth)
//	GET    /metrics                   → Prometheus exposition
//	GET    /healthz/liveness|readiness → probes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/config"
	"github.com/aryan2621/Npmmer/internal/handler"
	"github.com/aryan2621/Npmmer/internal/middleware"
	"github.com/aryan2621/Npmmer/internal/registry"
	"github.com/aryan2621/Npmmer/internal/repository"
	sqliteRepo "github.com/aryan2621/Npmmer/internal/repository/sqlite"
	"github.com/aryan2621/Npmmer/internal/service"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
	readinessBudget = 2 * time.Second
)

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *prometheus.Registry
}

// New wires the dependency graph:
//
//	db → UserDB/FavoriteDB → AuthService/FavoriteService → handlers → routes
//	denylist → AuthService
//
// Each layer only receives what it needs: services get repository interfaces,
// handlers get services.
func New(cfg *config.Config, db *sqliteRepo.DB, denylist repository.TokenDenylist, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: prometheus.NewRegistry(),
	}

	s.metrics.MustRegister(collectors.NewGoCollector())
	s.metrics.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := s.setupRoutes(denylist); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS. Global middleware runs in the order it is added:
// RequestID first so the logger can print it, RealIP before anything keyed
// on the client address, Recoverer innermost so a panic is still logged and
// counted as a 500.
func (s *Server) setupRoutes(denylist repository.TokenDenylist) error {
	cfg := s.config

	// === Services ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}
	searcher, err := registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout, s.logger)
	if err != nil {
		return fmt.Errorf("creating registry client: %w", err)
	}

	authService := service.NewAuthService(s.db.Users(), tokens, passwords, denylist, s.logger)
	favoriteService := service.NewFavoriteService(s.db.Favorites(), s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, cfg.Server.SecureCookies, s.logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService, s.logger)
	searchHandler := handler.NewSearchHandler(searcher, s.logger)
	pageHandler, err := handler.NewPageHandler(favoriteService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	httpMetrics := middleware.NewMetrics(s.metrics)
	limiter := middleware.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst, httpMetrics, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(httpMetrics.Instrument)
	s.router.Use(chimiddleware.Recoverer)

	// === Page Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.Gateway(authService, cfg.Server.SecureCookies, s.logger))

		r.Get(auth.HomePath, pageHandler.HandleHome)
		r.Get("/add", pageHandler.HandleAdd)
		r.Get(auth.LoginPath, pageHandler.HandleLogin)
		r.Get(auth.SignupPath, pageHandler.HandleSignup)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.With(limiter.Handler).Post("/signup", authHandler.HandleSignup)
		r.With(limiter.Handler).Post("/signin", authHandler.HandleSignin)
		r.Post("/signout", authHandler.HandleSignout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authService))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/packages", favoriteHandler.HandleList)
			r.Post("/package", favoriteHandler.HandleCreate)
			r.Get("/package/{id}", favoriteHandler.HandleGet)
			r.Put("/package/{id}", favoriteHandler.HandleUpdate)
			r.Delete("/package/{id}", favoriteHandler.HandleDelete)
			r.Get("/search", searchHandler.HandleSearch)
		})
	})

	// === Observability ===
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	s.router.Get("/healthz/liveness", s.handleLiveness)
	s.router.Get("/healthz/readiness", s.handleReadiness)

	return nil
}

// Handler returns the fully wired router. Tests mount it on httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully:
// stop accepting connections and give in-flight requests up to 30 seconds.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		// ListenAndServe has returned ErrServerClosed by now.
		<-serverErrors
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// handleReadiness reports 503 while the database is unreachable.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessBudget)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Package server wires the reps API together: database, services, handlers
// and routes, plus the HTTP server lifecycle.
//
// This is the composition root. Every dependency is built in New and handed
// down; no other package constructs its own collaborators.
//
//	config → sqlite.DB ─┬→ RepService  → RepHandler
//	                    └→ AuthService → AuthHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/config"
	"github.com/sakif/remo/internal/handler"
	"github.com/sakif/remo/internal/middleware"
	sqliteRepo "github.com/sakif/remo/internal/repository/sqlite"
	"github.com/sakif/remo/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection; Start closes the
// database on the way out.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens (and migrates) the database and builds the router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithDB(cfg, db, clockwork.NewRealClock(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB builds the server over an already opened database. Tests use it
// with an in-memory database and a fake clock.
func NewWithDB(cfg config.Config, db *sqliteRepo.DB, clock clockwork.Clock, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(clock); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET  /api/v1/rep/             list (JSON) or export (?format=csv|xlsx)
//	GET  /api/v1/rep/schema/      resource description
//	GET  /api/v1/rep/{id}/        one rep
//	*    /api/v1/rep/...          405 for any other verb
//	GET  /api/me                  own projection (auth required)
//	POST /auth/login              password sign-in
//	POST /auth/logout
//	GET  /auth/github/login       only when GitHub OAuth is configured
//	GET  /auth/github/callback
//
// MIDDLEWARE ORDER: RequestID first so the Logger can print it, Recoverer
// inside the Logger so a panic is logged as a 500.
func (s *Server) setupRoutes(clock clockwork.Clock) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.NotFound(handler.NotFound)

	var tokens *auth.TokenService
	if s.config.AuthEnabled() {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret, clock)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set: sign-in disabled, all requests are anonymous")
	}

	repService := service.NewRepService(s.db, s.db, clock, s.logger)
	repHandler := handler.NewRepHandler(repService, s.logger)

	readTx := middleware.ReadTx(s.db.Conn(), s.logger)

	s.router.Route("/api/v1/rep", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Use(readTx)
		r.MethodNotAllowed(handler.MethodNotAllowed)

		r.Get("/", repHandler.HandleList)
		r.Get("/schema/", repHandler.HandleSchema)
		r.Get("/{id}/", repHandler.HandleDetail)
	})

	if tokens == nil {
		return nil
	}

	s.router.With(auth.RequireAuth(tokens), readTx).Get("/api/me", repHandler.HandleMe)

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, tokens.TTL(), s.config.CookieSecure, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30s and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // exports can be large
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("auth", s.config.AuthEnabled()),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

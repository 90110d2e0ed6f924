// Package server wires the application together and runs the HTTP server.
//
// It is the composition root: the one place that knows every concrete
// type. New builds, in order:
//
//	config → Store (sqlite or gorm) → SessionManager → services → handlers → routes
//
// Keeping this out of main.go lets tests build a complete server around an
// in-memory database and drive it with httptest.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/sendlinks/internal/auth"
	"github.com/sakif/sendlinks/internal/config"
	"github.com/sakif/sendlinks/internal/handler"
	"github.com/sakif/sendlinks/internal/middleware"
	"github.com/sakif/sendlinks/internal/repository"
	"github.com/sakif/sendlinks/internal/repository/gormstore"
	sqliteRepo "github.com/sakif/sendlinks/internal/repository/sqlite"
	"github.com/sakif/sendlinks/internal/service"
	"github.com/sakif/sendlinks/web"
)

// Server owns the router and the store. The store is closed when Start
// returns, or by Close for servers that were never started.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	sessions *auth.SessionManager
}

// New opens the store and builds the routes. cfg should already be
// validated (config.Load does this).
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.Database.ResetOnStart {
		logger.Warn("database.resetOnStart is set: dropping all data")
		if err := store.Reset(context.Background()); err != nil {
			store.Close()
			return nil, fmt.Errorf("resetting database: %w", err)
		}
	}

	tokens, err := auth.NewTokenService(cfg.Session.Secret)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		sessions: auth.NewSessionManager(tokens, cfg.Session.TTL),
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the repository implementation for the configured driver.
func openStore(cfg config.DatabaseConfig, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.Path)
	case config.DriverMySQL, config.DriverPostgres:
		return gormstore.Open(gormstore.Config{
			Driver:  cfg.Driver,
			DSN:     cfg.DSN,
			MaxIdle: cfg.MaxIdle,
			MaxOpen: cfg.MaxOpen,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// setupRoutes configures middleware and routes.
//
//	GET       /                      → home page, first 10 users
//	GET/POST  /register              → sign up
//	GET/POST  /login                 → log in
//	GET       /logout                → log out            (session required)
//	GET       /user/{id}             → public profile
//	GET/POST  /user/{id}/edit        → link editor        (session required)
//	GET       /auth/github/login     → GitHub sign-in     (when configured)
//	GET       /auth/github/callback
//	GET       /api/users             → JSON, CORS-enabled
//	GET       /api/users/{id}
//	GET       /healthz               → store ping
//	GET       /static/*              → embedded CSS
//
// Middleware order matters: the request id must exist before the logger
// runs, and the session must be loaded before the logger so it can record
// the user id.
func (s *Server) setupRoutes() error {
	// === Dependencies ===
	passwords := auth.NewPasswordService(s.config.Password.Iterations, 0)
	authService := service.NewAuthService(s.store, s.store, passwords, s.sessions, s.logger)
	profileService := service.NewProfileService(s.store, s.store, s.logger)

	// === Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.LoadSession(authService.ResolveSession, s.config.Session.CookieName))
	s.router.Use(middleware.Logger(s.logger))

	// === Static files ===
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	renderer, err := handler.NewRenderer(web.Templates(), s.logger)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, github, renderer, handler.SessionCookie{
		Name:   s.config.Session.CookieName,
		Secure: s.config.Session.CookieSecure,
		TTL:    s.sessions.TTL(),
	}, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, renderer, s.logger)
	apiHandler := handler.NewAPIHandler(profileService, s.store, s.logger)

	s.router.NotFound(renderer.NotFound)

	// === Pages ===
	s.router.Get("/", profileHandler.HandleIndex)
	s.router.Get("/register", authHandler.HandleRegisterPage)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Get("/login", authHandler.HandleLoginPage)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/user/{id}", profileHandler.HandleProfile)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth("/login"))
		r.Get("/logout", authHandler.HandleLogout)
		r.Get("/user/{id}/edit", profileHandler.HandleEditPage)
		r.Post("/user/{id}/edit", profileHandler.HandleEditSubmit)
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		s.logger.Info("GitHub sign-in enabled", slog.String("callback", s.config.GitHub.CallbackURL))
	}

	// === JSON API ===
	s.router.Route("/api", func(r chi.Router) {
		if origins := s.config.CORS.AllowedOrigins; len(origins) > 0 {
			r.Use(cors.New(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
			}).Handler)
		}
		r.Get("/users", apiHandler.HandleListUsers)
		r.Get("/users/{id}", apiHandler.HandleGetUser)
	})

	s.router.Get("/healthz", apiHandler.HandleHealth)

	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start does this itself on shutdown.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for
// up to server.shutdownTimeout and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", s.config.Server.BaseURL),
			slog.String("driver", s.config.Database.Driver),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

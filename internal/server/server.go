// Package server wires the application together: database, services,
// handlers, middleware, and routes. main.go only builds a Config and
// calls Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/enfdev/letterbox/internal/auth"
	"github.com/enfdev/letterbox/internal/handler"
	"github.com/enfdev/letterbox/internal/middleware"
	sqliteRepo "github.com/enfdev/letterbox/internal/repository/sqlite"
	"github.com/enfdev/letterbox/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port              int
	DBPath            string
	JWTSecret         string
	KakaoClientID     string
	KakaoClientSecret string
	KakaoCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: sqlite.DB, token service, OAuth
// provider, services, handlers, routes. Each layer receives only the
// interfaces it needs.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	kakao := auth.NewKakaoProvider(s.config.KakaoClientID, s.config.KakaoClientSecret, s.config.KakaoCallbackURL)

	authService := service.NewAuthService(kakao, s.db, s.db, tokens, auth.NewSecretHasher(), s.logger)
	letterService := service.NewLetterService(s.db, s.db.Letters(), s.db.Statuses(), s.db, s.db, s.logger)
	notificationService := service.NewNotificationService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(kakao, authService, s.logger)
	letterHandler := handler.NewLetterHandler(letterService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/kakao/login", authHandler.HandleKakaoLogin)
		r.Get("/kakao/callback", authHandler.HandleKakaoCallback)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.With(requireAuth).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/users/check-nickname", authHandler.HandleCheckNickname)
		r.Get("/users/profile-options", authHandler.HandleProfileOptions)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/users/me", authHandler.HandleMe)
			r.Patch("/users/me", authHandler.HandleCompleteProfile)

			r.Post("/letters", letterHandler.HandleSubmit)
			r.Get("/letters", letterHandler.HandleList)
			r.Get("/letters/throw-counts", letterHandler.HandleThrowCounts)
			r.Get("/letters/{statusID}", letterHandler.HandleDetails)
			r.Post("/letters/{statusID}/reply", letterHandler.HandleReply)
			r.Post("/letters/{statusID}/save", letterHandler.HandleSave)
			r.Post("/letters/{statusID}/throw", letterHandler.HandleThrow)
			r.Post("/letters/thanks/{letterID}", letterHandler.HandleThanks)

			r.Get("/notifications", notificationHandler.HandleList)
			r.Delete("/notifications", notificationHandler.HandleDeleteAll)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/historyguide/apiserver/config"
	"github.com/historyguide/apiserver/internal/archive"
	"github.com/historyguide/apiserver/internal/db"
	"github.com/historyguide/apiserver/internal/enrich"
	"github.com/historyguide/apiserver/internal/events"
	"github.com/historyguide/apiserver/internal/handlers"
	"github.com/historyguide/apiserver/internal/llm"
	"github.com/historyguide/apiserver/internal/logging"
	"github.com/historyguide/apiserver/internal/services"
	"github.com/historyguide/apiserver/internal/store"
	"github.com/historyguide/apiserver/internal/token"
	"github.com/historyguide/apiserver/internal/wiki"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
	archive    *archive.Archive
	logger     *slog.Logger
}

// New wires storage, outbound clients and services, and mounts the API routes.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tokens, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(cfg.Database); err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "database migrations applied")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := events.Open(ctx, cfg.Events, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	transcripts, err := archive.Open(ctx, cfg.Archive, logger)
	if err != nil {
		_ = publisher.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	wikiClient := wiki.New(cfg.Wiki.BaseURL, cfg.Wiki.UserAgent, cfg.Wiki.Timeout)
	chat := llm.New(llm.Options{
		BaseURL:    cfg.AI.BaseURL,
		Token:      cfg.AI.Token,
		Model:      cfg.AI.Model,
		APIVersion: cfg.AI.APIVersion,
		Timeout:    cfg.AI.Timeout,
	})
	if cfg.AI.Token == "" {
		logger.WarnContext(ctx, "GITHUB_TOKEN is not set; ask requests will fail")
	}

	authService := services.NewAuthService(userRepo, tokens, publisher)
	askService := services.NewAskService(enrich.NewEnricher(wikiClient, logger), chat, transcripts, publisher)

	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(dbConn))
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, authMiddleware, logger)
	})
	router.Route("/api/ai", func(r chi.Router) {
		handlers.AIRouter(r, askService, authMiddleware, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     publisher,
		archive:    transcripts,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases dependencies.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		err = errors.Join(err, s.events.Close())
	}
	if s.archive != nil {
		err = errors.Join(err, s.archive.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

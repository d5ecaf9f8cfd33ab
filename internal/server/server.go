package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/my-app/apiserver/config"
	"github.com/my-app/apiserver/internal/auth"
	"github.com/my-app/apiserver/internal/db"
	"github.com/my-app/apiserver/internal/events"
	"github.com/my-app/apiserver/internal/handlers"
	"github.com/my-app/apiserver/internal/logging"
	"github.com/my-app/apiserver/internal/mail"
	"github.com/my-app/apiserver/internal/services"
	"github.com/my-app/apiserver/internal/storage"
	"github.com/my-app/apiserver/internal/store"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *events.Publisher
	log        *slog.Logger
}

// New constructs a Server with all dependencies wired. A missing JWT
// secret is a fatal configuration error.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logging.New(os.Getenv("LOG_LEVEL"))

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var mailer mail.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = mail.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	} else {
		mailer = mail.NewLogMailer(log)
	}

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userRepo, tokens, mailer, publisher, log, cfg.FrontendURL)

	authMiddleware := handlers.RequireAuth(tokens, authService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService, tokens)
		})
		api.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService, authMiddleware)
		})

		uploads, err := newStorage(ctx, cfg)
		if err != nil {
			log.Warn("object storage disabled", "error", err)
			return
		}
		if uploads != nil {
			api.Route("/upload", func(r chi.Router) {
				handlers.UploadRouter(r, uploads, cfg.Storage.PublicURL, authMiddleware)
			})
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
		log:        log,
	}, nil
}

// newStorage builds the configured object-storage backend, or nil when
// uploads are not configured.
func newStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	var err error

	switch cfg.Storage.Backend {
	case "minio":
		backend, err = storage.NewMinioBackend(cfg.Minio)
	case "gcs":
		backend, err = storage.NewGCSBackend(ctx, cfg.GCS)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return wrapped, nil
}

// newPublisher builds the configured event-publisher backend, or nil when
// events are not configured.
func newPublisher(ctx context.Context, cfg config.Config) (*events.Publisher, error) {
	var backend events.Backend
	var err error

	switch cfg.Events.Backend {
	case "rabbitmq":
		backend, err = events.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		backend, err = events.NewPubSubClient(ctx, cfg.PubSub)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
	if err != nil {
		return nil, err
	}
	return events.NewPublisher(backend), nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

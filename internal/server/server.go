package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SargisDallakyan/blogPlatform/config"
	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/internal/cache"
	"github.com/SargisDallakyan/blogPlatform/internal/db"
	"github.com/SargisDallakyan/blogPlatform/internal/handlers"
	"github.com/SargisDallakyan/blogPlatform/internal/logging"
	"github.com/SargisDallakyan/blogPlatform/internal/mq"
	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/SargisDallakyan/blogPlatform/internal/storage"
	"github.com/SargisDallakyan/blogPlatform/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP server, router and the clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	cache      *cache.Client
	events     *mq.Publisher
	covers     storage.ObjectStorage
	logger     *slog.Logger
}

// New constructs a Server from cfg, connecting to every configured backend.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.New(cfg.Logging)
	}

	s := &Server{logger: logger}
	if err := s.connect(ctx, cfg); err != nil {
		_ = s.close()
		return nil, err
	}

	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	var revocations auth.RevocationList
	if s.cache != nil {
		revocations = auth.NewRedisRevocationList(s.cache)
	} else {
		logger.Warn("REDIS_ADDR not set, token revocations are kept in process memory")
		revocations = auth.NewMemoryRevocationList()
	}

	issuer, err := auth.NewIssuer(auth.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	}, auth.WithRevocationList(revocations))
	if err != nil {
		_ = s.close()
		return nil, err
	}

	userRepo := store.NewUserRepository(s.db)
	postRepo := store.NewPostRepository(s.db)
	commentRepo := store.NewCommentRepository(s.db)

	postService := services.NewPostService(postRepo, s.covers, s.events, logger)
	s.router = newRouter(cfg, logger, routerDeps{
		issuer:         issuer,
		authService:    services.NewAuthService(userRepo, hasher, issuer, s.events, cfg.Auth.AllowAdminRegister),
		userService:    services.NewUserService(userRepo),
		postService:    postService,
		commentService: services.NewCommentService(commentRepo, postService, s.events),
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) connect(ctx context.Context, cfg config.Config) error {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	s.db = dbConn

	if cfg.Redis.Addr != "" {
		client, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		s.cache = client
	}

	backend, err := newEventBackend(ctx, cfg.MQ)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.MQ.Backend, err)
	}
	s.events = mq.NewPublisher(backend, s.logger)

	covers, err := newObjectStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Storage.Backend, err)
	}
	if covers != nil {
		if err := covers.EnsureBucket(ctx); err != nil {
			if closer, ok := covers.(io.Closer); ok {
				_ = closer.Close()
			}
			return fmt.Errorf("ensuring bucket %q: %w", covers.Bucket(), err)
		}
		s.covers = covers
	}
	return nil
}

// newEventBackend returns nil when event publishing is disabled.
func newEventBackend(ctx context.Context, cfg config.MQConfig) (mq.Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		return mq.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return mq.NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// newObjectStorage returns nil when cover storage is disabled.
func newObjectStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		return storage.NewMinioClient(cfg.Minio)
	case "gcs":
		return storage.NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

type routerDeps struct {
	issuer         *auth.Issuer
	authService    *services.AuthService
	userService    *services.UserService
	postService    *services.PostService
	commentService *services.CommentService
}

func newRouter(cfg config.Config, logger *slog.Logger, deps routerDeps) *chi.Mux {
	authMiddleware := handlers.RequireAuth(deps.issuer, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	if cfg.ClientURL != "" {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{cfg.ClientURL},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, deps.authService, authMiddleware, logger)
		})
		r.Route("/post", func(r chi.Router) {
			handlers.PostRouter(r, deps.postService, deps.commentService, authMiddleware, logger)
		})
		r.Route("/comments", func(r chi.Router) {
			handlers.CommentRouter(r, deps.commentService, authMiddleware, logger)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, deps.userService, deps.postService, deps.commentService, authMiddleware, logger)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and releases every client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) close() error {
	var errs []error
	if err := s.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing event publisher: %w", err))
	}
	if closer, ok := s.covers.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing object storage: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	return errors.Join(errs...)
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/tablehop/apiserver/config"
	"github.com/tablehop/apiserver/internal/auth"
	"github.com/tablehop/apiserver/internal/db"
	"github.com/tablehop/apiserver/internal/handlers"
	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/mq"
	"github.com/tablehop/apiserver/internal/services"
	"github.com/tablehop/apiserver/internal/store"
)

const requestTimeout = 60 * time.Second

// Deps are the collaborators the router is built from.
type Deps struct {
	UserService        *services.UserService
	RestaurantService  *services.RestaurantService
	ReservationService *services.ReservationService
	Tokens             handlers.TokenVerifier
	Logger             logging.Logger
}

// Server wraps the HTTP server, router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	mq         *mq.MQ
	logger     logging.Logger
}

// New opens the database, the optional revocation store and the optional
// broker, then builds the router.
func New(ctx context.Context, cfg config.Config, logger logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Server{db: dbConn, logger: logger}

	var revoker auth.Revoker = auth.NopRevoker{}
	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		revoker = auth.NewRedisRevoker(s.redis)
	}

	s.mq, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, err
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, auth.WithRevoker(revoker))

	userRepo := store.NewUserRepository(dbConn)
	restaurantRepo := store.NewRestaurantRepository(dbConn)
	reservationRepo := store.NewReservationRepository(dbConn)

	reservationOpts := []services.ReservationOption{services.WithLogger(logger)}
	if s.mq != nil {
		reservationOpts = append(reservationOpts, services.WithEvents(s.mq, cfg.MQ.Channel))
	}

	s.router = NewRouter(cfg, Deps{
		UserService:        services.NewUserService(userRepo, tokens, cfg.Auth.BcryptCost),
		RestaurantService:  services.NewRestaurantService(restaurantRepo),
		ReservationService: services.NewReservationService(reservationRepo, restaurantRepo, reservationOpts...),
		Tokens:             tokens,
		Logger:             logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info(ctx, "server configured",
		"port", port,
		"revocation", cfg.Redis.Addr != "",
		"mq_backend", cfg.MQ.Backend,
	)
	return s, nil
}

// NewRouter mounts middleware and every API route on a fresh chi router.
func NewRouter(cfg config.Config, d Deps) *chi.Mux {
	authMiddleware := handlers.RequireAuth(d.Tokens, d.Logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(requestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, d.UserService, authMiddleware, d.Logger)
		r.Route("/restaurants", func(r chi.Router) {
			handlers.RestaurantRouter(r, d.RestaurantService, authMiddleware, d.Logger)
		})
		r.Route("/reservations", func(r chi.Router) {
			handlers.ReservationRouter(r, d.ReservationService, authMiddleware, d.Logger)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database, redis and
// broker connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.logger.Warn(context.Background(), "close mq", "error", err)
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

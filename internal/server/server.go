package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"feira-smart/internal/cart"
	"feira-smart/internal/checkout"
	"feira-smart/internal/config"
	"feira-smart/internal/database"
	custommiddleware "feira-smart/internal/middleware"
	"feira-smart/internal/repository"
	"feira-smart/internal/service"
	"feira-smart/internal/storage"
	"feira-smart/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// Redis key prefixes of the two rate limit budgets
const (
	IPRateLimitPrefix   = "rate_limit"
	UserRateLimitPrefix = "rate_limit_user"
)

// NewServer wires repositories, services and handlers into the HTTP router.
// images may be nil, which disables uploads.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, images storage.ImageStore) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	if cfg.RateLimit.Enabled {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         IPRateLimitPrefix,
			SkipPaths:         []string{"/health"},
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", healthHandler(db, redisClient))

	// Initialize repositories
	sqlDB := db.DB()
	timeout := repository.WithQueryTimeout(cfg.Database.QueryTimeout)
	userRepo := repository.NewUserRepository(sqlDB, timeout)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB, timeout)
	marketRepo := repository.NewMarketRepository(sqlDB, timeout)
	vendorRepo := repository.NewVendorRepository(sqlDB, timeout)
	productRepo := repository.NewProductRepository(sqlDB, timeout)
	orderRepo := repository.NewOrderRepository(sqlDB, timeout)

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret,
		service.WithTokenExpiry(
			time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
			time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
		),
	)
	marketService := service.NewMarketService(marketRepo)
	vendorService := service.NewVendorService(vendorRepo, marketRepo, productRepo, orderRepo)
	productService := service.NewProductService(productRepo, vendorRepo)
	orderService := service.NewOrderService(orderRepo, vendorRepo, productRepo)

	cartStore := cart.NewRedisStore(redisClient, cfg.Cart.TTL)
	cartService := cart.NewService(cartStore, productRepo, vendorRepo)
	coordinator := checkout.NewCoordinator(cartStore, logger, checkout.WithCompensation(cfg.Checkout.Compensate))

	// Create auth middleware. Authenticated routes get a second, per-user
	// budget on top of the per-IP one, counted once the caller is known.
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	if cfg.RateLimit.Enabled {
		authenticate := authMiddleware
		perUser := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         UserRateLimitPrefix,
		}, logger)
		authMiddleware = func(next http.Handler) http.Handler {
			return authenticate(perUser(next))
		}
	}
	adminMiddleware := custommiddleware.RequireAPIKey(cfg.Admin.APIKey, logger)

	// Register routes
	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewMarketHandler(marketService, logger).RegisterRoutes(router, adminMiddleware)
	transport.NewVendorHandler(vendorService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCartHandler(cartService, coordinator, orderService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewUploadHandler(images, logger).RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

// healthHandler reports liveness with database and Redis checks
func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok"}

		dbHealth := db.Health()
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			body["redis"] = "down"
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		} else {
			body["redis"] = "up"
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

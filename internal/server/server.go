package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/mail"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        *sql.DB
	redis     *redis.Client
	publisher events.Publisher
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSAllowedOrigins, cfg.Server.Env != "production"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware())
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	if redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 300,
			Window:            time.Minute,
			KeyPrefix:         "rl",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus scrape endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)

	// Initialize outbound adapters
	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:      cfg.Mail.Host,
		Port:      strconv.Itoa(cfg.Mail.Port),
		Username:  cfg.Mail.Username,
		Password:  cfg.Mail.Password,
		FromName:  cfg.Mail.FromName,
		ClientURL: cfg.Mail.ClientURL,
	}, logger)
	publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	gateway := payment.NewGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	phoneVerifier := service.NewHTTPPhoneVerifier(cfg.Auth.PhoneVerifyURL)

	strategy := service.VerificationStrategy(cfg.Auth.Verification)
	var transition service.TransitionPolicy = service.PermissiveTransitions{}
	if cfg.Orders.StrictTransitions {
		transition = service.StrictTransitions{}
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, mailer, phoneVerifier, strategy, cfg.JWT.Secret, logger)
	userService := service.NewUserService(userRepo, productRepo, wishlistRepo)
	catalogService := service.NewCatalogService(productRepo, redisClient, logger)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, userRepo, gateway, publisher, mailer, transition, logger)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authService, logger)
	userHandler := transport.NewUserHandler(userService, cartService, logger)
	productHandler := transport.NewProductHandler(catalogService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	pdfHandler := transport.NewPDFHandler(orderService, logger)
	uploadHandler, err := transport.NewUploadHandler(cfg.Upload.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	// Register routes
	authHandler.RegisterRoutes(router)
	userHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	orderHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	pdfHandler.RegisterRoutes(router, authMiddleware)
	uploadHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

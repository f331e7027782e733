package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	authpg "github.com/Dhia9030/CarRental-sub000/internal/auth/postgres"
	"github.com/Dhia9030/CarRental-sub000/internal/booking"
	bookingpg "github.com/Dhia9030/CarRental-sub000/internal/booking/postgres"
	"github.com/Dhia9030/CarRental-sub000/internal/chat"
	chatpg "github.com/Dhia9030/CarRental-sub000/internal/chat/postgres"
	"github.com/Dhia9030/CarRental-sub000/internal/core/events"
	"github.com/Dhia9030/CarRental-sub000/internal/payment"
	paymentpg "github.com/Dhia9030/CarRental-sub000/internal/payment/postgres"
	"github.com/Dhia9030/CarRental-sub000/internal/realtime"
	"github.com/Dhia9030/CarRental-sub000/internal/refund"
	refundpg "github.com/Dhia9030/CarRental-sub000/internal/refund/postgres"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
	"github.com/Dhia9030/CarRental-sub000/internal/transport/rest"
	"github.com/Dhia9030/CarRental-sub000/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Redis    *redis.Client
	Router   *chi.Mux
	Handlers rest.Handlers
	Hub      *realtime.Hub
	EventBus *events.EventBus
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	deps.Hub.Start(hubCtx, deps.EventBus)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if deps.Redis != nil {
			if err := deps.Redis.Close(); err != nil {
				deps.Logger.Error("redis close error", "error", err)
			}
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm shares the pgx connection pool sqlx opened.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, realtime degraded to single instance", "error", err)
			redisClient = nil
		}
	}

	eventBus := events.NewEventBus(log)
	base := transport.NewBaseHandler(log)

	// Repositories
	authRepo := authpg.NewAuthRepository(gormDB)
	bookingRepo := bookingpg.NewBookingRepository(gormDB)
	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	refundRepo := refundpg.NewRefundRepository(gormDB)
	chatRepo := chatpg.NewChatRepository(gormDB)

	// Services
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen)

	processor := payment.NewMockProcessor(log)
	paymentService := payment.NewService(paymentRepo, processor, config.Payment.Currency, log)
	orchestrator := payment.NewOrchestrator(paymentService, processor, bookingRepo, eventBus, config.Payment.SecurityDepositPct, log)
	refundService := refund.NewService(refundRepo, paymentService, bookingRepo, eventBus, log)
	bookingService := booking.NewService(bookingRepo, log)

	hub := realtime.NewHub(redisClient, log)

	handlers := rest.Handlers{
		Auth:        auth.NewHandler(base, authService),
		AuthMW:      auth.NewMiddleware(authService),
		Booking:     booking.NewHandler(base, bookingService),
		Payment:     payment.NewHandler(base, paymentService, orchestrator),
		Integration: payment.NewIntegrationHandler(base, orchestrator),
		Webhook:     payment.NewWebhookHandler(base, paymentService, orchestrator),
		Refund:      refund.NewHandler(base, refundService),
		Realtime:    realtime.NewHandler(base, hub),
		Chat:        chat.NewGateway(base, chatRepo, bookingRepo, redisClient, log),
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Redis:    redisClient,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Hub:      hub,
		EventBus: eventBus,
		Logger:   log,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/exxpenses/exxpenses/docs" // Swagger docs (generated)
	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/billing"
	"github.com/exxpenses/exxpenses/internal/category"
	"github.com/exxpenses/exxpenses/internal/config"
	"github.com/exxpenses/exxpenses/internal/database"
	"github.com/exxpenses/exxpenses/internal/email"
	"github.com/exxpenses/exxpenses/internal/expense"
	httpServer "github.com/exxpenses/exxpenses/internal/http"
	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/token"
	"github.com/exxpenses/exxpenses/internal/user"
)

// @title           Exxpenses API
// @version         1.0
// @description     Expense tracking REST API with multi-currency aggregation and subscription billing.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Bootstrap(context.Background(), db); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize PASETO service
	pasetoService, err := auth.NewPasetoService(cfg.Auth.PasetoKey)
	if err != nil {
		return fmt.Errorf("failed to initialize PASETO service: %w", err)
	}

	// Initialize email service
	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	// Initialize user domain
	userRepo := user.NewRepository(db)
	userService := user.NewService(
		userRepo,
		token.NewVerificationIssuer(redisClient),
		token.NewRecoveryIssuer(redisClient),
		emailService,
		logger,
	)
	userHandler := user.NewHandler(
		userService,
		pasetoService,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Auth.AccessTokenDuration,
	)

	// Initialize category and expense domains
	categoryService := category.NewService(category.NewRepository(db))
	expenseService := expense.NewService(expense.NewRepository(db))

	// Initialize billing domain
	stripeGateway, err := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.PriceMap)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}
	billingRepo := billing.NewRepository(db)
	billingService := billing.NewService(billingRepo, stripeGateway)
	reconciler := billing.NewReconciler(billingRepo, logger)
	webhookHandler := billing.NewWebhookHandler(cfg.Stripe.WebhookSecret, reconciler, stripeGateway, logger)

	authMiddleware := auth.NewMiddleware(pasetoService)

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		User:    userHandler,
		Categ:   category.NewHandler(categoryService),
		Expense: expense.NewHandler(expenseService),
		Billing: billing.NewHandler(billingService),
		Webhook: webhookHandler,
	}, authMiddleware, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

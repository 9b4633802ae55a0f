package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/eaglebank/assistant/internal/assistant"
	"github.com/eaglebank/assistant/internal/command"
	"github.com/eaglebank/assistant/internal/config"
	"github.com/eaglebank/assistant/internal/events"
	"github.com/eaglebank/assistant/internal/gateway"
	"github.com/eaglebank/assistant/internal/handler"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/middleware"
	"github.com/eaglebank/assistant/internal/query"
	redisClient "github.com/eaglebank/assistant/internal/redis"
	"github.com/eaglebank/assistant/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// Database connection (ledger + transcript store)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Redis connection (account view cache + event streaming)
	redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redis.Close()

	gemini, err := gateway.NewGeminiGateway(ctx, gateway.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reasoning gateway")
	}
	resilience := gateway.DefaultResilienceOptions()
	resilience.Timeout = cfg.GatewayTimeout
	resilience.RetryBackoff = cfg.GatewayRetryBackoff
	reasoning := gateway.NewResilientGateway(gemini, resilience, log)

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	accountWriteRepo := repository.NewAccountWriteRepository(db)
	accountReadRepo := repository.NewAccountReadRepository(db, redis.Client, cfg.AccountCacheTTL)
	txnWriteRepo := repository.NewTransactionWriteRepository(db)
	txnReadRepo := repository.NewTransactionReadRepository(db)
	turnRepo := repository.NewTurnRepository(db)
	userRepo := repository.NewUserRepository(db)

	accountCmds := command.NewAccountCommandService(accountWriteRepo, accountReadRepo, publisher, command.TransferOptions{
		MaxAttempts:      cfg.TransferMaxAttempts,
		RetryBackoff:     50 * time.Millisecond,
		RecordStatements: cfg.RecordTransferStatements,
	})
	accountQrys := query.NewAccountQueryService(accountReadRepo)
	txnCmds := command.NewTransactionCommandService(txnWriteRepo, publisher)
	txnQrys := query.NewTransactionQueryService(txnReadRepo)
	transcriptCmds := command.NewTranscriptCommandService(turnRepo, publisher)
	transcriptQrys := query.NewTranscriptQueryService(turnRepo)
	authQrys := query.NewAuthQueryService(userRepo, []byte(cfg.JWTSecret))

	orchestrator := assistant.NewOrchestrator(reasoning, accountQrys, txnQrys, transcriptCmds)

	authHandler := handler.NewAuthHandler(authQrys)
	chatHandler := handler.NewChatHandler(orchestrator, transcriptQrys)
	accountHandler := handler.NewAccountHandler(accountCmds, accountQrys)
	txnHandler := handler.NewTransactionHandler(txnCmds, txnQrys)

	// Setup router
	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(log), middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/v1/auth/login", authHandler.Login)

	v1 := router.Group("/v1", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	{
		v1.POST("/chat", chatHandler.Chat)
		v1.GET("/chat/sessions/:sessionId", chatHandler.GetSession)

		v1.GET("/accounts", accountHandler.ListAccounts)
		v1.GET("/accounts/balance", accountHandler.GetBalance)
		v1.POST("/accounts/transfer", accountHandler.Transfer)

		v1.POST("/transactions", txnHandler.CreateTransaction)
		v1.GET("/transactions/user/:userId", txnHandler.ListForUser)
		v1.GET("/transactions/user/:userId/spending-by-category", txnHandler.SpendingByCategory)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	consumer, _ := os.Hostname()
	if consumer == "" {
		consumer = "assistant-1"
	}
	subscriber := events.NewSubscriber(redis.Client, log, events.SubscriberConfig{
		Group:    "assistant-account-views",
		Consumer: consumer,
		Stream:   events.AccountEventsStream,
		Handler:  accountCmds.HandleAccountEvent,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("assistant service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := subscriber.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-service/config"
	"shop-service/internal/api"
	"shop-service/internal/assets"
	"shop-service/internal/auth"
	"shop-service/internal/broker"
	"shop-service/internal/feed"
	"shop-service/internal/notify"
	"shop-service/internal/redisclient"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"
	"shop-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and event workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply the database schema before serving")
}

func runServe() error {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shop service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connected")

	if migrateOnStart {
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
		logger.Info("Schema applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ProductCacheTTL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	assetStore, err := assets.NewStore(cfg.Assets.CloudName, cfg.Assets.APIKey, cfg.Assets.APISecret, cfg.Assets.Folder)
	if err != nil {
		return err
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

	eventPublisher := broker.NewEventPublisher(producer)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authService := service.NewAuthService(db, tokens)
	catalogService := service.NewCatalogService(db, redisClient, assetStore, eventPublisher)
	cartService := service.NewCartService(db)
	orderService := service.NewOrderService(db, redisClient, eventPublisher)
	userService := service.NewUserService(db)

	hub := feed.NewHub(cfg.Server.AllowOrigins)
	defer hub.Close()

	mailer := notify.NewMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)
	if !mailer.Enabled() {
		logger.Info("SMTP_HOST not set, order receipts are disabled")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	eventConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup+"-cache")
	eventWorker := worker.NewEventWorker(eventConsumer, redisClient, assetStore)
	go func() {
		if err := eventWorker.Start(workerCtx); err != nil {
			logger.Error("Event worker error", zap.Error(err))
		}
	}()

	notifyConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup+"-notify")
	notificationWorker := worker.NewNotificationWorker(notifyConsumer, hub, mailer)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Dependencies{
		Auth:    authService,
		Catalog: catalogService,
		Carts:   cartService,
		Orders:  orderService,
		Users:   userService,
		Feed:    hub,
		Limiter: redisClient,
		Checks: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
		Policy: api.Policy{
			CatalogAdminOnly: cfg.Policy.CatalogAdminOnly,
			RateLimitWindow:  cfg.Auth.RateLimitWindow,
			RateLimitMax:     cfg.Auth.RateLimitMax,
			AllowOrigins:     cfg.Server.AllowOrigins,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := eventWorker.Stop(); err != nil {
		logger.Warn("Event worker stop", zap.Error(err))
	}
	if err := notificationWorker.Stop(); err != nil {
		logger.Warn("Notification worker stop", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

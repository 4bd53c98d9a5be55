package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wekeepgrowing/billing-gateway/internal/config"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/cache"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/billing-gateway/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/billing-gateway/internal/infrastructure/http"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/provider"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/resilience"
	"github.com/wekeepgrowing/billing-gateway/internal/usecase"
	"github.com/wekeepgrowing/billing-gateway/pkg/logger"
	"github.com/wekeepgrowing/billing-gateway/pkg/messaging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
		Service:     cfg.Service.Name,
		Fields: map[string]string{
			"version":     cfg.Service.Version,
			"environment": cfg.Service.Environment,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Redis is optional: without it entitlement changes are not broadcast and
	// the plan cache stays in process.
	var redisClient *redis.Client
	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.Redis.Addr != "" {
		redisClient, err = messaging.Dial(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		publisher = messaging.NewRedisPublisher(redisClient)
	} else {
		zapLogger.Warn("Redis not configured; entitlement events will not be published")
	}

	var planCache cache.PlanCache
	switch cfg.PlanCache.Backend {
	case config.CacheBackendRedis:
		planCache = cache.NewRedisPlanCache(redisClient, cfg.PlanCache.Key, cfg.PlanCache.TTL, cfg.PlanCache.StaleRetention, time.Now)
	default:
		planCache = cache.NewMemoryPlanCache(cfg.PlanCache.TTL, time.Now)
	}

	// Initialize the subscription provider
	gateway, err := provider.NewFactory(&cfg.Provider, zapLogger).GetGateway()
	if err != nil {
		zapLogger.Fatal("Failed to initialize provider", zap.Error(err))
	}

	// Initialize use cases
	executor := resilience.NewExecutor(zapLogger)
	gatewayService := usecase.NewGatewayService(gateway, executor, planCache, usecase.GatewayPolicies{
		Read:     resilience.PolicyFromConfig(cfg.Resilience.Read),
		Mutation: resilience.PolicyFromConfig(cfg.Resilience.Mutation),
	}, zapLogger)

	returnURL := cfg.Provider.ReturnURL
	if returnURL == "" {
		returnURL = cfg.Service.ClientURL
	}

	deps := httpServer.Dependencies{
		Gateway:       gatewayService,
		Checkout:      usecase.NewCheckoutService(gatewayService, repos.Customer, returnURL, zapLogger),
		Subscriptions: usecase.NewSubscriptionService(gatewayService, repos.Subscription, repos.Customer, repos.User, repos.Audit, zapLogger),
		Projector: usecase.NewWebhookProjector(repos.Subscription, repos.Customer, repos.User, repos.Audit, publisher,
			usecase.ProjectorOptions{
				EntitlementsChannel: cfg.Redis.EntitlementsChannel,
				RejectStaleEvents:   cfg.Webhook.RejectStaleEvents,
			}, zapLogger),
		Publisher: publisher,
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, deps)

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go watchDatabase(ctx, db, grpcSrv, zapLogger)

	zapLogger.Info("Billing gateway started",
		zap.String("provider", cfg.Provider.Type),
		zap.String("plan_cache", cfg.PlanCache.Backend),
		zap.String("environment", cfg.Service.Environment))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown servers
	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}

// watchDatabase keeps the gRPC health status in line with database reachability.
func watchDatabase(ctx context.Context, db *gorm.DB, srv *grpcServer.Server, zapLogger *zap.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := database.Ping(ctx, db)
			if ok := err == nil; ok != serving {
				serving = ok
				srv.SetServing(ok)
				if ok {
					zapLogger.Info("Database reachable again")
				} else {
					zapLogger.Error("Database unreachable, reporting NOT_SERVING", zap.Error(err))
				}
			}
		}
	}
}

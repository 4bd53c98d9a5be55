package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/wekeepgrowing/billing-gateway/internal/config"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/cache"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/provider"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/resilience"
	"github.com/wekeepgrowing/billing-gateway/internal/usecase"
	"github.com/wekeepgrowing/billing-gateway/pkg/logger"
	"github.com/wekeepgrowing/billing-gateway/pkg/messaging"
	"go.uber.org/zap"
)

// sync-plans fetches the provider catalogue, writes it to the shared plan
// cache and prints it. Run it after changing products at the provider.
func main() {
	asJSON := flag.Bool("json", false, "print the catalogue as JSON")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:   cfg.Log.Level,
		Format:  "console",
		Output:  "stderr",
		Service: "sync-plans",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	var planCache cache.PlanCache
	switch cfg.PlanCache.Backend {
	case config.CacheBackendRedis:
		client, err := messaging.Dial(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer client.Close()
		planCache = cache.NewRedisPlanCache(client, cfg.PlanCache.Key, cfg.PlanCache.TTL, cfg.PlanCache.StaleRetention, time.Now)
	default:
		zapLogger.Warn("Plan cache is in-process; the catalogue will only be printed")
		planCache = cache.NewMemoryPlanCache(cfg.PlanCache.TTL, time.Now)
	}

	gateway, err := provider.NewFactory(&cfg.Provider, zapLogger).GetGateway()
	if err != nil {
		zapLogger.Fatal("Failed to initialize provider", zap.Error(err))
	}

	svc := usecase.NewGatewayService(gateway, resilience.NewExecutor(zapLogger), planCache, usecase.GatewayPolicies{
		Read:     resilience.PolicyFromConfig(cfg.Resilience.Read),
		Mutation: resilience.PolicyFromConfig(cfg.Resilience.Mutation),
	}, zapLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	plans, err := svc.RefreshPlans(ctx)
	if err != nil {
		zapLogger.Fatal("Failed to sync plans", zap.String("provider", cfg.Provider.Type), zap.Error(err))
	}

	zapLogger.Info("Plan catalogue synced",
		zap.String("provider", cfg.Provider.Type),
		zap.Int("plans", len(plans)))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(plans); err != nil {
			zapLogger.Fatal("Failed to encode plans", zap.Error(err))
		}
		return
	}
	printPlans(plans)
}

func printPlans(plans []entity.Plan) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tINTERVAL\tRECURRING")
	for _, p := range plans {
		interval := p.BillingInterval
		if p.IntervalCount > 1 {
			interval = fmt.Sprintf("%d %s", p.IntervalCount, interval)
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%t\n",
			p.ID, p.Name, p.DisplayPrice.StringFixed(2), p.Currency, interval, p.Recurring)
	}
	w.Flush()
}

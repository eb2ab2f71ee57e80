package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/creditkit/pkg/billing"
	"github.com/dmitrymomot/creditkit/pkg/config"
	"github.com/dmitrymomot/creditkit/pkg/httpserver"
	"github.com/dmitrymomot/creditkit/pkg/idempotency"
	"github.com/dmitrymomot/creditkit/pkg/ledger"
	"github.com/dmitrymomot/creditkit/pkg/lock"
	"github.com/dmitrymomot/creditkit/pkg/logger"
	"github.com/dmitrymomot/creditkit/pkg/mongo"
	"github.com/dmitrymomot/creditkit/pkg/redis"
	"github.com/dmitrymomot/creditkit/pkg/subscription"
)

type appConfig struct {
	ServiceName          string        `env:"SERVICE_NAME" envDefault:"creditd"`
	Environment          string        `env:"ENVIRONMENT" envDefault:"development"`
	MongoDatabase        string        `env:"MONGODB_DATABASE" envDefault:"creditkit"`
	PlansFile            string        `env:"PLANS_FILE" envDefault:"plans.yaml"`
	DefaultOperationCost int64         `env:"DEFAULT_OPERATION_COST" envDefault:"1"`
	BalanceCacheTTL      time.Duration `env:"BALANCE_CACHE_TTL" envDefault:"30s"`
}

func main() {
	ctx := context.Background()

	var (
		appCfg    appConfig
		redisCfg  redis.Config
		mongoCfg  mongo.Config
		httpCfg   httpserver.Config
		paddleCfg billing.PaddleConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&paddleCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName))
	logger.SetAsDefault(log)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Error("failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	mongoClient, err := mongo.New(ctx, mongoCfg)
	if err != nil {
		log.Error("failed to connect to mongo", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(appCfg.MongoDatabase)

	ledgerStore := ledger.NewMongoStore(db)
	if err := ledgerStore.EnsureIndexes(ctx); err != nil {
		log.Error("failed to ensure ledger indexes", logger.Error(err))
		os.Exit(1)
	}
	subStore := subscription.NewMongoStore(db)
	if err := subStore.EnsureIndexes(ctx); err != nil {
		log.Error("failed to ensure subscription indexes", logger.Error(err))
		os.Exit(1)
	}

	plans := subscription.NewFileSource(appCfg.PlansFile)
	catalog, err := plans.Load(ctx)
	if err != nil {
		log.Error("failed to load plan catalog", logger.Error(err))
		os.Exit(1)
	}
	if err := subscription.ValidatePlans(catalog); err != nil {
		log.Error("invalid plan catalog", logger.Error(err))
		os.Exit(1)
	}

	idem := idempotency.NewRedisStore(redisClient)
	locker := lock.NewRedisCoordinator(redisClient)

	credits := ledger.NewService(ledgerStore,
		ledger.WithIdempotencyStore(idem),
		ledger.WithBalanceCache(ledger.NewRedisBalanceCache(redisClient, appCfg.BalanceCacheTTL)),
		ledger.WithPricing(ledger.NewPricing(appCfg.DefaultOperationCost)),
		ledger.WithLogger(log),
	)

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		log.Error("failed to create paddle provider", logger.Error(err))
		os.Exit(1)
	}

	processor := billing.NewProcessor(idem, locker, billing.WithProcessorLogger(log))
	handlers := billing.NewEventHandlers(credits, subStore, plans, ledgerStore,
		billing.WithHandlersLogger(log))
	handlers.RegisterAll(processor)

	webhook := billing.NewWebhookHandler(provider, processor, log)

	r := chi.NewRouter()
	r.Get("/health/live", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(ctx, log,
		redis.Healthcheck(redisClient),
		mongo.Healthcheck(mongoClient),
	))
	r.Mount("/", webhook.Router())

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server started", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

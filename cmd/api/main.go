package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/store-management/internal/api/http"
	"github.com/spec-kit/store-management/internal/api/http/handlers"
	"github.com/spec-kit/store-management/internal/auth"
	"github.com/spec-kit/store-management/internal/cache"
	"github.com/spec-kit/store-management/internal/config"
	"github.com/spec-kit/store-management/internal/events"
	"github.com/spec-kit/store-management/internal/messaging"
	"github.com/spec-kit/store-management/internal/observability"
	"github.com/spec-kit/store-management/internal/persistence"
	"github.com/spec-kit/store-management/internal/repository"
	"github.com/spec-kit/store-management/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	redisConn := persistence.NewRedis(ctx, cfg.Redis, logger)
	var cacheClient *redis.Client
	if cfg.Cache.Enabled {
		cacheClient = redisConn.Client
	}
	productCache := cache.NewProductCache(cacheClient, cfg.Cache.Prefix, cfg.Cache.TTL, logger)

	var sender *messaging.JetStreamSender
	if cfg.Messaging.Enabled {
		sender, err = messaging.Connect(ctx, cfg.Messaging, logger)
		if err != nil {
			// events are best effort; the API keeps serving without a broker
			logger.Warn("messaging unavailable; events will be skipped", zap.Error(err))
			sender = nil
		}
	}
	publisher := events.NewBestEffortPublisher(events.PublisherConfig{
		Enabled:    cfg.Messaging.Enabled,
		Topic:      cfg.Messaging.Topic,
		AckTimeout: cfg.Messaging.AckTimeout,
	}, senderOrNil(sender), logger)

	productService := service.NewProductService(service.ProductDependencies{
		Store:     store,
		Cache:     productCache,
		Publisher: publisher,
		Logger:    logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store:      store,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})

	if cfg.Auth.BootstrapAdminEnabled() {
		if err := userService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
			logger.Fatal("failed to create bootstrap admin", zap.Error(err))
		}
	}

	authMiddleware := auth.NewAuthMiddleware(userService, auth.NewTokenVerifier(cfg.Auth.JWTSecret), cfg.App.Name)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, logger, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	checks := []handlers.DependencyCheck{{Name: "database", Pinger: store}}
	if redisConn.Client != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redisConn, Optional: true})
	}
	if sender != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "messaging", Pinger: sender, Optional: true})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		BasePath:       cfg.App.BasePath,
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Metrics:        handlers.NewMetricsHandler(metrics, productCache),
		Products:       handlers.NewProductsHandler(productService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("base_path", cfg.App.BasePath))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.App.ShutdownTimeout(), map[string]gfshutdown.Operation{
		cfg.App.Name: func(ctx context.Context) error {
			logger.Info("shutting down")
			if err := app.ShutdownWithContext(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
			if err := publisher.Close(ctx); err != nil {
				logger.Warn("pending event acknowledgements abandoned", zap.Error(err))
			}
			if sender != nil {
				if err := sender.Close(); err != nil {
					logger.Warn("nats drain", zap.Error(err))
				}
			}
			if err := redisConn.Close(); err != nil {
				logger.Warn("redis close", zap.Error(err))
			}
			return store.Close()
		},
	})

	exitCode := <-wait
	logger.Info("stopped", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.Storage.Driver == config.DriverPostgres {
		store, err := persistence.NewPostgresStore(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := persistence.NewGormSQLiteStore(ctx, cfg.SQLite, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("using sqlite store", zap.String("path", cfg.SQLite.Path))
	return store, nil
}

// senderOrNil keeps a nil *JetStreamSender from becoming a non-nil interface.
func senderOrNil(sender *messaging.JetStreamSender) events.Sender {
	if sender == nil {
		return nil
	}
	return sender
}

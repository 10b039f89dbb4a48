package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/user-center/internal/app"
	"github.com/sandeepkv93/user-center/internal/config"
	"github.com/sandeepkv93/user-center/internal/database"
	"github.com/sandeepkv93/user-center/internal/health"
	"github.com/sandeepkv93/user-center/internal/http/handler"
	"github.com/sandeepkv93/user-center/internal/http/middleware"
	"github.com/sandeepkv93/user-center/internal/http/router"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"
	"github.com/sandeepkv93/user-center/internal/service"
	"github.com/sandeepkv93/user-center/internal/web"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
	provideHTTPMetrics,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideSetupReport,
	provideRedisClient,
	provideAvatarStorage,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(repository.NewUserRepository)

var ServiceSet = wire.NewSet(
	provideQueryCacheStore,
	provideUserService,
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	provideAvatarService,
)

var HTTPSet = wire.NewSet(
	handler.NewUserHandler,
	provideAvatarHandler,
	providePages,
	provideAPIRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideHTTPMetrics(cfg *config.Config) *observability.HTTPMetrics {
	if !cfg.PrometheusEnabled {
		return nil
	}
	return observability.NewHTTPMetrics()
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(context.Background(), cfg)
}

// provideSetupReport runs the idempotent schema and seed setup once per
// process, before any handler can reach the database.
func provideSetupReport(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*database.SetupReport, error) {
	report, err := database.Initialize(context.Background(), db, database.SetupOptions{SeedDemoUsers: cfg.SeedDemoUsers})
	if err != nil {
		return nil, err
	}
	logger.Info("application setup complete", "version", report.Version, "noop", report.Noop, "duration", report.Duration)
	return report, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisRequired() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideAvatarStorage(cfg *config.Config) (*service.MinIOStorageService, error) {
	if !cfg.StorageEnabled {
		return nil, nil
	}
	return service.NewMinIOStorageService(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, storage *service.MinIOStorageService) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db), health.NewRedisChecker(redisClient)}
	if storage != nil {
		checkers = append(checkers, health.NewStorageChecker(storage.Client(), storage.Bucket()))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

// provideQueryCacheStore returns nil when the paged query cache is off.
func provideQueryCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.QueryCacheStore {
	switch {
	case !cfg.UserQueryCacheEnabled:
		return nil
	case cfg.UserQueryCacheRedisEnabled && redisClient != nil:
		return service.NewRedisQueryCacheStore(redisClient, cfg.UserQueryCacheRedisPrefix)
	default:
		return service.NewInMemoryQueryCacheStore()
	}
}

func provideUserService(users repository.UserRepository, cache service.QueryCacheStore, cfg *config.Config) *service.UserService {
	svc := service.NewUserService(users)
	if cache != nil {
		svc.WithQueryCache(cache, cfg.UserQueryCacheTTL)
	}
	return svc
}

// provideAvatarService returns a nil interface when storage is disabled so
// the avatar routes are left out of the route table.
func provideAvatarService(users repository.UserRepository, storage *service.MinIOStorageService, cache service.QueryCacheStore) service.AvatarServiceInterface {
	if storage == nil {
		return nil
	}
	svc := service.NewAvatarService(users, storage)
	if cache != nil {
		svc.WithQueryCache(cache)
	}
	return svc
}

func provideAvatarHandler(avatarSvc service.AvatarServiceInterface) *handler.AvatarHandler {
	if avatarSvc == nil {
		return nil
	}
	return handler.NewAvatarHandler(avatarSvc)
}

func providePages(logger *slog.Logger, avatarSvc service.AvatarServiceInterface) (*web.Pages, error) {
	return web.NewPages(logger, avatarSvc != nil)
}

func provideAPIRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) *middleware.RateLimiter {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		return middleware.NewDistributedRateLimiter(
			middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api"),
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailureMode(cfg.RateLimitOutagePolicy),
			"api",
		)
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute)
}

func provideRouterDependencies(
	userHandler *handler.UserHandler,
	avatarHandler *handler.AvatarHandler,
	pages *web.Pages,
	apiLimiter *middleware.RateLimiter,
	readiness *health.ProbeRunner,
	metrics *observability.HTTPMetrics,
	cfg *config.Config,
) router.Dependencies {
	dep := router.Dependencies{
		UserHandler:     userHandler,
		AvatarHandler:   avatarHandler,
		Pages:           pages,
		Readiness:       readiness,
		HTTPMetrics:     metrics,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		BodyLimitBytes:  cfg.HTTPBodyLimitBytes,
		APIRateLimitRPM: cfg.APIRateLimitPerMin,
		EnableOTelHTTP:  cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
	if apiLimiter != nil {
		dep.APIRateLimiter = apiLimiter.Middleware()
	}
	return dep
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	setup *database.SetupReport,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness, setup)
}

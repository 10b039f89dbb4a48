package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandeepkv93/user-center/internal/config"
	"github.com/sandeepkv93/user-center/internal/database"
	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/health"
	"github.com/sandeepkv93/user-center/internal/http/handler"
	"github.com/sandeepkv93/user-center/internal/http/router"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"
	"github.com/sandeepkv93/user-center/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDIUnitTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout != 10*time.Second || srv.WriteTimeout != 10*time.Second {
		t.Fatalf("unexpected read/write timeouts: %v %v", srv.ReadTimeout, srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second || srv.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("unexpected idle/header timeouts: %v %v", srv.IdleTimeout, srv.ReadHeaderTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		APIRateLimitPerMin: 100,
		HTTPBodyLimitBytes: 2048,
		OTELMetricsEnabled: true,
	}
	limiter := provideAPIRateLimiter(cfg, nil)
	dep := provideRouterDependencies(nil, nil, nil, limiter, nil, nil, cfg)
	if dep.APIRateLimitRPM != 100 || dep.BodyLimitBytes != 2048 {
		t.Fatalf("unexpected limits: %+v", dep)
	}
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if dep.APIRateLimiter == nil {
		t.Fatal("expected api rate limiter middleware")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
	_ = router.Dependencies(dep)
}

func TestProvideAPIRateLimiterEnforcesLimit(t *testing.T) {
	cfg := &config.Config{APIRateLimitPerMin: 1}
	mw := provideAPIRateLimiter(cfg, nil).Middleware()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i+1, want, rr.Code)
		}
	}
}

func TestProvideAPIRateLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		RateLimitRedisEnabled: true,
		RateLimitRedisPrefix:  "uc:rl",
		APIRateLimitPerMin:    1,
		RateLimitOutagePolicy: config.OutagePolicyFailClosed,
	}
	h := provideAPIRateLimiter(cfg, client).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", rr.Code)
	}
	if len(mr.Keys()) == 0 || !strings.HasPrefix(mr.Keys()[0], "uc:rl:api") {
		t.Fatalf("expected limiter key under uc:rl:api, got %v", mr.Keys())
	}
}

func TestProvideAPIRateLimiterRedisOutagePolicy(t *testing.T) {
	cases := map[string]int{
		config.OutagePolicyFailClosed: http.StatusTooManyRequests,
		config.OutagePolicyFailOpen:   http.StatusOK,
	}
	for policy, want := range cases {
		cfg := &config.Config{
			RateLimitRedisEnabled: true,
			RateLimitRedisPrefix:  "rl",
			APIRateLimitPerMin:    5,
			RateLimitOutagePolicy: policy,
		}
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		h := provideAPIRateLimiter(cfg, client).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		_ = client.Close()
		if rr.Code != want {
			t.Fatalf("%s: expected %d when redis unavailable, got %d", policy, want, rr.Code)
		}
	}
}

func TestProvideRedisClient(t *testing.T) {
	cfg := &config.Config{RateLimitRedisEnabled: false, RedisAddr: "localhost:6379"}
	if client := provideRedisClient(cfg, discardLogger()); client != nil {
		t.Fatal("expected nil redis client when the redis limiter is disabled")
	}

	cfg.RateLimitRedisEnabled = true
	cfg.RedisPassword = "secret"
	cfg.RedisDB = 2
	client := provideRedisClient(cfg, discardLogger())
	if client == nil {
		t.Fatal("expected redis client")
	}
	t.Cleanup(func() { _ = client.Close() })
	opts := client.(*redis.Client).Options()
	if opts.Addr != "localhost:6379" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected redis options: %+v", opts)
	}
}

func TestProvideRedisClientForQueryCache(t *testing.T) {
	cfg := &config.Config{UserQueryCacheEnabled: true, UserQueryCacheRedisEnabled: true, RedisAddr: "localhost:6379"}
	client := provideRedisClient(cfg, discardLogger())
	if client == nil {
		t.Fatal("expected redis client for the redis-backed query cache")
	}
	_ = client.Close()
}

func TestProvideQueryCacheStore(t *testing.T) {
	if store := provideQueryCacheStore(&config.Config{}, nil); store != nil {
		t.Fatalf("expected no cache when disabled, got %T", store)
	}
	if _, ok := provideQueryCacheStore(&config.Config{UserQueryCacheEnabled: true}, nil).(*service.InMemoryQueryCacheStore); !ok {
		t.Fatal("expected in-memory cache by default")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := &config.Config{UserQueryCacheEnabled: true, UserQueryCacheRedisEnabled: true, UserQueryCacheRedisPrefix: "t:q"}
	if _, ok := provideQueryCacheStore(cfg, client).(*service.RedisQueryCacheStore); !ok {
		t.Fatal("expected redis cache when enabled with a client")
	}
}

func TestProvideUserServiceCachesQueries(t *testing.T) {
	db := newDIUnitTestDB(t)
	if _, err := database.Initialize(context.Background(), db, database.SetupOptions{SkipSeed: true}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	users := repository.NewUserRepository(db)
	cfg := &config.Config{UserQueryCacheEnabled: true, UserQueryCacheTTL: time.Minute}
	svc := provideUserService(users, provideQueryCacheStore(cfg, nil), cfg)
	ctx := context.Background()
	q := repository.UserQuery{PageRequest: repository.PageRequest{Page: 1, PageSize: 10}}

	if page, err := svc.Query(ctx, q); err != nil || page.Total != 0 {
		t.Fatalf("first query: %+v %v", page, err)
	}
	if err := users.Create(ctx, &domain.User{Name: "direct", Email: "direct@example.com"}); err != nil {
		t.Fatalf("create behind the service: %v", err)
	}
	if page, _ := svc.Query(ctx, q); page.Total != 0 {
		t.Fatalf("expected cached page, got total %d", page.Total)
	}
	if _, err := svc.Create(ctx, service.CreateUserInput{Name: "via service", Email: "svc@example.com"}); err != nil {
		t.Fatalf("create via service: %v", err)
	}
	if page, _ := svc.Query(ctx, q); page.Total != 2 {
		t.Fatalf("expected fresh page after write, got total %d", page.Total)
	}
}

func TestProvideAvatarWiringDisabledWithoutStorage(t *testing.T) {
	storage, err := provideAvatarStorage(&config.Config{StorageEnabled: false})
	if err != nil || storage != nil {
		t.Fatalf("expected no storage when disabled, got %v %v", storage, err)
	}
	svc := provideAvatarService(nil, nil, nil)
	if svc != nil {
		t.Fatal("expected nil avatar service interface without storage")
	}
	if h := provideAvatarHandler(svc); h != nil {
		t.Fatal("expected nil avatar handler without storage")
	}
}

func TestProvideAvatarWiringEnabled(t *testing.T) {
	cfg := &config.Config{
		StorageEnabled: true,
		MinIOEndpoint:  "localhost:9000",
		MinIOAccessKey: "key",
		MinIOSecretKey: "secret",
		MinIOBucket:    "avatars",
	}
	storage, err := provideAvatarStorage(cfg)
	if err != nil || storage == nil {
		t.Fatalf("expected storage, got %v %v", storage, err)
	}
	if storage.Bucket() != "avatars" {
		t.Fatalf("unexpected bucket %q", storage.Bucket())
	}
	svc := provideAvatarService(nil, storage, nil)
	if svc == nil || provideAvatarHandler(svc) == nil {
		t.Fatal("expected avatar service and handler when storage is enabled")
	}
	pages, err := providePages(discardLogger(), svc)
	if err != nil || pages == nil {
		t.Fatalf("expected pages, got %v", err)
	}
}

func TestProvideHTTPMetricsFollowsConfig(t *testing.T) {
	if m := provideHTTPMetrics(&config.Config{PrometheusEnabled: false}); m != nil {
		t.Fatal("expected nil metrics when prometheus is disabled")
	}
	if m := provideHTTPMetrics(&config.Config{PrometheusEnabled: true}); m == nil {
		t.Fatal("expected metrics when prometheus is enabled")
	}
}

func TestProvideSetupReportIsIdempotent(t *testing.T) {
	db := newDIUnitTestDB(t)
	cfg := &config.Config{}

	first, err := provideSetupReport(cfg, db, discardLogger())
	if err != nil {
		t.Fatalf("first setup: %v", err)
	}
	if first.Noop {
		t.Fatal("expected first setup to write seed data")
	}
	second, err := provideSetupReport(cfg, db, discardLogger())
	if err != nil {
		t.Fatalf("second setup: %v", err)
	}
	if !second.Noop {
		t.Fatalf("expected second setup to be a noop, got %+v", second)
	}
}

func TestProvideReadinessProbeRunner(t *testing.T) {
	db := newDIUnitTestDB(t)
	cfg := &config.Config{ReadinessProbeTimeout: time.Second}
	runner := provideReadinessProbeRunner(cfg, db, nil, nil)

	ok, results := runner.Ready(context.Background())
	if !ok {
		t.Fatalf("expected ready, got %+v", results)
	}
	if len(results) != 1 || results[0].Name != "db" {
		t.Fatalf("expected only the db check, got %+v", results)
	}
}

func TestAssembledRouterServesUsers(t *testing.T) {
	db := newDIUnitTestDB(t)
	cfg := &config.Config{
		APIRateLimitPerMin: 100,
		HTTPBodyLimitBytes: 1 << 20,
		CORSAllowedOrigins: []string{"http://localhost:8080"},
		PrometheusEnabled:  true,
	}
	if _, err := provideSetupReport(cfg, db, discardLogger()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	users := repository.NewUserRepository(db)
	pages, err := providePages(discardLogger(), nil)
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	dep := provideRouterDependencies(
		handler.NewUserHandler(service.NewUserService(users)),
		nil,
		pages,
		provideAPIRateLimiter(cfg, nil),
		health.NewProbeRunner(time.Second, 0, health.NewDBChecker(db)),
		provideHTTPMetrics(cfg),
		cfg,
	)
	h := router.NewRouter(dep)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"Ann","email":"ann@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rr.Code)
	}
}

func TestProvideApp(t *testing.T) {
	cfg := &config.Config{HTTPPort: "8080", ShutdownTimeout: 20 * time.Second, ShutdownHTTPDrainTimeout: 10 * time.Second}
	logger := discardLogger()
	srv := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}
	runtime := &observability.Runtime{}
	setup := &database.SetupReport{Version: database.AppVersion}

	app := provideApp(cfg, logger, srv, runtime, nil, nil, nil, setup)
	if app == nil {
		t.Fatal("expected app")
	}
	if app.Config != cfg || app.Logger != logger || app.Server != srv || app.Observability != runtime || app.Setup != setup {
		t.Fatal("app dependencies not wired as expected")
	}
	if app.ShutdownTimeout != 20*time.Second || app.ShutdownHTTPDrainTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown budget: %v %v", app.ShutdownTimeout, app.ShutdownHTTPDrainTimeout)
	}
}

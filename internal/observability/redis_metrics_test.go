package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRedisMetricsHookCountsCommands(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	hook, err := newRedisMetricsHook(provider.Meter("redis-test"), client.PoolStats)
	if err != nil {
		t.Fatalf("new redis hook: %v", err)
	}
	client.AddHook(hook)

	if err := client.Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := client.Get(ctx, "missing").Err(); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
	if err := client.Do(ctx, "NOPE").Err(); err == nil {
		t.Fatal("expected unknown command error")
	}

	if got := hook.seen.Load(); got < 3 {
		t.Fatalf("expected at least 3 observed commands, got %d", got)
	}
	if got := hook.failed.Load(); got != 1 {
		t.Fatalf("expected 1 failed command, got %d", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
			if m.Name != "redis.command.errors" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("redis.command.errors: unexpected data %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				cmd, _ := dp.Attributes.Value("command")
				if cmd.AsString() != "nope" {
					t.Fatalf("unexpected error series for command %q", cmd.AsString())
				}
				if dp.Value != 1 {
					t.Fatalf("expected 1 nope error, got %d", dp.Value)
				}
			}
		}
	}
	for _, want := range []string{"redis.command.total", "redis.command.errors", "redis.command.duration", "redis.command.error_rate"} {
		if !names[want] {
			t.Fatalf("expected metric %s, got %v", want, names)
		}
	}
}

func TestRedisCommandStatus(t *testing.T) {
	if got := redisCommandStatus(nil); got != "success" {
		t.Fatalf("nil: got %s", got)
	}
	if got := redisCommandStatus(redis.Nil); got != "miss" {
		t.Fatalf("redis.Nil: got %s", got)
	}
	if got := redisCommandStatus(errors.New("boom")); got != "error" {
		t.Fatalf("boom: got %s", got)
	}
	if got := classifyRedisError(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("deadline: got %s", got)
	}
	if got := classifyRedisError(errors.New("dial tcp: connection refused")); got != "connection" {
		t.Fatalf("refused: got %s", got)
	}
}

func TestRedisMetricsHookSkipsConnectionHandshake(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	hook, err := newRedisMetricsHook(provider.Meter("redis-test"), func() *redis.PoolStats { return &redis.PoolStats{} })
	if err != nil {
		t.Fatalf("new redis hook: %v", err)
	}
	unknown := errors.New("ERR unknown subcommand 'MAINT_NOTIFICATIONS'")
	hook.observe(ctx, "hello", nil, time.Millisecond)
	hook.observe(ctx, "client", unknown, time.Millisecond)
	hook.observe(ctx, "get", unknown, time.Millisecond)

	if got := hook.seen.Load(); got != 1 {
		t.Fatalf("expected only get to be observed, got %d", got)
	}
	if got := hook.failed.Load(); got != 1 {
		t.Fatalf("expected 1 failed command, got %d", got)
	}
}

func TestInstrumentRedisClientNilIsNoop(t *testing.T) {
	InstrumentRedisClient(nil, nil)
}

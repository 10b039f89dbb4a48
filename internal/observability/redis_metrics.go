package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentRedisClient installs command and pool metrics on the rate limit
// client. A client that is already instrumented is left untouched.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, loaded := instrumentedClients.LoadOrStore(client, struct{}{}); loaded {
		return
	}
	hook, err := newRedisMetricsHook(otel.Meter(meterName), client.PoolStats)
	if err != nil {
		logger.Warn("redis instrumentation disabled", "error", err)
		return
	}
	client.AddHook(hook)
	logger.Info("redis instrumentation enabled")
}

var instrumentedClients sync.Map

type redisMetricsHook struct {
	cmdTotal   metric.Int64Counter
	cmdErrors  metric.Int64Counter
	cmdLatency metric.Float64Histogram

	seen   atomic.Int64
	failed atomic.Int64
}

func newRedisMetricsHook(meter metric.Meter, poolStats func() *redis.PoolStats) (*redisMetricsHook, error) {
	h := &redisMetricsHook{}
	var err error
	if h.cmdTotal, err = meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands issued by the service")); err != nil {
		return nil, err
	}
	if h.cmdErrors, err = meter.Int64Counter("redis.command.errors",
		metric.WithDescription("Redis commands that failed")); err != nil {
		return nil, err
	}
	if h.cmdLatency, err = meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds")); err != nil {
		return nil, err
	}

	saturation, err := meter.Float64ObservableGauge("redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Share of pooled connections in use"))
	if err != nil {
		return nil, err
	}
	errorRate, err := meter.Float64ObservableGauge("redis.command.error_rate",
		metric.WithUnit("1"),
		metric.WithDescription("Failed commands over total commands"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if poolStats != nil {
			if stats := poolStats(); stats != nil && stats.TotalConns > 0 {
				used := stats.TotalConns - stats.IdleConns
				o.ObserveFloat64(saturation, clampRatio(float64(used)/float64(stats.TotalConns)))
			}
		}
		if total := h.seen.Load(); total > 0 {
			o.ObserveFloat64(errorRate, clampRatio(float64(h.failed.Load())/float64(total)))
		}
		return nil
	}, saturation, errorRate)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, strings.ToLower(cmd.Name()), err, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)
		for _, cmd := range cmds {
			h.observe(ctx, strings.ToLower(cmd.Name()), cmd.Err(), elapsed)
		}
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, command string, err error, elapsed time.Duration) {
	if isConnectionInitCommand(command) {
		return
	}
	status := redisCommandStatus(err)
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	)
	h.seen.Add(1)
	h.cmdTotal.Add(ctx, 1, attrs)
	h.cmdLatency.Record(ctx, elapsed.Seconds(), attrs)
	if status == "error" {
		h.failed.Add(1)
		h.cmdErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("error_type", classifyRedisError(err)),
		))
	}
}

// isConnectionInitCommand reports commands the client issues on its own while
// setting up a pooled connection. Servers that lack newer handshake
// subcommands reject them, which is not an application failure.
func isConnectionInitCommand(command string) bool {
	switch command {
	case "hello", "client":
		return true
	default:
		return false
	}
}

func redisCommandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}

func classifyRedisError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "refused"):
		return "connection"
	case strings.HasPrefix(msg, "noscript"):
		return "noscript"
	default:
		return "other"
	}
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

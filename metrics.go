package inkwell

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Metrics holds the application's Prometheus collectors. Each App owns its
// own registry so several apps can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	ListingDuration *prometheus.HistogramVec
	ListingCache    *prometheus.CounterVec
	AIGenerations   *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec
	PostWrites      *prometheus.CounterVec
}

// NewMetrics registers the inkwell collectors plus Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ListingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inkwell_listing_duration_seconds",
			Help:    "Time to build one listing page, by outcome",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		ListingCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_listing_cache_total",
			Help: "Listing cache lookups by result",
		}, []string{"result"}),
		AIGenerations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_ai_generations_total",
			Help: "Content generation requests by task type and outcome",
		}, []string{"type", "outcome"}),
		RedisErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_redis_errors_total",
			Help: "Redis errors by command",
		}, []string{"operation"}),
		PostWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_post_writes_total",
			Help: "Post create, update and delete operations",
		}, []string{"operation"}),
	}
}

// redisMetricsHook counts failed redis commands, ignoring cache misses.
type redisMetricsHook struct {
	errors *prometheus.CounterVec
}

func (h redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			h.errors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			h.errors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

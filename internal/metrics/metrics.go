// Package metrics exposes pgvault's Prometheus collectors: shard pool
// gauges, backend connection counters, and frame/sequence throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for pgvault.
type Collector struct {
	Registry *prometheus.Registry

	connectionsActive  *prometheus.GaugeVec
	connectionsIdle    *prometheus.GaugeVec
	connectionsTotal   *prometheus.GaugeVec
	connectionsWaiting *prometheus.GaugeVec
	acquireDuration    *prometheus.HistogramVec
	poolExhausted      *prometheus.CounterVec
	shardHealth        *prometheus.GaugeVec

	backendResetsTotal *prometheus.CounterVec
	dirtyDisconnects   *prometheus.CounterVec
	sequencesTotal     *prometheus.CounterVec
	sequenceBytes      *prometheus.HistogramVec
	sequenceFrameCount *prometheus.HistogramVec
	parseCacheResults  *prometheus.CounterVec
	synthesizedParses  *prometheus.CounterVec
	adminCommandsTotal *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics using a custom
// registry. Safe to call multiple times (tests, or a process that rebuilds
// its metrics on config reload) since each call returns an independent
// registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		connectionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgvault_connections_active",
				Help: "Number of leased backend connections per shard",
			},
			[]string{"shard"},
		),
		connectionsIdle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgvault_connections_idle",
				Help: "Number of idle backend connections per shard",
			},
			[]string{"shard"},
		),
		connectionsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgvault_connections_total",
				Help: "Total backend connections open per shard",
			},
			[]string{"shard"},
		),
		connectionsWaiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgvault_connections_waiting",
				Help: "Number of client sequences waiting for a backend lease per shard",
			},
			[]string{"shard"},
		),
		acquireDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgvault_acquire_duration_seconds",
				Help:    "Time spent waiting for ShardPool.Acquire",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"shard"},
		),
		poolExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_pool_exhausted_total",
				Help: "Acquire calls that timed out waiting for a backend lease",
			},
			[]string{"shard"},
		),
		shardHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgvault_shard_health",
				Help: "Shard liveness as last observed (1=healthy, 0=unhealthy)",
			},
			[]string{"shard"},
		),
		backendResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_backend_resets_total",
				Help: "DISCARD ALL reset_session results on lease return",
			},
			[]string{"shard", "status"},
		),
		dirtyDisconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_dirty_disconnects_total",
				Help: "Client connections lost mid-sequence, discarding their lease",
			},
			[]string{"shard"},
		),
		sequencesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_sequences_total",
				Help: "Flushable frame sequences forwarded to a backend",
			},
			[]string{"shard", "stage"},
		),
		sequenceBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgvault_sequence_bytes",
				Help:    "Size in bytes of each flushed sequence",
				Buckets: prometheus.ExponentialBuckets(8, 2, 14),
			},
			[]string{"stage"},
		),
		sequenceFrameCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgvault_sequence_frame_count",
				Help:    "Number of frames in each flushed sequence",
				Buckets: prometheus.LinearBuckets(1, 1, 12),
			},
			[]string{"stage"},
		),
		parseCacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_parse_cache_results_total",
				Help: "Prepared-statement fingerprint cache hits and misses",
			},
			[]string{"result"},
		),
		synthesizedParses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_synthesized_parses_total",
				Help: "Parse frames injected ahead of a Bind referencing an unprepared statement",
			},
			[]string{"shard"},
		),
		adminCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgvault_admin_commands_total",
				Help: "Admin commands executed, by command",
			},
			[]string{"command"},
		),
	}

	reg.MustRegister(
		c.connectionsActive,
		c.connectionsIdle,
		c.connectionsTotal,
		c.connectionsWaiting,
		c.acquireDuration,
		c.poolExhausted,
		c.shardHealth,
		c.backendResetsTotal,
		c.dirtyDisconnects,
		c.sequencesTotal,
		c.sequenceBytes,
		c.sequenceFrameCount,
		c.parseCacheResults,
		c.synthesizedParses,
		c.adminCommandsTotal,
	)

	return c
}

// UpdatePoolStats updates the pool gauge metrics from a gatewaypool.Stats
// snapshot's fields.
func (c *Collector) UpdatePoolStats(shard string, idle, total, waiting, active int) {
	c.connectionsActive.WithLabelValues(shard).Set(float64(active))
	c.connectionsIdle.WithLabelValues(shard).Set(float64(idle))
	c.connectionsTotal.WithLabelValues(shard).Set(float64(total))
	c.connectionsWaiting.WithLabelValues(shard).Set(float64(waiting))
}

// AcquireDuration observes the time spent waiting for a lease.
func (c *Collector) AcquireDuration(shard string, d time.Duration) {
	c.acquireDuration.WithLabelValues(shard).Observe(d.Seconds())
}

// PoolExhausted increments the exhaustion counter for shard.
func (c *Collector) PoolExhausted(shard string) {
	c.poolExhausted.WithLabelValues(shard).Inc()
}

// SetShardHealth sets the health gauge for a shard.
func (c *Collector) SetShardHealth(shard string, healthy bool) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	c.shardHealth.WithLabelValues(shard).Set(val)
}

// BackendReset records a DISCARD ALL result.
func (c *Collector) BackendReset(shard string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.backendResetsTotal.WithLabelValues(shard, status).Inc()
}

// DirtyDisconnect increments the dirty disconnect counter for shard.
func (c *Collector) DirtyDisconnect(shard string) {
	c.dirtyDisconnects.WithLabelValues(shard).Inc()
}

// SequenceForwarded records one flushed sequence's size and frame count.
func (c *Collector) SequenceForwarded(shard, stage string, frameCount, byteLen int) {
	c.sequencesTotal.WithLabelValues(shard, stage).Inc()
	c.sequenceBytes.WithLabelValues(stage).Observe(float64(byteLen))
	c.sequenceFrameCount.WithLabelValues(stage).Observe(float64(frameCount))
}

// ParseCacheHit records a fingerprint cache hit.
func (c *Collector) ParseCacheHit() { c.parseCacheResults.WithLabelValues("hit").Inc() }

// ParseCacheMiss records a fingerprint cache miss.
func (c *Collector) ParseCacheMiss() { c.parseCacheResults.WithLabelValues("miss").Inc() }

// SynthesizedParse records a rewriter-injected Parse ahead of a Bind.
func (c *Collector) SynthesizedParse(shard string) {
	c.synthesizedParses.WithLabelValues(shard).Inc()
}

// AdminCommand records one executed admin command.
func (c *Collector) AdminCommand(command string) {
	c.adminCommandsTotal.WithLabelValues(command).Inc()
}

// RemoveShard removes all per-shard metrics for shard. Nothing in pgvault
// calls it: shards.yaml changes take effect only after a restart.
func (c *Collector) RemoveShard(shard string) {
	c.connectionsActive.DeleteLabelValues(shard)
	c.connectionsIdle.DeleteLabelValues(shard)
	c.connectionsTotal.DeleteLabelValues(shard)
	c.connectionsWaiting.DeleteLabelValues(shard)
	c.poolExhausted.DeleteLabelValues(shard)
	c.shardHealth.DeleteLabelValues(shard)
	c.dirtyDisconnects.DeleteLabelValues(shard)
	c.synthesizedParses.DeleteLabelValues(shard)
	c.backendResetsTotal.DeletePartialMatch(prometheus.Labels{"shard": shard})
	c.sequencesTotal.DeletePartialMatch(prometheus.Labels{"shard": shard})
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// newTestCollector creates a Collector registered with a fresh registry
// so tests don't conflict with each other or with the default registry.
func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	c := New()
	return c, c.Registry
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	g.Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	c.Write(m)
	return m.GetCounter().GetValue()
}

func TestUpdatePoolStatsAuthority(t *testing.T) {
	c, _ := newTestCollector(t)

	// UpdatePoolStats is the sole authority for connection gauges.
	c.UpdatePoolStats("shard0", 5, 8, 1, 3)

	val := getGaugeValue(c.connectionsActive.WithLabelValues("shard0"))
	if val != 3 {
		t.Errorf("expected active=3, got %v", val)
	}

	// A second call replaces (not increments) the value
	c.UpdatePoolStats("shard0", 4, 6, 0, 2)
	val = getGaugeValue(c.connectionsActive.WithLabelValues("shard0"))
	if val != 2 {
		t.Errorf("expected active=2 after update, got %v", val)
	}
}

func TestUpdatePoolStatsAllGauges(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("shard0", 10, 15, 2, 5)

	if v := getGaugeValue(c.connectionsActive.WithLabelValues("shard0")); v != 5 {
		t.Errorf("expected active=5, got %v", v)
	}
	if v := getGaugeValue(c.connectionsIdle.WithLabelValues("shard0")); v != 10 {
		t.Errorf("expected idle=10, got %v", v)
	}
	if v := getGaugeValue(c.connectionsTotal.WithLabelValues("shard0")); v != 15 {
		t.Errorf("expected total=15, got %v", v)
	}
	if v := getGaugeValue(c.connectionsWaiting.WithLabelValues("shard0")); v != 2 {
		t.Errorf("expected waiting=2, got %v", v)
	}
}

func TestSetShardHealth(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SetShardHealth("shard0", true)
	val := getGaugeValue(c.shardHealth.WithLabelValues("shard0"))
	if val != 1 {
		t.Errorf("expected health=1 (healthy), got %v", val)
	}

	c.SetShardHealth("shard0", false)
	val = getGaugeValue(c.shardHealth.WithLabelValues("shard0"))
	if val != 0 {
		t.Errorf("expected health=0 (unhealthy), got %v", val)
	}
}

func TestPoolExhausted(t *testing.T) {
	c, _ := newTestCollector(t)

	c.PoolExhausted("shard0")
	c.PoolExhausted("shard0")
	c.PoolExhausted("shard0")

	val := getCounterValue(c.poolExhausted.WithLabelValues("shard0"))
	if val != 3 {
		t.Errorf("expected exhausted=3, got %v", val)
	}
}

func TestAcquireDuration(t *testing.T) {
	c, reg := newTestCollector(t)

	c.AcquireDuration("shard0", 5*time.Millisecond)

	families, _ := reg.Gather()
	var found bool
	for _, f := range families {
		if f.GetName() == "pgvault_acquire_duration_seconds" {
			found = true
			m := f.GetMetric()
			if len(m) > 0 && m[0].GetHistogram().GetSampleCount() != 1 {
				t.Errorf("expected 1 acquire sample, got %d", m[0].GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("acquire duration metric not found")
	}
}

func TestBackendReset(t *testing.T) {
	c, _ := newTestCollector(t)

	c.BackendReset("shard0", true)
	c.BackendReset("shard0", true)
	c.BackendReset("shard0", false)

	successVal := getCounterValue(c.backendResetsTotal.WithLabelValues("shard0", "success"))
	if successVal != 2 {
		t.Errorf("expected reset success=2, got %v", successVal)
	}
	failVal := getCounterValue(c.backendResetsTotal.WithLabelValues("shard0", "failure"))
	if failVal != 1 {
		t.Errorf("expected reset failure=1, got %v", failVal)
	}
}

func TestDirtyDisconnect(t *testing.T) {
	c, _ := newTestCollector(t)

	c.DirtyDisconnect("shard0")
	c.DirtyDisconnect("shard0")

	val := getCounterValue(c.dirtyDisconnects.WithLabelValues("shard0"))
	if val != 2 {
		t.Errorf("expected dirty disconnects=2, got %v", val)
	}
}

func TestSequenceForwarded(t *testing.T) {
	c, reg := newTestCollector(t)

	c.SequenceForwarded("shard0", "ready", 3, 128)
	c.SequenceForwarded("shard0", "ready", 1, 16)

	val := getCounterValue(c.sequencesTotal.WithLabelValues("shard0", "ready"))
	if val != 2 {
		t.Errorf("expected sequences=2, got %v", val)
	}

	families, _ := reg.Gather()
	for _, f := range families {
		if f.GetName() == "pgvault_sequence_bytes" {
			m := f.GetMetric()
			if len(m) > 0 && m[0].GetHistogram().GetSampleCount() != 2 {
				t.Errorf("expected 2 byte samples, got %d", m[0].GetHistogram().GetSampleCount())
			}
		}
	}
}

func TestParseCacheResults(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ParseCacheHit()
	c.ParseCacheHit()
	c.ParseCacheMiss()

	if v := getCounterValue(c.parseCacheResults.WithLabelValues("hit")); v != 2 {
		t.Errorf("expected hits=2, got %v", v)
	}
	if v := getCounterValue(c.parseCacheResults.WithLabelValues("miss")); v != 1 {
		t.Errorf("expected misses=1, got %v", v)
	}
}

func TestSynthesizedParse(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SynthesizedParse("shard0")
	c.SynthesizedParse("shard0")

	val := getCounterValue(c.synthesizedParses.WithLabelValues("shard0"))
	if val != 2 {
		t.Errorf("expected synthesized parses=2, got %v", val)
	}
}

func TestAdminCommand(t *testing.T) {
	c, _ := newTestCollector(t)

	c.AdminCommand("SHOW POOLS")
	c.AdminCommand("SHOW POOLS")
	c.AdminCommand("RELOAD")

	if v := getCounterValue(c.adminCommandsTotal.WithLabelValues("SHOW POOLS")); v != 2 {
		t.Errorf("expected SHOW POOLS=2, got %v", v)
	}
	if v := getCounterValue(c.adminCommandsTotal.WithLabelValues("RELOAD")); v != 1 {
		t.Errorf("expected RELOAD=1, got %v", v)
	}
}

func TestRemoveShard(t *testing.T) {
	c, reg := newTestCollector(t)

	c.UpdatePoolStats("shard0", 1, 2, 0, 1)
	c.SetShardHealth("shard0", true)
	c.PoolExhausted("shard0")

	c.RemoveShard("shard0")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "shard" && l.GetValue() == "shard0" {
					t.Errorf("metric %s still has shard0 label after removal", f.GetName())
				}
			}
		}
	}
}

func TestMultipleShards(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("shard0", 0, 1, 0, 1)
	c.UpdatePoolStats("shard1", 1, 3, 0, 2)

	v1 := getGaugeValue(c.connectionsActive.WithLabelValues("shard0"))
	v2 := getGaugeValue(c.connectionsActive.WithLabelValues("shard1"))

	if v1 != 1 {
		t.Errorf("expected shard0 active=1, got %v", v1)
	}
	if v2 != 2 {
		t.Errorf("expected shard1 active=2, got %v", v2)
	}
}

func TestNewDoesNotPanicOnMultipleCalls(t *testing.T) {
	// Calling New() multiple times should not panic because each creates
	// its own registry instead of using the global default.
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("New() panicked on repeated calls: %v", r)
		}
	}()

	c1 := New()
	c2 := New()

	c1.UpdatePoolStats("shard0", 0, 1, 0, 1)
	c2.UpdatePoolStats("shard0", 0, 2, 0, 2)

	v1 := getGaugeValue(c1.connectionsActive.WithLabelValues("shard0"))
	v2 := getGaugeValue(c2.connectionsActive.WithLabelValues("shard0"))

	if v1 != 1 {
		t.Errorf("c1 expected active=1, got %v", v1)
	}
	if v2 != 2 {
		t.Errorf("c2 expected active=2, got %v", v2)
	}
}

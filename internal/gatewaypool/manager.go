package gatewaypool

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// Pools manages one ShardPool per configured shard and implements random
// shard selection for requests not pinned to a specific shard.
type Pools struct {
	mu    sync.RWMutex
	pools map[string]*ShardPool
	names []string
}

// NewPools builds a pool manager with one ShardPool per entry in cfgs.
func NewPools(cfgs []ShardConfig) *Pools {
	m := &Pools{pools: make(map[string]*ShardPool, len(cfgs)), names: make([]string, 0, len(cfgs))}
	for _, cfg := range cfgs {
		m.pools[cfg.Name] = NewShardPool(cfg)
		m.names = append(m.names, cfg.Name)
	}
	return m
}

// Get returns the named shard's pool.
func (m *Pools) Get(shard string) (*ShardPool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[shard]
	return p, ok
}

// RandomShard picks a shard name uniformly at random among configured
// shards, for clients whose routing doesn't pin a specific one.
func (m *Pools) RandomShard() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.names) == 0 {
		return "", false
	}
	return m.names[rand.Intn(len(m.names))], true
}

// Names returns the configured shard names, in the stable order they were
// registered in.
func (m *Pools) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Acquire leases a connection from the named shard.
func (m *Pools) Acquire(ctx context.Context, shard string) (*Lease, error) {
	p, ok := m.Get(shard)
	if !ok {
		return nil, fmt.Errorf("unknown shard %q", shard)
	}
	return p.Acquire(ctx)
}

// AllStats reports occupancy across every shard.
func (m *Pools) AllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stats, 0, len(m.pools))
	for _, name := range m.names {
		out = append(out, m.pools[name].Stats())
	}
	return out
}

// Close shuts down every shard pool.
func (m *Pools) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pools {
		p.Close()
	}
}

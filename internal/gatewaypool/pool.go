// Package gatewaypool manages pooled backend connections per shard: an
// idle FIFO bounded by a per-shard connection cap, callers blocked on
// acquire woken through a condition variable, warm-up of a minimum number
// of connections at startup, and idle reaping.
package gatewaypool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pgvault/pgvault/internal/backend"
)

// ShardConfig describes one shard's backend and this gateway's pooling
// policy toward it.
type ShardConfig struct {
	Name     string
	Host     string
	Port     int
	Username string
	Password string
	Database string

	WarmMin        int
	MaxConns       int
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
	AcquireTimeout time.Duration
	DialTimeout    time.Duration
}

func (sc ShardConfig) addr() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

func (sc ShardConfig) credentials() backend.Credentials {
	return backend.Credentials{Username: sc.Username, Password: sc.Password, Database: sc.Database}
}

type idleConn struct {
	conn    *backend.Connection
	lastUse time.Time
	opened  time.Time
}

// ShardPool manages backend connections toward one shard. Acquire hands
// out an idle connection (oldest first, so every connection cycles through
// use rather than a few staying hot while the rest go stale) or dials a
// fresh one under MaxConns; once at the limit, callers block on a condition
// variable until one is returned. Wait order is not strictly FIFO: a caller
// that arrives just as a connection is returned can take it ahead of one
// that was already waiting.
type ShardPool struct {
	cfg ShardConfig

	mu      sync.Mutex
	cond    *sync.Cond
	idle    []idleConn
	total   int
	waiting int
	closed  bool
	stopCh  chan struct{}
}

// NewShardPool constructs a pool for one shard and starts its background
// warm-up and idle-reaper goroutines.
func NewShardPool(cfg ShardConfig) *ShardPool {
	p := &ShardPool{cfg: cfg, stopCh: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	go p.reapLoop()
	if cfg.WarmMin > 0 {
		go p.warmUp()
	}
	return p
}

func (p *ShardPool) warmUp() {
	for i := 0; i < p.cfg.WarmMin; i++ {
		p.mu.Lock()
		if p.closed || p.total >= p.cfg.WarmMin {
			p.mu.Unlock()
			return
		}
		p.total++
		p.mu.Unlock()

		conn, err := backend.Dial(context.Background(), p.cfg.Name, p.cfg.addr(), p.cfg.DialTimeout, p.cfg.credentials())
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			slog.Warn("shard warm-up failed", "shard", p.cfg.Name, "index", i+1, "target", p.cfg.WarmMin, "err", err)
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		now := time.Now()
		p.idle = append(p.idle, idleConn{conn: conn, lastUse: now, opened: now})
		p.mu.Unlock()
	}
	slog.Info("shard pool warmed", "shard", p.cfg.Name, "count", p.cfg.WarmMin)
}

// Acquire returns a Lease over a backend connection for this shard, dialing
// one if under MaxConns, or blocking until one is returned or the acquire
// deadline passes.
func (p *ShardPool) Acquire(ctx context.Context) (*Lease, error) {
	deadline := time.Now().Add(p.cfg.AcquireTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	p.mu.Lock()
	for {
		select {
		case <-ctx.Done():
			p.mu.Unlock()
			return nil, ctx.Err()
		default:
		}

		if p.closed {
			p.mu.Unlock()
			return nil, fmt.Errorf("shard %s: pool closed", p.cfg.Name)
		}

		if len(p.idle) > 0 {
			ic := p.idle[0]
			p.idle = p.idle[1:]
			if p.cfg.MaxLifetime > 0 && time.Since(ic.opened) > p.cfg.MaxLifetime {
				ic.conn.Close()
				p.total--
				continue
			}
			p.mu.Unlock()
			return &Lease{pool: p, conn: ic.conn}, nil
		}

		if p.total < p.cfg.MaxConns {
			p.total++
			p.mu.Unlock()

			conn, err := backend.Dial(ctx, p.cfg.Name, p.cfg.addr(), p.cfg.DialTimeout, p.cfg.credentials())
			if err != nil {
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				return nil, fmt.Errorf("shard %s: %w", p.cfg.Name, err)
			}
			return &Lease{pool: p, conn: conn}, nil
		}

		p.waiting++
		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.waiting--
			p.mu.Unlock()
			return nil, fmt.Errorf("shard %s: acquire timeout, pool exhausted", p.cfg.Name)
		}
		timer := time.AfterFunc(remaining, p.cond.Broadcast)
		p.cond.Wait()
		timer.Stop()
		p.waiting--
	}
}

// release returns conn to the idle set, or closes it if the pool has been
// closed in the meantime. Called by Lease.Release after a successful
// session reset.
func (p *ShardPool) release(conn *backend.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		conn.Close()
		p.total--
		p.cond.Signal()
		return
	}
	p.idle = append(p.idle, idleConn{conn: conn, lastUse: time.Now()})
	p.cond.Signal()
}

// discard drops conn from the pool entirely (reset failed or the backend
// connection is otherwise unusable) instead of returning it to idle.
func (p *ShardPool) discard(conn *backend.Connection) {
	conn.Close()
	p.mu.Lock()
	p.total--
	p.cond.Signal()
	p.mu.Unlock()
}

// Stats reports this shard pool's current occupancy.
type Stats struct {
	Shard   string
	Idle    int
	Total   int
	Waiting int
	Max     int
}

func (p *ShardPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Shard: p.cfg.Name, Idle: len(p.idle), Total: p.total, Waiting: p.waiting, Max: p.cfg.MaxConns}
}

func (p *ShardPool) reapLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.reapIdle()
		case <-p.stopCh:
			return
		}
	}
}

func (p *ShardPool) reapIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) <= p.cfg.WarmMin {
		return
	}
	excess := len(p.idle) - p.cfg.WarmMin
	kept := make([]idleConn, 0, len(p.idle))
	for i, ic := range p.idle {
		stale := p.cfg.IdleTimeout > 0 && time.Since(ic.lastUse) > p.cfg.IdleTimeout
		if i < excess && stale {
			ic.conn.Close()
			p.total--
			continue
		}
		kept = append(kept, ic)
	}
	p.idle = kept
}

// Close drains idle connections and stops background loops. Active leases
// are closed as they're returned or discarded.
func (p *ShardPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stopCh)
	for _, ic := range p.idle {
		ic.conn.Close()
		p.total--
	}
	p.idle = nil
	p.cond.Broadcast()
	p.mu.Unlock()
}

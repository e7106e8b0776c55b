package admin

import "sync/atomic"

// ParseCacheStats counts how often a Bind named a statement already
// prepared under that name on the current backend connection (a hit)
// versus needed a synthetic Parse to prepare it first (a miss).
type ParseCacheStats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (s *ParseCacheStats) IncHit()   { s.hits.Add(1) }
func (s *ParseCacheStats) IncMiss()  { s.misses.Add(1) }

// Snapshot returns the current hit/miss counts.
func (s *ParseCacheStats) Snapshot() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

// ClientInfo is one connected client's identity, reported by SHOW CLIENTS.
type ClientInfo struct {
	RemoteAddr string
	Username   string
	Database   string
	Stage      string
}

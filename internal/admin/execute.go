package admin

import (
	"fmt"
	"sync"

	"github.com/pgvault/pgvault/internal/gatewaypool"
	"github.com/pgvault/pgvault/internal/respond"
)

// Surface wires the admin command set to the live gateway state it
// reports on or mutates. Reload is a caller-supplied hook since config
// hot-reload lives in internal/config; IsPaused is consulted by the stage
// handlers' shard selection, so a paused shard is not picked for a new
// lease.
type Surface struct {
	Pools      *gatewaypool.Pools
	ParseCache *ParseCacheStats
	Clients    *ClientRegistry
	Reload     func() error

	mu     sync.Mutex
	paused map[string]bool
}

// IsPaused reports whether shard has been PAUSEd without a matching
// RESUME.
func (s *Surface) IsPaused(shard string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused[shard]
}

// Execute runs an admin command and returns the wire frames that make up
// its simple-query reply (RowDescription + DataRow* + CommandComplete),
// not including the trailing ReadyForQuery.
func (s *Surface) Execute(cmd ParsedCommand) [][]byte {
	switch cmd.Cmd {
	case ShowPools:
		return s.showPools()
	case ShowClients:
		return s.showClients()
	case ShowParseCacheStats:
		return s.showParseCacheStats()
	case Reload:
		return s.reload()
	case Pause:
		s.setPaused(cmd.Shard, true)
		return [][]byte{respond.CommandComplete("PAUSE")}
	case Resume:
		s.setPaused(cmd.Shard, false)
		return [][]byte{respond.CommandComplete("RESUME")}
	default:
		return nil
	}
}

func (s *Surface) setPaused(shard string, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused == nil {
		s.paused = make(map[string]bool)
	}
	if paused {
		s.paused[shard] = true
	} else {
		delete(s.paused, shard)
	}
}

func (s *Surface) showPools() [][]byte {
	frames := [][]byte{
		respond.RowDescription([]string{"shard", "idle", "total", "waiting", "max", "paused"}),
	}
	if s.Pools != nil {
		for _, st := range s.Pools.AllStats() {
			frames = append(frames, respond.DataRow(textRow(
				st.Shard,
				fmt.Sprint(st.Idle),
				fmt.Sprint(st.Total),
				fmt.Sprint(st.Waiting),
				fmt.Sprint(st.Max),
				fmt.Sprint(s.IsPaused(st.Shard)),
			)))
		}
	}
	frames = append(frames, respond.CommandComplete("SHOW"))
	return frames
}

func (s *Surface) showClients() [][]byte {
	frames := [][]byte{
		respond.RowDescription([]string{"remote_addr", "username", "database", "stage"}),
	}
	if s.Clients != nil {
		for _, c := range s.Clients.Snapshot() {
			frames = append(frames, respond.DataRow(textRow(c.RemoteAddr, c.Username, c.Database, c.Stage)))
		}
	}
	frames = append(frames, respond.CommandComplete("SHOW"))
	return frames
}

func (s *Surface) showParseCacheStats() [][]byte {
	frames := [][]byte{respond.RowDescription([]string{"hits", "misses"})}
	var hits, misses uint64
	if s.ParseCache != nil {
		hits, misses = s.ParseCache.Snapshot()
	}
	frames = append(frames, respond.DataRow(textRow(fmt.Sprint(hits), fmt.Sprint(misses))))
	frames = append(frames, respond.CommandComplete("SHOW"))
	return frames
}

func (s *Surface) reload() [][]byte {
	if s.Reload == nil {
		return [][]byte{respond.CommandComplete("RELOAD")}
	}
	if err := s.Reload(); err != nil {
		return [][]byte{respond.CommandComplete("RELOAD FAILED: " + err.Error())}
	}
	return [][]byte{respond.CommandComplete("RELOAD")}
}

func textRow(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

package gatewaypool

import (
	"log/slog"

	"github.com/pgvault/pgvault/internal/backend"
)

// Lease is a checked-out backend connection, held by a client Context for
// the duration of one sequence in transaction-pooling mode (or for the
// whole session in session-pooling mode).
type Lease struct {
	pool *ShardPool
	conn *backend.Connection
}

// Connection returns the leased backend connection.
func (l *Lease) Connection() *backend.Connection { return l.conn }

// Release resets the backend session and returns the connection to its
// shard's idle set. Unlike a fire-and-forget return, the reset runs before
// the connection becomes visible to the next acquirer, so a client can
// never observe another client's leftover prepared statements or session
// settings. If the reset fails the connection is discarded rather than
// recycled.
func (l *Lease) Release() {
	if err := l.conn.ResetSession(); err != nil {
		slog.Warn("session reset failed, discarding backend connection", "shard", l.conn.Shard(), "err", err)
		l.pool.discard(l.conn)
		return
	}
	l.pool.release(l.conn)
}

// Discard drops the connection without attempting a reset, for use when
// the backend connection itself is known to be broken (I/O error, protocol
// desync).
func (l *Lease) Discard() {
	l.pool.discard(l.conn)
}

// Package backend manages physical connections to a PostgreSQL shard: the
// startup/auth handshake, the prepared-statement name bookkeeping that
// makes fingerprint-based statement reuse possible, and session reset
// between transaction-pooled leases.
package backend

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/pgvault/pgvault/internal/stmt"
)

// Connection is one real connection to a backend PostgreSQL server. A
// Connection outlives any single client lease in transaction-pooling mode:
// it is returned to its shard's idle set, reset, and handed to the next
// client, carrying its prepared-statement cache forward across leases.
type Connection struct {
	conn   net.Conn
	connID string
	shard  string
	params map[string]string
	pid    int32
	secret int32

	mu sync.Mutex
	// epoch increments every time ResetSession runs DISCARD ALL, which
	// invalidates every prepared statement the backend was holding.
	epoch uint64

	// preparedBySignature and signatureByName are mutual inverses: the
	// first lets Bind find an already-prepared backend statement for a
	// fingerprint, the second lets Close find the fingerprint to evict
	// when a client drops a statement name.
	preparedBySignature map[stmt.Fingerprint]string
	signatureByName     map[string]stmt.Fingerprint
}

func newConnection(conn net.Conn, shard string, params map[string]string, pid, secret int32) *Connection {
	return &Connection{
		conn:                conn,
		connID:              uuid.NewString(),
		shard:               shard,
		params:              params,
		pid:                 pid,
		secret:              secret,
		preparedBySignature: make(map[stmt.Fingerprint]string),
		signatureByName:     make(map[string]stmt.Fingerprint),
	}
}

// ConnID is a gateway-minted identifier for this connection, distinct from
// the wire-level (pid, secret) identity, attached to log lines so a single
// backend connection's activity can be correlated across a reset/reuse
// cycle.
func (c *Connection) ConnID() string { return c.connID }

// Conn returns the raw network connection, for the proxy loop to read and
// write wire frames over directly.
func (c *Connection) Conn() net.Conn { return c.conn }

// Shard returns the name of the shard this connection belongs to.
func (c *Connection) Shard() string { return c.shard }

// Param returns a ParameterStatus value the backend reported at startup.
func (c *Connection) Param(key string) string { return c.params[key] }

// PID and Secret return the real backend's own BackendKeyData, used to
// issue a CancelRequest against this specific connection.
func (c *Connection) PID() int32    { return c.pid }
func (c *Connection) Secret() int32 { return c.secret }

// Addr returns the remote address this connection is dialed to.
func (c *Connection) Addr() string { return c.conn.RemoteAddr().String() }

// LookupPrepared reports the backend statement name currently serving fp,
// if one has been prepared since the last reset.
func (c *Connection) LookupPrepared(fp stmt.Fingerprint) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.preparedBySignature[fp]
	return name, ok
}

// RegisterPrepared records that backend statement name now serves fp.
func (c *Connection) RegisterPrepared(fp stmt.Fingerprint, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preparedBySignature[fp] = name
	c.signatureByName[name] = fp
}

// ForgetPrepared removes a backend statement name and its fingerprint from
// both maps, used when a Close frame targets it.
func (c *Connection) ForgetPrepared(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fp, ok := c.signatureByName[name]; ok {
		delete(c.signatureByName, name)
		if c.preparedBySignature[fp] == name {
			delete(c.preparedBySignature, fp)
		}
	}
}

// HasPreparedName reports whether name is currently prepared on this
// backend connection, regardless of which fingerprint it serves. Used to
// recognize that a client statement name was already parsed here in an
// earlier sequence, so a later Bind referencing it needs no synthetic Parse.
func (c *Connection) HasPreparedName(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.signatureByName[name]
	return ok
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}

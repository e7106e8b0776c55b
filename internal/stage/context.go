package stage

import (
	"github.com/pgvault/pgvault/internal/backend"
	"github.com/pgvault/pgvault/internal/gatewaypool"
	"github.com/pgvault/pgvault/internal/stmt"
)

// PoolerMode distinguishes transaction pooling (the gateway's primary mode,
// where a backend lease is held only for the duration of one sequence) from
// session pooling (the lease is held for the connection's whole lifetime).
type PoolerMode int

const (
	ModeTransaction PoolerMode = iota
	ModeSession
)

// Context is the per-client-connection state the stage handlers thread
// through a connection's lifetime. It outlives any single sequence; the
// stage handlers mutate it as Startup negotiates identity, Authenticating
// verifies it, and Ready processes one batch of frames at a time.
type Context struct {
	Stage Stage

	Username string
	Database string
	IsAdmin  bool

	PoolerMode PoolerMode

	// BackendPID/BackendSecret identify this client connection to PostgreSQL
	// CancelRequest semantics: a synthetic identity the gateway itself
	// mints and hands back in BackendKeyData, independent of whatever PID
	// the real backend connection happens to have.
	BackendPID    int32
	BackendSecret int32

	// GatewaySession is the currently-leased backend connection, or nil
	// between sequences in transaction-pooling mode.
	GatewaySession *gatewaypool.Lease

	// VirtualStatements maps a client-visible prepared statement name to
	// its SQL text, declared parameter types, and fingerprint. Populated
	// by Parse, consulted (and possibly mutated) by Bind, removed by
	// Close.
	VirtualStatements map[string]*stmt.VirtualStatement

	// PendingParses queues the Parse frames introduced into the current
	// outgoing sequence — both ones the client actually sent and the
	// synthetic ones the rewriter injected — so the backend's reply
	// stream can be matched back up once responses arrive.
	PendingParses []stmt.PendingParse

	// closeRequested is set by a handler that's decided this connection
	// can't continue (a startup-stage protocol violation, a Terminate
	// frame); the proxy loop checks it after every sequence.
	closeRequested bool
}

// RequestClose marks the connection for closing once the current sequence
// finishes processing.
func (c *Context) RequestClose() { c.closeRequested = true }

// CloseRequested reports whether RequestClose has been called.
func (c *Context) CloseRequested() bool { return c.closeRequested }

// NewContext returns a fresh per-connection Context in the Startup stage.
func NewContext(pid, secret int32) *Context {
	return &Context{
		Stage:             Startup,
		BackendPID:        pid,
		BackendSecret:     secret,
		VirtualStatements: make(map[string]*stmt.VirtualStatement),
	}
}

// Backend returns the backend connection behind the current lease, or nil
// if none is held.
func (c *Context) Backend() *backend.Connection {
	if c.GatewaySession == nil {
		return nil
	}
	return c.GatewaySession.Connection()
}

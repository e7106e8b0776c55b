package stage

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/pgvault/pgvault/internal/admin"
	"github.com/pgvault/pgvault/internal/backend"
	"github.com/pgvault/pgvault/internal/gatewaypool"
	"github.com/pgvault/pgvault/internal/pgerror"
	"github.com/pgvault/pgvault/internal/respond"
	"github.com/pgvault/pgvault/internal/stmt"
	"github.com/pgvault/pgvault/internal/wire"
	"github.com/pgvault/pgvault/internal/wire/observers"
)

// UserConfig is what the Authenticator reports about a username: the
// password to check, the default database to connect to on its behalf,
// whether it's the admin user, and the pooling mode to use.
type UserConfig struct {
	Password   string
	Database   string
	IsAdmin    bool
	PoolerMode PoolerMode
}

// Authenticator resolves a startup username to its credentials and
// routing policy. Implemented by internal/config.
type Authenticator interface {
	Lookup(username string) (UserConfig, bool)
}

// Handlers holds the live gateway state the three stage handlers need:
// where to authenticate against, which shard pools to lease backend
// connections from, and the admin command surface.
type Handlers struct {
	Auth   Authenticator
	Pools  *gatewaypool.Pools
	Admin  *admin.Surface
	Cancel *CancelRegistry
}

// HandleStartup processes the one frame a Startup-stage sequence ever
// contains: SSLRequest/GSSEncRequest (declined, stay in Startup),
// CancelRequest (routed, then the connection closes), or a real Startup
// message (advances to Authenticating).
func (h *Handlers) HandleStartup(rctx context.Context, ctx *Context, buffers *Buffers, mt wire.MessageType, frame []byte) {
	switch mt {
	case wire.SSLRequest, wire.GSSEncRequest:
		buffers.QueueResponse(respond.SSLNo())

	case wire.CancelRequest:
		cr, err := observers.NewCancelRequest(frame)
		if err != nil {
			ctx.RequestClose()
			return
		}
		if h.Cancel != nil {
			if target, ok := h.Cancel.Lookup(cr.PID(), cr.Secret()); ok {
				if be := target.Backend(); be != nil {
					if err := backend.SendCancelRequest(rctx, be.Addr(), be.PID(), be.Secret()); err != nil {
						slog.Warn("cancel request failed", "err", err)
					}
				}
			}
		}
		ctx.RequestClose()

	case wire.Startup:
		startup, err := observers.NewStartup(frame)
		if err != nil {
			buffers.QueueResponse(pgerror.ProtocolViolation("bad startup message").ToBytes())
			ctx.RequestClose()
			return
		}
		username, ok := startup.Param("user")
		if !ok || username == "" {
			buffers.QueueResponse(pgerror.ProtocolViolation("startup missing user").ToBytes())
			ctx.RequestClose()
			return
		}
		database, ok := startup.Param("database")
		if !ok || database == "" {
			database = username
		}
		ctx.Username = username
		ctx.Database = database
		ctx.Stage = Authenticating
		buffers.QueueResponse(respond.AuthenticationCleartextPassword())

	default:
		buffers.QueueResponse(pgerror.ProtocolViolation("unexpected message in startup").ToBytes())
		ctx.RequestClose()
	}
}

// HandleAuthenticating processes the single password-family frame an
// Authenticating-stage sequence contains. Only PasswordMessage (cleartext)
// is accepted; SASL/GSS/SSPI frames are recognized at the wire level but
// rejected here since this gateway only speaks cleartext authentication to
// its own clients.
func (h *Handlers) HandleAuthenticating(ctx *Context, buffers *Buffers, mt wire.MessageType, frame []byte) {
	if mt != wire.PasswordMessage {
		buffers.QueueResponse(pgerror.ProtocolViolation("expected cleartext password").ToBytes())
		ctx.RequestClose()
		return
	}

	pm, err := observers.NewPasswordMessage(frame)
	if err != nil {
		buffers.QueueResponse(pgerror.ProtocolViolation("cannot parse password").ToBytes())
		ctx.RequestClose()
		return
	}

	user, ok := h.Auth.Lookup(ctx.Username)
	if !ok || user.Password != pm.Password() {
		buffers.QueueResponse(pgerror.InvalidPassword("password authentication failed").ToBytes())
		ctx.RequestClose()
		return
	}

	if user.Database != "" {
		ctx.Database = user.Database
	}
	ctx.IsAdmin = user.IsAdmin
	ctx.PoolerMode = user.PoolerMode
	ctx.Stage = Ready

	buffers.QueueResponse(respond.AuthenticationOk())
	buffers.QueueResponse(respond.ParameterStatus("server_encoding", "UTF8"))
	buffers.QueueResponse(respond.ParameterStatus("client_encoding", "UTF8"))
	buffers.QueueResponse(respond.BackendKeyData(ctx.BackendPID, ctx.BackendSecret))
	buffers.QueueResponse(respond.ReadyForQuery(respond.Idle))

	if h.Cancel != nil {
		h.Cancel.Register(ctx)
	}
}

// HandleReady processes one flushable Ready-stage sequence: short-circuits
// admin commands entirely inside the gateway, otherwise leases a backend
// connection (if the context doesn't already hold one), tracks prepared
// statements and injects synthetic Parses where needed, and forwards it.
func (h *Handlers) HandleReady(rctx context.Context, ctx *Context, buffers *Buffers, sequence []byte) {
	if ctx.IsAdmin && h.tryHandleAdmin(buffers, sequence) {
		return
	}

	if ctx.GatewaySession == nil {
		shard, ok := h.pickShard()
		if !ok {
			buffers.QueueResponse(pgerror.InternalError("no backend shards available").ToBytes())
			buffers.QueueResponse(respond.ReadyForQuery(respond.Idle))
			return
		}
		lease, err := h.Pools.Acquire(rctx, shard)
		if err != nil {
			buffers.QueueResponse(pgerror.InternalError("acquiring backend connection: " + err.Error()).ToBytes())
			buffers.QueueResponse(respond.ReadyForQuery(respond.Idle))
			return
		}
		ctx.GatewaySession = lease
	}

	rewritten, pending := h.prepareSequence(ctx, sequence)
	ctx.PendingParses = append(ctx.PendingParses, pending...)

	conn := ctx.Backend().Conn()
	if _, err := conn.Write(rewritten); err != nil {
		slog.Warn("backend write failed, discarding lease", "shard", ctx.Backend().Shard(), "err", err)
		buffers.QueueResponse(pgerror.InternalError("backend write failed: " + err.Error()).ToBytes())
		buffers.QueueResponse(respond.ReadyForQuery(respond.Idle))
		ctx.GatewaySession.Discard()
		ctx.GatewaySession = nil
		ctx.PendingParses = nil
	}
}

// pickShard chooses a random shard that isn't currently PAUSEd. Falls back
// to gatewaypool's own random choice when there's no admin surface to
// check pause state against.
func (h *Handlers) pickShard() (string, bool) {
	if h.Admin == nil {
		return h.Pools.RandomShard()
	}
	names := h.Pools.Names()
	candidates := names[:0:0]
	for _, name := range names {
		if !h.Admin.IsPaused(name) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.Intn(len(candidates))], true
}

func (h *Handlers) tryHandleAdmin(buffers *Buffers, sequence []byte) bool {
	if h.Admin == nil {
		return false
	}
	found, ok := Peek(Ready, sequence)
	if !ok || found.Len != len(sequence) || found.Type != wire.Query {
		return false
	}
	q, err := observers.NewQuery(sequence)
	if err != nil {
		return false
	}
	parsed, ok := admin.ParseCommand(q.Query())
	if !ok {
		return false
	}
	for _, frame := range h.Admin.Execute(parsed) {
		buffers.QueueResponse(frame)
	}
	buffers.QueueResponse(respond.ReadyForQuery(respond.Idle))
	return true
}

// prepareSequence walks one Ready-stage sequence frame by frame, tracking
// prepared-statement names under the client's own naming and injecting
// synthetic Parse frames ahead of Binds that reference a statement the
// current backend lease hasn't prepared yet. Frames it doesn't recognize
// (or fails to decode) pass through unchanged.
func (h *Handlers) prepareSequence(ctx *Context, sequence []byte) ([]byte, []stmt.PendingParse) {
	output := make([]byte, 0, len(sequence))
	var pending []stmt.PendingParse
	preparedThisSequence := make(map[string]bool)

	cursor := 0
	for cursor < len(sequence) {
		remaining := sequence[cursor:]
		found, ok := Peek(Ready, remaining)
		if !ok || found.Len == 0 || cursor+found.Len > len(sequence) {
			output = append(output, remaining...)
			break
		}
		frame := remaining[:found.Len]

		switch found.Type {
		case wire.Parse:
			frame, p := h.handleParseFrame(ctx, frame, preparedThisSequence)
			output = append(output, frame...)
			if p != nil {
				pending = append(pending, *p)
			}
			cursor += found.Len
			continue

		case wire.Bind:
			injected, rewritten, p := h.handleBindFrame(ctx, frame, preparedThisSequence)
			output = append(output, injected...)
			output = append(output, rewritten...)
			if p != nil {
				pending = append(pending, *p)
			}
			cursor += found.Len
			continue

		case wire.Close:
			h.handleCloseFrame(ctx, frame)

		default:
			// Query, Describe, Execute, Sync, and everything else forward
			// unchanged.
		}

		output = append(output, frame...)
		cursor += found.Len
	}

	return output, pending
}

// handleParseFrame records the client's statement under its own name and
// forwards the Parse to the backend unchanged. The client sent this exact
// Parse and expects exactly one ParseComplete back for it, naming the exact
// statement it asked for — renaming it would break every later Bind,
// Describe, or Close that addresses the statement by that same name.
// Reuse across sequences happens lazily at Bind time instead, keyed by
// statement name on the backend connection: a name already prepared there
// skips re-parsing entirely, and otherwise a synthetic Parse (also under
// the client's own name) is injected whose ParseComplete the response
// rewriter can safely drop.
func (h *Handlers) handleParseFrame(ctx *Context, frame []byte, preparedThisSequence map[string]bool) ([]byte, *stmt.PendingParse) {
	p, err := observers.NewParse(frame)
	if err != nil {
		return frame, nil
	}

	statement := p.Statement()
	if statement != "" {
		oids := p.ParamTypeOIDs()
		vs := stmt.NewVirtualStatement(p.Query(), oids)
		ctx.VirtualStatements[statement] = vs

		if be := ctx.Backend(); be != nil {
			be.RegisterPrepared(vs.Fingerprint, statement)
		}
		preparedThisSequence[statement] = true
	}

	return frame, &stmt.PendingParse{ClientName: statement, Synthetic: false}
}

func (h *Handlers) handleBindFrame(ctx *Context, frame []byte, preparedThisSequence map[string]bool) (injected, rewritten []byte, pending *stmt.PendingParse) {
	b, err := observers.NewBind(frame)
	if err != nil {
		return nil, frame, nil
	}

	statement := b.Statement()
	if statement == "" {
		return nil, frame, nil
	}

	if preparedThisSequence[statement] {
		// Parse for this statement was already forwarded earlier in this
		// same sequence, so the backend already knows it under this exact
		// name. Forward the Bind as-is.
		return nil, frame, nil
	}

	be := ctx.Backend()
	if be == nil {
		return nil, frame, nil
	}

	if be.HasPreparedName(statement) {
		// A prior sequence on this same backend connection already prepared
		// this exact name; no need to re-parse it.
		if h.Admin != nil && h.Admin.ParseCache != nil {
			h.Admin.ParseCache.IncHit()
		}
		return nil, frame, nil
	}

	vs, known := ctx.VirtualStatements[statement]
	if !known {
		// Unknown to the rewriter; let the backend produce its own error.
		return nil, frame, nil
	}

	if h.Admin != nil && h.Admin.ParseCache != nil {
		h.Admin.ParseCache.IncMiss()
	}

	be.RegisterPrepared(vs.Fingerprint, statement)
	preparedThisSequence[statement] = true
	synthetic := stmt.BuildParse(statement, vs.Query, vs.ParamTypeOIDs)
	return synthetic, frame, &stmt.PendingParse{ClientName: statement, Synthetic: true}
}

func (h *Handlers) handleCloseFrame(ctx *Context, frame []byte) {
	c, err := observers.NewClose(frame)
	if err != nil || c.Target() != observers.CloseStatement || c.Name() == "" {
		return
	}
	delete(ctx.VirtualStatements, c.Name())
	if be := ctx.Backend(); be != nil {
		be.ForgetPrepared(c.Name())
	}
}

// RewriteBackendResponse strips ParseComplete frames the rewriter injected
// synthetically (for prepared-statement reuse) out of a backend's reply
// stream before it reaches the client, consuming ctx.PendingParses in
// order as it goes. A Parse — synthetic or not — is answered by either a
// ParseComplete or an ErrorResponse, so both pair against the queue head;
// without consuming the queue on error too, a failed synthetic Parse would
// leave PendingParses permanently desynced from the real response stream
// for the rest of the session. Frames after PendingParses drains pass
// through unchanged, which is the common case once a lease's statements are
// warm.
func RewriteBackendResponse(ctx *Context, raw []byte) []byte {
	if len(ctx.PendingParses) == 0 {
		return raw
	}

	output := make([]byte, 0, len(raw))
	cursor := 0
	for cursor < len(raw) && len(ctx.PendingParses) > 0 {
		frame, ok := wire.PeekTaggedFrame(raw[cursor:], raw[cursor])
		if !ok {
			break
		}
		tag := raw[cursor]
		end := cursor + frame
		if tag == wire.TagParseComplete || tag == wire.TagErrorResponse {
			p := ctx.PendingParses[0]
			ctx.PendingParses = ctx.PendingParses[1:]
			if !p.Synthetic {
				output = append(output, raw[cursor:end]...)
			}
		} else {
			output = append(output, raw[cursor:end]...)
		}
		cursor = end
	}
	output = append(output, raw[cursor:]...)
	return output
}

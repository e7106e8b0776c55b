package proxy

import (
	"context"
	"fmt"
	"net"

	"github.com/pgvault/pgvault/internal/admin"
	"github.com/pgvault/pgvault/internal/stage"
	"github.com/pgvault/pgvault/internal/wire"
	"github.com/pgvault/pgvault/internal/wire/backendwire"
)

// clientConn drives one accepted connection through the stage machine:
// read whatever's arrived, classify it into frames, pull one flushable
// sequence at a time, hand it to the matching stage handler, flush the
// handler's response, and await the backend's reply when the handler
// forwarded one.
type clientConn struct {
	server   *Server
	conn     net.Conn
	ctx      *stage.Context
	bufs     *stage.Buffers
	clientID uint64
}

// run pumps frames until the client disconnects, a protocol violation
// closes the connection, or rctx is canceled (server shutdown).
func (c *clientConn) run(rctx context.Context) error {
	for {
		if rctx.Err() != nil {
			return rctx.Err()
		}

		n, err := c.bufs.ReadFrom(c.conn)
		if n == 0 && err != nil {
			return err
		}

		c.bufs.TrackNewInboxFrames(c.ctx.Stage)

		for {
			sequence, ok := c.bufs.PullNextSequence(c.ctx.Stage)
			if !ok {
				break
			}
			if err := c.dispatch(rctx, sequence); err != nil {
				return err
			}
			if c.ctx.CloseRequested() {
				c.bufs.FlushTo(c.conn)
				return nil
			}
		}
	}
}

// dispatch routes one pulled sequence to its stage handler, relays any
// backend reply the handler produced, and flushes whatever the handler
// (or the relay) queued for the client.
func (c *clientConn) dispatch(rctx context.Context, sequence []byte) error {
	switch c.ctx.Stage {
	case stage.Startup:
		found, ok := stage.Peek(stage.Startup, sequence)
		if !ok {
			return fmt.Errorf("startup sequence failed to peek")
		}
		c.server.handlers.HandleStartup(rctx, c.ctx, c.bufs, found.Type, sequence[:found.Len])
		return c.bufs.FlushTo(c.conn)

	case stage.Authenticating:
		found, ok := stage.Peek(stage.Authenticating, sequence)
		if !ok {
			return fmt.Errorf("authenticating sequence failed to peek")
		}
		c.server.handlers.HandleAuthenticating(c.ctx, c.bufs, found.Type, sequence[:found.Len])
		if c.server.clients != nil && !c.ctx.CloseRequested() {
			c.server.clients.Update(c.clientID, clientInfo(c.ctx, c.conn))
		}
		return c.bufs.FlushTo(c.conn)

	case stage.Ready:
		return c.dispatchReady(rctx, sequence)

	default:
		return fmt.Errorf("unknown stage %v", c.ctx.Stage)
	}
}

// dispatchReady intercepts a sequence that is exactly one client Terminate
// before it reaches HandleReady: the pooled backend connection behind a lease is meant to
// outlive this client, so a Terminate must close the client side and
// release the lease cleanly rather than being forwarded to the backend,
// which would kill a connection other clients may reuse.
func (c *clientConn) dispatchReady(rctx context.Context, sequence []byte) error {
	if isTerminate(sequence) {
		if c.ctx.GatewaySession != nil {
			c.ctx.GatewaySession.Release()
			c.ctx.GatewaySession = nil
		}
		c.ctx.RequestClose()
		return nil
	}

	c.server.handlers.HandleReady(rctx, c.ctx, c.bufs, sequence)

	if c.ctx.GatewaySession == nil {
		// Admin command answered locally, or the lease acquire/write failed
		// and HandleReady already queued an error and nil'd the session.
		return c.bufs.FlushTo(c.conn)
	}

	if err := c.relayBackendReply(); err != nil {
		c.ctx.GatewaySession.Discard()
		c.ctx.GatewaySession = nil
		return err
	}

	if c.ctx.PoolerMode == stage.ModeTransaction {
		c.ctx.GatewaySession.Release()
		c.ctx.GatewaySession = nil
	}

	return c.bufs.FlushTo(c.conn)
}

// isTerminate reports whether sequence is exactly one Terminate frame. A
// Terminate that closes a sequence behind other frames does not match, and
// that sequence goes to HandleReady like any other.
func isTerminate(sequence []byte) bool {
	found, ok := stage.Peek(stage.Ready, sequence)
	return ok && found.Type == wire.Terminate && found.Len == len(sequence)
}

// relayBackendReply reads the backend's reply to the sequence just
// forwarded, one frame at a time, until a ReadyForQuery frame completes
// it, rewriting out any ParseComplete frames the prepared-statement
// rewriter injected synthetically before queuing the bytes to the
// client's outbox.
func (c *clientConn) relayBackendReply() error {
	be := c.ctx.Backend()
	conn := be.Conn()

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		frame, ok := backendwire.Peek(buf)
		if !ok {
			n, err := conn.Read(tmp)
			if n == 0 && err != nil {
				return fmt.Errorf("reading backend reply from shard %s: %w", be.Shard(), err)
			}
			buf = append(buf, tmp[:n]...)
			continue
		}

		c.bufs.QueueResponse(stage.RewriteBackendResponse(c.ctx, buf[:frame.TotalLen]))
		done := frame.Tag == wire.TagReadyForQuery
		buf = append(buf[:0], buf[frame.TotalLen:]...)
		if done {
			return nil
		}
	}
}

func clientInfo(ctx *stage.Context, conn net.Conn) admin.ClientInfo {
	return admin.ClientInfo{
		RemoteAddr: conn.RemoteAddr().String(),
		Username:   ctx.Username,
		Database:   ctx.Database,
		Stage:      ctx.Stage.String(),
	}
}

// Package proxy is pgvault's TCP accept loop: it owns the listening
// socket, mints each client connection's synthetic (pid, secret) identity,
// and drives the stage-machine handlers over the wire until the client
// disconnects.
package proxy

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pgvault/pgvault/internal/admin"
	"github.com/pgvault/pgvault/internal/metrics"
	"github.com/pgvault/pgvault/internal/stage"
)

// Server is pgvault's PostgreSQL wire-protocol listener.
type Server struct {
	handlers *stage.Handlers
	metrics  *metrics.Collector
	clients  *admin.ClientRegistry

	listener net.Listener
	nextPID  uint32

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer builds a proxy Server. clients may be nil if SHOW CLIENTS
// reporting isn't wanted.
func NewServer(h *stage.Handlers, m *metrics.Collector, clients *admin.ClientRegistry) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{handlers: h, metrics: m, clients: clients, ctx: ctx, cancel: cancel}
}

// Listen starts accepting connections on host:port.
func (s *Server) Listen(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln
	slog.Info("pgvault listening", "addr", addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				slog.Warn("accept error", "err", err)
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	pid := int32(atomic.AddUint32(&s.nextPID, 1))
	var secretBuf [4]byte
	if _, err := rand.Read(secretBuf[:]); err != nil {
		slog.Warn("generating connection secret", "err", err)
	}
	secret := int32(binary.BigEndian.Uint32(secretBuf[:]))

	c := &clientConn{
		server: s,
		conn:   conn,
		ctx:    stage.NewContext(pid, secret),
		bufs:   stage.NewBuffers(),
	}

	var clientID uint64
	if s.clients != nil {
		clientID = s.clients.Register(admin.ClientInfo{
			RemoteAddr: conn.RemoteAddr().String(),
			Stage:      stage.Startup.String(),
		})
		defer s.clients.Unregister(clientID)
	}
	c.clientID = clientID

	if err := c.run(s.ctx); err != nil {
		slog.Debug("connection closed", "remote", conn.RemoteAddr(), "err", err)
	}

	if s.handlers.Cancel != nil {
		s.handlers.Cancel.Unregister(c.ctx)
	}
	if c.ctx.GatewaySession != nil {
		shard := c.ctx.Backend().Shard()
		c.ctx.GatewaySession.Discard()
		if s.metrics != nil {
			s.metrics.DirtyDisconnect(shard)
		}
	}
}

// Stop gracefully shuts the server down, closing the listener and waiting
// for in-flight connections to finish their current sequence.
func (s *Server) Stop() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

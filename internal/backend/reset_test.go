package backend

import (
	"net"
	"testing"

	"github.com/pgvault/pgvault/internal/stmt"
)

// newResetTestConnection pairs a Connection with a net.Pipe peer that a test
// drives directly, playing the backend side of a DISCARD ALL round trip.
func newResetTestConnection() (*Connection, net.Conn) {
	client, server := net.Pipe()
	return newConnection(client, "shard0", nil, 1, 2), server
}

func readDiscardAllQuery(t *testing.T, peer net.Conn) {
	t.Helper()
	tag, payload, err := readBackendMessage(peer)
	if err != nil {
		t.Fatalf("reading query frame: %v", err)
	}
	if tag != 'Q' {
		t.Fatalf("expected a Query frame, got tag %q", tag)
	}
	if got := string(trimNull(payload)); got != "DISCARD ALL" {
		t.Fatalf("query = %q, want DISCARD ALL", got)
	}
}

func TestResetSessionSuccessBumpsEpochAndClearsMaps(t *testing.T) {
	c, peer := newResetTestConnection()
	defer peer.Close()

	fp := stmt.ComputeFingerprint("SELECT 1", nil)
	c.RegisterPrepared(fp, "client_stmt")

	beforeEpoch := c.epoch

	done := make(chan error, 1)
	go func() { done <- c.ResetSession() }()

	readDiscardAllQuery(t, peer)
	peer.Write(readyForQuery())

	if err := <-done; err != nil {
		t.Fatalf("ResetSession returned error: %v", err)
	}

	if _, ok := c.LookupPrepared(fp); ok {
		t.Fatal("expected ResetSession to clear the prepared-statement bimap")
	}
	if c.HasPreparedName("client_stmt") {
		t.Fatal("expected ResetSession to clear the name-keyed map too")
	}
	if c.epoch != beforeEpoch+1 {
		t.Fatalf("epoch = %d, want %d", c.epoch, beforeEpoch+1)
	}
}

func TestResetSessionPropagatesBackendError(t *testing.T) {
	c, peer := newResetTestConnection()
	defer peer.Close()

	done := make(chan error, 1)
	go func() { done <- c.ResetSession() }()

	readDiscardAllQuery(t, peer)
	peer.Write(errorResponse("58000", "cannot discard while in transaction"))

	if err := <-done; err == nil {
		t.Fatal("expected ResetSession to surface a backend ErrorResponse")
	}
}

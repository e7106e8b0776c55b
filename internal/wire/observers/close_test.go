package observers

import (
	"testing"

	"github.com/pgvault/pgvault/internal/wire"
)

func TestNewCloseStatement(t *testing.T) {
	frame := buildFrame(wire.TagClose, append([]byte{'S'}, cstring("client_stmt")...))
	c, err := NewClose(frame)
	if err != nil {
		t.Fatalf("NewClose failed: %v", err)
	}
	if c.Target() != CloseStatement || c.Name() != "client_stmt" {
		t.Fatalf("Target/Name = %v/%q, want S/client_stmt", c.Target(), c.Name())
	}
}

func TestNewClosePortal(t *testing.T) {
	frame := buildFrame(wire.TagClose, append([]byte{'P'}, cstring("my_portal")...))
	c, err := NewClose(frame)
	if err != nil {
		t.Fatalf("NewClose failed: %v", err)
	}
	if c.Target() != ClosePortal {
		t.Fatalf("Target() = %v, want P", c.Target())
	}
}

func TestNewCloseInvalidTarget(t *testing.T) {
	frame := buildFrame(wire.TagClose, append([]byte{'X'}, cstring("x")...))
	if _, err := NewClose(frame); err == nil {
		t.Fatal("expected an error for a target byte that is neither P nor S")
	}
}

func TestNewCloseUnnamedStatement(t *testing.T) {
	frame := buildFrame(wire.TagClose, append([]byte{'S'}, cstring("")...))
	c, err := NewClose(frame)
	if err != nil {
		t.Fatalf("NewClose failed: %v", err)
	}
	if c.Name() != "" {
		t.Fatalf("Name() = %q, want empty (the unnamed statement)", c.Name())
	}
}

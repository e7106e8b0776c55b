package observers

import (
	"encoding/binary"
	"testing"

	"github.com/pgvault/pgvault/internal/wire"
)

func TestNewPasswordMessageValid(t *testing.T) {
	frame := buildFrame(wire.TagPassword, cstring("hunter2"))
	pm, err := NewPasswordMessage(frame)
	if err != nil {
		t.Fatalf("NewPasswordMessage failed: %v", err)
	}
	if pm.Password() != "hunter2" {
		t.Fatalf("Password() = %q, want hunter2", pm.Password())
	}
}

func TestNewPasswordMessageTrailingBytes(t *testing.T) {
	frame := buildFrame(wire.TagPassword, append(cstring("hunter2"), 'x'))
	if _, err := NewPasswordMessage(frame); err == nil {
		t.Fatal("expected an error for bytes after the terminating NUL")
	}
}

func buildSASLInitialFrame(mechanism string, initial []byte, omit bool) []byte {
	body := cstring(mechanism)
	if omit {
		body = binary.BigEndian.AppendUint32(body, 0xffffffff)
	} else {
		body = binary.BigEndian.AppendUint32(body, uint32(len(initial)))
		body = append(body, initial...)
	}
	return buildFrame(wire.TagPassword, body)
}

func TestNewSASLInitialResponseWithPayload(t *testing.T) {
	frame := buildSASLInitialFrame("SCRAM-SHA-256", []byte("n,,n=,r=abc"), false)
	s, err := NewSASLInitialResponse(frame)
	if err != nil {
		t.Fatalf("NewSASLInitialResponse failed: %v", err)
	}
	if s.Mechanism() != "SCRAM-SHA-256" {
		t.Fatalf("Mechanism() = %q, want SCRAM-SHA-256", s.Mechanism())
	}
	payload, ok := s.InitialResponse()
	if !ok || string(payload) != "n,,n=,r=abc" {
		t.Fatalf("InitialResponse() = (%q, %v), want (n,,n=,r=abc, true)", payload, ok)
	}
}

func TestNewSASLInitialResponseNoPayload(t *testing.T) {
	frame := buildSASLInitialFrame("SCRAM-SHA-256", nil, true)
	s, err := NewSASLInitialResponse(frame)
	if err != nil {
		t.Fatalf("NewSASLInitialResponse failed: %v", err)
	}
	if _, ok := s.InitialResponse(); ok {
		t.Fatal("expected InitialResponse() to report false for a -1 length")
	}
}

func TestNewSASLResponseIsOpaque(t *testing.T) {
	frame := buildFrame(wire.TagPassword, []byte{1, 2, 3})
	s, err := NewSASLResponse(frame)
	if err != nil {
		t.Fatalf("NewSASLResponse failed: %v", err)
	}
	if string(s.Data()) != "\x01\x02\x03" {
		t.Fatalf("Data() = %v, want raw body", s.Data())
	}
}

func TestNewGSSResponseAndSSPIResponseAreOpaque(t *testing.T) {
	frame := buildFrame(wire.TagPassword, []byte{9, 9})
	g, err := NewGSSResponse(frame)
	if err != nil {
		t.Fatalf("NewGSSResponse failed: %v", err)
	}
	if string(g.Token()) != "\x09\x09" {
		t.Fatalf("Token() = %v, want raw body", g.Token())
	}

	s, err := NewSSPIResponse(frame)
	if err != nil {
		t.Fatalf("NewSSPIResponse failed: %v", err)
	}
	if string(s.Payload()) != "\x09\x09" {
		t.Fatalf("Payload() = %v, want raw body", s.Payload())
	}
}

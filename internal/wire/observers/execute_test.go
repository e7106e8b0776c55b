package observers

import (
	"encoding/binary"
	"testing"

	"github.com/pgvault/pgvault/internal/wire"
)

func TestNewExecuteValid(t *testing.T) {
	body := cstring("my_portal")
	body = binary.BigEndian.AppendUint32(body, 100)
	frame := buildFrame(wire.TagExecute, body)

	e, err := NewExecute(frame)
	if err != nil {
		t.Fatalf("NewExecute failed: %v", err)
	}
	if e.Portal() != "my_portal" || e.MaxRows() != 100 {
		t.Fatalf("Portal/MaxRows = %q/%d, want my_portal/100", e.Portal(), e.MaxRows())
	}
}

func TestNewExecuteUnlimitedRows(t *testing.T) {
	body := cstring("")
	body = binary.BigEndian.AppendUint32(body, 0)
	frame := buildFrame(wire.TagExecute, body)

	e, err := NewExecute(frame)
	if err != nil {
		t.Fatalf("NewExecute failed: %v", err)
	}
	if e.MaxRows() != 0 {
		t.Fatalf("MaxRows() = %d, want 0 (unlimited)", e.MaxRows())
	}
}

func TestNewExecuteMissingMaxRows(t *testing.T) {
	frame := buildFrame(wire.TagExecute, cstring("my_portal"))
	if _, err := NewExecute(frame); err == nil {
		t.Fatal("expected an error when the maxRows field is missing")
	}
}

package observers

import (
	"encoding/binary"
	"testing"

	"github.com/pgvault/pgvault/internal/wire"
)

func buildParseFrameWithOIDs(name, query string, oids []uint32) []byte {
	body := cstring(name)
	body = append(body, cstring(query)...)
	body = binary.BigEndian.AppendUint16(body, uint16(len(oids)))
	for _, oid := range oids {
		body = binary.BigEndian.AppendUint32(body, oid)
	}
	return buildFrame(wire.TagParse, body)
}

func TestNewParseValid(t *testing.T) {
	frame := buildParseFrameWithOIDs("client_stmt", "SELECT $1, $2", []uint32{23, 25})
	p, err := NewParse(frame)
	if err != nil {
		t.Fatalf("NewParse failed: %v", err)
	}
	if p.Statement() != "client_stmt" || p.Query() != "SELECT $1, $2" {
		t.Fatalf("Statement/Query = %q/%q, want client_stmt/SELECT $1, $2", p.Statement(), p.Query())
	}
	if p.ParamTypeCount() != 2 {
		t.Fatalf("ParamTypeCount() = %d, want 2", p.ParamTypeCount())
	}
	oids := p.ParamTypeOIDs()
	if len(oids) != 2 || oids[0] != 23 || oids[1] != 25 {
		t.Fatalf("ParamTypeOIDs() = %v, want [23 25]", oids)
	}
}

func TestNewParseUnnamedStatementNoParams(t *testing.T) {
	frame := buildParseFrameWithOIDs("", "SELECT 1", nil)
	p, err := NewParse(frame)
	if err != nil {
		t.Fatalf("NewParse failed: %v", err)
	}
	if p.Statement() != "" || p.ParamTypeCount() != 0 {
		t.Fatalf("Statement/ParamTypeCount = %q/%d, want \"\"/0", p.Statement(), p.ParamTypeCount())
	}
}

func TestNewParseNegativeParamCount(t *testing.T) {
	body := cstring("s")
	body = append(body, cstring("q")...)
	body = binary.BigEndian.AppendUint16(body, 0xffff) // -1 as int16
	frame := buildFrame(wire.TagParse, body)
	if _, err := NewParse(frame); err == nil {
		t.Fatal("expected an error for a negative declared parameter count")
	}
}

func TestNewParseTruncatedOIDs(t *testing.T) {
	frame := buildParseFrameWithOIDs("s", "q", []uint32{1, 2})
	if _, err := NewParse(frame[:len(frame)-1]); err == nil {
		t.Fatal("expected an error when the OID list is cut short")
	}
}

package stage

import "testing"

func TestNewContextDefaults(t *testing.T) {
	ctx := NewContext(7, 99)
	if ctx.Stage != Startup {
		t.Fatalf("Stage = %v, want Startup", ctx.Stage)
	}
	if ctx.BackendPID != 7 || ctx.BackendSecret != 99 {
		t.Fatalf("PID/Secret = %d/%d, want 7/99", ctx.BackendPID, ctx.BackendSecret)
	}
	if ctx.VirtualStatements == nil {
		t.Fatal("expected VirtualStatements to be initialized, not nil")
	}
	if ctx.CloseRequested() {
		t.Fatal("expected a fresh context to not have close requested")
	}
	if ctx.Backend() != nil {
		t.Fatal("expected Backend() to be nil with no GatewaySession")
	}
}

func TestContextRequestClose(t *testing.T) {
	ctx := NewContext(1, 1)
	if ctx.CloseRequested() {
		t.Fatal("expected CloseRequested() to start false")
	}
	ctx.RequestClose()
	if !ctx.CloseRequested() {
		t.Fatal("expected CloseRequested() to be true after RequestClose")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestParseFlagsDefaults(t *testing.T) {
	f, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if f.Port != 6432 {
		t.Errorf("expected default port 6432, got %d", f.Port)
	}
	if f.ShardsPath != "shards.yaml" {
		t.Errorf("expected default shards path, got %q", f.ShardsPath)
	}
	if f.LogFormat != "text" {
		t.Errorf("expected default log format text, got %q", f.LogFormat)
	}
}

func TestParseFlagsOverride(t *testing.T) {
	f, err := ParseFlags([]string{"--port", "7000", "--log", "json"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if f.Port != 7000 {
		t.Errorf("expected overridden port 7000, got %d", f.Port)
	}
	if f.LogFormat != "json" {
		t.Errorf("expected overridden log format json, got %q", f.LogFormat)
	}
}

func TestParseFlagsEnvFallback(t *testing.T) {
	os.Setenv("PGVAULT_PORT", "9999")
	defer os.Unsetenv("PGVAULT_PORT")

	f, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if f.Port != 9999 {
		t.Errorf("expected env-sourced port 9999, got %d", f.Port)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeTemp(t, "shards.yaml", "shards: []\n")

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(string) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("shards: []\n# touched\n"), 0644); err != nil {
		t.Fatalf("rewriting temp file: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("expected watcher to fire reload after write")
	}
}

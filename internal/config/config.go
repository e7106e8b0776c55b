// Package config loads pgvault's two YAML configuration documents
// (users.yaml, shards.yaml), its CLI/environment flags, and watches both
// files for hot reload.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment
// variable values, leaving unmatched names untouched.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// Flags is the parsed CLI/environment surface for cmd/pgvault, mirroring
// original_source/src/config/cli.rs: each flag has a PGVAULT_-prefixed
// environment variable fallback.
type Flags struct {
	Host       string
	Port       int
	ShardsPath string
	UsersPath  string
	LogFormat  string
}

// ParseFlags parses os.Args (via the standard flag package, as the
// teacher's cmd/dbbouncer/main.go does), falling back to PGVAULT_* env
// vars for any flag left at its zero value.
func ParseFlags(args []string) (Flags, error) {
	fs := flag.NewFlagSet("pgvault", flag.ContinueOnError)
	f := Flags{}
	fs.StringVar(&f.Host, "host", envOr("PGVAULT_HOST", "0.0.0.0"), "address to listen on")
	fs.IntVar(&f.Port, "port", envOrInt("PGVAULT_PORT", 6432), "port to listen on")
	fs.StringVar(&f.ShardsPath, "config", envOr("PGVAULT_CONFIG", "shards.yaml"), "path to shards.yaml")
	fs.StringVar(&f.UsersPath, "users", envOr("PGVAULT_USERS", "users.yaml"), "path to users.yaml")
	fs.StringVar(&f.LogFormat, "log", envOr("PGVAULT_LOG", "text"), "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}

// Watcher watches a single file for writes and invokes reload after a
// debounce window, the same pattern the teacher's config.Watcher uses.
// Unlike the teacher's version it's not tied to one decoded type — the
// caller supplies the reload function, so one Watcher shape serves both
// users.yaml and shards.yaml.
type Watcher struct {
	path    string
	reload  func(path string)
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	stopCh  chan struct{}
}

// NewWatcher starts watching path, calling reload(path) (debounced by
// 500ms) whenever the file is written or recreated.
func NewWatcher(path string, reload func(path string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	cw := &Watcher{
		path:    path,
		reload:  reload,
		watcher: w,
		stopCh:  make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, cw.fire)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "path", cw.path, "err", err)
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) fire() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	slog.Info("config file changed, reloading", "path", cw.path)
	cw.reload(cw.path)
}

// Stop stops the watcher.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}

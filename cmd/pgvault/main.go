package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pgvault/pgvault/internal/adminapi"
	"github.com/pgvault/pgvault/internal/admin"
	"github.com/pgvault/pgvault/internal/config"
	"github.com/pgvault/pgvault/internal/gatewaypool"
	"github.com/pgvault/pgvault/internal/health"
	"github.com/pgvault/pgvault/internal/metrics"
	"github.com/pgvault/pgvault/internal/proxy"
	"github.com/pgvault/pgvault/internal/stage"
)

// Exit codes, named so a caller scripting around pgvault doesn't have to
// memorize magic numbers.
const (
	exitOK               = 0
	exitConfigInvalid    = 1
	exitListenerBindFail = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgvault:", err)
		return exitConfigInvalid
	}

	configureLogging(flags.LogFormat)
	slog.Info("pgvault starting", "host", flags.Host, "port", flags.Port)

	users, err := config.LoadUsers(flags.UsersPath)
	if err != nil {
		slog.Error("loading users file", "path", flags.UsersPath, "err", err)
		return exitConfigInvalid
	}
	shards, err := config.LoadShards(flags.ShardsPath)
	if err != nil {
		slog.Error("loading shards file", "path", flags.ShardsPath, "err", err)
		return exitConfigInvalid
	}
	slog.Info("configuration loaded", "users", len(users.Users), "shards", len(shards.Shards))

	m := metrics.New()
	pools := gatewaypool.NewPools(shards.PoolConfigs())
	clients := admin.NewClientRegistry()
	adminSurface := &admin.Surface{
		Pools:      pools,
		ParseCache: &admin.ParseCacheStats{},
		Clients:    clients,
	}

	targets := make([]health.Target, 0, len(shards.Shards))
	for _, s := range shards.Shards {
		targets = append(targets, health.Target{Name: s.Name, Addr: fmt.Sprintf("%s:%d", s.Host, s.Port)})
	}
	hc := health.NewChecker(targets, m, health.DefaultInterval, health.DefaultFailureThreshold, health.DefaultConnectionTimeout)
	hc.Start()

	handlers := &stage.Handlers{
		Auth:   users,
		Pools:  pools,
		Admin:  adminSurface,
		Cancel: stage.NewCancelRegistry(),
	}

	proxyServer := proxy.NewServer(handlers, m, clients)
	if err := proxyServer.Listen(flags.Host, flags.Port); err != nil {
		slog.Error("starting proxy listener", "err", err)
		return exitListenerBindFail
	}

	adminServer := adminapi.NewServer(pools, adminSurface, hc, m, flags.Port+1000)
	if err := adminServer.Start(); err != nil {
		slog.Error("starting admin API", "err", err)
		return exitListenerBindFail
	}

	adminSurface.Reload = func() error { return reloadConfig(flags, pools, users) }

	usersWatcher, err := config.NewWatcher(flags.UsersPath, func(path string) {
		reloaded, err := config.LoadUsers(path)
		if err != nil {
			slog.Warn("users file reload failed, keeping previous configuration", "err", err)
			return
		}
		*users = *reloaded
		slog.Info("users file reloaded", "users", len(users.Users))
	})
	if err != nil {
		slog.Warn("users file hot-reload not available", "err", err)
	}

	shardsWatcher, err := config.NewWatcher(flags.ShardsPath, func(path string) {
		slog.Info("shards file changed; restart pgvault to pick up topology changes")
	})
	if err != nil {
		slog.Warn("shards file hot-reload not available", "err", err)
	}

	slog.Info("pgvault ready", "pg_port", flags.Port, "admin_port", flags.Port+1000)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig.String())

	if usersWatcher != nil {
		usersWatcher.Stop()
	}
	if shardsWatcher != nil {
		shardsWatcher.Stop()
	}
	adminServer.Stop()
	proxyServer.Stop()
	hc.Stop()
	pools.Close()

	slog.Info("pgvault stopped")
	return exitOK
}

// reloadConfig re-reads users.yaml in place; shard topology changes still
// require a restart since live shard pools aren't torn down mid-flight.
func reloadConfig(flags config.Flags, pools *gatewaypool.Pools, users *config.UsersConfig) error {
	reloaded, err := config.LoadUsers(flags.UsersPath)
	if err != nil {
		return err
	}
	*users = *reloaded
	return nil
}

func configureLogging(format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

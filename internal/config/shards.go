package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pgvault/pgvault/internal/gatewaypool"
)

// ShardDefaults holds the pool-sizing values a shard record falls back to
// when it doesn't set its own, mirroring the teacher's PoolDefaults.
type ShardDefaults struct {
	MinConnections int           `yaml:"min_connections"`
	MaxConnections int           `yaml:"max_connections"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// ShardRecord is one entry in shards.yaml.
type ShardRecord struct {
	Name           string         `yaml:"name"`
	Host           string         `yaml:"host"`
	Port           int            `yaml:"port"`
	User           string         `yaml:"user"`
	Password       string         `yaml:"password"`
	Database       string         `yaml:"database"`
	MinConnections *int           `yaml:"min_connections,omitempty"`
	MaxConnections *int           `yaml:"max_connections,omitempty"`
	DialTimeout    *time.Duration `yaml:"dial_timeout,omitempty"`
	IdleTimeout    *time.Duration `yaml:"idle_timeout,omitempty"`
	MaxLifetime    *time.Duration `yaml:"max_lifetime,omitempty"`
	AcquireTimeout *time.Duration `yaml:"acquire_timeout,omitempty"`
}

func (s ShardRecord) effectiveMinConnections(d ShardDefaults) int {
	if s.MinConnections != nil {
		return *s.MinConnections
	}
	return d.MinConnections
}

func (s ShardRecord) effectiveMaxConnections(d ShardDefaults) int {
	if s.MaxConnections != nil {
		return *s.MaxConnections
	}
	return d.MaxConnections
}

func (s ShardRecord) effectiveDialTimeout(d ShardDefaults) time.Duration {
	if s.DialTimeout != nil {
		return *s.DialTimeout
	}
	return d.DialTimeout
}

func (s ShardRecord) effectiveIdleTimeout(d ShardDefaults) time.Duration {
	if s.IdleTimeout != nil {
		return *s.IdleTimeout
	}
	return d.IdleTimeout
}

func (s ShardRecord) effectiveMaxLifetime(d ShardDefaults) time.Duration {
	if s.MaxLifetime != nil {
		return *s.MaxLifetime
	}
	return d.MaxLifetime
}

func (s ShardRecord) effectiveAcquireTimeout(d ShardDefaults) time.Duration {
	if s.AcquireTimeout != nil {
		return *s.AcquireTimeout
	}
	return d.AcquireTimeout
}

// ShardsConfig is the parsed contents of shards.yaml.
type ShardsConfig struct {
	Defaults ShardDefaults `yaml:"defaults"`
	Shards   []ShardRecord `yaml:"shards"`
}

// LoadShards reads and validates shards.yaml, applying the same
// ${VAR}-substitution as LoadUsers.
func LoadShards(path string) (*ShardsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shards file: %w", err)
	}
	data = substituteEnvVars(data)

	cfg := &ShardsConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing shards file: %w", err)
	}
	applyShardDefaults(cfg)
	if err := validateShards(cfg); err != nil {
		return nil, fmt.Errorf("validating shards file: %w", err)
	}
	return cfg, nil
}

func applyShardDefaults(cfg *ShardsConfig) {
	if cfg.Defaults.MinConnections == 0 {
		cfg.Defaults.MinConnections = 2
	}
	if cfg.Defaults.MaxConnections == 0 {
		cfg.Defaults.MaxConnections = 20
	}
	if cfg.Defaults.DialTimeout == 0 {
		cfg.Defaults.DialTimeout = 5 * time.Second
	}
	if cfg.Defaults.IdleTimeout == 0 {
		cfg.Defaults.IdleTimeout = 5 * time.Minute
	}
	if cfg.Defaults.MaxLifetime == 0 {
		cfg.Defaults.MaxLifetime = 30 * time.Minute
	}
	if cfg.Defaults.AcquireTimeout == 0 {
		cfg.Defaults.AcquireTimeout = 10 * time.Second
	}
}

func validateShards(cfg *ShardsConfig) error {
	seen := make(map[string]bool, len(cfg.Shards))
	for _, s := range cfg.Shards {
		if s.Name == "" {
			return fmt.Errorf("shard record missing name")
		}
		if seen[s.Name] {
			return fmt.Errorf("shard %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Host == "" {
			return fmt.Errorf("shard %q: host is required", s.Name)
		}
		if s.Port <= 0 || s.Port > 65535 {
			return fmt.Errorf("shard %q: invalid port %d", s.Name, s.Port)
		}
		if s.User == "" {
			return fmt.Errorf("shard %q: user is required", s.Name)
		}
	}
	return nil
}

// PoolConfigs converts the parsed shards.yaml into the gatewaypool.ShardConfig
// set the connection pool manager is built from.
func (cfg *ShardsConfig) PoolConfigs() []gatewaypool.ShardConfig {
	out := make([]gatewaypool.ShardConfig, 0, len(cfg.Shards))
	for _, s := range cfg.Shards {
		out = append(out, gatewaypool.ShardConfig{
			Name:           s.Name,
			Host:           s.Host,
			Port:           s.Port,
			Username:       s.User,
			Password:       s.Password,
			Database:       s.Database,
			WarmMin:        s.effectiveMinConnections(cfg.Defaults),
			MaxConns:       s.effectiveMaxConnections(cfg.Defaults),
			IdleTimeout:    s.effectiveIdleTimeout(cfg.Defaults),
			MaxLifetime:    s.effectiveMaxLifetime(cfg.Defaults),
			AcquireTimeout: s.effectiveAcquireTimeout(cfg.Defaults),
			DialTimeout:    s.effectiveDialTimeout(cfg.Defaults),
		})
	}
	return out
}

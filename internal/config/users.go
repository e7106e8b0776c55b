package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pgvault/pgvault/internal/stage"
)

// PoolerMode mirrors stage.PoolerMode as a YAML-friendly string so
// users.yaml can spell it "transaction"/"session" instead of an integer.
type PoolerMode string

const (
	PoolerModeTransaction PoolerMode = "transaction"
	PoolerModeSession     PoolerMode = "session"
)

// UserRecord is one entry in users.yaml: a client-facing identity, its
// optional backend-identity overrides, and its pooling policy. Mirrors
// original_source/src/config/users.rs's field set.
type UserRecord struct {
	Username           string     `yaml:"username"`
	Password           string     `yaml:"password"`
	ServerUsername     string     `yaml:"server_username,omitempty"`
	ServerPassword     string     `yaml:"server_password,omitempty"`
	PoolSize           int        `yaml:"pool_size,omitempty"`
	PoolerMode         PoolerMode `yaml:"pooler_mode,omitempty"`
	StatementTimeoutMS int        `yaml:"statement_timeout_ms,omitempty"`
	Admin              bool       `yaml:"admin,omitempty"`
}

// EffectiveServerUsername returns the identity to present to the backend,
// falling back to the client-facing username when no override is set.
func (u UserRecord) EffectiveServerUsername() string {
	if u.ServerUsername != "" {
		return u.ServerUsername
	}
	return u.Username
}

// EffectiveServerPassword returns the credential to present to the
// backend, falling back to the client-facing password when no override
// is set.
func (u UserRecord) EffectiveServerPassword() string {
	if u.ServerPassword != "" {
		return u.ServerPassword
	}
	return u.Password
}

// EffectivePoolerMode defaults to transaction pooling when unset.
func (u UserRecord) EffectivePoolerMode() PoolerMode {
	if u.PoolerMode == "" {
		return PoolerModeTransaction
	}
	return u.PoolerMode
}

// UsersConfig is the parsed contents of users.yaml.
type UsersConfig struct {
	Users map[string]UserRecord `yaml:"users"`
}

// LoadUsers reads and validates users.yaml, applying the same
// ${VAR}-substitution as LoadShards.
func LoadUsers(path string) (*UsersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}
	data = substituteEnvVars(data)

	cfg := &UsersConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}
	if err := validateUsers(cfg); err != nil {
		return nil, fmt.Errorf("validating users file: %w", err)
	}
	return cfg, nil
}

func validateUsers(cfg *UsersConfig) error {
	for name, u := range cfg.Users {
		if u.Username == "" {
			u.Username = name
			cfg.Users[name] = u
		}
		if u.Password == "" {
			return fmt.Errorf("user %q: password is required", name)
		}
		switch u.PoolerMode {
		case "", PoolerModeTransaction, PoolerModeSession:
		default:
			return fmt.Errorf("user %q: unsupported pooler_mode %q", name, u.PoolerMode)
		}
	}
	return nil
}

// Lookup implements stage.Authenticator: the stage handlers never see a
// UserRecord directly, only the narrower contract they need.
func (cfg *UsersConfig) Lookup(username string) (stage.UserConfig, bool) {
	u, ok := cfg.Users[username]
	if !ok {
		return stage.UserConfig{}, false
	}
	mode := stage.ModeTransaction
	if u.EffectivePoolerMode() == PoolerModeSession {
		mode = stage.ModeSession
	}
	return stage.UserConfig{
		Password:   u.Password,
		IsAdmin:    u.Admin,
		PoolerMode: mode,
	}, true
}

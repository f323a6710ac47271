// Package config provides YAML-based configuration loading for fdp nodes.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
    // AppName is the logical name of the node/application.
    AppName string `mapstructure:"app_name"`

    // NodeID identifies this node in handshakes.
    NodeID string `mapstructure:"node_id"`

    // Log holds logging configuration.
    Log LogConfig `mapstructure:"log"`

    // Transports lists inbound/outbound links.
    Transports []TransportConfig `mapstructure:"transports"`

    // Identity controls the node keypair used in the handshake.
    Identity IdentityConfig `mapstructure:"identity"`

    // Session holds session lifecycle options.
    Session SessionConfig `mapstructure:"session"`

    // Cache holds edge cache options.
    Cache CacheConfig `mapstructure:"cache"`

    // Queue holds egress scheduler options.
    Queue QueueConfig `mapstructure:"queue"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation for file outputs.
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options.
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// TransportConfig describes one transport kind and its endpoints.
// Example YAML:
//
//	transports:
//	  - kind: tcp
//	    listen: [":7440"]
//	  - kind: quic
//	    listen: [":7443"]
//	    dial: ["10.0.0.2:7443"]
type TransportConfig struct {
    Kind   string   `mapstructure:"kind"`
    Listen []string `mapstructure:"listen"`
    Dial   []string `mapstructure:"dial"`
}

// IdentityConfig describes the node keypair.
type IdentityConfig struct {
    Alg            string `mapstructure:"alg"`              // ed25519
    PrivateKey     string `mapstructure:"private_key"`      // base64url (no padding) of raw private key bytes
    PrivateKeyFile string `mapstructure:"private_key_file"` // path to file containing base64 or raw bytes
}

// SessionConfig controls session lifecycle.
type SessionConfig struct {
    IdleTimeoutSec      int `mapstructure:"idle_timeout_sec"`
    HandshakeTimeoutSec int `mapstructure:"handshake_timeout_sec"`
}

// CacheConfig controls the edge cache.
type CacheConfig struct {
    Shards        int    `mapstructure:"shards"`
    DefaultTTLSec int    `mapstructure:"default_ttl_sec"`
    MaxBytes      uint64 `mapstructure:"max_bytes"`
}

// QueueConfig controls the egress scheduler shaper.
type QueueConfig struct {
    RateBytesPerSec int64 `mapstructure:"rate_bytes_per_sec"`
    BurstBytes      int64 `mapstructure:"burst_bytes"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName: "fdp-node",
        NodeID:  "node-1",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/fdp.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Transports: []TransportConfig{
            {Kind: "tcp", Listen: []string{":7440"}},
        },
        Identity: IdentityConfig{Alg: "ed25519"},
        Session:  SessionConfig{IdleTimeoutSec: 300, HandshakeTimeoutSec: 10},
        Cache:    CacheConfig{Shards: 64, DefaultTTLSec: 60},
        Queue:    QueueConfig{RateBytesPerSec: 8 << 20, BurstBytes: 1 << 20},
    }
}

// Load reads configuration from path (if non-empty), otherwise searching
// common locations, with environment overrides. Env vars use the FDP
// prefix and `.`/`-` replaced with `_`, e.g. FDP_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("FDP")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("node_id", cfg.NodeID)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("transports", cfg.Transports)
    v.SetDefault("identity.alg", cfg.Identity.Alg)
    v.SetDefault("identity.private_key", cfg.Identity.PrivateKey)
    v.SetDefault("identity.private_key_file", cfg.Identity.PrivateKeyFile)
    v.SetDefault("session.idle_timeout_sec", cfg.Session.IdleTimeoutSec)
    v.SetDefault("session.handshake_timeout_sec", cfg.Session.HandshakeTimeoutSec)
    v.SetDefault("cache.shards", cfg.Cache.Shards)
    v.SetDefault("cache.default_ttl_sec", cfg.Cache.DefaultTTLSec)
    v.SetDefault("cache.max_bytes", cfg.Cache.MaxBytes)
    v.SetDefault("queue.rate_bytes_per_sec", cfg.Queue.RateBytesPerSec)
    v.SetDefault("queue.burst_bytes", cfg.Queue.BurstBytes)

    if path == "" {
        if envPath := os.Getenv("FDP_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        v.SetConfigName("fdp")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".fdp"))
        }
    }

    // Missing config file is fine; defaults/env still apply.
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }
    if strings.TrimSpace(c.NodeID) == "" {
        c.NodeID = "node-1"
    }
    for i := range c.Transports {
        c.Transports[i].Kind = strings.ToLower(strings.TrimSpace(c.Transports[i].Kind))
    }
    if c.Cache.Shards <= 0 {
        c.Cache.Shards = 64
    }
    return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}

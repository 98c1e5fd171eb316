// File: internal/config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server bootstrap configuration, loaded with spf13/viper the way
// thatcooperguy-nvremote's apps/host-agent/internal/config/config.go
// loads its host-agent settings: defaults first, then an optional file,
// then environment overrides, unmarshalled into a struct and validated.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is bootstrap configuration for a server process: where to
// listen, and default per-endpoint buffer/idle/rate limits. This
// package loads and validates it; no other package in this module
// reads it, so the values are not applied to any registered endpoint.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`

	MaxIdleTimeout             time.Duration `mapstructure:"max_idle_timeout"`
	MaxTextMessageBufferSize   int64         `mapstructure:"max_text_message_buffer_size"`
	MaxBinaryMessageBufferSize int64         `mapstructure:"max_binary_message_buffer_size"`
	DisposeGracePeriod         time.Duration `mapstructure:"dispose_grace_period"`

	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`

	// JWTSigningSecret holds an HMAC key for verifying Authorization:
	// Bearer tokens; empty means none. Loading it does not set any
	// endpoint's api.EndpointConfig.JWTVerificationKey.
	JWTSigningSecret string `mapstructure:"jwt_signing_secret"`
}

// Load builds a Config from, in increasing precedence: built-in
// defaults, an optional config file at configPath (if non-empty and
// present), and WSENDPOINT_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_idle_timeout", 0)
	v.SetDefault("max_text_message_buffer_size", 8192)
	v.SetDefault("max_binary_message_buffer_size", 8192)
	v.SetDefault("dispose_grace_period", 5*time.Second)
	v.SetDefault("rate_limit_per_second", 0)
	v.SetDefault("rate_limit_burst", 0)
	v.SetDefault("jwt_signing_secret", "")

	v.SetEnvPrefix("WSENDPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"listen_addr", "log_level", "max_idle_timeout",
		"max_text_message_buffer_size", "max_binary_message_buffer_size",
		"dispose_grace_period", "rate_limit_per_second", "rate_limit_burst",
		"jwt_signing_secret",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: bind env %q: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would otherwise surface as a confusing
// failure deep inside the registry or dispatcher.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr must not be empty")
	}
	if c.MaxTextMessageBufferSize <= 0 {
		return fmt.Errorf("config: max_text_message_buffer_size must be positive")
	}
	if c.MaxBinaryMessageBufferSize <= 0 {
		return fmt.Errorf("config: max_binary_message_buffer_size must be positive")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("config: rate_limit_per_second must not be negative")
	}
	return nil
}

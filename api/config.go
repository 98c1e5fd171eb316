// File: api/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EndpointConfig is the object bound to the "config" slot of open/close
// callbacks (spec §4.3). Codecs do not receive it: their Init gets a
// codec.Config carrying the endpoint path and this config's Properties
// (spec §4.4). Field-level validation uses go-playground/validator/v10,
// grounded in irgordon-kari's request-payload validation convention
// (api/internal/api/handlers/application.go).
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New()

// EndpointConfig carries the per-endpoint settings an application
// supplies at registration time.
type EndpointConfig struct {
	Path string

	MaxIdleTimeout              time.Duration `validate:"gte=0"`
	MaxTextMessageBufferSize    int64         `validate:"gt=0"`
	MaxBinaryMessageBufferSize  int64         `validate:"gt=0"`
	DisposeGracePeriod          time.Duration `validate:"gte=0"`

	// RateLimitPerSecond bounds inbound whole-message dispatch rate per
	// session; 0 disables the limiter.
	RateLimitPerSecond float64 `validate:"gte=0"`
	RateLimitBurst      int     `validate:"gte=0"`

	// JWTVerificationKey, if non-nil, enables principal extraction from
	// the handshake's Authorization: Bearer header (SPEC_FULL.md §10).
	JWTVerificationKey any

	// Properties carries arbitrary application-supplied settings,
	// accessible to codecs and callbacks via the config slot.
	Properties map[string]any
}

// DefaultEndpointConfig returns sane defaults matching the Jakarta
// WebSocket container defaults for buffer sizes.
func DefaultEndpointConfig(path string) EndpointConfig {
	return EndpointConfig{
		Path:                       path,
		MaxIdleTimeout:             0,
		MaxTextMessageBufferSize:   8192,
		MaxBinaryMessageBufferSize: 8192,
		DisposeGracePeriod:         5 * time.Second,
		Properties:                 make(map[string]any),
	}
}

// Validate runs struct-tag validation over the config's numeric limits,
// folding failures into a single error the caller wraps as a
// wserr.ConfigurationError.
func (c EndpointConfig) Validate() error {
	return configValidator.Struct(c)
}

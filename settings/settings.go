// Package settings holds the environment-driven configuration for a
// composition server. Defaults can be loaded via envdecode; explicit
// server options override whatever the environment provided.
package settings

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Settings configures boundary behavior of a composition server.
type Settings struct {
	// MaskErrorDetails hides handler error messages from callers,
	// replacing them with a generic failure. ENV: MCPCOMPOSE_MASK_ERROR_DETAILS
	MaskErrorDetails bool `env:"MCPCOMPOSE_MASK_ERROR_DETAILS,default=false"`

	// IncludeReservedMeta keeps the reserved metadata namespace on
	// components returned from the boundary. When false it is stripped,
	// leaving only user metadata. ENV: MCPCOMPOSE_INCLUDE_RESERVED_META
	IncludeReservedMeta bool `env:"MCPCOMPOSE_INCLUDE_RESERVED_META,default=true"`

	// LogLevel is one of debug, info, warn, error. ENV: MCPCOMPOSE_LOG_LEVEL
	LogLevel string `env:"MCPCOMPOSE_LOG_LEVEL,default=info"`

	// OnDuplicate names the registration collision policy: error, warn,
	// replace or ignore. ENV: MCPCOMPOSE_ON_DUPLICATE
	OnDuplicate string `env:"MCPCOMPOSE_ON_DUPLICATE,default=error"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		IncludeReservedMeta: true,
		LogLevel:            "info",
		OnDuplicate:         "error",
	}
}

// FromEnv builds Settings from MCPCOMPOSE_* environment variables.
// Defaults are provided via struct tags.
func FromEnv() (Settings, error) {
	var s Settings
	if err := envdecode.Decode(&s); err != nil {
		return Default(), fmt.Errorf("decode settings from environment: %w", err)
	}
	return s, nil
}

// SlogLevel maps the configured level name onto slog's scale. Unknown
// names resolve to info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package observability sets up delved's zap logger and OpenTelemetry tracer.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/delve/internal/config"
)

// ParseLevel returns the minimum level named by cfg as an AtomicLevel, which
// can gate any zapcore.Core and be raised or lowered at runtime.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
func ParseLevel(cfg config.LoggingConfig) (zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	return zap.NewAtomicLevelAt(level), nil
}

// NewLogger builds the process logger described by cfg. "json" selects the
// production encoder and "console" the development encoder; both stamp
// ISO8601 times and print durations such as catalog build times as strings.
// opts are applied after the defaults.
//
// Precondition: cfg must pass config.LoggingConfig validation.
// Postcondition: Returns a logger filtering below cfg.Level, or a non-nil error.
func NewLogger(cfg config.LoggingConfig, opts ...zap.Option) (*zap.Logger, error) {
	level, err := ParseLevel(cfg)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zapCfg.Level = level
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", cfg.Format, err)
	}
	return logger, nil
}

// Package logger builds zap loggers and carries them through request contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type settings struct {
	level     string
	component string
	sampling  bool
}

// Option customises New.
type Option func(*settings)

// WithLevel overrides the environment's default level. Empty keeps the default.
func WithLevel(level string) Option {
	return func(s *settings) { s.level = level }
}

// WithComponent tags every entry with component=name (catalog-api, catalogctl).
func WithComponent(name string) Option {
	return func(s *settings) { s.component = name }
}

// WithoutSampling disables production log sampling, used by batch tools.
func WithoutSampling() Option {
	return func(s *settings) { s.sampling = false }
}

// New creates a logger for env. prod writes sampled JSON, the other
// environments write console output.
func New(env string, opts ...Option) (*zap.Logger, error) {
	s := settings{sampling: true}
	for _, opt := range opts {
		opt(&s)
	}

	cfg, err := baseConfig(env)
	if err != nil {
		return nil, err
	}
	if !s.sampling {
		cfg.Sampling = nil
	}
	if s.level != "" {
		lvl, err := zapcore.ParseLevel(s.level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s.level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if s.component != "" {
		cfg.InitialFields = map[string]any{"component": s.component}
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func baseConfig(env string) (zap.Config, error) {
	switch env {
	case "prod":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg, nil
	case "local", "dev", "docker", "test":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}

package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger for the given environment.
// prod writes JSON, local and dev write colored console output.
// levelOverride (if non-empty) sets the level: debug, info, warn, error.
//
// Fields whose key names a tenant are dropped before encoding, so a stray
// zap.String("tenant_id", ...) never reaches the sink.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(levelOverride[0])); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	sampling := cfg.Sampling
	cfg.Sampling = nil

	l, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.WrapCore(wrapCore(sampling)),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// wrapCore puts the tenant scrubber directly over the output core and the
// sampler, when configured, over the scrubber.
func wrapCore(sampling *zap.SamplingConfig) func(zapcore.Core) zapcore.Core {
	return func(c zapcore.Core) zapcore.Core {
		safe := TenantSafe(c)
		if sampling == nil {
			return safe
		}
		return zapcore.NewSamplerWithOptions(safe, time.Second, sampling.Initial, sampling.Thereafter)
	}
}

// TenantSafe wraps core so that fields keyed by a tenant name are discarded.
func TenantSafe(core zapcore.Core) zapcore.Core {
	return tenantSafeCore{Core: core}
}

type tenantSafeCore struct {
	zapcore.Core
}

func (c tenantSafeCore) With(fields []zapcore.Field) zapcore.Core {
	return tenantSafeCore{Core: c.Core.With(scrub(fields))}
}

func (c tenantSafeCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c tenantSafeCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(e, scrub(fields)) //nolint:wrapcheck // delegating to the wrapped core
}

func scrub(fields []zapcore.Field) []zapcore.Field {
	out := fields[:0:0]
	for _, f := range fields {
		if isTenantKey(f.Key) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isTenantKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "tenant")
}

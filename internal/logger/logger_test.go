package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"local", "dev", "prod"} {
		if _, err := NewLogger(env); err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
		}
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestTenantSafe_DropsTenantFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(TenantSafe(core)).With(zap.String("tenant_id", "company-a"), zap.String("request_id", "r-1"))

	l.Info("retrieval", zap.String("tenantID", "company-a"), zap.Int("total", 3))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	for _, k := range []string{"tenant_id", "tenantID"} {
		if _, ok := ctx[k]; ok {
			t.Errorf("field %q must be dropped", k)
		}
	}
	if ctx["request_id"] != "r-1" || ctx["total"] != int64(3) {
		t.Errorf("unexpected fields: %v", ctx)
	}
}

func TestWrapCore_SamplesAndScrubs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(wrapCore(&zap.SamplingConfig{Initial: 2, Thereafter: 1000})(core))

	for range 10 {
		l.Info("same message", zap.String("tenant_id", "company-a"))
	}

	if n := logs.Len(); n != 2 {
		t.Fatalf("expected sampler to keep 2 entries, got %d", n)
	}
	for _, e := range logs.All() {
		if _, ok := e.ContextMap()["tenant_id"]; ok {
			t.Error("sampled entry still carries tenant_id")
		}
	}
}

func TestWrapCore_NoSampling(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(wrapCore(nil)(core))

	for range 5 {
		l.Info("same message")
	}
	if n := logs.Len(); n != 5 {
		t.Errorf("expected 5 entries without sampling, got %d", n)
	}
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewExample()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback when context holds no logger")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Error("expected no-op logger")
	}

	stored := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), stored)
	if got := FromContext(ctx, fallback); got != stored {
		t.Error("expected stored logger")
	}
}

package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	err := errors.New("boom")

	tests := []struct {
		name     string
		input    []any
		wantKeys []string
	}{
		{"empty input", []any{}, nil},
		{"pairs", []any{"route", "r1", "attempt", 2, "ok", true}, []string{"route", "attempt", "ok"}},
		{"error only", []any{err}, []string{"error"}},
		{"field passthrough", []any{zap.String("x", "y"), "n", 1}, []string{"x", "n"}},
		{"odd number of args", []any{"key1", "val1", "key2"}, []string{"key1", "arg#2"}},
		{"duration and time", []any{"dur", time.Second, "at", time.Unix(0, 0)}, []string{"dur", "at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			if len(fields) != len(tt.wantKeys) {
				t.Fatalf("got %d fields, want %d", len(fields), len(tt.wantKeys))
			}
			for i, f := range fields {
				if f.Key != tt.wantKeys[i] {
					t.Errorf("field %d key = %q, want %q", i, f.Key, tt.wantKeys[i])
				}
			}
		})
	}
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).WithName("refresh").WithValues("cycle", "c1")

	l.Error(errors.New("provider down"), "route refresh failed", "route_id", "r1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "refresh" {
		t.Errorf("logger name = %q, want refresh", e.LoggerName)
	}
	ctx := e.ContextMap()
	if ctx["cycle"] != "c1" || ctx["route_id"] != "r1" || ctx["error"] != "provider down" {
		t.Errorf("unexpected context: %v", ctx)
	}
}

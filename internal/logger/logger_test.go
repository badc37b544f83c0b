package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(String("run_id", "r1"))

	log.Warn("renewal failed", Error(errors.New("boom")), Int("attempt", 1))
	log.Infof("site %s", "Tickhosting")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["run_id"] != "r1" || ctx["error"] != "boom" || ctx["attempt"] != int64(1) {
		t.Errorf("fields = %v", ctx)
	}
	if entries[1].Message != "site Tickhosting" || entries[1].ContextMap()["run_id"] != "r1" {
		t.Errorf("sugared entry = %+v", entries[1])
	}
}

func TestNewBuildsBothEncodings(t *testing.T) {
	for _, pretty := range []bool{true, false} {
		log := New("error", pretty)
		log.Info("dropped")
		_ = log.Sync()
	}
}

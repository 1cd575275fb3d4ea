package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_IsNop(t *testing.T) {
	l := New()
	if l.Log == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected nop logger to have every level disabled")
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{name: "capitalized info", level: "Info", enabled: zapcore.InfoLevel, off: zapcore.DebugLevel},
		{name: "debug", level: "debug", enabled: zapcore.DebugLevel, off: zapcore.DebugLevel - 1},
		{name: "upper error", level: "ERROR", enabled: zapcore.ErrorLevel, off: zapcore.WarnLevel},
		{name: "unknown", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			err := l.Init(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Init(%q) did not return error", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("Init(%q) returned error: %v", tt.level, err)
			}
			if !l.Log.Core().Enabled(tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if l.Log.Core().Enabled(tt.off) {
				t.Errorf("level %s should be disabled", tt.off)
			}
		})
	}
}

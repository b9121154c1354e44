package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		for _, format := range []string{"json", "console"} {
			l, err := New(tt.level, format)
			if err != nil {
				t.Fatalf("New(%q, %q): %v", tt.level, format, err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("New(%q, %q): level %s not enabled", tt.level, format, tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("New(%q, %q): level below %s should be disabled", tt.level, format, tt.want)
			}
		}
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	if _, err := New("verbose", "json"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{"defaults", "", "", zapcore.InfoLevel, false},
		{"debug console", "debug", "console", zapcore.DebugLevel, false},
		{"warn json", "warn", "json", zapcore.WarnLevel, false},
		{"uppercase format", "error", "JSON", zapcore.ErrorLevel, false},
		{"bad level", "loud", "console", 0, true},
		{"bad format", "info", "xml", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("expected level %s enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("expected level below %s disabled", tt.want)
			}
		})
	}
}

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		desc    string
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{desc: "console debug", level: "debug", format: "console", want: zapcore.DebugLevel},
		{desc: "json warn", level: "WARN", format: "json", want: zapcore.WarnLevel},
		{desc: "default format", level: " info ", format: "", want: zapcore.InfoLevel},
		{desc: "bad level", level: "loud", format: "json", wantErr: true},
		{desc: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if tt.wantErr {
				return
			}
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("level %s should be disabled", tt.want-1)
			}
		})
	}
}

package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantLevel zapcore.Level
	}{
		{
			name: "Development Config",
			config: Config{
				Level:       "debug",
				Environment: "development",
				ServiceName: "tracker",
			},
			wantLevel: zapcore.DebugLevel,
		},
		{
			name: "Production Config",
			config: Config{
				Level:       "info",
				Environment: "production",
				ServiceName: "archiver",
			},
			wantLevel: zapcore.InfoLevel,
		},
		{
			name: "Invalid Level Defaults to Info",
			config: Config{
				Level:       "invalid",
				Environment: "development",
				ServiceName: "tracker",
			},
			wantLevel: zapcore.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !l.zap.Core().Enabled(tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	l := &Logger{zap: zap.New(core)}

	l.Info("info message", zap.String("key", "value"))
	if observed.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", observed.Len())
	}
	entry := observed.All()[0]
	if entry.Message != "info message" {
		t.Errorf("expected message 'info message', got %q", entry.Message)
	}
	if entry.ContextMap()["key"] != "value" {
		t.Errorf("expected key=value, got %v", entry.ContextMap()["key"])
	}

	observed.TakeAll()
	l.Error("error message", errors.New("boom"))
	entry = observed.All()[0]
	if entry.ContextMap()["error"] != "boom" {
		t.Errorf("expected error field, got %v", entry.ContextMap()["error"])
	}

	observed.TakeAll()
	l.Debug("debug message")
	if observed.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %d entries", observed.Len())
	}
}

func TestWith(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	l := &Logger{zap: zap.New(core)}

	child := l.With(zap.String("writer_id", "user-abc"))
	child.Info("child message")

	entry := observed.All()[0]
	if entry.ContextMap()["writer_id"] != "user-abc" {
		t.Errorf("expected writer_id field, got %v", entry.ContextMap())
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("discarded")
	l.Error("discarded", errors.New("x"))
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestComponentAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, slog.LevelInfo), "pipeline")
	l.Info("tick")

	assert.Contains(t, buf.String(), "component=pipeline")
	assert.Contains(t, buf.String(), "msg=tick")
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(&buf, slog.LevelDebug))
	Component(nil, "session").Debug("hello")

	assert.Contains(t, buf.String(), "component=session")
}

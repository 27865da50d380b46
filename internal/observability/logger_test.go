package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "info", "json")

	l.Info("waitlist joined", slog.String("email", "a@b.co"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "waitlist joined", record["msg"])
	assert.Equal(t, "a@b.co", record["email"])
}

func TestNewLogger_TextFormatFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "info", "text")

	l.Debug("hidden")
	l.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestFromContext_AttachesValues(t *testing.T) {
	saved := logger
	defer func() { logger = saved }()

	var buf bytes.Buffer
	logger = NewLogger(&buf, "info", "json")

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithClientID(ctx, "client-456")
	FromContext(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"client_id":"client-456"`)
}

func TestFromContext_IgnoresEmptyValues(t *testing.T) {
	saved := logger
	defer func() { logger = saved }()

	var buf bytes.Buffer
	logger = NewLogger(&buf, "info", "json")

	ctx := WithRequestID(context.Background(), "")
	FromContext(ctx).Info("hello")

	assert.False(t, strings.Contains(buf.String(), "request_id"))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	saved := logger
	defer func() { logger = saved }()
	logger = nil

	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextHandler_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", slog.LevelInfo)

	ctx := WithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "req-1", rec["request_id"])
	require.Equal(t, "v", rec["k"])
}

func TestContextHandler_NoRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", slog.LevelInfo).With("component", "test")

	logger.InfoContext(context.Background(), "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.NotContains(t, rec, "request_id")
	require.Equal(t, "test", rec["component"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", slog.LevelWarn)

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	require.Empty(t, RequestIDFromContext(context.Background()))
	require.NotEqual(t, NewRequestID(), NewRequestID())
}

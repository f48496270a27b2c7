package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColoredHandlerKeepsWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColoredHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("component", "tailor", "request_id", "abc")

	log.Info("Summary tailored", "chars", 42)

	line := buf.String()
	assert.Contains(t, line, "[abc]")
	assert.Contains(t, line, "Summary tailored")
	assert.Contains(t, line, `component`+Reset+`="tailor"`)
	assert.Contains(t, line, `chars`+Reset+`=42`)
	assert.NotContains(t, line, "request_id")
}

func TestColoredHandlerGroupsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColoredHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.WithGroup("vlm").Warn("slow poll", "attempt", 3)
	assert.Contains(t, buf.String(), "vlm.attempt")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	h, err := New(&buf, "debug", "json")
	require.NoError(t, err)

	slog.New(h).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-9")
	assert.Equal(t, "req-9", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

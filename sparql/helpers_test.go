package sparql

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureLogger returns a logger writing text records into the returned buffer.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, &buf
}

func newTestSession(t *testing.T, endpoint string, options ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	logger, buf := captureLogger()
	s, err := NewSession(endpoint, append([]Option{WithLogger(logger)}, options...)...)
	require.NoError(t, err)
	return s, buf
}

package testutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// NopLogger returns a no-op logger for tests
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// LogCapture collects JSON log lines written through its Logger.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// CaptureLogs returns a capture and a debug-level logger writing into it.
func CaptureLogs() (*LogCapture, zerolog.Logger) {
	c := &LogCapture{}
	return c, zerolog.New(c).Level(zerolog.DebugLevel)
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes every captured line.
func (c *LogCapture) Entries(t testing.TB) []map[string]any {
	t.Helper()
	c.mu.Lock()
	raw := c.buf.String()
	c.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line %q", line)
		out = append(out, entry)
	}
	return out
}

// WithMessage returns the captured entries whose message is msg.
func (c *LogCapture) WithMessage(t testing.TB, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range c.Entries(t) {
		if e["message"] == msg {
			out = append(out, e)
		}
	}
	return out
}

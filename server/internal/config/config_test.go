package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "{}\n")
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "*", cfg.Server.CORS.AllowedOrigin)
	assert.True(t, cfg.Server.WS.Enabled)
	assert.Equal(t, DefaultTelemetryPath, cfg.Telemetry.Path)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  max_body_bytes: 4096
  cors:
    allowed_origin: "https://dash.example.com"
  ws:
    enabled: false
telemetry:
  path: /data/telemetry.json
log:
  level: debug
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9091, cfg.Server.HTTPPort)
	assert.Equal(t, int64(4096), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "https://dash.example.com", cfg.Server.CORS.AllowedOrigin)
	assert.False(t, cfg.Server.WS.Enabled)
	assert.Equal(t, "/data/telemetry.json", cfg.Telemetry.Path)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "server:\n  http_port: 70000\n"},
		{"zero body cap", "server:\n  max_body_bytes: 0\n"},
		{"empty origin", "server:\n  cors:\n    allowed_origin: \"\"\n"},
		{"empty telemetry path", "telemetry:\n  path: \"\"\n"},
		{"unknown log level", "log:\n  level: chatty\n"},
		{"bad yaml", "server: [unterminated\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogConfig_SlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, LogConfig{Level: in}.SlogLevel(), "level %q", in)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got atomic.Value
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(c *Config) { got.Store(c.Log.Level) })
	}()

	// The watcher registers asynchronously, so keep rewriting until a reload lands.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600)
		v, _ := got.Load().(string)
		return v == "debug"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_InvalidReloadSkipped(t *testing.T) {
	p := writeConfig(t, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, p, func(*Config) { calls.Add(1) }) //nolint:errcheck

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf("log:\n  level: loud%d\n", i)), 0o600))
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/dir/config.yaml", func(*Config) {})
	assert.Error(t, err)
}

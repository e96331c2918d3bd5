package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionpulse/regionpulse/pkg/types"
	"github.com/regionpulse/regionpulse/server/internal/config"
)

const telemetryJSON = `[
  {"region": "us-east", "latency_ms": 100, "uptime_pct": 99.0},
  {"region": "us-east", "latency_ms": 200, "uptime_pct": 99.5},
  {"region": "us-east", "latency_ms": 300, "uptime_pct": 99.9},
  {"region": "us-east", "latency_ms": 400, "uptime_pct": 100.0},
  {"region": "us-east", "latency_ms": 500, "uptime_pct": 98.0}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuery_WithThreshold(t *testing.T) {
	data := writeFile(t, t.TempDir(), "telemetry.json", telemetryJSON)

	out, err := runCLI(t, "query", "--data", data, "--regions", "us-east,eu-west", "--threshold", "250")
	require.NoError(t, err)

	var res types.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, types.Result{
		"us-east": {AvgLatency: 300, P95Latency: 480, AvgUptime: 99.28, Breaches: 3},
	}, res)
}

func TestQuery_NoThreshold(t *testing.T) {
	data := writeFile(t, t.TempDir(), "telemetry.json", telemetryJSON)

	out, err := runCLI(t, "query", "--data", data, "--regions", "us-east")
	require.NoError(t, err)

	var res types.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res["us-east"].Breaches)
}

func TestQuery_ZeroThresholdIsNotAbsent(t *testing.T) {
	data := writeFile(t, t.TempDir(), "telemetry.json", telemetryJSON)

	out, err := runCLI(t, "query", "--data", data, "--regions", "us-east", "--threshold", "0")
	require.NoError(t, err)

	var res types.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 5, res["us-east"].Breaches)
}

func TestQuery_NoRegions(t *testing.T) {
	data := writeFile(t, t.TempDir(), "telemetry.json", telemetryJSON)

	out, err := runCLI(t, "query", "--data", data)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, out)
}

func TestQuery_DataPathFromConfig(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "telemetry.json", telemetryJSON)
	cfg := writeFile(t, dir, "config.yaml", "telemetry:\n  path: "+data+"\n")

	out, err := runCLI(t, "query", "--config", cfg, "--regions", "us-east")
	require.NoError(t, err)
	assert.Contains(t, out, `"us-east"`)
}

func TestQuery_MissingData(t *testing.T) {
	_, err := runCLI(t, "query", "--data", filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestQuery_MalformedData(t *testing.T) {
	data := writeFile(t, t.TempDir(), "telemetry.json", `[{"region": "x"}]`)
	_, err := runCLI(t, "query", "--data", data)
	assert.Error(t, err)
}

func TestServe_MissingTelemetryFailsBeforeListening(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml",
		"server:\n  http_port: 18099\ntelemetry:\n  path: "+filepath.Join(dir, "absent.json")+"\n")

	_, err := runCLI(t, "serve", "--config", cfg)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestServe_BadConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: loud\n")
	_, err := runCLI(t, "serve", "--config", cfg)
	assert.Error(t, err)
}

func TestRestartNeeded(t *testing.T) {
	a := config.Defaults()
	b := config.Defaults()
	b.Log.Level = "debug"
	assert.False(t, restartNeeded(a, b))

	b.Server.HTTPPort = 9000
	assert.True(t, restartNeeded(a, b))
}

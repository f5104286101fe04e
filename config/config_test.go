package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/benz9527/xdispatch/xlog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	require.Equal(t, uint64(262144), cfg.Ring.Capacity)
	require.Equal(t, 1, cfg.Ring.Consumers)
	require.Equal(t, 10*time.Millisecond, cfg.Handler.Delay)
	require.Equal(t, "INFO", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Encoder)
	require.Equal(t, "prometheus", cfg.Metrics.Exporter)
	require.Equal(t, 10*time.Second, cfg.Shutdown.Timeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xdispatch.yaml")
	writeFile(t, path, `
http:
  addr: ":9090"
ring:
  capacity: 1000
handler:
  delay: 0s
log:
  level: debug
  encoder: plain
metrics:
  exporter: stdout
`)
	t.Setenv(EnvHTTPAddr, ":7070")
	t.Setenv(EnvShutdownTimeout, "3s")
	t.Setenv(EnvRingCapacity, "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTP.Addr)
	require.Equal(t, uint64(1024), cfg.Ring.Capacity)
	require.Equal(t, time.Duration(0), cfg.Handler.Delay)
	require.Equal(t, "DEBUG", cfg.Log.Level)
	require.Equal(t, "stdout", cfg.Metrics.Exporter)
	require.Equal(t, 3*time.Second, cfg.Shutdown.Timeout)

	enc, err := ParseLogEncoder(cfg.Log.Encoder)
	require.NoError(t, err)
	require.Equal(t, xlog.PlainText, enc)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default().Ring, cfg.Ring)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "unknown.yaml")
	writeFile(t, path, "ring:\n  slots: 8\n")
	_, err = Load(path)
	require.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	writeFile(t, path, `
ring:
  capacity: 0
  consumers: 2
log:
  level: verbose
  encoder: xml
metrics:
  exporter: graphite
`)
	_, err = Load(path)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 5)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel(" warn ")
	require.NoError(t, err)
	require.Equal(t, xlog.LogLevelWarn, lvl)
	_, err = ParseLogLevel("trace")
	require.Error(t, err)
}

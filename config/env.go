package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvHTTPAddr        = "XDISPATCH_HTTP_ADDR"
	EnvRingCapacity    = "XDISPATCH_RING_CAPACITY"
	EnvHandlerDelay    = "XDISPATCH_HANDLER_DELAY"
	EnvLogLevel        = "XLOG_LVL"
	EnvLogEncoder      = "XDISPATCH_LOG_ENCODER"
	EnvMetricsExporter = "XDISPATCH_METRICS_EXPORTER"
	EnvShutdownTimeout = "XDISPATCH_SHUTDOWN_TIMEOUT"
)

// GetEnv returns the environment variable value or a default.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func GetUintEnv(key string, defaultValue uint64) uint64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// applyEnv overrides the file values, malformed variables are ignored.
func (cfg *Config) applyEnv() {
	cfg.HTTP.Addr = GetEnv(EnvHTTPAddr, cfg.HTTP.Addr)
	cfg.Ring.Capacity = GetUintEnv(EnvRingCapacity, cfg.Ring.Capacity)
	cfg.Handler.Delay = GetDurationEnv(EnvHandlerDelay, cfg.Handler.Delay)
	cfg.Log.Level = strings.ToUpper(GetEnv(EnvLogLevel, cfg.Log.Level))
	cfg.Log.Encoder = GetEnv(EnvLogEncoder, cfg.Log.Encoder)
	cfg.Metrics.Exporter = GetEnv(EnvMetricsExporter, cfg.Metrics.Exporter)
	cfg.Shutdown.Timeout = GetDurationEnv(EnvShutdownTimeout, cfg.Shutdown.Timeout)
}

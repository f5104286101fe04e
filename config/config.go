package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/benz9527/xdispatch/lib/bits"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/observability"
	"github.com/benz9527/xdispatch/xlog"
)

const (
	DefaultHTTPAddr        = ":8080"
	DefaultRingCapacity    = 1 << 18
	DefaultHandlerDelay    = 10 * time.Millisecond
	DefaultShutdownTimeout = 10 * time.Second
)

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type RingConfig struct {
	// Capacity is rounded up to a power of two.
	Capacity uint64 `yaml:"capacity"`
	// Consumers must be 1, the ring has a single consumer cursor.
	Consumers int `yaml:"consumers"`
}

type HandlerConfig struct {
	Delay time.Duration `yaml:"delay"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Encoder string `yaml:"encoder"`
}

type MetricsConfig struct {
	Exporter string        `yaml:"exporter"`
	Interval time.Duration `yaml:"interval"`
}

type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Ring     RingConfig     `yaml:"ring"`
	Handler  HandlerConfig  `yaml:"handler"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
		Ring: RingConfig{
			Capacity:  DefaultRingCapacity,
			Consumers: 1,
		},
		Handler: HandlerConfig{Delay: DefaultHandlerDelay},
		Log: LogConfig{
			Level:   xlog.LogLevelInfo.String(),
			Encoder: "json",
		},
		Metrics: MetricsConfig{
			Exporter: string(observability.PrometheusExporter),
			Interval: 10 * time.Second,
		},
		Shutdown: ShutdownConfig{Timeout: DefaultShutdownTimeout},
	}
}

// Load reads the YAML file over the defaults, then the environment over
// both. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(path)) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "read config file")
		}
		if err = cfg.decode(data); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document keeps the defaults.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return infra.WrapErrorStackWithMessage(err, "decode config file")
	}
	return nil
}

// Validate normalizes the ring capacity and reports every invalid field.
func (cfg *Config) Validate() error {
	var merr error
	if cfg.Ring.Capacity == 0 {
		merr = multierr.Append(merr, infra.NewErrorStack("ring.capacity must be positive"))
	} else {
		cfg.Ring.Capacity = bits.RoundupPowOf2ByCeil(cfg.Ring.Capacity)
	}
	if cfg.Ring.Consumers != 1 {
		merr = multierr.Append(merr, infra.NewErrorStack("ring.consumers must be 1"))
	}
	if cfg.Handler.Delay < 0 {
		merr = multierr.Append(merr, infra.NewErrorStack("handler.delay must not be negative"))
	}
	if _, err := ParseLogLevel(cfg.Log.Level); err != nil {
		merr = multierr.Append(merr, err)
	}
	if _, err := ParseLogEncoder(cfg.Log.Encoder); err != nil {
		merr = multierr.Append(merr, err)
	}
	if _, err := observability.ParseMetricsExporterType(cfg.Metrics.Exporter); err != nil {
		merr = multierr.Append(merr, err)
	}
	if cfg.Metrics.Interval <= 0 {
		merr = multierr.Append(merr, infra.NewErrorStack("metrics.interval must be positive"))
	}
	if cfg.Shutdown.Timeout <= 0 {
		merr = multierr.Append(merr, infra.NewErrorStack("shutdown.timeout must be positive"))
	}
	return merr
}

func ParseLogLevel(level string) (xlog.LogLevel, error) {
	switch lvl := xlog.LogLevel(strings.ToUpper(strings.TrimSpace(level))); lvl {
	case xlog.LogLevelDebug, xlog.LogLevelInfo, xlog.LogLevelWarn, xlog.LogLevelError:
		return lvl, nil
	}
	return "", infra.NewErrorStack("unknown log level " + level)
}

func ParseLogEncoder(enc string) (xlog.LogEncoderType, error) {
	if typ := xlog.ParseLogEncoder(enc); typ == xlog.JSON || typ == xlog.PlainText {
		return typ, nil
	}
	return 0, infra.NewErrorStack("unknown log encoder " + enc)
}

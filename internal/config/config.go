package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactive/internal/errors"
)

const (
	// DefaultAddr is the default listen address of the live server.
	DefaultAddr = ":8080"

	// DefaultMetricsPath is the default path of the Prometheus endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "reactive"
)

// Config is the complete reactivectl configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Live    LiveConfig    `yaml:"live" json:"live"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// path stores where the config was loaded from.
	path string
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// Format is text or json.
	Format string `yaml:"format" json:"format"`
}

// LiveConfig controls the snapshot server started by serve.
type LiveConfig struct {
	Addr         string   `yaml:"addr" json:"addr"`
	WriteTimeout Duration `yaml:"writeTimeout" json:"writeTimeout"`
	PingInterval Duration `yaml:"pingInterval" json:"pingInterval"`
	SendBuffer   int      `yaml:"sendBuffer" json:"sendBuffer"`

	// StepInterval is the delay between replayed script steps.
	StepInterval Duration `yaml:"stepInterval" json:"stepInterval"`
}

// MetricsConfig controls the Prometheus observer and endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with every field set to its default.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Live: LiveConfig{
			Addr:         DefaultAddr,
			WriteTimeout: Duration(10 * time.Second),
			PingInterval: Duration(30 * time.Second),
			SendBuffer:   16,
			StepInterval: Duration(time.Second),
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: DefaultNamespace,
		},
	}
}

// FromFile loads configuration from a file, choosing the format by
// extension. Values missing from the file keep their defaults.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.New("R100").
				WithDetailf("No configuration file at %s.", path)
		}
		return Config{}, errors.New("R101").Wrap(err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = FromYAML(data)
	case ".json":
		cfg, err = FromJSON(data)
	default:
		return Config{}, errors.New("R103").
			WithSuggestion("Rename " + filepath.Base(path) + " to use a .yaml or .json extension")
	}
	if err != nil {
		return Config{}, err
	}

	cfg.path = path
	return cfg, nil
}

// FromYAML parses YAML data over the defaults. Unknown keys are rejected.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return Config{}, errors.New("R101").Wrap(err).
			WithSuggestion("Check the keys against the structure in the reactivectl docs")
	}
	return cfg, cfg.Validate()
}

// FromJSON parses JSON data over the defaults. Unknown keys are rejected.
func FromJSON(data []byte) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.New("R101").Wrap(err)
	}
	return cfg, cfg.Validate()
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c Config) Path() string {
	return c.path
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("R102").
			WithDetailf("log.format must be text or json, got %q.", c.Log.Format)
	}

	if c.Live.Addr == "" {
		return errors.New("R102").WithDetail("live.addr must not be empty.")
	}
	if c.Live.WriteTimeout <= 0 || c.Live.PingInterval <= 0 {
		return errors.New("R102").WithDetail("live.writeTimeout and live.pingInterval must be positive.")
	}
	if c.Live.SendBuffer < 1 {
		return errors.New("R102").
			WithDetailf("live.sendBuffer must be at least 1, got %d.", c.Live.SendBuffer)
	}
	if c.Live.StepInterval < 0 {
		return errors.New("R102").WithDetail("live.stepInterval must not be negative.")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("R102").
			WithDetailf("metrics.path must start with /, got %q.", c.Metrics.Path)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("R102").
			WithDetailf("log.level must be debug, info, warn or error, got %q.", c.Log.Level)
	}
	return level, nil
}

// String renders the effective configuration as YAML.
func (c Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

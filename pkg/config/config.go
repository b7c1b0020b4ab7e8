// Package config loads run configuration from YAML files with environment
// overrides, validates it, and assembles ready-to-run engine configurations.
package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/evogo/pkg/checkpoint"
	"github.com/XiaoConstantine/evogo/pkg/domain"
	"github.com/XiaoConstantine/evogo/pkg/engine"
	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/logging"
	"github.com/XiaoConstantine/evogo/pkg/meta"
	"github.com/XiaoConstantine/evogo/pkg/telemetry"
)

// MetaSection configures the optional meta-evolution layer.
type MetaSection struct {
	Enabled             bool `yaml:"enabled"`
	PopulationSize      int  `yaml:"population_size" validate:"gte=0,lte=20"`
	Interval            int  `yaml:"interval" validate:"gte=0"`
	TrialGenerations    int  `yaml:"trial_generations" validate:"gte=0"`
	TrialPopulationSize int  `yaml:"trial_population_size" validate:"gte=0"`
}

// CheckpointSection enables persistent snapshots when Path is set.
type CheckpointSection struct {
	Path     string `yaml:"path"`
	Interval int    `yaml:"interval" validate:"gte=0"`
}

// TelemetrySection enables per-generation record collection when Enabled.
type TelemetrySection struct {
	Enabled     bool   `yaml:"enabled"`
	ParquetPath string `yaml:"parquet_path"`
}

// LoggingSection sets the default logger's severity.
type LoggingSection struct {
	Level string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
}

// Config is the full file-level configuration of one run.
type Config struct {
	Domain         string `yaml:"domain" validate:"required"`
	MaxGenerations int    `yaml:"max_generations" validate:"gt=0"`
	Seed           int64  `yaml:"seed"`

	Params     meta.Params       `yaml:"params"`
	Meta       MetaSection       `yaml:"meta"`
	Checkpoint CheckpointSection `yaml:"checkpoint"`
	Telemetry  TelemetrySection  `yaml:"telemetry"`
	Logging    LoggingSection    `yaml:"logging"`
}

var validate = validator.New()

// Default returns a configuration with every parameter at its default; the
// domain name must still be filled in.
func Default() Config {
	return Config{
		MaxGenerations: 1000,
		Params:         meta.DefaultParams(),
		Meta: MetaSection{
			PopulationSize:      10,
			Interval:            10,
			TrialGenerations:    5,
			TrialPopulationSize: 30,
		},
		Checkpoint: CheckpointSection{Interval: 50},
		Logging:    LoggingSection{Level: "INFO"},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. Unknown YAML keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidArgument, "failed to read config file"),
			errors.Fields{"path": path},
		)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidArgument, "failed to parse config")
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Environment variables override file values, so one config file can serve
// many runs.
func (c *Config) applyEnv() {
	if v := os.Getenv("EVOGO_DOMAIN"); v != "" {
		c.Domain = v
	}
	if v := os.Getenv("EVOGO_MAX_GENERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxGenerations = n
		}
	}
	if v := os.Getenv("EVOGO_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
	if v := os.Getenv("EVOGO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the whole configuration, including the nested evolution
// parameters.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return c.Params.Validate()
}

// Build resolves the domain name against the registry and assembles an
// engine configuration. When checkpointing or telemetry are configured the
// returned config carries an open store and a fresh collector; both are
// reachable through the returned engine.Config for export and shutdown.
func (c *Config) Build(registry *domain.Registry) (engine.Config, error) {
	d, err := registry.Get(c.Domain)
	if err != nil {
		return engine.Config{}, err
	}

	if c.Logging.Level != "" {
		logging.SetLogger(logging.NewLogger(logging.Config{
			Severity: logging.ParseSeverity(c.Logging.Level),
			Outputs:  []logging.Output{logging.NewConsoleOutput(true)},
		}))
	}

	ec := engine.Config{
		Domain:         d,
		Params:         c.Params,
		MaxGenerations: c.MaxGenerations,
		Seed:           c.Seed,
		Meta: engine.MetaConfig{
			Enabled:             c.Meta.Enabled,
			PopulationSize:      c.Meta.PopulationSize,
			Interval:            c.Meta.Interval,
			TrialGenerations:    c.Meta.TrialGenerations,
			TrialPopulationSize: c.Meta.TrialPopulationSize,
		},
	}

	if c.Checkpoint.Path != "" {
		store, err := checkpoint.NewSQLiteStore(c.Checkpoint.Path)
		if err != nil {
			return engine.Config{}, err
		}
		ec.CheckpointStore = store
		ec.CheckpointInterval = c.Checkpoint.Interval
	}

	if c.Telemetry.Enabled {
		ec.Collector = telemetry.NewCollector()
	}

	return ec, nil
}

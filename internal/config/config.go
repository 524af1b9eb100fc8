// Package config provides configuration management for semtex using Viper
// for loading from files, environment variables, and command-line flags.
//
// Values are resolved in the order flags, SEMTEX_* environment variables,
// then the YAML config file (.semtex.yml unless SEMTEX_CONFIG_FILE or
// --config names another). Load applies defaults and validates the result.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/semtex/internal/errors"
	"github.com/conneroisu/semtex/internal/validation"
)

// Defaults
const (
	DefaultTypesetter   = "pdflatex"
	DefaultPollInterval = 10 * time.Millisecond
	DefaultDebounce     = 300 * time.Millisecond
	DefaultLogLevel     = "warn"
)

// DefaultTypesetterArgs make the typesetter report errors as file:line and
// never stop for input.
var DefaultTypesetterArgs = []string{"-file-line-error", "-interaction=nonstopmode"}

type Config struct {
	Verbose          bool             `mapstructure:"verbose" yaml:"verbose"`
	KeepIntermediate bool             `mapstructure:"keep_tex" yaml:"keep_tex"`
	PreprocessOnly   bool             `mapstructure:"preprocess_only" yaml:"preprocess_only"`
	LogLevel         string           `mapstructure:"log_level" yaml:"log_level"`
	Report           string           `mapstructure:"report" yaml:"report"`
	Typesetter       TypesetterConfig `mapstructure:"typesetter" yaml:"typesetter"`
	Pipeline         PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	Watch            WatchConfig      `mapstructure:"watch" yaml:"watch"`
}

type TypesetterConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

type PipelineConfig struct {
	// Workers is the pool size; 0 picks one per CPU, at least two.
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// KeepGenerated reports whether generated .tex files survive the run.
// Preprocess-only runs always keep them.
func (c *Config) KeepGenerated() bool {
	return c.KeepIntermediate || c.PreprocessOnly
}

// EffectiveLogLevel returns the level to log at; verbose forces debug.
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// SetDefaults registers default values with viper. Registering them also
// makes every key visible to AutomaticEnv during Unmarshal.
func SetDefaults() {
	viper.SetDefault("verbose", false)
	viper.SetDefault("keep_tex", false)
	viper.SetDefault("preprocess_only", false)
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("report", "")
	viper.SetDefault("typesetter.command", DefaultTypesetter)
	viper.SetDefault("typesetter.args", DefaultTypesetterArgs)
	viper.SetDefault("pipeline.workers", 0)
	viper.SetDefault("pipeline.poll_interval", DefaultPollInterval)
	viper.SetDefault("watch.debounce", DefaultDebounce)
}

func Load() (*Config, error) {
	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "cannot decode configuration")
	}

	// An explicitly empty value in the file falls back to the default
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.Typesetter.Command == "" {
		config.Typesetter.Command = DefaultTypesetter
	}
	if config.Pipeline.PollInterval == 0 {
		config.Pipeline.PollInterval = DefaultPollInterval
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}

	if err := validateConfig(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", config.LogLevel)
	}

	if err := validation.ValidateTypesetter(config.Typesetter.Command, config.Typesetter.Args); err != nil {
		return fmt.Errorf("typesetter config: %w", err)
	}

	if config.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline config: workers %d must not be negative", config.Pipeline.Workers)
	}
	if config.Pipeline.PollInterval < 0 {
		return fmt.Errorf("pipeline config: poll_interval %s must be positive", config.Pipeline.PollInterval)
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: debounce %s must be positive", config.Watch.Debounce)
	}

	if config.Report != "" {
		if err := validation.ValidateOutputPath(config.Report); err != nil {
			return fmt.Errorf("report path: %w", err)
		}
	}

	return nil
}

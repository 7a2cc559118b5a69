// Package config provides YAML-based configuration for esmport.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Accepted enumerations.
var (
	Formats             = []string{"text", "json", "yaml"}
	NativeBindingStyles = []string{"default", "namespace"}
)

// Sentinel validation errors.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("run.workers must be non-negative")
	// ErrInvalidFormat indicates an unknown report format.
	ErrInvalidFormat = errors.New("output.format must be one of text, json, yaml")
	// ErrInvalidBindingStyle indicates an unknown native binding style.
	ErrInvalidBindingStyle = errors.New("migration.native_binding_style must be default or namespace")
	// ErrEmptyEntryFile indicates the entry file name is empty.
	ErrEmptyEntryFile = errors.New("migration.entry_file must not be empty")
	// ErrEmptyLifecycle indicates no lifecycle method names.
	ErrEmptyLifecycle = errors.New("migration.lifecycle must name at least one method")
	// ErrEmptyDirSuffix indicates neither an output directory suffix nor a
	// file suffix is set.
	ErrEmptyDirSuffix = errors.New("output.dir_suffix must not be empty unless output.file_suffix is set")
	// ErrInvalidLogLevel indicates an unparsable log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidSampleRatio indicates the sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Config holds all esmport configuration.
type Config struct {
	Migration MigrationConfig `mapstructure:"migration"`
	Output    OutputConfig    `mapstructure:"output"`
	Run       RunConfig       `mapstructure:"run"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// MigrationConfig controls how files are rewritten.
type MigrationConfig struct {
	EntryFile          string   `mapstructure:"entry_file"`
	PrefsFile          string   `mapstructure:"prefs_file"`
	Lifecycle          []string `mapstructure:"lifecycle"`
	SubmoduleDirs      []string `mapstructure:"submodule_dirs"`
	NamespaceModules   []string `mapstructure:"namespace_modules"`
	BuiltinModules     []string `mapstructure:"builtin_modules"`
	ObsoleteModules    []string `mapstructure:"obsolete_modules"`
	NativeBindingStyle string   `mapstructure:"native_binding_style"`
	Extension          string   `mapstructure:"extension"`
	ShellRoot          string   `mapstructure:"shell_root"`
	SingletonAccessor  string   `mapstructure:"singleton_accessor"`
}

// OutputConfig controls where results go and how the report is rendered.
type OutputConfig struct {
	DirSuffix  string `mapstructure:"dir_suffix"`
	FileSuffix string `mapstructure:"file_suffix"`
	Format     string `mapstructure:"format"`
}

// RunConfig controls file selection and parallelism.
type RunConfig struct {
	Workers     int      `mapstructure:"workers"`
	Excludes    []string `mapstructure:"excludes"`
	NoGitignore bool     `mapstructure:"no_gitignore"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders     string  `mapstructure:"otlp_headers"`
	MetricsTextfile string  `mapstructure:"metrics_textfile"`
	SampleRatio     float64 `mapstructure:"sample_ratio"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	migrationErr := c.validateMigration()
	if migrationErr != nil {
		return migrationErr
	}

	if c.Output.DirSuffix == "" && c.Output.FileSuffix == "" {
		return ErrEmptyDirSuffix
	}

	if !slices.Contains(Formats, c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if c.Run.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Run.Workers)
	}

	_, levelErr := c.Logging.SlogLevel()
	if levelErr != nil {
		return levelErr
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

func (c *Config) validateMigration() error {
	if strings.TrimSpace(c.Migration.EntryFile) == "" {
		return ErrEmptyEntryFile
	}

	if len(c.Migration.Lifecycle) == 0 {
		return ErrEmptyLifecycle
	}

	if !slices.Contains(NativeBindingStyles, c.Migration.NativeBindingStyle) {
		return fmt.Errorf("%w: %q", ErrInvalidBindingStyle, c.Migration.NativeBindingStyle)
	}

	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

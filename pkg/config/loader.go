package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
	"github.com/Sumatoshi-tech/esmport/pkg/lifecycle"
	"github.com/Sumatoshi-tech/esmport/pkg/rewrite"
)

// configName is the config file name without extension.
const configName = ".esmport"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for esmport settings.
const envPrefix = "ESMPORT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("migration.entry_file", DefaultEntryFile)
	viperCfg.SetDefault("migration.prefs_file", DefaultPrefsFile)
	viperCfg.SetDefault("migration.lifecycle", slices.Clone(lifecycle.DefaultLifecycle))
	viperCfg.SetDefault("migration.submodule_dirs", slices.Clone(legacyimport.DefaultSubmoduleDirs))
	viperCfg.SetDefault("migration.namespace_modules", slices.Clone(rewrite.DefaultNamespaceModules))
	viperCfg.SetDefault("migration.builtin_modules", slices.Clone(rewrite.DefaultBuiltinModules))
	viperCfg.SetDefault("migration.obsolete_modules", slices.Clone(rewrite.DefaultObsoleteModules))
	viperCfg.SetDefault("migration.native_binding_style", DefaultNativeBindingStyle)
	viperCfg.SetDefault("migration.extension", DefaultExtensionModule)
	viperCfg.SetDefault("migration.shell_root", DefaultShellRoot)
	viperCfg.SetDefault("migration.singleton_accessor", DefaultSingletonAccessor)

	viperCfg.SetDefault("output.dir_suffix", DefaultDirSuffix)
	viperCfg.SetDefault("output.file_suffix", DefaultFileSuffix)
	viperCfg.SetDefault("output.format", DefaultFormat)

	viperCfg.SetDefault("run.workers", DefaultWorkers)
	viperCfg.SetDefault("run.excludes", []string{})
	viperCfg.SetDefault("run.no_gitignore", DefaultNoGitignore)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.metrics_textfile", DefaultMetricsTextfile)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}

// RewriteOptions returns the per-file rewrite template described by m.
func (m MigrationConfig) RewriteOptions() rewrite.Options {
	opts := rewrite.DefaultOptions()

	opts.NativeStyle = rewrite.NativeStyle(m.NativeBindingStyle)
	opts.NamespaceModules = slices.Clone(m.NamespaceModules)
	opts.BuiltinModules = slices.Clone(m.BuiltinModules)
	opts.ObsoleteModules = slices.Clone(m.ObsoleteModules)
	opts.ExtensionModule = m.Extension
	opts.ShellRoot = strings.TrimSuffix(m.ShellRoot, "/")
	opts.Lifecycle = slices.Clone(m.Lifecycle)

	opts.Classifier.SubmoduleDirs = slices.Clone(m.SubmoduleDirs)
	if m.SingletonAccessor != "" {
		opts.Classifier.SingletonAccessor = m.SingletonAccessor
	}

	return opts
}

// Package config loads ctfhunter settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/railwayapp/ctfhunter/internal/export"
	"github.com/railwayapp/ctfhunter/internal/logger"
	"github.com/railwayapp/ctfhunter/internal/report"
	"github.com/railwayapp/ctfhunter/internal/search"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CTFHUNTER_WORKERS.
const EnvPrefix = "CTFHUNTER"

// Config holds the run settings that are not positional arguments.
type Config struct {
	Format    string   `mapstructure:"format"`
	Output    string   `mapstructure:"output"`
	Workers   int      `mapstructure:"workers"`
	ChunkSize int      `mapstructure:"chunk_size"`
	Targets   []string `mapstructure:"targets"`
	LogLevel  string   `mapstructure:"log_level"`
	NoColor   bool     `mapstructure:"no_color"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("format", report.FormatText)
	v.SetDefault("output", "")
	v.SetDefault("workers", 1)
	v.SetDefault("chunk_size", search.DefaultChunkSize)
	v.SetDefault("targets", []string{})
	v.SetDefault("log_level", "warn")
	v.SetDefault("no_color", false)
}

// Init wires environment and file sources into v. envFile, when set, is
// loaded into the process environment first. cfgFile, when set, must exist;
// otherwise $HOME/.ctfhunter.yaml is read if present. It returns the config
// file actually used, or "".
func Init(v *viper.Viper, cfgFile, envFile string) (string, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return "", fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return v.ConfigFileUsed(), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}

	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".ctfhunter")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = logger.NormalizeLevel(cfg.LogLevel)
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	formats := append([]string{report.FormatText}, export.Formats()...)
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("invalid format %q (supported: %s)", c.Format, strings.Join(formats, ", "))
	}
	if strings.TrimSpace(c.LogLevel) != "" && !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level %q (supported: debug, info, warn, error)", c.LogLevel)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1, got %d", c.ChunkSize)
	}
	for _, target := range c.Targets {
		if strings.ContainsAny(target, `/\`) {
			return fmt.Errorf("target %q must be a file name, not a path", target)
		}
	}
	return nil
}

// Package config loads goap settings from a YAML file, GOAP_* environment
// variables and built-in defaults, in that order of precedence lowest last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "GOAP"

// Config holds all application settings.
type Config struct {
	Planner   PlannerConfig   `mapstructure:"planner"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// PlannerConfig tunes the search.
type PlannerConfig struct {
	MaxIterations int    `mapstructure:"max_iterations"`
	Heuristic     string `mapstructure:"heuristic"`
	ExprCacheSize int    `mapstructure:"expr_cache_size"`
}

// ExecutorConfig tunes plan execution.
type ExecutorConfig struct {
	MaxReplans int `mapstructure:"max_replans"`
}

// LogConfig controls the slog handler and its optional file sink.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// Default returns the configuration described by DefaultSchema.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := new(Config)
	// defaults are always decodable
	_ = v.Unmarshal(cfg)
	return cfg
}

// SetDefaults registers every schema default with v.
func SetDefaults(v *viper.Viper) {
	for _, opt := range DefaultSchema().Options() {
		v.SetDefault(opt.Key, typedDefault(opt))
	}
}

func typedDefault(opt ConfigOption) any {
	switch opt.Type {
	case TypeInt:
		n, _ := strconv.Atoi(opt.Default)
		return n
	case TypeBool:
		b, _ := parseBool(opt.Default)
		return b
	default:
		return opt.Default
	}
}

// NewViper returns a viper instance with defaults and the GOAP_ environment
// mapping applied.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v (if file is non-empty and exists) and decodes the
// merged settings. A missing file is not an error. Unknown keys and values
// that do not match the schema are.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", file, err)
			}
		}
	}

	settings := make(map[string]string)
	for _, key := range v.AllKeys() {
		settings[key] = v.GetString(key)
	}
	if issues := DefaultSchema().ValidateSettings(settings); len(issues) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(issues, "; "))
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the schema types cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Planner.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("planner.max_iterations must be at least 1, got %d", c.Planner.MaxIterations))
	}
	if c.Planner.ExprCacheSize < 1 {
		errs = append(errs, fmt.Errorf("planner.expr_cache_size must be at least 1, got %d", c.Planner.ExprCacheSize))
	}
	if c.Executor.MaxReplans < 0 {
		errs = append(errs, fmt.Errorf("executor.max_replans must not be negative, got %d", c.Executor.MaxReplans))
	}
	if c.Log.MaxSizeMB < 1 {
		errs = append(errs, fmt.Errorf("log.max_size_mb must be at least 1, got %d", c.Log.MaxSizeMB))
	}
	if c.Log.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("log.max_files must not be negative, got %d", c.Log.MaxFiles))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry.enabled is set"))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the goap configuration directory,
// $XDG_CONFIG_HOME/goap or ~/.config/goap.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "goap"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "goap"), nil
}

// ConfigFile returns the default config file path. GOAP_CONFIG overrides it.
func ConfigFile() (string, error) {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Common errors
var (
	Err = errors.New("config error")
)

// EnvPrefix prefixes every environment variable that overrides a key.
const EnvPrefix = "RESTOREKIT"

// Config represents the application configuration
type Config struct {
	Program      ProgramConfig      `mapstructure:"program"`
	Adapter      AdapterConfig      `mapstructure:"adapter"`
	Docker       DockerConfig       `mapstructure:"docker"`
	Notification NotificationConfig `mapstructure:"notification"`
	Output       OutputConfig       `mapstructure:"output"`

	// ConfigFilePath stores the path to the loaded config file (not marshaled from YAML)
	ConfigFilePath string `mapstructure:"-"`
}

// ProgramConfig names the adapted program
type ProgramConfig struct {
	Name string `mapstructure:"name"` // argv[0] handed to the driver
}

// AdapterConfig contains settings of the reentry boundary
type AdapterConfig struct {
	CleanupCapacity int    `mapstructure:"cleanup_capacity"` // 0 = default, -1 = unlimited
	Locale          string `mapstructure:"locale"`           // empty = untranslated diagnostics
}

// DockerConfig contains Docker-specific settings
type DockerConfig struct {
	SocketPath string `mapstructure:"socket_path"`
}

// NotificationConfig contains notification settings
type NotificationConfig struct {
	ShoutrrURL string `mapstructure:"shoutrrr_url"` // Shoutrrr URL format
	Enabled    bool   `mapstructure:"enabled"`
}

// OutputConfig contains output path settings
type OutputConfig struct {
	TranscriptDir     string `mapstructure:"transcript_dir"`
	TranscriptEnabled bool   `mapstructure:"transcript_enabled"`
	HistoryFile       string `mapstructure:"history_file"`
	PresetsDir        string `mapstructure:"presets_dir"`
	RetentionDays     int    `mapstructure:"retention_days"`
}

// autoDetectDockerSocket determines the Docker socket path based on environment and platform.
func autoDetectDockerSocket() string {
	if os.Getenv("DOCKER_HOST") != "" {
		return os.Getenv("DOCKER_HOST")
	}
	// Check for Unix socket
	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		return "unix:///var/run/docker.sock"
	}
	// Default to Windows named pipe if Unix socket not found
	return "npipe:////./pipe/docker_engine"
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/restorekit")
		v.AddConfigPath("/etc/restorekit")
	}

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			configFile := v.ConfigFileUsed()
			if configFile == "" {
				configFile = configPath
			}
			return nil, fmt.Errorf("error reading config file from %s: %w", configFile, err)
		}
	}

	bindEnv(v)
	return unmarshal(v, v.ConfigFileUsed())
}

// LoadFromViper reads configuration from the global viper instance (for testing)
func LoadFromViper() (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)
	bindEnv(v)
	return unmarshal(v, v.ConfigFileUsed())
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper, configFile string) (*Config, error) {
	source := configFile
	if source == "" {
		source = "(using defaults and environment variables)"
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config from %s: %w", source, err)
	}

	// Store the config file path in the struct (DI approach, no global state)
	cfg.ConfigFilePath = configFile

	if cfg.Docker.SocketPath == "" {
		cfg.Docker.SocketPath = autoDetectDockerSocket()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %s: %w", source, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("program.name", "pg_restore")

	// Adapter defaults
	v.SetDefault("adapter.cleanup_capacity", 20)
	v.SetDefault("adapter.locale", "") // Required for AutomaticEnv to work

	v.SetDefault("docker.socket_path", autoDetectDockerSocket())

	// Notification defaults
	v.SetDefault("notification.shoutrrr_url", "") // Required for AutomaticEnv to work
	v.SetDefault("notification.enabled", false)

	// Output defaults
	v.SetDefault("output.transcript_dir", "./transcripts")
	v.SetDefault("output.transcript_enabled", false)
	v.SetDefault("output.history_file", "./history.json")
	v.SetDefault("output.presets_dir", "./presets")
	v.SetDefault("output.retention_days", 30)
}

// Validate ensures all required fields are set and values are within valid ranges.
func (c *Config) Validate() error {
	configSource := c.ConfigFilePath
	if configSource == "" {
		configSource = "(defaults/environment)"
	}

	if err := c.validateRequiredFields(configSource); err != nil {
		return err
	}

	if err := c.validateRanges(configSource); err != nil {
		return err
	}

	return c.validateLocale(configSource)
}

func (c *Config) validateRequiredFields(configSource string) error {
	requiredFields := []struct {
		value   string
		message string
	}{
		{c.Program.Name, "program.name is required in config %s"},
		{c.Docker.SocketPath, "docker.socket_path is required in config %s"},
		{c.Output.TranscriptDir, "output.transcript_dir is required in config %s"},
		{c.Output.HistoryFile, "output.history_file is required in config %s"},
	}

	for _, field := range requiredFields {
		if field.value == "" {
			return fmt.Errorf(field.message, configSource)
		}
	}

	if c.Notification.Enabled && c.Notification.ShoutrrURL == "" {
		return fmt.Errorf("notification.shoutrrr_url is required when notifications are enabled in config %s "+
			"(set %s_NOTIFICATION_SHOUTRRR_URL environment variable)", configSource, EnvPrefix)
	}
	return nil
}

func (c *Config) validateRanges(configSource string) error {
	if c.Output.RetentionDays < 1 || c.Output.RetentionDays > 365 {
		return fmt.Errorf("output.retention_days must be between 1 and 365, got %d in config %s",
			c.Output.RetentionDays, configSource)
	}
	if c.Adapter.CleanupCapacity < -1 {
		return fmt.Errorf("adapter.cleanup_capacity must be -1 (unlimited), 0 (default) or positive, got %d in config %s",
			c.Adapter.CleanupCapacity, configSource)
	}
	return nil
}

func (c *Config) validateLocale(configSource string) error {
	if c.Adapter.Locale == "" {
		return nil
	}
	if _, err := language.Parse(c.Adapter.Locale); err != nil {
		return fmt.Errorf("adapter.locale %q is not a valid language tag in config %s: %w",
			c.Adapter.Locale, configSource, err)
	}
	return nil
}

// Language returns the configured locale for diagnostics. It reports false
// when diagnostics stay untranslated.
func (c *Config) Language() (language.Tag, bool) {
	if c.Adapter.Locale == "" {
		return language.Und, false
	}
	tag, err := language.Parse(c.Adapter.Locale)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

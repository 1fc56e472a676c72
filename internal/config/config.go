// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/pointerlock/internal/logger"
	"github.com/spf13/viper"
)

// Sink names accepted by relay.sink.
const (
	SinkLog    = "log"
	SinkUinput = "uinput"
	SinkStream = "stream"
)

// Config represents the application configuration
type Config struct {
	Lock    LockConfig    `mapstructure:"lock"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LockConfig controls discovery and the pointer lock itself.
type LockConfig struct {
	RoundtripTimeout time.Duration `mapstructure:"roundtrip_timeout"`
	Lifetime         string        `mapstructure:"lifetime"` // "persistent" or "oneshot"
}

// RelayConfig selects where relative motion goes.
type RelayConfig struct {
	Sink             string  `mapstructure:"sink"`
	UseUnaccelerated bool    `mapstructure:"use_unaccelerated"`
	Sensitivity      float64 `mapstructure:"sensitivity"`
	UinputPath       string  `mapstructure:"uinput_path"`
	UinputName       string  `mapstructure:"uinput_name"`
	StreamPath       string  `mapstructure:"stream_path"` // "-" for stdout
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Lock: LockConfig{
			RoundtripTimeout: 2 * time.Second,
			Lifetime:         "persistent",
		},
		Relay: RelayConfig{
			Sink:             SinkLog,
			UseUnaccelerated: true,
			Sensitivity:      1.0,
			UinputPath:       "/dev/uinput",
			UinputName:       "pointerlock-relay",
			StreamPath:       "-",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("pointerlock")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "pointerlock"))
		}
		viper.AddConfigPath("/etc/pointerlock")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("POINTERLOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	return nil
}

// Individual keys so file values merge over defaults.
func setDefaults() {
	viper.SetDefault("lock.roundtrip_timeout", DefaultConfig.Lock.RoundtripTimeout)
	viper.SetDefault("lock.lifetime", DefaultConfig.Lock.Lifetime)

	viper.SetDefault("relay.sink", DefaultConfig.Relay.Sink)
	viper.SetDefault("relay.use_unaccelerated", DefaultConfig.Relay.UseUnaccelerated)
	viper.SetDefault("relay.sensitivity", DefaultConfig.Relay.Sensitivity)
	viper.SetDefault("relay.uinput_path", DefaultConfig.Relay.UinputPath)
	viper.SetDefault("relay.uinput_name", DefaultConfig.Relay.UinputName)
	viper.SetDefault("relay.stream_path", DefaultConfig.Relay.StreamPath)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
}

// Validate rejects values the relay cannot act on.
func (c *Config) Validate() error {
	switch c.Lock.Lifetime {
	case "persistent", "oneshot":
	default:
		return fmt.Errorf("invalid lock.lifetime %q: want persistent or oneshot", c.Lock.Lifetime)
	}
	if c.Lock.RoundtripTimeout < 0 {
		return fmt.Errorf("invalid lock.roundtrip_timeout %s: must not be negative", c.Lock.RoundtripTimeout)
	}
	switch c.Relay.Sink {
	case SinkLog, SinkUinput, SinkStream:
	default:
		return fmt.Errorf("invalid relay.sink %q: want log, uinput or stream", c.Relay.Sink)
	}
	if c.Relay.Sensitivity <= 0 {
		return fmt.Errorf("invalid relay.sensitivity %v: must be positive", c.Relay.Sensitivity)
	}
	if c.Logging.LogLevel != "" {
		if _, err := logger.ParseLevel(c.Logging.LogLevel); err != nil {
			return fmt.Errorf("invalid logging.log_level: %w", err)
		}
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current settings, defaults included, to the config file.
func Save() error {
	configPath := GetConfigPath()
	setDefaults()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.HasPrefix(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "/etc/pointerlock/pointerlock.toml"
	}

	return filepath.Join(home, ".config", "pointerlock", "pointerlock.toml")
}

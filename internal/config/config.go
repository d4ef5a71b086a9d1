// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bnema/wayplat/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Display connection settings
	Display DisplayConfig `mapstructure:"display"`

	// Window defaults
	Window WindowConfig `mapstructure:"window"`

	// Clipboard and drag-and-drop transfers
	Transfer TransferConfig `mapstructure:"transfer"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DisplayConfig contains compositor connection settings
type DisplayConfig struct {
	Socket           string        `mapstructure:"socket"` // Empty means $WAYLAND_DISPLAY
	RoundtripTimeout time.Duration `mapstructure:"roundtrip_timeout"`
}

// WindowConfig contains toplevel window defaults
type WindowConfig struct {
	AppID          string  `mapstructure:"app_id"`
	Title          string  `mapstructure:"title"`
	FallbackWidth  int     `mapstructure:"fallback_width"`  // Used when no screen is known yet
	FallbackHeight int     `mapstructure:"fallback_height"` // Used when no screen is known yet
	WidthRatio     float64 `mapstructure:"width_ratio"`     // Share of the primary working area
	HeightRatio    float64 `mapstructure:"height_ratio"`
}

// TransferConfig contains data transfer settings
type TransferConfig struct {
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Display: DisplayConfig{
			Socket:           "",
			RoundtripTimeout: 5 * time.Second,
		},
		Window: WindowConfig{
			AppID:          "dev.bnema.wayplat",
			Title:          "wayplat",
			FallbackWidth:  400,
			FallbackHeight: 600,
			WidthRatio:     0.75,
			HeightRatio:    0.7,
		},
		Transfer: TransferConfig{
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance, replaced whole on reload
	current atomic.Pointer[Config]

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayplat")
	viper.SetConfigType("toml")

	viper.SetEnvPrefix("WAYPLAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "wayplat"))
		}
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "wayplat"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if _, err := reload(); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return nil
}

// reload publishes the settings viper currently holds.
func reload() (*Config, error) {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, err
	}
	current.Store(c)
	applyLogging(c)
	return c, nil
}

func setDefaults() {
	viper.SetDefault("display.socket", DefaultConfig.Display.Socket)
	viper.SetDefault("display.roundtrip_timeout", DefaultConfig.Display.RoundtripTimeout)

	viper.SetDefault("window.app_id", DefaultConfig.Window.AppID)
	viper.SetDefault("window.title", DefaultConfig.Window.Title)
	viper.SetDefault("window.fallback_width", DefaultConfig.Window.FallbackWidth)
	viper.SetDefault("window.fallback_height", DefaultConfig.Window.FallbackHeight)
	viper.SetDefault("window.width_ratio", DefaultConfig.Window.WidthRatio)
	viper.SetDefault("window.height_ratio", DefaultConfig.Window.HeightRatio)

	viper.SetDefault("transfer.read_timeout", DefaultConfig.Transfer.ReadTimeout)
	viper.SetDefault("transfer.write_timeout", DefaultConfig.Transfer.WriteTimeout)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
}

// Watch reloads the configuration whenever the file changes on disk.
// Only settings that are safe to change at runtime take effect immediately.
func Watch(onChange func(*Config)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := reload()
		if err != nil {
			logger.Warnf("Ignoring config reload from %s: %v", e.Name, err)
			return
		}
		logger.Debugf("Reloaded config from %s", e.Name)
		if onChange != nil {
			onChange(c)
		}
	})
	viper.WatchConfig()
}

func applyLogging(c *Config) {
	if c.Logging.LogLevel != "" {
		logger.SetLevel(c.Logging.LogLevel)
	}
}

// Get returns the current configuration. It is safe to call while Watch
// reloads; callers must not modify the result.
func Get() *Config {
	c := current.Load()
	if c == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return c
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	current.Store(c)
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Update replaces the current configuration and writes it to disk.
func Update(c Config) error {
	viper.Set("display", c.Display)
	viper.Set("window", c.Window)
	viper.Set("transfer", c.Transfer)
	viper.Set("logging", c.Logging)
	current.Store(&c)
	return Save()
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wayplat", "wayplat.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "wayplat.toml"
	}

	return filepath.Join(home, ".config", "wayplat", "wayplat.toml")
}

// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Video presentation settings
	Video VideoConfig `mapstructure:"video"`

	// Input translation settings
	Input InputConfig `mapstructure:"input"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Known hosts for quick connections
	Hosts []HostConfig `mapstructure:"hosts"`
}

// VideoConfig contains presentation settings
type VideoConfig struct {
	Width       int  `mapstructure:"width"`
	Height      int  `mapstructure:"height"`
	FPS         int  `mapstructure:"fps"`
	VSync       bool `mapstructure:"vsync"`
	FramePacing bool `mapstructure:"frame_pacing"`
	Fullscreen  bool `mapstructure:"fullscreen"`

	// Renderer forces a specific presentation backend ("gpu" or
	// "software"); empty lets the selector probe.
	Renderer string `mapstructure:"renderer"`
}

// InputConfig contains input translation settings
type InputConfig struct {
	MultiController bool `mapstructure:"multi_controller"`
	GamepadAsMouse  bool `mapstructure:"gamepad_as_mouse"`
	AbsoluteMouse   bool `mapstructure:"absolute_mouse"`
	BatchedScroll   bool `mapstructure:"batched_scroll"`

	// MousePollingIntervalMs overrides the relative mouse flush
	// interval; 0 keeps the built-in default.
	MousePollingIntervalMs int `mapstructure:"mouse_polling_interval_ms"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`    // Override LOG_LEVEL env var
}

// HostConfig represents a known streaming host
type HostConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	App     string `mapstructure:"app"` // Default app to launch
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Video: VideoConfig{
			Width:       1920,
			Height:      1080,
			FPS:         60,
			VSync:       true,
			FramePacing: false,
			Fullscreen:  false,
			Renderer:    "",
		},
		Input: InputConfig{
			MultiController:        true,
			GamepadAsMouse:         false,
			AbsoluteMouse:          false,
			BatchedScroll:          false,
			MousePollingIntervalMs: 0,
		},
		Logging: LoggingConfig{
			FileLogging: true,
			LogLevel:    "",
		},
		Hosts: []HostConfig{},
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
	viper.SetConfigName("lightview")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "lightview"))
		}
		viper.AddConfigPath("/etc/lightview")
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("video.width", DefaultConfig.Video.Width)
	viper.SetDefault("video.height", DefaultConfig.Video.Height)
	viper.SetDefault("video.fps", DefaultConfig.Video.FPS)
	viper.SetDefault("video.vsync", DefaultConfig.Video.VSync)
	viper.SetDefault("video.frame_pacing", DefaultConfig.Video.FramePacing)
	viper.SetDefault("video.fullscreen", DefaultConfig.Video.Fullscreen)
	viper.SetDefault("video.renderer", DefaultConfig.Video.Renderer)

	viper.SetDefault("input.multi_controller", DefaultConfig.Input.MultiController)
	viper.SetDefault("input.gamepad_as_mouse", DefaultConfig.Input.GamepadAsMouse)
	viper.SetDefault("input.absolute_mouse", DefaultConfig.Input.AbsoluteMouse)
	viper.SetDefault("input.batched_scroll", DefaultConfig.Input.BatchedScroll)
	viper.SetDefault("input.mouse_polling_interval_ms", DefaultConfig.Input.MousePollingIntervalMs)

	viper.SetDefault("logging.file_logging", DefaultConfig.Logging.FileLogging)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	viper.SetDefault("hosts", DefaultConfig.Hosts)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
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

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/lightview/lightview.toml"
	}

	return filepath.Join(home, ".config", "lightview", "lightview.toml")
}

// AddHost adds a new host to the configuration
func AddHost(host HostConfig) error {
	cfg := Get()

	// Check if host already exists
	for i, h := range cfg.Hosts {
		if h.Name == host.Name {
			// Update existing host
			cfg.Hosts[i] = host
			viper.Set("hosts", cfg.Hosts)
			return Save()
		}
	}

	cfg.Hosts = append(cfg.Hosts, host)
	viper.Set("hosts", cfg.Hosts)
	return Save()
}

// RemoveHost removes a host from the configuration
func RemoveHost(name string) error {
	cfg := Get()

	for i, h := range cfg.Hosts {
		if h.Name == name {
			cfg.Hosts = append(cfg.Hosts[:i], cfg.Hosts[i+1:]...)
			viper.Set("hosts", cfg.Hosts)
			return Save()
		}
	}

	return fmt.Errorf("host %s not found", name)
}

// GetHost returns a host configuration by name
func GetHost(name string) (*HostConfig, error) {
	cfg := Get()

	for _, h := range cfg.Hosts {
		if h.Name == name {
			return &h, nil
		}
	}

	return nil, fmt.Errorf("host %s not found", name)
}

// ListHosts returns all configured hosts
func ListHosts() []HostConfig {
	cfg := Get()
	return cfg.Hosts
}

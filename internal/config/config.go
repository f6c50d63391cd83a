// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig `mapstructure:"server"`
	Client      ClientConfig `mapstructure:"client"`
	Store       StoreConfig  `mapstructure:"store"`
	UI          UIConfig     `mapstructure:"ui"`
	Credentials Credentials  `mapstructure:"-"` // Loaded separately
}

// ServerConfig holds backend API server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
	DBPath      string `mapstructure:"db_path"`
}

// ClientConfig holds client-side API configuration.
type ClientConfig struct {
	APIBaseURL     string `mapstructure:"api_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StoreConfig holds local store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds AI provider API credentials.
type Credentials struct {
	GoogleAIKey   string `mapstructure:"google_ai_key"`
	KimiAPIKey    string `mapstructure:"kimi_api_key"`
	OpenRouterKey string `mapstructure:"openrouter_api_key"`
}

// HasAnyProvider reports whether at least one AI provider key is set.
func (c *Credentials) HasAnyProvider() bool {
	return c.GoogleAIKey != "" || c.KimiAPIKey != "" || c.OpenRouterKey != ""
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradelog"
	}
	return filepath.Join(home, ".config", "tradelog")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyDefaults(cfg, configDir)

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = filepath.Join(configDir, "tradelog.db")
	}
	if cfg.Client.APIBaseURL == "" {
		cfg.Client.APIBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Client.TimeoutSeconds == 0 {
		cfg.Client.TimeoutSeconds = 30
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "journal.json")
	}
	if cfg.UI.DateFormat == "" {
		cfg.UI.DateFormat = "02-Jan-2006"
	}
	if cfg.UI.TimeFormat == "" {
		cfg.UI.TimeFormat = "15:04:05"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.FrontendURL = v
	}

	// AI provider credentials
	if v := os.Getenv("GOOGLE_AI_KEY"); v != "" {
		cfg.Credentials.GoogleAIKey = v
	}
	if v := os.Getenv("KIMI_API_KEY"); v != "" {
		cfg.Credentials.KimiAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Credentials.OpenRouterKey = v
	}

	// Client API base URL
	if v := os.Getenv("TRADELOG_API_URL"); v != "" {
		cfg.Client.APIBaseURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Client.TimeoutSeconds < 0 {
		return fmt.Errorf("client timeout_seconds must be non-negative")
	}
	if c.Client.APIBaseURL == "" {
		return fmt.Errorf("client api_base_url must not be empty")
	}
	return nil
}

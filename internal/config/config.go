package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Player   PlayerConfig   `toml:"player"`
	Logging  LoggingConfig  `toml:"logging"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port             string `toml:"port"`
	Host             string `toml:"host"`
	EnableCORS       bool   `toml:"enable_cors"`
	ReadTimeout      int    `toml:"read_timeout_seconds"`
	CertFile         string `toml:"cert_file"`
	KeyFile          string `toml:"key_file"`
	AuthUser         string `toml:"auth_user"`
	AuthPasswordHash string `toml:"auth_password_hash"` // bcrypt
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LibraryConfig describes the shared directory
type LibraryConfig struct {
	RootPath        string            `toml:"root_path"`
	PlayableFormats []string          `toml:"playable_formats"`
	WatchForChanges bool              `toml:"watch_for_changes"`
	CacheTTLSeconds int               `toml:"cache_ttl_seconds"`
	CoverSize       int               `toml:"cover_size"`
	BackgroundDir   string            `toml:"background_dir"`
	Backgrounds     map[string]string `toml:"backgrounds"` // path fragment -> image file
}

// PlayerConfig holds the defaults used when a profile has no saved preferences
type PlayerConfig struct {
	DefaultVolume float64 `toml:"default_volume"`
	DefaultTheme  string  `toml:"default_theme"`
	AutoPlay      bool    `toml:"autoplay"`
	HistoryLimit  int     `toml:"history_limit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			EnableCORS:  false,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path: "./discotheque.db",
		},
		Library: LibraryConfig{
			RootPath:        "./music",
			PlayableFormats: []string{".mp3", ".flac"},
			WatchForChanges: true,
			CacheTTLSeconds: 300,
			CoverSize:       200,
			BackgroundDir:   "./backgrounds",
			Backgrounds:     map[string]string{},
		},
		Player: PlayerConfig{
			DefaultVolume: 0.5,
			DefaultTheme:  "light",
			AutoPlay:      true,
			HistoryLimit:  50,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with defaults
// when it does not exist, then applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnv()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if it exists
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides values from DISCOTHEQUE_* and NGROK_AUTHTOKEN variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DISCOTHEQUE_ROOT"); v != "" {
		c.Library.RootPath = v
	}
	if v := os.Getenv("DISCOTHEQUE_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DISCOTHEQUE_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DISCOTHEQUE_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("NGROK_AUTHTOKEN"); v != "" && c.Ngrok.AuthToken == "" {
		c.Ngrok.AuthToken = v
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Discotheque Configuration
# File server with an embedded audio player.
# Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("cert_file and key_file must be set together")
	}
	if (c.Server.AuthUser == "") != (c.Server.AuthPasswordHash == "") {
		return fmt.Errorf("auth_user and auth_password_hash must be set together")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.Library.RootPath == "" {
		return fmt.Errorf("library root path cannot be empty")
	}
	if len(c.Library.PlayableFormats) == 0 {
		return fmt.Errorf("at least one playable format must be specified")
	}
	if c.Library.CacheTTLSeconds < 0 {
		return fmt.Errorf("library cache ttl must be positive")
	}
	if c.Library.CoverSize <= 0 {
		return fmt.Errorf("library cover size must be positive")
	}

	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("invalid default volume: %v (must be between 0 and 1)", c.Player.DefaultVolume)
	}
	if c.Player.DefaultTheme != "light" && c.Player.DefaultTheme != "dark" {
		return fmt.Errorf("invalid default theme: %s (must be light or dark)", c.Player.DefaultTheme)
	}
	if c.Player.HistoryLimit < 1 {
		return fmt.Errorf("player history limit must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		return fmt.Errorf("ngrok enabled but no auth token (set NGROK_AUTHTOKEN)")
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TLSEnabled reports whether a certificate pair is configured
func (c *Config) TLSEnabled() bool {
	return c.Server.CertFile != "" && c.Server.KeyFile != ""
}

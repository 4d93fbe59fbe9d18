package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
	Station StationConfig `toml:"station"` // Airport directory settings
	History HistoryConfig `toml:"history"` // Historical aggregation settings
	Fetcher FetcherConfig `toml:"fetcher"` // Archive fetching settings
	Storage StorageConfig `toml:"storage"` // Data persistence settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StationConfig contains the airport directory configuration
type StationConfig struct {
	AirportsDBPath string `toml:"airports_db_path"` // Path to airport database CSV file (OurAirports format)
}

// HistoryConfig controls how many past years feed each monthly aggregation
type HistoryConfig struct {
	DefaultYears int `toml:"default_years"` // Number of past years to aggregate when the request does not specify one
}

// FetcherConfig contains archive client configuration
type FetcherConfig struct {
	BaseURL               string `toml:"base_url"`                // Archive endpoint (IEM ASOS request CGI)
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // Timeout for a single archive request
	MaxRetries            int    `toml:"max_retries"`             // Retries after the first failed attempt
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // Storage backend type (currently only "sqlite" is supported)
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file holding cached raw reports
}

// Default returns a configuration populated with workable defaults. A config
// file only needs to override what differs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			Host:               "127.0.0.1",
			CORSAllowedOrigins: []string{"*"},
			ReadTimeoutSecs:    30,
			WriteTimeoutSecs:   60,
			IdleTimeoutSecs:    120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Station: StationConfig{
			AirportsDBPath: "assets/airports.csv",
		},
		History: HistoryConfig{
			DefaultYears: 10,
		},
		Fetcher: FetcherConfig{
			BaseURL:               "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py",
			RequestTimeoutSeconds: 60,
			MaxRetries:            2,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLitePath: "metar-calendar.db",
		},
	}
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	config := Default()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or console)", c.Logging.Format)
	}

	// Validate station config
	if c.Station.AirportsDBPath == "" {
		return fmt.Errorf("airports_db_path is required")
	}

	// Validate history config
	if c.History.DefaultYears <= 0 {
		return fmt.Errorf("invalid default_years: %d (must be positive)", c.History.DefaultYears)
	}

	// Validate fetcher config
	if c.Fetcher.BaseURL == "" {
		return fmt.Errorf("fetcher base_url is required")
	}
	if c.Fetcher.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds: %d (must be positive)", c.Fetcher.RequestTimeoutSeconds)
	}
	if c.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d (must be >= 0)", c.Fetcher.MaxRetries)
	}

	// Validate storage config
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("unsupported storage type: %q (only sqlite is supported)", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required")
	}

	return nil
}

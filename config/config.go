package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// TMDB catalog credentials. The bearer token is preferred; the legacy
	// api_key query parameter is used when only TMDBAPIKey is set. Both may
	// be empty, in which case catalog features degrade and the watchlist
	// CRUD keeps working.
	TMDBToken  string
	TMDBAPIKey string

	// API bearer token required for mutating JSON calls. Auth is disabled
	// when empty.
	APIToken string

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/reelist.db
	LogFile      string // optional rotated log file

	// Sessions
	SessionTTLHours int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SESSION_TTL_HOURS", 24)

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "reelist")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	databaseFile := viper.GetString("DATABASE_PATH")
	if databaseFile == "" {
		databaseFile = filepath.Join(configDir, "reelist.db")
	}

	config := &Config{
		TMDBToken:  viper.GetString("TMDB_TOKEN"),
		TMDBAPIKey: viper.GetString("TMDB_API_KEY"),

		APIToken: viper.GetString("API_TOKEN"),

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile: databaseFile,
		LogFile:      viper.GetString("LOG_FILE"),

		SessionTTLHours: viper.GetInt("SESSION_TTL_HOURS"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if config.SessionTTLHours <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}

	return config, nil
}

// CatalogConfigured reports whether a TMDB credential is present.
func (c *Config) CatalogConfigured() bool {
	return c.TMDBToken != "" || c.TMDBAPIKey != ""
}

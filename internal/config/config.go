package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string   `json:"serverAddress"`
	DatabasePath  string   `json:"databasePath"`
	DatabaseURL   string   `json:"databaseUrl"`
	Security      Security `json:"security"`
	Client        Client   `json:"client"`
}

// Security configuration
type Security struct {
	SessionDurationDays int `json:"sessionDurationDays"`
}

// Client configuration for the offline-first client binary
type Client struct {
	ServerURL             string `json:"serverUrl"`
	DatabasePath          string `json:"databasePath"`
	TokenPath             string `json:"tokenPath"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "shoplist.db",
		Security: Security{
			SessionDurationDays: 30,
		},
		Client: Client{
			ServerURL:             "http://localhost:5000",
			DatabasePath:          "shoplist-client.db",
			TokenPath:             ".shoplist-token",
			RequestTimeoutSeconds: 15,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if days := os.Getenv("SESSION_DURATION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil && d > 0 {
			cfg.Security.SessionDurationDays = d
		}
	}

	// Client overrides
	if url := os.Getenv("SHOPLIST_SERVER_URL"); url != "" {
		cfg.Client.ServerURL = url
	}
	if dbPath := os.Getenv("CLIENT_DB_PATH"); dbPath != "" {
		cfg.Client.DatabasePath = dbPath
	}
	if tokenPath := os.Getenv("SHOPLIST_TOKEN_PATH"); tokenPath != "" {
		cfg.Client.TokenPath = tokenPath
	}
	if timeout := os.Getenv("CLIENT_REQUEST_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			cfg.Client.RequestTimeoutSeconds = t
		}
	}

	return cfg, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for the family calendar server.
type Config struct {
	ListenAddr            string `json:"listen_addr,omitempty"`
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	TokenPath             string `json:"token_path,omitempty"`
	PermissionsPath       string `json:"permissions_path,omitempty"`

	// FetchTimeoutSeconds bounds each per-calendar provider fetch in the
	// aggregated view.
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds,omitempty"`
}

// FetchTimeout returns the per-source fetch budget as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Flags carries command-line overrides into LoadConfig. Empty values
// leave the corresponding setting untouched.
type Flags struct {
	ListenAddr            string
	GoogleCredentialsPath string
	TokenPath             string
	PermissionsPath       string
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile string, flags Flags) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	if listenAddr := os.Getenv("FAMILYCAL_LISTEN_ADDR"); listenAddr != "" {
		config.ListenAddr = listenAddr
	}
	if credentialsPath := os.Getenv("GOOGLE_CREDENTIALS_PATH"); credentialsPath != "" {
		config.GoogleCredentialsPath = credentialsPath
	}
	if tokenPath := os.Getenv("FAMILYCAL_TOKEN_PATH"); tokenPath != "" {
		config.TokenPath = tokenPath
	}
	if permissionsPath := os.Getenv("FAMILYCAL_PERMISSIONS_PATH"); permissionsPath != "" {
		config.PermissionsPath = permissionsPath
	}
	if fetchTimeout := os.Getenv("FAMILYCAL_FETCH_TIMEOUT_SECONDS"); fetchTimeout != "" {
		seconds, err := strconv.Atoi(fetchTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid FAMILYCAL_FETCH_TIMEOUT_SECONDS %q: %w", fetchTimeout, err)
		}
		config.FetchTimeoutSeconds = seconds
	}

	// Step 3: Override with command-line flags (highest priority)
	if flags.ListenAddr != "" {
		config.ListenAddr = flags.ListenAddr
	}
	if flags.GoogleCredentialsPath != "" {
		config.GoogleCredentialsPath = flags.GoogleCredentialsPath
	}
	if flags.TokenPath != "" {
		config.TokenPath = flags.TokenPath
	}
	if flags.PermissionsPath != "" {
		config.PermissionsPath = flags.PermissionsPath
	}

	// Step 4: Apply defaults and validate required fields
	if config.GoogleCredentialsPath == "" {
		return nil, fmt.Errorf("google_credentials_path must be provided via --google-credentials-path flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
	}

	if config.TokenPath == "" {
		return nil, fmt.Errorf("token_path must be provided via --token-path flag, FAMILYCAL_TOKEN_PATH environment variable, or config file")
	}

	if config.PermissionsPath == "" {
		return nil, fmt.Errorf("permissions_path must be provided via --permissions-path flag, FAMILYCAL_PERMISSIONS_PATH environment variable, or config file")
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}

	if config.FetchTimeoutSeconds <= 0 {
		config.FetchTimeoutSeconds = 10
	}

	return &config, nil
}

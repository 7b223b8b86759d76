// config.go - Configuration management for the poof CLI
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"poofkit/internal/registry"
)

// DefaultKeysLocation hosts the published proving material.
const DefaultKeysLocation = "https://poof.nyc3.digitaloceanspaces.com"

// Config represents the application configuration
type Config struct {
	// Network
	RPCURL     string `json:"rpc_url"`
	RelayerURL string `json:"relayer_url,omitempty"`
	// ExplorerURL prefixes printed transaction hashes when set.
	ExplorerURL string `json:"explorer_url,omitempty"`

	// Proving material, an http(s) base URL or a local directory
	KeysLocation string `json:"keys_location"`
	// VerifyProofs checks each proof against the verifying keys in a local keys_location
	VerifyProofs bool `json:"verify_proofs,omitempty"`

	// Gas assumed for relayed transactions when quoting fees
	GasLimit uint64 `json:"gas_limit"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file,omitempty"`
	// MetricsFile receives the process metrics in text exposition format on exit
	MetricsFile string `json:"metrics_file,omitempty"`

	// Performance
	RequestsPerSecond float64 `json:"requests_per_second"`
	TimeoutSeconds    int     `json:"timeout_seconds"`

	// Deployments by chain id; entries here win over DeploymentsFile
	Deployments     map[uint64][]registry.PoolMatch `json:"deployments"`
	DeploymentsFile string                          `json:"deployments_file,omitempty"`

	// Secrets, only ever taken from the environment
	PrivateKey     string `json:"-"`
	PoofPrivateKey string `json:"-"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RPCURL:            "http://localhost:8545",
		KeysLocation:      DefaultKeysLocation,
		GasLimit:          1_700_000,
		LogLevel:          "info",
		RequestsPerSecond: 5,
		TimeoutSeconds:    300,
		Deployments:       map[uint64][]registry.PoolMatch{},
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	} else if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// applyEnv lets the environment override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("RPC_URL"); v != "" {
		c.RPCURL = v
	}
	c.PrivateKey = os.Getenv("PRIVATE_KEY")
	c.PoofPrivateKey = os.Getenv("POOF_PRIVATE_KEY")
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.RPCURL); err != nil {
		return fmt.Errorf("rpc_url is invalid: %w", err)
	}
	if c.RelayerURL != "" {
		if _, err := url.ParseRequestURI(c.RelayerURL); err != nil {
			return fmt.Errorf("relayer_url is invalid: %w", err)
		}
	}
	if c.KeysLocation == "" {
		return fmt.Errorf("keys_location must be set")
	}
	if c.VerifyProofs && remote(c.KeysLocation) {
		return fmt.Errorf("verify_proofs needs a local keys_location")
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("gas_limit must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	for id, pools := range c.Deployments {
		for _, p := range pools {
			if p.Symbol == "" {
				return fmt.Errorf("deployment on chain %d has no symbol", id)
			}
		}
	}
	return nil
}

func remote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

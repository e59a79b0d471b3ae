package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	BaseURL        string
	ChainID        uint64
	Account        string
	SlippageBips   int64
	Validate       bool
	RequestTimeout time.Duration
	MetricsListen  string
	LogLevel       string
	TokenFile      string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".portal-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("base_url", "https://api.portals.fi/v1")
	viper.SetDefault("chain_id", 1)
	viper.SetDefault("slippage_bips", 50)
	viper.SetDefault("validate", false)
	viper.SetDefault("request_timeout", "10s")
	viper.SetDefault("log_level", "info")

	// Read from environment variables
	viper.SetEnvPrefix("PORTAL_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		BaseURL:        viper.GetString("base_url"),
		ChainID:        viper.GetUint64("chain_id"),
		Account:        viper.GetString("account"),
		SlippageBips:   viper.GetInt64("slippage_bips"),
		Validate:       viper.GetBool("validate"),
		RequestTimeout: viper.GetDuration("request_timeout"),
		MetricsListen:  viper.GetString("metrics_listen"),
		LogLevel:       viper.GetString("log_level"),
		TokenFile:      viper.GetString("token_file"),
	}

	if cfg.SlippageBips < 0 || cfg.SlippageBips > 10000 {
		return nil, fmt.Errorf("slippage_bips must be between 0 and 10000, got %d", cfg.SlippageBips)
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

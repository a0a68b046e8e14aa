package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig describes an external utility provider endpoint.
type ProviderConfig struct {
	ID      string `yaml:"id"`
	BaseURL string `yaml:"base_url"`
}

// StaticQuote pins a feed to a fixed price, used when no oracle endpoint
// is configured.
type StaticQuote struct {
	Price    string `yaml:"price"`
	Decimals int32  `yaml:"decimals"`
}

// OracleConfig describes the price feed source.
type OracleConfig struct {
	BaseURL string                 `yaml:"base_url"`
	Static  map[string]StaticQuote `yaml:"static"`
}

// ExchangeConfig describes the swap venue endpoint.
type ExchangeConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Config defines payment engine configuration.
type Config struct {
	LowBalanceUSD int64            `yaml:"low_balance_usd"`
	SwapDeadline  time.Duration    `yaml:"swap_deadline"`
	Providers     []ProviderConfig `yaml:"providers"`
	Oracle        OracleConfig     `yaml:"oracle"`
	Exchange      ExchangeConfig   `yaml:"exchange"`
}

// LoadConfig loads config from yaml or env. PAYMENT_CONFIG points at a
// yaml file; env vars fill whatever the file leaves unset.
func LoadConfig() (Config, error) {
	cfg := Config{
		LowBalanceUSD: getenvIntDefault("PAYMENT_LOW_BALANCE_USD", 50),
		SwapDeadline:  getenvDuration("PAYMENT_SWAP_DEADLINE", 24*time.Hour),
	}

	if path := os.Getenv("PAYMENT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = os.Getenv("PAYMENT_ORACLE_URL")
	}
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = os.Getenv("PAYMENT_EXCHANGE_URL")
	}
	if cfg.LowBalanceUSD <= 0 {
		cfg.LowBalanceUSD = 50
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = 24 * time.Hour
	}
	return cfg, nil
}

func getenvIntDefault(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

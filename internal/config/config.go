// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr         string `mapstructure:"listen_addr"`
	Treasury           string `mapstructure:"treasury"`
	ListingFeeLamports uint64 `mapstructure:"listing_fee_lamports"`
	MarketFeeBps       uint64 `mapstructure:"market_fee_bps"`
	PostgresURL        string `mapstructure:"postgres_url"`
	DebugLogging       bool   `mapstructure:"debug_logging"`
	EventBufferSize    int    `mapstructure:"event_buffer_size"`
}

const (
	DefaultListenAddr = ":8080"
	// DefaultTreasury is the platform treasury wallet.
	DefaultTreasury = "9CmjZcTQ8iovjbBKYgWyH6iEKFZpqAuyDpsmbQj5nRHu"
	// DefaultListingFeeLamports is 0.01 SOL charged per listing.
	DefaultListingFeeLamports = 10_000_000
	// DefaultMarketFeeBps is the 2% treasury share of each sale.
	DefaultMarketFeeBps    = 200
	DefaultEventBufferSize = 256
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen_addr":          DefaultListenAddr,
		"treasury":             DefaultTreasury,
		"listing_fee_lamports": DefaultListingFeeLamports,
		"market_fee_bps":       DefaultMarketFeeBps,
		"event_buffer_size":    DefaultEventBufferSize,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return errors.New("missing listen_addr in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.Treasury); err != nil {
		return errors.New("invalid treasury address")
	}
	if cfg.MarketFeeBps > 10_000 {
		return errors.New("market_fee_bps must not exceed 10000")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}

// TreasuryKey returns the parsed treasury address. Only valid after
// validateConfig has accepted the config.
func (c *Config) TreasuryKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Treasury)
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if env := v.GetString("POSTGRES_URL"); env != "" {
		cfg.PostgresURL = env
	}
	if env := v.GetString("TREASURY"); env != "" {
		cfg.Treasury = env
	}
}

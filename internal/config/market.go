package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"uniscope/internal/pricing"
)

// marketFile is the on-disk shape of the market tables. Numeric values are
// strings so the file round-trips exactly through decimal.
type marketFile struct {
	WrappedNative    string   `mapstructure:"wrapped_native"`
	Stablecoins      []string `mapstructure:"stablecoins"`
	WhitelistTokens  []string `mapstructure:"whitelist_tokens"`
	MinimumEthLocked string   `mapstructure:"minimum_eth_locked"`
	USDCWETHPool     string   `mapstructure:"usdc_weth_pool"`
	IgnoredPools     []string `mapstructure:"ignored_pools"`
}

// LoadMarket reads the market address tables from a config file, falling back
// to the compiled-in mainnet tables when no path is given. Fields absent from
// the file keep their mainnet values, so a file can override just the
// whitelist or just the reference pool.
func LoadMarket(path string) (pricing.MarketConfig, error) {
	market := pricing.DefaultMainnet()
	if path == "" {
		return market, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return pricing.MarketConfig{}, fmt.Errorf("read market config: %w", err)
	}

	var file marketFile
	if err := v.Unmarshal(&file); err != nil {
		return pricing.MarketConfig{}, fmt.Errorf("parse market config: %w", err)
	}

	if file.WrappedNative != "" {
		market.WrappedNative = file.WrappedNative
	}
	if file.Stablecoins != nil {
		market.Stablecoins = file.Stablecoins
	}
	if file.WhitelistTokens != nil {
		market.WhitelistTokens = file.WhitelistTokens
	}
	if file.MinimumEthLocked != "" {
		floor, err := decimal.NewFromString(file.MinimumEthLocked)
		if err != nil {
			return pricing.MarketConfig{}, fmt.Errorf("parse minimum_eth_locked: %w", err)
		}
		market.MinimumEthLocked = floor
	}
	if file.USDCWETHPool != "" {
		market.USDCWETHPool = file.USDCWETHPool
	}
	if file.IgnoredPools != nil {
		market.IgnoredPools = file.IgnoredPools
	}

	return market, nil
}

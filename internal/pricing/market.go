package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MarketConfig carries the curated address tables the pricing engine and
// aggregation depend on. It is passed in at construction instead of living
// as compiled-in globals so the engine stays testable with alternate
// fixtures.
type MarketConfig struct {
	// WrappedNative is the canonical wrapped-native token (WETH on mainnet).
	WrappedNative string `json:"wrapped_native"`
	// Stablecoins price at exactly one USD.
	Stablecoins []string `json:"stablecoins"`
	// WhitelistTokens anchor price discovery for their counterparty legs.
	WhitelistTokens []string `json:"whitelist_tokens"`
	// MinimumEthLocked is the liquidity floor (in ETH) a candidate pool must
	// clear unless its counterparty token is itself whitelisted.
	MinimumEthLocked decimal.Decimal `json:"minimum_eth_locked"`
	// USDCWETHPool is the single reference pool for the ETH/USD conversion.
	USDCWETHPool string `json:"usdc_weth_pool"`
	// IgnoredPools are dropped before extraction and aggregation.
	IgnoredPools []string `json:"ignored_pools"`
}

// DefaultMainnet returns the Ethereum mainnet tables.
func DefaultMainnet() MarketConfig {
	return MarketConfig{
		WrappedNative: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		Stablecoins: []string{
			"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
			"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
			"0x0000000000085d4780b73119b644ae5ecd22b376", // TUSD
			"0x956f47f50a910163d8bf957cf5846d573e7f87ca", // FEI
		},
		WhitelistTokens: []string{
			"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
			"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
			"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
			"0x0000000000085d4780b73119b644ae5ecd22b376", // TUSD
			"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", // WBTC
			"0x5d3a536e4d6dbd6114cc1ead35777bab948e3643", // cDAI
			"0x39aa39c021dfbae8fac545936693ac917d5e7563", // cUSDC
			"0x514910771af9ca656af840dff83e8264ecf986ca", // LINK
			"0xc011a73ee8576fb46f5e1c5751ca3b9fe0af2a6f", // SNX
			"0x0bc529c00c6401aef6d220be8c6ea1667f6ad93e", // YFI
			"0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9", // AAVE
			"0x956f47f50a910163d8bf957cf5846d573e7f87ca", // FEI
			"0x7d1afa7b718fb893db30a3abc0cfc608aacfebb0", // MATIC
			"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984", // UNI
		},
		MinimumEthLocked: decimal.NewFromInt(52),
		USDCWETHPool:     "0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8",
		IgnoredPools: []string{
			"0x8fe8d9bb8eeba3ed688069c3f6b556c4ca6f7b46",
		},
	}
}

// IsWrappedNative reports whether addr is the wrapped-native token.
func (c MarketConfig) IsWrappedNative(addr string) bool {
	return strings.EqualFold(addr, c.WrappedNative)
}

// IsStablecoin reports whether addr is on the stablecoin allowlist.
func (c MarketConfig) IsStablecoin(addr string) bool {
	return containsFold(c.Stablecoins, addr)
}

// IsWhitelisted reports whether addr is a price-discovery anchor token.
func (c MarketConfig) IsWhitelisted(addr string) bool {
	return containsFold(c.WhitelistTokens, addr)
}

// IsIgnoredPool reports whether addr is on the pool denylist.
func (c MarketConfig) IsIgnoredPool(addr string) bool {
	return containsFold(c.IgnoredPools, addr)
}

func containsFold(list []string, addr string) bool {
	for _, item := range list {
		if strings.EqualFold(item, addr) {
			return true
		}
	}
	return false
}

package store

// Canonical accumulator suffixes shared by extraction, pricing and
// aggregation. Keeping them here avoids the typo class that free-form key
// concatenation invites.
const (
	SuffixInfo               = "info"
	SuffixLiquidity          = "liquidity"
	SuffixSqrtPrice          = "sqrt_price"
	SuffixTick               = "tick"
	SuffixPriceToken0        = "price:token0"
	SuffixPriceToken1        = "price:token1"
	SuffixNativeToken0       = "native:token0"
	SuffixNativeToken1       = "native:token1"
	SuffixNative             = "native"
	SuffixEthPrice           = "eth"
	SuffixWhitelistPools     = "whitelist_pools"
	SuffixTxCount            = "tx_count"
	SuffixPoolCount          = "pool_count"
	SuffixVolumeToken0       = "volume:token0"
	SuffixVolumeToken1       = "volume:token1"
	SuffixVolume             = "volume"
	SuffixVolumeUSD          = "volume:usd"
	SuffixVolumeUSDUntracked = "volume:usd_untracked"
	SuffixVolumeETH          = "volume:eth"
	SuffixFeesUSD            = "fees:usd"
	SuffixFeesETH            = "fees:eth"
	SuffixTVLETH             = "tvl:eth"
	SuffixTVLUSD             = "tvl:usd"
	SuffixLiquidityNet       = "liquidity_net"
	SuffixLiquidityGross     = "liquidity_gross"
	SuffixFeeGrowthOutside0  = "fee_growth_outside0_x128"
	SuffixFeeGrowthOutside1  = "fee_growth_outside1_x128"
	SuffixFeeGrowthGlobal0   = "fee_growth_global0_x128"
	SuffixFeeGrowthGlobal1   = "fee_growth_global1_x128"
	SuffixCollectedToken0    = "collected:token0"
	SuffixCollectedToken1    = "collected:token1"
	SuffixOwner              = "owner"
	SuffixCurrentDay         = "current_day"
)

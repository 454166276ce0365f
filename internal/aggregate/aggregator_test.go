package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"uniscope/internal/extract"
	"uniscope/internal/model"
	"uniscope/internal/pricing"
	"uniscope/internal/store"
)

const (
	aggWETH    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	aggUNI     = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"
	aggPool    = "0x1d42064fc4beb5f8aaf85f4617ae8b3b5b8bd801"
	aggRefPool = "0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8"
)

func aggMarket() pricing.MarketConfig {
	return pricing.MarketConfig{
		WrappedNative:    aggWETH,
		WhitelistTokens:  []string{aggWETH},
		MinimumEthLocked: decimal.NewFromInt(52),
		USDCWETHPool:     aggRefPool,
	}
}

// seedState registers the WETH/UNI pool, its tokens and a 2000 USD/ETH
// reference price, then flushes so the fixtures become committed baseline.
func seedState(t *testing.T) (*store.MemStore, *Aggregator) {
	t.Helper()
	state := store.NewMemStore()

	pool := model.Pool{
		Address: aggPool, Token0: aggWETH, Token1: aggUNI,
		FeeTier: 3000, TickSpacing: 60, CreatedAtBlock: 1, CreatedAtTimestamp: 1620000000,
	}
	require.NoError(t, store.SetJSON(state, 0, store.PoolKey{Address: aggPool, Suffix: store.SuffixInfo}, pool))
	require.NoError(t, store.SetJSON(state, 0, store.TokenKey{Address: aggWETH, Suffix: store.SuffixInfo},
		model.Token{Address: aggWETH, Symbol: "WETH", Decimals: 18}))
	require.NoError(t, store.SetJSON(state, 0, store.TokenKey{Address: aggUNI, Suffix: store.SuffixInfo},
		model.Token{Address: aggUNI, Symbol: "UNI", Decimals: 18}))

	// Reference pool: USDC per WETH.
	state.Set(0, store.PoolKey{Address: aggRefPool, Suffix: store.SuffixPriceToken0}, "2000")
	state.Set(0, store.BundleKey{}, "2000")
	state.Flush()

	engine := pricing.NewEngine(aggMarket(), state, nil)
	return state, NewAggregator(state, engine, nil)
}

func swapEvent(ordinal uint64, amount0, amount1 string) model.Event {
	return model.Event{
		Name: model.EventSwap, Pool: aggPool, Token0: aggWETH, Token1: aggUNI,
		TxID: "0xtx", Timestamp: 1620250000, Ordinal: ordinal,
		Data: model.SwapEventData{
			Sender: "0xs", Recipient: "0xr",
			Amount0: amount0, Amount1: amount1,
			SqrtPriceX96: "79228162514264337593543950336", // 1.0 in Q96
			Liquidity:    "1000",
			Tick:         0,
		},
	}
}

func mintEvent(ordinal uint64, liquidity, amount0, amount1 string) model.Event {
	return model.Event{
		Name: model.EventMint, Pool: aggPool, Token0: aggWETH, Token1: aggUNI,
		TxID: "0xtx", Timestamp: 1620250000, Ordinal: ordinal,
		Data: model.MintEventData{
			Sender: "0xs", Owner: "0xo",
			TickLower: -120, TickUpper: 120,
			Amount: liquidity, Amount0: amount0, Amount1: amount1,
		},
	}
}

func burnEvent(ordinal uint64, liquidity, amount0, amount1 string) model.Event {
	return model.Event{
		Name: model.EventBurn, Pool: aggPool, Token0: aggWETH, Token1: aggUNI,
		TxID: "0xtx", Timestamp: 1620250000, Ordinal: ordinal,
		Data: model.BurnEventData{
			Owner:     "0xo",
			TickLower: -120, TickUpper: 120,
			Amount: liquidity, Amount0: amount0, Amount1: amount1,
		},
	}
}

func testBlock(ts uint64) model.Block {
	return model.Block{Number: 12370000, Timestamp: ts}
}

func TestSwapVolumesAndFees(t *testing.T) {
	state, agg := seedState(t)

	// Sell 1 WETH for 100 UNI.
	out := extract.Output{Events: []model.Event{swapEvent(3, "-1000000000000000000", "100000000000000000000")}}
	require.NoError(t, agg.ProcessBlock(testBlock(1620250000), out))

	require.True(t, store.GetDecimalLast(state, store.PoolKey{Address: aggPool, Suffix: store.SuffixVolumeToken0}).Equal(decimal.NewFromInt(1)))
	require.True(t, store.GetDecimalLast(state, store.PoolKey{Address: aggPool, Suffix: store.SuffixVolumeToken1}).Equal(decimal.NewFromInt(100)))

	// Only the WETH leg is whitelisted: tracked = 2 * (1 WETH * 2000) / 2.
	volumeUSD := store.GetDecimalLast(state, store.PoolKey{Address: aggPool, Suffix: store.SuffixVolumeUSD})
	require.True(t, volumeUSD.Equal(decimal.NewFromInt(2000)), "volumeUSD = %s", volumeUSD)

	// Fee tier 3000 -> 0.3%.
	feesUSD := store.GetDecimalLast(state, store.FactoryKey{Suffix: store.SuffixFeesUSD})
	require.True(t, feesUSD.Equal(decimal.NewFromInt(6)), "feesUSD = %s", feesUSD)

	// Fees and untracked volume land on both token legs, not just the pool.
	day := int64(uint64(1620250000) / secondsPerDay)
	for _, token := range []string{aggWETH, aggUNI} {
		tokenFees := store.GetDecimalLast(state, store.TokenKey{Address: token, Suffix: store.SuffixFeesUSD})
		require.True(t, tokenFees.Equal(decimal.NewFromInt(6)), "token %s feesUSD = %s", token, tokenFees)

		// One whitelisted leg: untracked is the mean of both USD legs.
		tokenUntracked := store.GetDecimalLast(state, store.TokenKey{Address: token, Suffix: store.SuffixVolumeUSDUntracked})
		require.True(t, tokenUntracked.Equal(decimal.NewFromInt(1000)), "token %s untracked = %s", token, tokenUntracked)
	}
	poolDayFees := store.GetDecimalLast(state, store.PoolDayKey{Day: day, Address: aggPool, Suffix: store.SuffixFeesUSD})
	require.True(t, poolDayFees.Equal(decimal.NewFromInt(6)), "poolDayFees = %s", poolDayFees)

	volumeETH := store.GetDecimalLast(state, store.FactoryKey{Suffix: store.SuffixVolumeETH})
	require.True(t, volumeETH.Equal(decimal.NewFromInt(1)), "volumeETH = %s", volumeETH)

	txCount := store.GetDecimalLast(state, store.FactoryKey{Suffix: store.SuffixTxCount})
	require.True(t, txCount.Equal(decimal.NewFromInt(1)))
}

func TestMintBurnTickLiquidity(t *testing.T) {
	state, agg := seedState(t)

	mint := extract.Output{Events: []model.Event{mintEvent(2, "5000", "1000000000000000000", "0")}}
	require.NoError(t, agg.ProcessBlock(testBlock(1620250000), mint))

	lowerNet := store.GetBigIntLast(state, store.TickKey{Pool: aggPool, Idx: -120, Suffix: store.SuffixLiquidityNet})
	upperNet := store.GetBigIntLast(state, store.TickKey{Pool: aggPool, Idx: 120, Suffix: store.SuffixLiquidityNet})
	require.Equal(t, "5000", lowerNet.String())
	require.Equal(t, "-5000", upperNet.String())

	lowerGross := store.GetBigIntLast(state, store.TickKey{Pool: aggPool, Idx: -120, Suffix: store.SuffixLiquidityGross})
	require.Equal(t, "5000", lowerGross.String())

	burn := extract.Output{Events: []model.Event{burnEvent(4, "2000", "400000000000000000", "0")}}
	require.NoError(t, agg.ProcessBlock(testBlock(1620250013), burn))

	lowerNet = store.GetBigIntLast(state, store.TickKey{Pool: aggPool, Idx: -120, Suffix: store.SuffixLiquidityNet})
	require.Equal(t, "3000", lowerNet.String())
	lowerGross = store.GetBigIntLast(state, store.TickKey{Pool: aggPool, Idx: -120, Suffix: store.SuffixLiquidityGross})
	require.Equal(t, "3000", lowerGross.String())
}

func TestTVLDerivation(t *testing.T) {
	state, agg := seedState(t)

	// Deposit 1 WETH and 100 UNI. UNI has no discovered ETH price, so only
	// the WETH leg counts toward locked value.
	mint := extract.Output{Events: []model.Event{mintEvent(2, "5000", "1000000000000000000", "100000000000000000000")}}
	require.NoError(t, agg.ProcessBlock(testBlock(1620250000), mint))

	tvlETH := store.GetDecimalLast(state, store.PoolKey{Address: aggPool, Suffix: store.SuffixTVLETH})
	require.True(t, tvlETH.Equal(decimal.NewFromInt(1)), "tvlETH = %s", tvlETH)

	tvlUSD := store.GetDecimalLast(state, store.PoolKey{Address: aggPool, Suffix: store.SuffixTVLUSD})
	require.True(t, tvlUSD.Equal(decimal.NewFromInt(2000)), "tvlUSD = %s", tvlUSD)

	factoryETH := store.GetDecimalLast(state, store.FactoryKey{Suffix: store.SuffixTVLETH})
	require.True(t, factoryETH.Equal(decimal.NewFromInt(1)))

	state.Flush()

	// Withdraw 0.4 WETH.
	burn := extract.Output{Events: []model.Event{burnEvent(2, "2000", "400000000000000000", "0")}}
	require.NoError(t, agg.ProcessBlock(testBlock(1620250013), burn))

	tvlETH = store.GetDecimalLast(state, store.PoolKey{Address: aggPool, Suffix: store.SuffixTVLETH})
	require.True(t, tvlETH.Equal(decimal.RequireFromString("0.6")), "tvlETH = %s", tvlETH)

	factoryETH = store.GetDecimalLast(state, store.FactoryKey{Suffix: store.SuffixTVLETH})
	require.True(t, factoryETH.Equal(decimal.RequireFromString("0.6")), "factoryETH = %s", factoryETH)
}

func TestThirdPartialPanics(t *testing.T) {
	_, agg := seedState(t)

	deltas := []nativeDelta{
		{Pool: aggPool, Token: aggWETH, IsToken0: true, NewTotal: decimal.NewFromInt(1), Ordinal: 7},
		{Pool: aggPool, Token: aggUNI, IsToken0: false, NewTotal: decimal.NewFromInt(1), Ordinal: 7},
		{Pool: aggPool, Token: aggWETH, IsToken0: true, NewTotal: decimal.NewFromInt(2), Ordinal: 7},
	}
	// The pair at ordinal 7 completes and clears, so a lone third delta is
	// an unpaired partial.
	require.Panics(t, func() { agg.deriveTVL(testBlock(1620250000), deltas) })
}

func TestDayRolloverEvictsBuckets(t *testing.T) {
	state, agg := seedState(t)

	dayOneTs := uint64(1620250000)
	dayOne := int64(dayOneTs / secondsPerDay)

	out := extract.Output{Events: []model.Event{swapEvent(3, "-1000000000000000000", "100000000000000000000")}}
	require.NoError(t, agg.ProcessBlock(testBlock(dayOneTs), out))
	state.Flush()

	_, ok := state.GetLast(store.UniswapDayKey{Day: dayOne, Suffix: store.SuffixVolumeUSD})
	require.True(t, ok, "day bucket should exist before rollover")

	nextDayTs := dayOneTs + secondsPerDay
	require.NoError(t, agg.ProcessBlock(testBlock(nextDayTs), extract.Output{}))
	state.Flush()

	_, ok = state.GetLast(store.UniswapDayKey{Day: dayOne, Suffix: store.SuffixVolumeUSD})
	require.False(t, ok, "day bucket should be evicted after rollover")
}

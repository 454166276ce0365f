package aggregate

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"uniscope/internal/extract"
	"uniscope/internal/model"
	"uniscope/internal/pricing"
	"uniscope/internal/store"
)

const secondsPerDay = 86400

var (
	two        = decimal.NewFromInt(2)
	oneDecimal = decimal.NewFromInt(1)
	feeDenom   = decimal.NewFromInt(1_000_000)
)

// Aggregator folds one block's extracted events into the keyed store. All
// writes carry the event's ordinal so intra-block reads observe a consistent
// as-of point.
type Aggregator struct {
	state  store.Store
	engine *pricing.Engine
	logger *zap.Logger

	decimalsCache map[string]uint8
}

func NewAggregator(state store.Store, engine *pricing.Engine, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		state:         state,
		engine:        engine,
		logger:        logger,
		decimalsCache: make(map[string]uint8),
	}
}

// ProcessBlock applies one block's output. The caller flushes the store
// afterwards; this method never flushes.
func (a *Aggregator) ProcessBlock(block model.Block, out extract.Output) error {
	a.ensureBundle()
	a.rollDay(block.Timestamp)

	// Storage-derived state lands first. Reads are ordinal-scoped, so a
	// write at a later ordinal never leaks into an earlier event's view.
	for _, update := range out.LiquidityUpdates {
		a.state.Set(update.Ordinal, store.PoolKey{Address: update.Pool, Suffix: store.SuffixLiquidity}, update.Value)
	}
	for _, update := range out.FeeGrowthGlobal {
		if update.Global0 != "" {
			a.state.Set(update.Ordinal, store.PoolKey{Address: update.Pool, Suffix: store.SuffixFeeGrowthGlobal0}, update.Global0)
		}
		if update.Global1 != "" {
			a.state.Set(update.Ordinal, store.PoolKey{Address: update.Pool, Suffix: store.SuffixFeeGrowthGlobal1}, update.Global1)
		}
	}
	for _, update := range out.FeeGrowthOutside {
		suffix := store.SuffixFeeGrowthOutside0
		if update.Side == 1 {
			suffix = store.SuffixFeeGrowthOutside1
		}
		a.state.Set(update.Ordinal, store.TickKey{Pool: update.Pool, Idx: update.Idx, Suffix: suffix}, update.New)
	}
	for _, created := range out.TicksCreated {
		if err := store.SetJSON(a.state, created.Ordinal, store.TickKey{Pool: created.Pool, Idx: created.Idx, Suffix: store.SuffixInfo}, created); err != nil {
			return fmt.Errorf("tick info: %w", err)
		}
	}

	var natives []nativeDelta
	for _, event := range out.Events {
		if err := a.applyEvent(block, event, &natives); err != nil {
			return err
		}
	}

	a.deriveTVL(block, natives)
	return nil
}

func (a *Aggregator) applyEvent(block model.Block, event model.Event, natives *[]nativeDelta) error {
	switch event.Name {
	case model.EventInitialize:
		data := event.Data.(model.InitializeEventData)
		a.setPoolPrice(event, data.SqrtPriceX96, data.Tick)
		a.refreshDerivedPrices(event)
	case model.EventSwap:
		data := event.Data.(model.SwapEventData)
		a.setPoolPrice(event, data.SqrtPriceX96, data.Tick)
		a.refreshDerivedPrices(event)
		a.bumpTxCounts(event, block)
		if err := a.applySwap(block, event, data, natives); err != nil {
			return err
		}
	case model.EventMint:
		data := event.Data.(model.MintEventData)
		a.bumpTxCounts(event, block)
		a.applyMintBurnTicks(event, data.TickLower, data.TickUpper, data.Amount, false)
		a.addNative(event, data.Amount0, data.Amount1, false, natives)
	case model.EventBurn:
		data := event.Data.(model.BurnEventData)
		a.bumpTxCounts(event, block)
		a.applyMintBurnTicks(event, data.TickLower, data.TickUpper, data.Amount, true)
		a.addNative(event, data.Amount0, data.Amount1, true, natives)
	case model.EventCollect:
		data := event.Data.(model.CollectEventData)
		a.state.AddBigInt(event.Ordinal, store.PoolKey{Address: event.Pool, Suffix: store.SuffixCollectedToken0}, mustBig(data.Amount0))
		a.state.AddBigInt(event.Ordinal, store.PoolKey{Address: event.Pool, Suffix: store.SuffixCollectedToken1}, mustBig(data.Amount1))
	case model.EventFlash:
		// Fee growth globals already landed via the storage pass; a flash
		// moves no net liquidity.
	case model.EventPoolCreated:
		// Registration happens in extraction; nothing to accumulate here.
	case model.EventTransfer, model.EventIncreaseLiquidity, model.EventDecreaseLiquidity, model.EventCollectPosition:
		a.applyPositionEvent(event)
	default:
		a.logger.Warn("unhandled event", zap.String("name", event.Name))
	}
	return nil
}

// setPoolPrice records the pool's sqrt price, tick and both token prices.
// price:token1 is the amount of token1 one token0 buys; price:token0 the
// inverse.
func (a *Aggregator) setPoolPrice(event model.Event, sqrtPrice string, tick int32) {
	a.state.Set(event.Ordinal, store.PoolKey{Address: event.Pool, Suffix: store.SuffixSqrtPrice}, sqrtPrice)
	a.state.Set(event.Ordinal, store.PoolKey{Address: event.Pool, Suffix: store.SuffixTick}, fmt.Sprintf("%d", tick))

	dec0, err0 := a.tokenDecimals(event.Token0)
	dec1, err1 := a.tokenDecimals(event.Token1)
	if err0 != nil || err1 != nil {
		a.logger.Warn("token decimals unavailable, price skipped",
			zap.String("pool", event.Pool))
		return
	}

	sqrt := mustBig(sqrtPrice)
	price0, price1 := pricing.PricesFromSqrtPrice(sqrt, dec0, dec1)
	store.SetDecimal(a.state, event.Ordinal, store.PoolKey{Address: event.Pool, Suffix: store.SuffixPriceToken0}, price0)
	store.SetDecimal(a.state, event.Ordinal, store.PoolKey{Address: event.Pool, Suffix: store.SuffixPriceToken1}, price1)
}

// refreshDerivedPrices recomputes the ETH prices of both pool tokens and,
// when the reference pool moved, the ETH/USD bundle.
func (a *Aggregator) refreshDerivedPrices(event model.Event) {
	if strings.EqualFold(event.Pool, a.engine.Config().USDCWETHPool) {
		store.SetDecimal(a.state, event.Ordinal, store.BundleKey{}, a.engine.EthPriceUSD(event.Ordinal))
	}
	for _, token := range []string{event.Token0, event.Token1} {
		price := a.engine.FindEthPerToken(event.Ordinal, token)
		store.SetDecimal(a.state, event.Ordinal, store.TokenKey{Address: token, Suffix: store.SuffixEthPrice}, price)
	}
}

func (a *Aggregator) bumpTxCounts(event model.Event, block model.Block) {
	day := int64(block.Timestamp / secondsPerDay)
	a.state.AddMany(event.Ordinal, []store.Key{
		store.FactoryKey{Suffix: store.SuffixTxCount},
		store.PoolKey{Address: event.Pool, Suffix: store.SuffixTxCount},
		store.TokenKey{Address: event.Token0, Suffix: store.SuffixTxCount},
		store.TokenKey{Address: event.Token1, Suffix: store.SuffixTxCount},
		store.UniswapDayKey{Day: day, Suffix: store.SuffixTxCount},
	}, oneDecimal)
}

func (a *Aggregator) applySwap(block model.Block, event model.Event, data model.SwapEventData, natives *[]nativeDelta) error {
	dec0, err0 := a.tokenDecimals(event.Token0)
	dec1, err1 := a.tokenDecimals(event.Token1)
	if err0 != nil || err1 != nil {
		return fmt.Errorf("swap on %s: token decimals unavailable", event.Pool)
	}

	amount0 := pricing.TokenAmount(mustBig(data.Amount0), dec0)
	amount1 := pricing.TokenAmount(mustBig(data.Amount1), dec1)
	abs0 := amount0.Abs()
	abs1 := amount1.Abs()

	ord := event.Ordinal
	day := int64(block.Timestamp / secondsPerDay)

	// Volumes in native units.
	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixVolumeToken0}, abs0)
	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixVolumeToken1}, abs1)
	a.state.Add(ord, store.TokenKey{Address: event.Token0, Suffix: store.SuffixVolume}, abs0)
	a.state.Add(ord, store.TokenKey{Address: event.Token1, Suffix: store.SuffixVolume}, abs1)

	// USD and ETH volumes; the tracked amount covers both legs so it is
	// halved to count the swap once.
	ethUSD := a.engine.EthPriceUSD(ord)
	trackedUSD := a.engine.TrackedAmountUSD(ord, event.Token0, abs0, event.Token1, abs1).Div(two)
	untrackedUSD := a.engine.UntrackedAmountUSD(ord, event.Token0, abs0, event.Token1, abs1)
	trackedETH := pricing.SafeDiv(trackedUSD, ethUSD)

	var pool model.Pool
	if !store.GetJSONLast(a.state, store.PoolKey{Address: event.Pool, Suffix: store.SuffixInfo}, &pool) {
		return fmt.Errorf("swap on unregistered pool %s", event.Pool)
	}
	feeRate := decimal.NewFromInt(int64(pool.FeeTier)).Div(feeDenom)
	feesUSD := trackedUSD.Mul(feeRate)
	feesETH := trackedETH.Mul(feeRate)

	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixVolumeUSDUntracked}, untrackedUSD)
	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixFeesUSD}, feesUSD)

	a.state.Add(ord, store.TokenKey{Address: event.Token0, Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.TokenKey{Address: event.Token1, Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.TokenKey{Address: event.Token0, Suffix: store.SuffixVolumeUSDUntracked}, untrackedUSD)
	a.state.Add(ord, store.TokenKey{Address: event.Token1, Suffix: store.SuffixVolumeUSDUntracked}, untrackedUSD)
	a.state.Add(ord, store.TokenKey{Address: event.Token0, Suffix: store.SuffixFeesUSD}, feesUSD)
	a.state.Add(ord, store.TokenKey{Address: event.Token1, Suffix: store.SuffixFeesUSD}, feesUSD)

	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixVolumeUSDUntracked}, untrackedUSD)
	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixVolumeETH}, trackedETH)
	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixFeesUSD}, feesUSD)
	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixFeesETH}, feesETH)

	a.state.Add(ord, store.UniswapDayKey{Day: day, Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.UniswapDayKey{Day: day, Suffix: store.SuffixVolumeETH}, trackedETH)
	a.state.Add(ord, store.UniswapDayKey{Day: day, Suffix: store.SuffixFeesUSD}, feesUSD)
	a.state.Add(ord, store.PoolDayKey{Day: day, Address: event.Pool, Suffix: store.SuffixVolumeToken0}, abs0)
	a.state.Add(ord, store.PoolDayKey{Day: day, Address: event.Pool, Suffix: store.SuffixVolumeToken1}, abs1)
	a.state.Add(ord, store.PoolDayKey{Day: day, Address: event.Pool, Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.PoolDayKey{Day: day, Address: event.Pool, Suffix: store.SuffixFeesUSD}, feesUSD)
	a.state.Add(ord, store.TokenDayKey{Day: day, Address: event.Token0, Suffix: store.SuffixVolume}, abs0)
	a.state.Add(ord, store.TokenDayKey{Day: day, Address: event.Token1, Suffix: store.SuffixVolume}, abs1)
	a.state.Add(ord, store.TokenDayKey{Day: day, Address: event.Token0, Suffix: store.SuffixVolumeUSD}, trackedUSD)
	a.state.Add(ord, store.TokenDayKey{Day: day, Address: event.Token1, Suffix: store.SuffixVolumeUSD}, trackedUSD)

	// Swap amounts are the pool's signed balance deltas.
	a.recordNative(event, amount0, amount1, natives)
	return nil
}

// applyMintBurnTicks updates the net and gross liquidity of the position's
// boundary ticks. The lower tick gains net liquidity, the upper tick sheds
// it; a burn mirrors both signs.
func (a *Aggregator) applyMintBurnTicks(event model.Event, lower, upper int32, amount string, burn bool) {
	liquidity := mustBig(amount)
	neg := new(big.Int).Neg(liquidity)

	lowerNet, upperNet, gross := liquidity, neg, liquidity
	if burn {
		lowerNet, upperNet, gross = neg, liquidity, neg
	}

	a.state.AddBigInt(event.Ordinal, store.TickKey{Pool: event.Pool, Idx: lower, Suffix: store.SuffixLiquidityNet}, lowerNet)
	a.state.AddBigInt(event.Ordinal, store.TickKey{Pool: event.Pool, Idx: upper, Suffix: store.SuffixLiquidityNet}, upperNet)
	a.state.AddBigInt(event.Ordinal, store.TickKey{Pool: event.Pool, Idx: lower, Suffix: store.SuffixLiquidityGross}, gross)
	a.state.AddBigInt(event.Ordinal, store.TickKey{Pool: event.Pool, Idx: upper, Suffix: store.SuffixLiquidityGross}, gross)
}

// addNative applies decimal-scaled mint or burn amounts to the pool's native
// balances.
func (a *Aggregator) addNative(event model.Event, amount0, amount1 string, negate bool, natives *[]nativeDelta) {
	dec0, err0 := a.tokenDecimals(event.Token0)
	dec1, err1 := a.tokenDecimals(event.Token1)
	if err0 != nil || err1 != nil {
		a.logger.Warn("token decimals unavailable, native amounts skipped",
			zap.String("pool", event.Pool))
		return
	}
	a0 := pricing.TokenAmount(mustBig(amount0), dec0)
	a1 := pricing.TokenAmount(mustBig(amount1), dec1)
	if negate {
		a0 = a0.Neg()
		a1 = a1.Neg()
	}
	a.recordNative(event, a0, a1, natives)
}

// recordNative adds both legs and queues the resulting deltas for the TVL
// derivation pass. Both legs are always queued, zero amounts included, so
// every pool event contributes exactly two partials.
func (a *Aggregator) recordNative(event model.Event, amount0, amount1 decimal.Decimal, natives *[]nativeDelta) {
	ord := event.Ordinal

	new0 := store.GetDecimalAt(a.state, ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixNativeToken0}).Add(amount0)
	new1 := store.GetDecimalAt(a.state, ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixNativeToken1}).Add(amount1)

	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixNativeToken0}, amount0)
	a.state.Add(ord, store.PoolKey{Address: event.Pool, Suffix: store.SuffixNativeToken1}, amount1)
	a.state.Add(ord, store.TokenKey{Address: event.Token0, Suffix: store.SuffixNative}, amount0)
	a.state.Add(ord, store.TokenKey{Address: event.Token1, Suffix: store.SuffixNative}, amount1)

	*natives = append(*natives,
		nativeDelta{Pool: event.Pool, Token: event.Token0, IsToken0: true, NewTotal: new0, Ordinal: ord},
		nativeDelta{Pool: event.Pool, Token: event.Token1, IsToken0: false, NewTotal: new1, Ordinal: ord},
	)
}

func (a *Aggregator) applyPositionEvent(event model.Event) {
	ord := event.Ordinal
	switch data := event.Data.(type) {
	case model.TransferEventData:
		a.state.Set(ord, store.PositionKey{TokenID: data.TokenID, Suffix: store.SuffixOwner}, strings.ToLower(data.To))
	case model.IncreaseLiquidityEventData:
		a.state.AddBigInt(ord, store.PositionKey{TokenID: data.TokenID, Suffix: store.SuffixLiquidity}, mustBig(data.Liquidity))
	case model.DecreaseLiquidityEventData:
		a.state.AddBigInt(ord, store.PositionKey{TokenID: data.TokenID, Suffix: store.SuffixLiquidity}, new(big.Int).Neg(mustBig(data.Liquidity)))
	case model.CollectPositionEventData:
		a.state.AddBigInt(ord, store.PositionKey{TokenID: data.TokenID, Suffix: store.SuffixCollectedToken0}, mustBig(data.Amount0))
		a.state.AddBigInt(ord, store.PositionKey{TokenID: data.TokenID, Suffix: store.SuffixCollectedToken1}, mustBig(data.Amount1))
	}
}

// ensureBundle seeds the ETH/USD bundle so later reads can distinguish "not
// yet priced" (zero) from a broken pipeline (absent).
func (a *Aggregator) ensureBundle() {
	if _, ok := a.state.GetLast(store.BundleKey{}); !ok {
		a.state.Set(0, store.BundleKey{}, "0")
	}
}

func (a *Aggregator) tokenDecimals(address string) (uint8, error) {
	if dec, ok := a.decimalsCache[address]; ok {
		return dec, nil
	}
	var token model.Token
	if !store.GetJSONLast(a.state, store.TokenKey{Address: address, Suffix: store.SuffixInfo}, &token) {
		return 0, fmt.Errorf("unknown token: %s", address)
	}
	a.decimalsCache[address] = token.Decimals
	return token.Decimals, nil
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"uniscope/internal/model"
	"uniscope/internal/store"
)

// Engine answers ordinal-scoped price questions against the keyed store.
type Engine struct {
	cfg    MarketConfig
	state  store.Store
	logger *zap.Logger
}

// NewEngine builds a pricing engine over the given state store.
func NewEngine(cfg MarketConfig, state store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, state: state, logger: logger}
}

// Config returns the market tables the engine was built with.
func (e *Engine) Config() MarketConfig { return e.cfg }

// EthPriceUSD reads the price of the designated USDC/WETH reference pool as
// of the given ordinal; zero when the pool has not traded yet.
func (e *Engine) EthPriceUSD(ordinal uint64) decimal.Decimal {
	return store.GetDecimalAt(e.state, ordinal, store.PoolKey{
		Address: e.cfg.USDCWETHPool,
		Suffix:  store.SuffixPriceToken0,
	})
}

// FindEthPerToken derives the ETH price of a token by walking its
// whitelisted-counterparty pools and keeping the candidate with the most ETH
// locked. A candidate replaces the running best only when its locked ETH
// exceeds both the running maximum and the minimum liquidity floor, the
// floor being waived for whitelisted counterparties. Strict comparison means
// the first-seen pool wins exact ties. No qualifying candidate means a zero
// price.
func (e *Engine) FindEthPerToken(ordinal uint64, token string) decimal.Decimal {
	if e.cfg.IsWrappedNative(token) {
		return one
	}
	if e.cfg.IsStablecoin(token) {
		return SafeDiv(one, e.EthPriceUSD(ordinal))
	}

	largestEthLocked := decimal.Zero
	price := decimal.Zero

	for _, poolAddr := range e.whitelistPools(token) {
		var pool model.Pool
		if !store.GetJSONLast(e.state, store.PoolKey{Address: poolAddr, Suffix: store.SuffixInfo}, &pool) {
			continue
		}
		liquidity := store.GetBigIntAt(e.state, ordinal, store.PoolKey{Address: poolAddr, Suffix: store.SuffixLiquidity})
		if liquidity.Sign() == 0 {
			continue
		}

		counter, counterLeg, priceSuffix := pool.Token1, store.SuffixNativeToken1, store.SuffixPriceToken1
		if strings.EqualFold(token, pool.Token1) {
			counter, counterLeg, priceSuffix = pool.Token0, store.SuffixNativeToken0, store.SuffixPriceToken0
		}

		counterLocked := store.GetDecimalAt(e.state, ordinal, store.PoolKey{Address: poolAddr, Suffix: counterLeg})

		var ethLocked, counterEth decimal.Decimal
		if e.cfg.IsWrappedNative(counter) {
			ethLocked = counterLocked
			counterEth = one
		} else {
			counterEth = store.GetDecimalAt(e.state, ordinal, store.TokenKey{Address: counter, Suffix: store.SuffixEthPrice})
			if !e.referencePairLiquid(ordinal, counter) {
				continue
			}
			ethLocked = counterLocked.Mul(counterEth)
		}

		if !ethLocked.GreaterThan(largestEthLocked) {
			continue
		}
		if !ethLocked.GreaterThan(e.cfg.MinimumEthLocked) && !e.cfg.IsWhitelisted(counter) {
			continue
		}

		largestEthLocked = ethLocked
		counterPerToken := store.GetDecimalAt(e.state, ordinal, store.PoolKey{Address: poolAddr, Suffix: priceSuffix})
		price = counterPerToken.Mul(counterEth)
	}

	return price
}

// TrackedAmountUSD values a swap's two legs using only whitelist-anchored
// prices. Both legs whitelisted sums both sides; a single whitelisted leg is
// doubled; no whitelisted leg tracks as zero. Callers halve the result since
// both legs represent the same economic swap.
func (e *Engine) TrackedAmountUSD(ordinal uint64, token0 string, amount0 decimal.Decimal, token1 string, amount1 decimal.Decimal) decimal.Decimal {
	ethUSD := e.EthPriceUSD(ordinal)
	price0 := e.FindEthPerToken(ordinal, token0).Mul(ethUSD)
	price1 := e.FindEthPerToken(ordinal, token1).Mul(ethUSD)

	w0 := e.cfg.IsWhitelisted(token0)
	w1 := e.cfg.IsWhitelisted(token1)

	switch {
	case w0 && w1:
		return amount0.Mul(price0).Add(amount1.Mul(price1))
	case w0:
		return amount0.Mul(price0).Mul(decimal.NewFromInt(2))
	case w1:
		return amount1.Mul(price1).Mul(decimal.NewFromInt(2))
	default:
		return decimal.Zero
	}
}

// UntrackedAmountUSD is the arithmetic mean of both legs' raw USD value,
// with no whitelist weighting.
func (e *Engine) UntrackedAmountUSD(ordinal uint64, token0 string, amount0 decimal.Decimal, token1 string, amount1 decimal.Decimal) decimal.Decimal {
	ethUSD := e.EthPriceUSD(ordinal)
	price0 := e.FindEthPerToken(ordinal, token0).Mul(ethUSD)
	price1 := e.FindEthPerToken(ordinal, token1).Mul(ethUSD)
	return amount0.Mul(price0).Add(amount1.Mul(price1)).Div(decimal.NewFromInt(2))
}

func (e *Engine) whitelistPools(token string) []string {
	raw, ok := e.state.GetLast(store.TokenKey{Address: token, Suffix: store.SuffixWhitelistPools})
	if !ok || raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// referencePairLiquid requires nonzero liquidity on the (native, counter)
// reference pair before trusting the counter token's own ETH price.
func (e *Engine) referencePairLiquid(ordinal uint64, counter string) bool {
	refPool, ok := e.state.GetLast(pairKey(e.cfg.WrappedNative, counter))
	if !ok || refPool == "" {
		return false
	}
	liquidity := store.GetBigIntAt(e.state, ordinal, store.PoolKey{Address: refPool, Suffix: store.SuffixLiquidity})
	return liquidity.Sign() != 0
}

func pairKey(tokenA, tokenB string) store.PairKey {
	a := strings.ToLower(tokenA)
	b := strings.ToLower(tokenB)
	if a > b {
		a, b = b, a
	}
	return store.PairKey{TokenA: a, TokenB: b}
}

// PairKeyFor exposes the sorted pair key used for reference-pair lookups so
// pool registration writes to the same address.
func PairKeyFor(tokenA, tokenB string) store.PairKey {
	return pairKey(tokenA, tokenB)
}

package aggregate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"uniscope/internal/model"
	"uniscope/internal/store"
)

// nativeDelta is one leg of a pool's native balance change, carrying the
// balance after the change.
type nativeDelta struct {
	Pool     string
	Token    string
	IsToken0 bool
	NewTotal decimal.Decimal
	Ordinal  uint64
}

type tvlPartial struct {
	ordinal uint64
	count   int
	eth0    decimal.Decimal
	eth1    decimal.Decimal
	token0  string
	token1  string
	total0  decimal.Decimal
	total1  decimal.Decimal
}

// deriveTVL re-prices native balance deltas into ETH and USD locked values.
// Every pool event queues exactly two leg deltas; the two partials of a
// (pool, ordinal) pair are combined into one TVL write. A third partial for
// the same pair means the upstream pairing invariant broke, which is a bug,
// not bad data, so it panics.
func (a *Aggregator) deriveTVL(block model.Block, natives []nativeDelta) {
	partials := make(map[string]*tvlPartial)

	for _, delta := range natives {
		key := fmt.Sprintf("%s@%d", delta.Pool, delta.Ordinal)
		partial := partials[key]
		if partial == nil {
			partial = &tvlPartial{ordinal: delta.Ordinal}
			partials[key] = partial
		}
		if partial.count >= 2 {
			panic(fmt.Sprintf("aggregate: third tvl partial for pool %s at ordinal %d", delta.Pool, delta.Ordinal))
		}
		partial.count++

		// Re-price at the delta's ordinal. A token with no discoverable ETH
		// price contributes zero to the locked value until pricing catches
		// up.
		ethPrice := a.engine.FindEthPerToken(delta.Ordinal, delta.Token)
		legETH := delta.NewTotal.Mul(ethPrice)

		if delta.IsToken0 {
			partial.eth0 = legETH
			partial.token0 = delta.Token
			partial.total0 = delta.NewTotal
		} else {
			partial.eth1 = legETH
			partial.token1 = delta.Token
			partial.total1 = delta.NewTotal
		}

		if partial.count == 2 {
			a.commitPoolTVL(delta.Pool, block, partial)
			delete(partials, key)
		}
	}

	if len(partials) != 0 {
		panic(fmt.Sprintf("aggregate: %d unpaired tvl partials", len(partials)))
	}
}

func (a *Aggregator) commitPoolTVL(pool string, block model.Block, partial *tvlPartial) {
	ord := partial.ordinal
	ethUSD, ok := a.state.GetAt(ord, store.BundleKey{})
	if !ok {
		panic("aggregate: bundle missing during tvl conversion")
	}
	bundle, err := decimal.NewFromString(ethUSD)
	if err != nil {
		panic(fmt.Sprintf("aggregate: malformed bundle value %q", ethUSD))
	}

	newETH := partial.eth0.Add(partial.eth1)
	newUSD := newETH.Mul(bundle)

	oldETH := store.GetDecimalAt(a.state, ord, store.PoolKey{Address: pool, Suffix: store.SuffixTVLETH})
	oldUSD := store.GetDecimalAt(a.state, ord, store.PoolKey{Address: pool, Suffix: store.SuffixTVLUSD})

	store.SetDecimal(a.state, ord, store.PoolKey{Address: pool, Suffix: store.SuffixTVLETH}, newETH)
	store.SetDecimal(a.state, ord, store.PoolKey{Address: pool, Suffix: store.SuffixTVLUSD}, newUSD)

	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixTVLETH}, newETH.Sub(oldETH))
	a.state.Add(ord, store.FactoryKey{Suffix: store.SuffixTVLUSD}, newUSD.Sub(oldUSD))

	// Token-level locked value follows the token's cross-pool native total.
	for _, token := range []string{partial.token0, partial.token1} {
		ethPrice := a.engine.FindEthPerToken(ord, token)
		total := store.GetDecimalAt(a.state, ord, store.TokenKey{Address: token, Suffix: store.SuffixNative})
		store.SetDecimal(a.state, ord, store.TokenKey{Address: token, Suffix: store.SuffixTVLUSD}, total.Mul(ethPrice).Mul(bundle))
	}

	day := int64(block.Timestamp / secondsPerDay)
	factoryUSD := store.GetDecimalAt(a.state, ord, store.FactoryKey{Suffix: store.SuffixTVLUSD})
	store.SetDecimal(a.state, ord, store.UniswapDayKey{Day: day, Suffix: store.SuffixTVLUSD}, factoryUSD)
	store.SetDecimal(a.state, ord, store.PoolDayKey{Day: day, Address: pool, Suffix: store.SuffixTVLUSD}, newUSD)
}

package model

import "fmt"

// Pool represents a V3 pool created by the factory. Immutable after creation.
// IgnorePool marks a denylisted pool whose events are dropped before
// aggregation.
type Pool struct {
	Address            string `json:"address"`
	Token0             string `json:"token0"`
	Token1             string `json:"token1"`
	FeeTier            uint32 `json:"fee_tier"`
	TickSpacing        int32  `json:"tick_spacing"`
	CreatedAtBlock     uint64 `json:"created_at_block"`
	CreatedAtTimestamp uint64 `json:"created_at_timestamp"`
	IgnorePool         bool   `json:"ignore_pool"`
}

// Token captures ERC-20 metadata resolved at pool creation.
type Token struct {
	Address     string `json:"address"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
}

func tickID(pool string, idx int32) string {
	return fmt.Sprintf("%s#%d", pool, idx)
}

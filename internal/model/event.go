package model

// Event names produced by the decoder, in match priority order for pool logs.
const (
	EventSwap              = "Swap"
	EventMint              = "Mint"
	EventBurn              = "Burn"
	EventFlash             = "Flash"
	EventInitialize        = "Initialize"
	EventCollect           = "Collect"
	EventPoolCreated       = "PoolCreated"
	EventTransfer          = "Transfer"
	EventIncreaseLiquidity = "IncreaseLiquidity"
	EventDecreaseLiquidity = "DecreaseLiquidity"
	EventCollectPosition   = "CollectPosition"
)

// Event is a decoded domain event enriched with pool context. Ordinal is the
// per-block log sequence number used as the universal ordering key.
type Event struct {
	Name      string      `json:"name"`
	Pool      string      `json:"pool"`
	Token0    string      `json:"token0"`
	Token1    string      `json:"token1"`
	TxID      string      `json:"tx_id"`
	Timestamp uint64      `json:"timestamp"`
	Ordinal   uint64      `json:"ordinal"`
	Data      interface{} `json:"data"`
}

// TickCreated is emitted when a tick's initialized flag flips from false to
// true during a Mint.
type TickCreated struct {
	Pool        string `json:"pool"`
	Idx         int32  `json:"idx"`
	LowOrUpper  string `json:"low_or_upper"`
	CreatedAt   uint64 `json:"created_at"`
	Ordinal     uint64 `json:"ordinal"`
	Timestamp   uint64 `json:"timestamp"`
	TickSpacing int32  `json:"tick_spacing"`
}

// ID returns the composite tick identifier. Two logs in one block can
// legitimately produce the same id; downstream last-write-wins resolves it.
func (t TickCreated) ID() string {
	return tickID(t.Pool, t.Idx)
}

// FeeGrowthOutsideUpdate carries the new value of a tick's fee-growth-outside
// accumulator. The old value is not needed downstream.
type FeeGrowthOutsideUpdate struct {
	Pool    string `json:"pool"`
	Idx     int32  `json:"idx"`
	Side    uint8  `json:"side"`
	New     string `json:"new"`
	Ordinal uint64 `json:"ordinal"`
}

// ID returns the composite tick identifier for the updated tick.
func (u FeeGrowthOutsideUpdate) ID() string {
	return tickID(u.Pool, u.Idx)
}

// FeeGrowthGlobalUpdate carries a pool's global fee growth accumulators.
type FeeGrowthGlobalUpdate struct {
	Pool    string `json:"pool"`
	Global0 string `json:"global0"`
	Global1 string `json:"global1"`
	Ordinal uint64 `json:"ordinal"`
}

// LiquidityUpdate carries a pool's in-range liquidity read from storage.
type LiquidityUpdate struct {
	Pool    string `json:"pool"`
	Value   string `json:"value"`
	Ordinal uint64 `json:"ordinal"`
}

package model

// SwapEventData is the decoded Swap event payload.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is the decoded Burn event payload.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// FlashEventData is the decoded Flash event payload together with the
// fee growth accumulators observed after the flash settled.
type FlashEventData struct {
	Sender               string `json:"sender"`
	Recipient            string `json:"recipient"`
	Amount0              string `json:"amount0"`
	Amount1              string `json:"amount1"`
	Paid0                string `json:"paid0"`
	Paid1                string `json:"paid1"`
	FeeGrowthGlobal0X128 string `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string `json:"fee_growth_global1_x128"`
}

// InitializeEventData is the decoded Initialize event payload.
type InitializeEventData struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// CollectEventData is the decoded pool Collect event payload.
type CollectEventData struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// PoolCreatedEventData is the decoded factory PoolCreated event payload.
type PoolCreatedEventData struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Pool        string `json:"pool"`
}

// TransferEventData is the decoded position-manager Transfer payload.
type TransferEventData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID string `json:"token_id"`
}

// IncreaseLiquidityEventData is the decoded IncreaseLiquidity payload.
type IncreaseLiquidityEventData struct {
	TokenID   string `json:"token_id"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// DecreaseLiquidityEventData is the decoded DecreaseLiquidity payload.
type DecreaseLiquidityEventData struct {
	TokenID   string `json:"token_id"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectPositionEventData is the decoded position-manager Collect payload.
type CollectPositionEventData struct {
	TokenID   string `json:"token_id"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

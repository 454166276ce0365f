package extract

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"uniscope/internal/chain"
	"uniscope/internal/dex"
	"uniscope/internal/model"
	"uniscope/internal/pricing"
	"uniscope/internal/slot"
	"uniscope/internal/store"
)

var (
	oneDecimal          = decimal.NewFromInt(1)
	errMissingFeeGrowth = errors.New("flash fee growth unavailable: no storage diff and no chain client")
)

// Contracts holds the protocol addresses the extractor dispatches on.
type Contracts struct {
	Factory         string
	PositionManager string
}

// MainnetContracts returns the Ethereum mainnet deployment.
func MainnetContracts() Contracts {
	return Contracts{
		Factory:         "0x1f98431c8ad98523631ae4a59f267346ea31f984",
		PositionManager: "0xc36442b4a4522e871399cd717abdd847ab11fe88",
	}
}

// Output is one block's extracted event stream. Every slice is sorted by
// ordinal before it is returned.
type Output struct {
	Events           []model.Event
	TicksCreated     []model.TickCreated
	FeeGrowthOutside []model.FeeGrowthOutsideUpdate
	FeeGrowthGlobal  []model.FeeGrowthGlobalUpdate
	LiquidityUpdates []model.LiquidityUpdate
	Errors           []model.DecodeError
}

// Extractor walks block traces and turns matched logs into domain events,
// enriching them from the storage diffs of the emitting call frame. Pool
// registrations are written to the state store as they are seen so later logs
// in the same block resolve against them.
type Extractor struct {
	decoder   *dex.Decoder
	state     store.Store
	market    pricing.MarketConfig
	contracts Contracts
	chain     *chain.Client
	tokens    TokenResolver
	logger    *zap.Logger
}

// NewExtractor builds an extractor. The chain client may be nil, which
// disables the eth_call fallback for flash fee growth.
func NewExtractor(state store.Store, market pricing.MarketConfig, contracts Contracts, tokens TokenResolver, chainClient *chain.Client, logger *zap.Logger) (*Extractor, error) {
	decoder, err := dex.NewDecoder()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		decoder:   decoder,
		state:     state,
		market:    market,
		contracts: contracts,
		chain:     chainClient,
		tokens:    tokens,
		logger:    logger,
	}, nil
}

// ExtractBlock processes one block's transactions in order. Logs of reverted
// call frames are skipped entirely.
func (e *Extractor) ExtractBlock(ctx context.Context, block model.Block) Output {
	var out Output

	for _, tx := range block.Transactions {
		for _, call := range tx.Calls {
			if call.StateReverted {
				continue
			}
			for _, log := range call.Logs {
				e.processLog(ctx, block, tx, call, log, &out)
			}
		}
	}

	sort.SliceStable(out.Events, func(i, j int) bool { return out.Events[i].Ordinal < out.Events[j].Ordinal })
	sort.SliceStable(out.TicksCreated, func(i, j int) bool { return out.TicksCreated[i].Ordinal < out.TicksCreated[j].Ordinal })
	sort.SliceStable(out.FeeGrowthOutside, func(i, j int) bool { return out.FeeGrowthOutside[i].Ordinal < out.FeeGrowthOutside[j].Ordinal })
	sort.SliceStable(out.FeeGrowthGlobal, func(i, j int) bool { return out.FeeGrowthGlobal[i].Ordinal < out.FeeGrowthGlobal[j].Ordinal })
	sort.SliceStable(out.LiquidityUpdates, func(i, j int) bool { return out.LiquidityUpdates[i].Ordinal < out.LiquidityUpdates[j].Ordinal })

	return out
}

func (e *Extractor) processLog(ctx context.Context, block model.Block, tx model.Transaction, call model.Call, log model.Log, out *Output) {
	if len(log.Topics) == 0 {
		return
	}

	switch {
	case strings.EqualFold(log.Address, e.contracts.Factory):
		e.processFactoryLog(ctx, block, tx, log, out)
	case strings.EqualFold(log.Address, e.contracts.PositionManager):
		e.processPositionLog(block, tx, log, out)
	default:
		e.processPoolLog(ctx, block, tx, call, log, out)
	}
}

func (e *Extractor) processFactoryLog(ctx context.Context, block model.Block, tx model.Transaction, log model.Log, out *Output) {
	if _, ok := e.decoder.Match(dex.SourceFactory, log.Topics[0]); !ok {
		return
	}
	name, decoded, err := e.decoder.Decode(dex.SourceFactory, log)
	if err != nil {
		out.Errors = append(out.Errors, decodeError(block, tx, log, err))
		return
	}
	created := decoded.(model.PoolCreatedEventData)

	// Addresses are stored and keyed in lowercase throughout.
	poolAddr := strings.ToLower(created.Pool)
	token0Addr := strings.ToLower(created.Token0)
	token1Addr := strings.ToLower(created.Token1)

	token0, err := e.resolveToken(ctx, log.Ordinal, token0Addr)
	if err != nil {
		e.logger.Warn("token0 metadata unavailable, pool skipped",
			zap.String("pool", poolAddr), zap.String("token", token0Addr), zap.Error(err))
		out.Errors = append(out.Errors, decodeError(block, tx, log, err))
		return
	}
	token1, err := e.resolveToken(ctx, log.Ordinal, token1Addr)
	if err != nil {
		e.logger.Warn("token1 metadata unavailable, pool skipped",
			zap.String("pool", poolAddr), zap.String("token", token1Addr), zap.Error(err))
		out.Errors = append(out.Errors, decodeError(block, tx, log, err))
		return
	}

	pool := model.Pool{
		Address:            poolAddr,
		Token0:             token0Addr,
		Token1:             token1Addr,
		FeeTier:            created.Fee,
		TickSpacing:        created.TickSpacing,
		CreatedAtBlock:     block.Number,
		CreatedAtTimestamp: block.Timestamp,
		IgnorePool:         e.market.IsIgnoredPool(poolAddr),
	}
	e.registerPool(log.Ordinal, pool, token0, token1)

	out.Events = append(out.Events, model.Event{
		Name:      name,
		Pool:      poolAddr,
		Token0:    token0Addr,
		Token1:    token1Addr,
		TxID:      tx.Hash,
		Timestamp: block.Timestamp,
		Ordinal:   log.Ordinal,
		Data:      created,
	})
}

func (e *Extractor) processPositionLog(block model.Block, tx model.Transaction, log model.Log, out *Output) {
	if _, ok := e.decoder.Match(dex.SourcePositionManager, log.Topics[0]); !ok {
		return
	}
	name, decoded, err := e.decoder.Decode(dex.SourcePositionManager, log)
	if err != nil {
		out.Errors = append(out.Errors, decodeError(block, tx, log, err))
		return
	}
	out.Events = append(out.Events, model.Event{
		Name:      name,
		TxID:      tx.Hash,
		Timestamp: block.Timestamp,
		Ordinal:   log.Ordinal,
		Data:      decoded,
	})
}

func (e *Extractor) processPoolLog(ctx context.Context, block model.Block, tx model.Transaction, call model.Call, log model.Log, out *Output) {
	var pool model.Pool
	poolAddr := strings.ToLower(log.Address)
	if !store.GetJSONLast(e.state, store.PoolKey{Address: poolAddr, Suffix: store.SuffixInfo}, &pool) {
		return
	}
	if pool.IgnorePool {
		return
	}
	if _, ok := e.decoder.Match(dex.SourcePool, log.Topics[0]); !ok {
		return
	}

	name, decoded, err := e.decoder.Decode(dex.SourcePool, log)
	if err != nil {
		out.Errors = append(out.Errors, decodeError(block, tx, log, err))
		return
	}

	storage := slot.NewPoolStorage(call.StorageChanges, common.HexToAddress(log.Address))

	switch name {
	case model.EventSwap:
		data := decoded.(model.SwapEventData)
		e.collectTickFeeGrowth(storage, pool.Address, data.Tick, log.Ordinal, out)
		e.collectLiquidity(storage, pool.Address, log.Ordinal, out)
		e.collectFeeGrowthGlobal(storage, pool.Address, log.Ordinal, out)
	case model.EventMint:
		data := decoded.(model.MintEventData)
		e.collectTickTransitions(storage, pool, data.TickLower, "lower", block, log.Ordinal, out)
		e.collectTickTransitions(storage, pool, data.TickUpper, "upper", block, log.Ordinal, out)
		e.collectLiquidity(storage, pool.Address, log.Ordinal, out)
		e.collectFeeGrowthGlobal(storage, pool.Address, log.Ordinal, out)
	case model.EventBurn:
		data := decoded.(model.BurnEventData)
		e.collectTickFeeGrowth(storage, pool.Address, data.TickLower, log.Ordinal, out)
		e.collectTickFeeGrowth(storage, pool.Address, data.TickUpper, log.Ordinal, out)
		e.collectLiquidity(storage, pool.Address, log.Ordinal, out)
		e.collectFeeGrowthGlobal(storage, pool.Address, log.Ordinal, out)
	case model.EventFlash:
		data := decoded.(model.FlashEventData)
		withGrowth, err := e.fillFlashFeeGrowth(ctx, storage, pool.Address, block.Number, data, log.Ordinal, out)
		if err != nil {
			out.Errors = append(out.Errors, decodeError(block, tx, log, err))
			return
		}
		decoded = withGrowth
	}

	out.Events = append(out.Events, model.Event{
		Name:      name,
		Pool:      pool.Address,
		Token0:    pool.Token0,
		Token1:    pool.Token1,
		TxID:      tx.Hash,
		Timestamp: block.Timestamp,
		Ordinal:   log.Ordinal,
		Data:      decoded,
	})
}

// collectTickTransitions records a tick creation when the initialized flag
// flips from false to true, plus any fee-growth-outside writes. Only mints
// create ticks.
func (e *Extractor) collectTickTransitions(storage *slot.PoolStorage, pool model.Pool, tick int32, side string, block model.Block, ordinal uint64, out *Output) {
	if oldInit, newInit, ok := storage.TickInitialized(tick); ok && !oldInit && newInit {
		out.TicksCreated = append(out.TicksCreated, model.TickCreated{
			Pool:        pool.Address,
			Idx:         tick,
			LowOrUpper:  side,
			CreatedAt:   block.Number,
			Ordinal:     ordinal,
			Timestamp:   block.Timestamp,
			TickSpacing: pool.TickSpacing,
		})
	}
	e.collectTickFeeGrowth(storage, pool.Address, tick, ordinal, out)
}

func (e *Extractor) collectTickFeeGrowth(storage *slot.PoolStorage, pool string, tick int32, ordinal uint64, out *Output) {
	if _, newVal, ok := storage.TickFeeGrowthOutside0X128(tick); ok {
		out.FeeGrowthOutside = append(out.FeeGrowthOutside, model.FeeGrowthOutsideUpdate{
			Pool: pool, Idx: tick, Side: 0, New: newVal.String(), Ordinal: ordinal,
		})
	}
	if _, newVal, ok := storage.TickFeeGrowthOutside1X128(tick); ok {
		out.FeeGrowthOutside = append(out.FeeGrowthOutside, model.FeeGrowthOutsideUpdate{
			Pool: pool, Idx: tick, Side: 1, New: newVal.String(), Ordinal: ordinal,
		})
	}
}

func (e *Extractor) collectLiquidity(storage *slot.PoolStorage, pool string, ordinal uint64, out *Output) {
	if _, newVal, ok := storage.Liquidity(); ok {
		out.LiquidityUpdates = append(out.LiquidityUpdates, model.LiquidityUpdate{
			Pool: pool, Value: newVal.String(), Ordinal: ordinal,
		})
	}
}

func (e *Extractor) collectFeeGrowthGlobal(storage *slot.PoolStorage, pool string, ordinal uint64, out *Output) {
	_, new0, ok0 := storage.FeeGrowthGlobal0X128()
	_, new1, ok1 := storage.FeeGrowthGlobal1X128()
	if !ok0 && !ok1 {
		return
	}
	update := model.FeeGrowthGlobalUpdate{Pool: pool, Ordinal: ordinal}
	if ok0 {
		update.Global0 = new0.String()
	}
	if ok1 {
		update.Global1 = new1.String()
	}
	out.FeeGrowthGlobal = append(out.FeeGrowthGlobal, update)
}

// fillFlashFeeGrowth reads the post-flash fee growth accumulators, storage
// diff first and eth_call second. A flash with neither source is dropped.
func (e *Extractor) fillFlashFeeGrowth(ctx context.Context, storage *slot.PoolStorage, pool string, blockNumber uint64, data model.FlashEventData, ordinal uint64, out *Output) (model.FlashEventData, error) {
	_, new0, ok0 := storage.FeeGrowthGlobal0X128()
	_, new1, ok1 := storage.FeeGrowthGlobal1X128()

	if !ok0 || !ok1 {
		if e.chain == nil {
			if !ok0 && !ok1 {
				return data, errMissingFeeGrowth
			}
		} else {
			global0, global1, err := dex.FetchFeeGrowthGlobals(ctx, e.chain, common.HexToAddress(pool), blockNumber)
			if err != nil {
				return data, err
			}
			if !ok0 {
				new0 = global0
			}
			if !ok1 {
				new1 = global1
			}
			ok0, ok1 = true, true
		}
	}

	if ok0 {
		data.FeeGrowthGlobal0X128 = new0.String()
	}
	if ok1 {
		data.FeeGrowthGlobal1X128 = new1.String()
	}

	update := model.FeeGrowthGlobalUpdate{Pool: pool, Ordinal: ordinal}
	if ok0 {
		update.Global0 = new0.String()
	}
	if ok1 {
		update.Global1 = new1.String()
	}
	out.FeeGrowthGlobal = append(out.FeeGrowthGlobal, update)
	return data, nil
}

func (e *Extractor) resolveToken(ctx context.Context, ordinal uint64, address string) (model.Token, error) {
	var token model.Token
	key := store.TokenKey{Address: address, Suffix: store.SuffixInfo}
	if store.GetJSONLast(e.state, key, &token) {
		return token, nil
	}
	token, err := e.tokens.Resolve(ctx, address)
	if err != nil {
		return model.Token{}, err
	}
	token.Address = address
	if err := store.SetJSON(e.state, ordinal, key, token); err != nil {
		return model.Token{}, err
	}
	return token, nil
}

// registerPool writes the pool, its tokens, the whitelist-pool lists and the
// pair index so pricing and later logs can resolve it.
func (e *Extractor) registerPool(ordinal uint64, pool model.Pool, token0, token1 model.Token) {
	if err := store.SetJSON(e.state, ordinal, store.PoolKey{Address: pool.Address, Suffix: store.SuffixInfo}, pool); err != nil {
		e.logger.Warn("pool registration failed", zap.String("pool", pool.Address), zap.Error(err))
		return
	}

	// A denylisted pool keeps its info record so its later logs can be
	// identified and dropped, but it never reaches the pool count, the
	// whitelist-pool lists or the pair index.
	if pool.IgnorePool {
		return
	}
	e.state.Add(ordinal, store.FactoryKey{Suffix: store.SuffixPoolCount}, oneDecimal)

	if e.market.IsWhitelisted(pool.Token0) {
		e.appendWhitelistPool(ordinal, pool.Token1, pool.Address)
	}
	if e.market.IsWhitelisted(pool.Token1) {
		e.appendWhitelistPool(ordinal, pool.Token0, pool.Address)
	}

	// First pool created for a pair becomes its reference pool.
	pair := pricing.PairKeyFor(pool.Token0, pool.Token1)
	if _, ok := e.state.GetLast(pair); !ok {
		e.state.Set(ordinal, pair, pool.Address)
	}
}

func (e *Extractor) appendWhitelistPool(ordinal uint64, token, pool string) {
	key := store.TokenKey{Address: token, Suffix: store.SuffixWhitelistPools}
	raw, _ := e.state.GetLast(key)
	if raw == "" {
		e.state.Set(ordinal, key, pool)
		return
	}
	e.state.Set(ordinal, key, raw+","+pool)
}

func decodeError(block model.Block, tx model.Transaction, log model.Log, err error) model.DecodeError {
	return model.DecodeError{
		BlockNumber: block.Number,
		TxID:        tx.Hash,
		Ordinal:     log.Ordinal,
		Address:     log.Address,
		Topic0:      log.Topics[0],
		Error:       err.Error(),
	}
}

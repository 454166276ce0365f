package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"uniscope/internal/model"
)

// Source classifies the emitting contract of a log so the decoder only
// matches event shapes that contract can produce.
type Source int

const (
	SourcePool Source = iota
	SourceFactory
	SourcePositionManager
)

// Decoder decodes Uniswap V3 pool, factory and position-manager logs into
// typed event payloads. Matching is a closed set keyed by topic0.
type Decoder struct {
	poolABI     abi.ABI
	factoryABI  abi.ABI
	positionABI abi.ABI

	poolTopics     map[string]string
	factoryTopics  map[string]string
	positionTopics map[string]string
}

// NewDecoder builds a decoder with all three ABIs parsed.
func NewDecoder() (*Decoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	factoryABI, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	positionABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}

	return &Decoder{
		poolABI:     poolABI,
		factoryABI:  factoryABI,
		positionABI: positionABI,
		poolTopics: map[string]string{
			strings.ToLower(poolABI.Events["Swap"].ID.Hex()):       model.EventSwap,
			strings.ToLower(poolABI.Events["Mint"].ID.Hex()):       model.EventMint,
			strings.ToLower(poolABI.Events["Burn"].ID.Hex()):       model.EventBurn,
			strings.ToLower(poolABI.Events["Flash"].ID.Hex()):      model.EventFlash,
			strings.ToLower(poolABI.Events["Initialize"].ID.Hex()): model.EventInitialize,
			strings.ToLower(poolABI.Events["Collect"].ID.Hex()):    model.EventCollect,
		},
		factoryTopics: map[string]string{
			strings.ToLower(factoryABI.Events["PoolCreated"].ID.Hex()): model.EventPoolCreated,
		},
		positionTopics: map[string]string{
			strings.ToLower(positionABI.Events["Transfer"].ID.Hex()):          model.EventTransfer,
			strings.ToLower(positionABI.Events["IncreaseLiquidity"].ID.Hex()): model.EventIncreaseLiquidity,
			strings.ToLower(positionABI.Events["DecreaseLiquidity"].ID.Hex()): model.EventDecreaseLiquidity,
			strings.ToLower(positionABI.Events["Collect"].ID.Hex()):           model.EventCollectPosition,
		},
	}, nil
}

// Topics returns every topic0 the decoder can match, across all three
// sources. Capture uses this as its log filter.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.poolTopics)+len(d.factoryTopics)+len(d.positionTopics))
	for _, topicSet := range []map[string]string{d.poolTopics, d.factoryTopics, d.positionTopics} {
		for topic := range topicSet {
			out = append(out, common.HexToHash(topic))
		}
	}
	return out
}

// Match reports the event name for a topic0 within the given source's closed
// set. Unknown shapes are not an error here; callers skip them.
func (d *Decoder) Match(src Source, topic0 string) (string, bool) {
	if topic0 == "" {
		return "", false
	}
	var name string
	var ok bool
	switch src {
	case SourcePool:
		name, ok = d.poolTopics[strings.ToLower(topic0)]
	case SourceFactory:
		name, ok = d.factoryTopics[strings.ToLower(topic0)]
	case SourcePositionManager:
		name, ok = d.positionTopics[strings.ToLower(topic0)]
	}
	return name, ok
}

// Decode converts a matched log into its typed payload. The returned name is
// one of the model event-name constants.
func (d *Decoder) Decode(src Source, log model.Log) (string, interface{}, error) {
	if len(log.Topics) == 0 {
		return "", nil, fmt.Errorf("missing topics")
	}
	name, ok := d.Match(src, log.Topics[0])
	if !ok {
		return "", nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	var data interface{}
	var err error
	switch name {
	case model.EventSwap:
		data, err = d.decodeSwap(log)
	case model.EventMint:
		data, err = d.decodeMint(log)
	case model.EventBurn:
		data, err = d.decodeBurn(log)
	case model.EventFlash:
		data, err = d.decodeFlash(log)
	case model.EventInitialize:
		data, err = d.decodeInitialize(log)
	case model.EventCollect:
		data, err = d.decodeCollect(log)
	case model.EventPoolCreated:
		data, err = d.decodePoolCreated(log)
	case model.EventTransfer:
		data, err = d.decodeTransfer(log)
	case model.EventIncreaseLiquidity:
		data, err = d.decodeLiquidityChange(log, "IncreaseLiquidity")
	case model.EventDecreaseLiquidity:
		data, err = d.decodeLiquidityChange(log, "DecreaseLiquidity")
	case model.EventCollectPosition:
		data, err = d.decodeCollectPosition(log)
	default:
		err = fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return name, data, nil
}

func (d *Decoder) decodeSwap(log model.Log) (model.SwapEventData, error) {
	event := d.poolABI.Events["Swap"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.SwapEventData{}, err
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SwapEventData{}, err
	}
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.SwapEventData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.SwapEventData{}, err
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return model.SwapEventData{}, err
	}
	liquidity, err := asBigInt(values[3])
	if err != nil {
		return model.SwapEventData{}, err
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return model.SwapEventData{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SqrtPriceX96: sqrtPrice.String(),
		Liquidity:    liquidity.String(),
		Tick:         tick,
	}, nil
}

func (d *Decoder) decodeMint(log model.Log) (model.MintEventData, error) {
	event := d.poolABI.Events["Mint"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.MintEventData{}, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.MintEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.MintEventData{}, err
	}
	if len(values) != 4 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}

	sender, err := asAddress(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount0, err := asBigInt(values[2])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount1, err := asBigInt(values[3])
	if err != nil {
		return model.MintEventData{}, err
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return model.MintEventData{}, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return model.MintEventData{}, err
	}

	return model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     indexed.Owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount.String(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func (d *Decoder) decodeBurn(log model.Log) (model.BurnEventData, error) {
	event := d.poolABI.Events["Burn"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.BurnEventData{}, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.BurnEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.BurnEventData{}, err
	}
	if len(values) != 3 {
		return model.BurnEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}

	amount, err := asBigInt(values[0])
	if err != nil {
		return model.BurnEventData{}, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return model.BurnEventData{}, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return model.BurnEventData{}, err
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return model.BurnEventData{}, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return model.BurnEventData{}, err
	}

	return model.BurnEventData{
		Owner:     indexed.Owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amount.String(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

// decodeFlash leaves the fee-growth accumulators empty; extraction fills them
// from storage or a chain call after the event is matched.
func (d *Decoder) decodeFlash(log model.Log) (model.FlashEventData, error) {
	event := d.poolABI.Events["Flash"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.FlashEventData{}, err
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.FlashEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.FlashEventData{}, err
	}
	if len(values) != 4 {
		return model.FlashEventData{}, fmt.Errorf("unexpected flash values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.FlashEventData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.FlashEventData{}, err
	}
	paid0, err := asBigInt(values[2])
	if err != nil {
		return model.FlashEventData{}, err
	}
	paid1, err := asBigInt(values[3])
	if err != nil {
		return model.FlashEventData{}, err
	}

	return model.FlashEventData{
		Sender:    indexed.Sender.Hex(),
		Recipient: indexed.Recipient.Hex(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
		Paid0:     paid0.String(),
		Paid1:     paid1.String(),
	}, nil
}

func (d *Decoder) decodeInitialize(log model.Log) (model.InitializeEventData, error) {
	event := d.poolABI.Events["Initialize"]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.InitializeEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.InitializeEventData{}, err
	}
	if len(values) != 2 {
		return model.InitializeEventData{}, fmt.Errorf("unexpected initialize values: %d", len(values))
	}

	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.InitializeEventData{}, err
	}

	return model.InitializeEventData{
		SqrtPriceX96: sqrtPrice.String(),
		Tick:         tick,
	}, nil
}

func (d *Decoder) decodeCollect(log model.Log) (model.CollectEventData, error) {
	event := d.poolABI.Events["Collect"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.CollectEventData{}, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.CollectEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.CollectEventData{}, err
	}
	if len(values) != 3 {
		return model.CollectEventData{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}

	recipient, err := asAddress(values[0])
	if err != nil {
		return model.CollectEventData{}, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return model.CollectEventData{}, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return model.CollectEventData{}, err
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return model.CollectEventData{}, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return model.CollectEventData{}, err
	}

	return model.CollectEventData{
		Owner:     indexed.Owner.Hex(),
		Recipient: recipient.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func (d *Decoder) decodePoolCreated(log model.Log) (model.PoolCreatedEventData, error) {
	event := d.factoryABI.Events["PoolCreated"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		Fee    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.PoolCreatedEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}
	if len(values) != 2 {
		return model.PoolCreatedEventData{}, fmt.Errorf("unexpected pool created values: %d", len(values))
	}

	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}
	pool, err := asAddress(values[1])
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}

	return model.PoolCreatedEventData{
		Token0:      indexed.Token0.Hex(),
		Token1:      indexed.Token1.Hex(),
		Fee:         uint32(indexed.Fee.Uint64()),
		TickSpacing: tickSpacing,
		Pool:        pool.Hex(),
	}, nil
}

func (d *Decoder) decodeTransfer(log model.Log) (model.TransferEventData, error) {
	event := d.positionABI.Events["Transfer"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.TransferEventData{}, err
	}

	var indexed struct {
		From    common.Address
		To      common.Address
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.TransferEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	return model.TransferEventData{
		From:    indexed.From.Hex(),
		To:      indexed.To.Hex(),
		TokenID: indexed.TokenId.String(),
	}, nil
}

func (d *Decoder) decodeLiquidityChange(log model.Log, eventName string) (interface{}, error) {
	event := d.positionABI.Events[eventName]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected %s values: %d", eventName, len(values))
	}

	liquidity, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}

	if eventName == "IncreaseLiquidity" {
		return model.IncreaseLiquidityEventData{
			TokenID:   indexed.TokenId.String(),
			Liquidity: liquidity.String(),
			Amount0:   amount0.String(),
			Amount1:   amount1.String(),
		}, nil
	}
	return model.DecreaseLiquidityEventData{
		TokenID:   indexed.TokenId.String(),
		Liquidity: liquidity.String(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func (d *Decoder) decodeCollectPosition(log model.Log) (model.CollectPositionEventData, error) {
	event := d.positionABI.Events["Collect"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.CollectPositionEventData{}, err
	}

	var indexed struct {
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.CollectPositionEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.CollectPositionEventData{}, err
	}
	if len(values) != 3 {
		return model.CollectPositionEventData{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}

	recipient, err := asAddress(values[0])
	if err != nil {
		return model.CollectPositionEventData{}, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return model.CollectPositionEventData{}, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return model.CollectPositionEventData{}, err
	}

	return model.CollectPositionEventData{
		TokenID:   indexed.TokenId.String(),
		Recipient: recipient.Hex(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	if dataHex == "" {
		dataHex = "0x"
	}
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"uniscope/internal/model"
)

func TestDecodeSwap(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-1000),
		big.NewInt(2000),
		big.NewInt(123456789),
		big.NewInt(987654321),
		big.NewInt(-15),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	log := buildLog(pool, poolABI.Events["Swap"].ID, data, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(recipient),
	})

	name, decoded, err := decoder.Decode(SourcePool, log)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if name != model.EventSwap {
		t.Fatalf("name mismatch: %s", name)
	}

	swap, ok := decoded.(model.SwapEventData)
	if !ok {
		t.Fatalf("decoded type mismatch")
	}
	if swap.Amount0 != "-1000" || swap.Amount1 != "2000" {
		t.Fatalf("amounts mismatch: %+v", swap)
	}
	if swap.Tick != -15 {
		t.Fatalf("tick mismatch: %d", swap.Tick)
	}
	if swap.Sender != sender.Hex() || swap.Recipient != recipient.Hex() {
		t.Fatalf("address mismatch")
	}
}

func TestDecodeMintBurnCollect(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	sender := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	recipient := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	mintData, err := poolABI.Events["Mint"].Inputs.NonIndexed().Pack(
		sender,
		big.NewInt(5000),
		big.NewInt(100),
		big.NewInt(200),
	)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}

	mintLog := buildLog(pool, poolABI.Events["Mint"].ID, mintData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-120),
		topicFromInt24(120),
	})

	_, decoded, err := decoder.Decode(SourcePool, mintLog)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	mint, ok := decoded.(model.MintEventData)
	if !ok {
		t.Fatalf("mint type mismatch")
	}
	if mint.TickLower != -120 || mint.TickUpper != 120 {
		t.Fatalf("mint tick mismatch: %+v", mint)
	}
	if mint.Sender != sender.Hex() || mint.Owner != owner.Hex() {
		t.Fatalf("mint address mismatch")
	}

	burnData, err := poolABI.Events["Burn"].Inputs.NonIndexed().Pack(
		big.NewInt(7000),
		big.NewInt(300),
		big.NewInt(400),
	)
	if err != nil {
		t.Fatalf("pack burn: %v", err)
	}

	burnLog := buildLog(pool, poolABI.Events["Burn"].ID, burnData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-60),
		topicFromInt24(60),
	})

	_, decoded, err = decoder.Decode(SourcePool, burnLog)
	if err != nil {
		t.Fatalf("decode burn: %v", err)
	}
	burn, ok := decoded.(model.BurnEventData)
	if !ok {
		t.Fatalf("burn type mismatch")
	}
	if burn.Amount != "7000" {
		t.Fatalf("burn amount mismatch: %+v", burn)
	}

	collectData, err := poolABI.Events["Collect"].Inputs.NonIndexed().Pack(
		recipient,
		big.NewInt(900),
		big.NewInt(1000),
	)
	if err != nil {
		t.Fatalf("pack collect: %v", err)
	}

	collectLog := buildLog(pool, poolABI.Events["Collect"].ID, collectData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-10),
		topicFromInt24(10),
	})

	_, decoded, err = decoder.Decode(SourcePool, collectLog)
	if err != nil {
		t.Fatalf("decode collect: %v", err)
	}
	collect, ok := decoded.(model.CollectEventData)
	if !ok {
		t.Fatalf("collect type mismatch")
	}
	if collect.Amount0 != "900" || collect.Amount1 != "1000" {
		t.Fatalf("collect amount mismatch: %+v", collect)
	}
	if collect.Recipient != recipient.Hex() {
		t.Fatalf("collect recipient mismatch")
	}
}

func TestDecodeFlashAndInitialize(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x4444444444444444444444444444444444444444")
	sender := common.HexToAddress("0x5555555555555555555555555555555555555555")
	recipient := common.HexToAddress("0x6666666666666666666666666666666666666666")

	flashData, err := poolABI.Events["Flash"].Inputs.NonIndexed().Pack(
		big.NewInt(1000000),
		big.NewInt(0),
		big.NewInt(500),
		big.NewInt(0),
	)
	if err != nil {
		t.Fatalf("pack flash: %v", err)
	}

	flashLog := buildLog(pool, poolABI.Events["Flash"].ID, flashData, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(recipient),
	})

	name, decoded, err := decoder.Decode(SourcePool, flashLog)
	if err != nil {
		t.Fatalf("decode flash: %v", err)
	}
	if name != model.EventFlash {
		t.Fatalf("name mismatch: %s", name)
	}
	flash, ok := decoded.(model.FlashEventData)
	if !ok {
		t.Fatalf("flash type mismatch")
	}
	if flash.Amount0 != "1000000" || flash.Paid0 != "500" {
		t.Fatalf("flash amounts mismatch: %+v", flash)
	}
	if flash.FeeGrowthGlobal0X128 != "" {
		t.Fatalf("fee growth should be unset at decode time")
	}

	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	initData, err := poolABI.Events["Initialize"].Inputs.NonIndexed().Pack(
		sqrtPrice,
		big.NewInt(0),
	)
	if err != nil {
		t.Fatalf("pack initialize: %v", err)
	}

	initLog := buildLog(pool, poolABI.Events["Initialize"].ID, initData, nil)

	_, decoded, err = decoder.Decode(SourcePool, initLog)
	if err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	init, ok := decoded.(model.InitializeEventData)
	if !ok {
		t.Fatalf("initialize type mismatch")
	}
	if init.SqrtPriceX96 != sqrtPrice.String() || init.Tick != 0 {
		t.Fatalf("initialize mismatch: %+v", init)
	}
}

func TestDecodePoolCreated(t *testing.T) {
	factoryABI, err := FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	factory := common.HexToAddress("0x1f98431c8ad98523631ae4a59f267346ea31f984")
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pool := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	data, err := factoryABI.Events["PoolCreated"].Inputs.NonIndexed().Pack(
		big.NewInt(60),
		pool,
	)
	if err != nil {
		t.Fatalf("pack pool created: %v", err)
	}

	log := buildLog(factory, factoryABI.Events["PoolCreated"].ID, data, []common.Hash{
		topicFromAddress(token0),
		topicFromAddress(token1),
		common.BigToHash(big.NewInt(3000)),
	})

	name, decoded, err := decoder.Decode(SourceFactory, log)
	if err != nil {
		t.Fatalf("decode pool created: %v", err)
	}
	if name != model.EventPoolCreated {
		t.Fatalf("name mismatch: %s", name)
	}
	created, ok := decoded.(model.PoolCreatedEventData)
	if !ok {
		t.Fatalf("pool created type mismatch")
	}
	if created.Token0 != token0.Hex() || created.Token1 != token1.Hex() {
		t.Fatalf("token mismatch: %+v", created)
	}
	if created.Fee != 3000 || created.TickSpacing != 60 {
		t.Fatalf("fee mismatch: %+v", created)
	}
	if created.Pool != pool.Hex() {
		t.Fatalf("pool mismatch: %+v", created)
	}
}

func TestDecodePositionManagerEvents(t *testing.T) {
	positionABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	manager := common.HexToAddress("0xc36442b4a4522e871399cd717abdd847ab11fe88")
	from := common.HexToAddress("0x0000000000000000000000000000000000000000")
	to := common.HexToAddress("0x7777777777777777777777777777777777777777")
	recipient := common.HexToAddress("0x8888888888888888888888888888888888888888")
	tokenID := big.NewInt(42)

	transferLog := buildLog(manager, positionABI.Events["Transfer"].ID, nil, []common.Hash{
		topicFromAddress(from),
		topicFromAddress(to),
		common.BigToHash(tokenID),
	})

	name, decoded, err := decoder.Decode(SourcePositionManager, transferLog)
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if name != model.EventTransfer {
		t.Fatalf("name mismatch: %s", name)
	}
	transfer, ok := decoded.(model.TransferEventData)
	if !ok {
		t.Fatalf("transfer type mismatch")
	}
	if transfer.TokenID != "42" || transfer.To != to.Hex() {
		t.Fatalf("transfer mismatch: %+v", transfer)
	}

	incData, err := positionABI.Events["IncreaseLiquidity"].Inputs.NonIndexed().Pack(
		big.NewInt(12345),
		big.NewInt(100),
		big.NewInt(200),
	)
	if err != nil {
		t.Fatalf("pack increase: %v", err)
	}

	incLog := buildLog(manager, positionABI.Events["IncreaseLiquidity"].ID, incData, []common.Hash{
		common.BigToHash(tokenID),
	})

	name, decoded, err = decoder.Decode(SourcePositionManager, incLog)
	if err != nil {
		t.Fatalf("decode increase: %v", err)
	}
	if name != model.EventIncreaseLiquidity {
		t.Fatalf("name mismatch: %s", name)
	}
	inc, ok := decoded.(model.IncreaseLiquidityEventData)
	if !ok {
		t.Fatalf("increase type mismatch")
	}
	if inc.Liquidity != "12345" || inc.TokenID != "42" {
		t.Fatalf("increase mismatch: %+v", inc)
	}

	collectData, err := positionABI.Events["Collect"].Inputs.NonIndexed().Pack(
		recipient,
		big.NewInt(11),
		big.NewInt(22),
	)
	if err != nil {
		t.Fatalf("pack collect: %v", err)
	}

	collectLog := buildLog(manager, positionABI.Events["Collect"].ID, collectData, []common.Hash{
		common.BigToHash(tokenID),
	})

	name, decoded, err = decoder.Decode(SourcePositionManager, collectLog)
	if err != nil {
		t.Fatalf("decode collect: %v", err)
	}
	if name != model.EventCollectPosition {
		t.Fatalf("name mismatch: %s", name)
	}
	collect, ok := decoded.(model.CollectPositionEventData)
	if !ok {
		t.Fatalf("collect type mismatch")
	}
	if collect.Recipient != recipient.Hex() || collect.Amount0 != "11" {
		t.Fatalf("collect mismatch: %+v", collect)
	}
}

func TestMatchScopesBySource(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	positionABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	swapTopic := poolABI.Events["Swap"].ID.Hex()
	if _, ok := decoder.Match(SourceFactory, swapTopic); ok {
		t.Fatalf("swap should not match factory scope")
	}
	if name, ok := decoder.Match(SourcePool, swapTopic); !ok || name != model.EventSwap {
		t.Fatalf("swap should match pool scope")
	}

	// Pool Collect and position-manager Collect share a name but not a
	// topic0; each must resolve within its own scope only.
	poolCollect := poolABI.Events["Collect"].ID.Hex()
	posCollect := positionABI.Events["Collect"].ID.Hex()
	if poolCollect == posCollect {
		t.Fatalf("collect topics should differ")
	}
	if name, ok := decoder.Match(SourcePool, poolCollect); !ok || name != model.EventCollect {
		t.Fatalf("pool collect mismatch: %s", name)
	}
	if name, ok := decoder.Match(SourcePositionManager, posCollect); !ok || name != model.EventCollectPosition {
		t.Fatalf("position collect mismatch: %s", name)
	}
	if _, ok := decoder.Match(SourcePool, "0xdeadbeef"); ok {
		t.Fatalf("unknown topic should not match")
	}
}

func buildLog(addr common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.Log {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.Log{
		Address: addr.Hex(),
		Topics:  topics,
		Data:    hexutil.Encode(data),
		Ordinal: 1,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromInt24(value int32) common.Hash {
	bigVal := big.NewInt(int64(value))
	if value < 0 {
		bigVal = new(big.Int).Add(bigVal, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(bigVal)
}

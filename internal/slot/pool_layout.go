package slot

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"uniscope/internal/model"
)

// UniswapV3Pool storage layout, fixed by the deployed contract:
//
//	slot 0  Slot0 packed: sqrtPriceX96 uint160 | tick int24 | ...
//	slot 1  feeGrowthGlobal0X128 uint256
//	slot 2  feeGrowthGlobal1X128 uint256
//	slot 4  liquidity uint128
//	slot 5  mapping(int24 => Tick.Info) ticks
//
// Tick.Info members (relative to the mapped base slot):
//
//	+0  liquidityGross uint128 | liquidityNet int128
//	+1  feeGrowthOutside0X128 uint256
//	+2  feeGrowthOutside1X128 uint256
//	+3  tickCumulativeOutside int56 | secondsPerLiquidityOutsideX128 uint160 |
//	    secondsOutside uint32 | initialized bool
const (
	poolSlot0Index            = 0
	poolFeeGrowthGlobal0Index = 1
	poolFeeGrowthGlobal1Index = 2
	poolLiquidityIndex        = 4
	poolTicksIndex            = 5

	tickLiquidityMember        = 0
	tickFeeGrowthOutside0      = 1
	tickFeeGrowthOutside1      = 2
	tickFlagsMember            = 3
	tickInitializedOffset      = 31
	tickLiquidityNetByteOffset = 16
)

// PoolStorage reads V3 pool fields out of a block's storage-change list.
type PoolStorage struct {
	changes []model.StorageChange
	pool    common.Address
}

// NewPoolStorage scopes the change list to one pool contract.
func NewPoolStorage(changes []model.StorageChange, pool common.Address) *PoolStorage {
	return &PoolStorage{changes: changes, pool: pool}
}

// SqrtPriceX96 returns the old and new sqrt price when slot0 was written.
func (p *PoolStorage) SqrtPriceX96() (oldValue, newValue *big.Int, ok bool) {
	change := Lookup(p.changes, p.pool, Simple(poolSlot0Index))
	if change == nil {
		return nil, nil, false
	}
	o, n := Extract(change, 0, 20)
	return UnsignedBig(o), UnsignedBig(n), true
}

// Tick returns the old and new current tick when slot0 was written.
func (p *PoolStorage) Tick() (oldValue, newValue *big.Int, ok bool) {
	change := Lookup(p.changes, p.pool, Simple(poolSlot0Index))
	if change == nil {
		return nil, nil, false
	}
	o, n := Extract(change, 20, 3)
	return SignedBig(o), SignedBig(n), true
}

// Liquidity returns the pool's in-range liquidity when written.
func (p *PoolStorage) Liquidity() (oldValue, newValue *big.Int, ok bool) {
	change := Lookup(p.changes, p.pool, Simple(poolLiquidityIndex))
	if change == nil {
		return nil, nil, false
	}
	o, n := Extract(change, 0, 16)
	return UnsignedBig(o), UnsignedBig(n), true
}

// FeeGrowthGlobal0X128 returns the token0 global fee growth accumulator.
func (p *PoolStorage) FeeGrowthGlobal0X128() (oldValue, newValue *big.Int, ok bool) {
	return p.fullSlot(Simple(poolFeeGrowthGlobal0Index))
}

// FeeGrowthGlobal1X128 returns the token1 global fee growth accumulator.
func (p *PoolStorage) FeeGrowthGlobal1X128() (oldValue, newValue *big.Int, ok bool) {
	return p.fullSlot(Simple(poolFeeGrowthGlobal1Index))
}

// TickInitialized returns the old and new initialized flag for a tick. A
// false ok means the tick's flags slot was not touched, an expected outcome
// when a swap does not cross that tick.
func (p *PoolStorage) TickInitialized(tick int32) (oldValue, newValue bool, ok bool) {
	change := Lookup(p.changes, p.pool, StructMember(p.tickBase(tick), tickFlagsMember))
	if change == nil {
		return false, false, false
	}
	o, n := Extract(change, tickInitializedOffset, 1)
	return Bool(o), Bool(n), true
}

// TickFeeGrowthOutside0X128 returns the tick's token0 fee-growth-outside
// accumulator.
func (p *PoolStorage) TickFeeGrowthOutside0X128(tick int32) (oldValue, newValue *big.Int, ok bool) {
	return p.fullSlot(StructMember(p.tickBase(tick), tickFeeGrowthOutside0))
}

// TickFeeGrowthOutside1X128 returns the tick's token1 fee-growth-outside
// accumulator.
func (p *PoolStorage) TickFeeGrowthOutside1X128(tick int32) (oldValue, newValue *big.Int, ok bool) {
	return p.fullSlot(StructMember(p.tickBase(tick), tickFeeGrowthOutside1))
}

// TickLiquidityNet returns the tick's signed net liquidity.
func (p *PoolStorage) TickLiquidityNet(tick int32) (oldValue, newValue *big.Int, ok bool) {
	change := Lookup(p.changes, p.pool, StructMember(p.tickBase(tick), tickLiquidityMember))
	if change == nil {
		return nil, nil, false
	}
	o, n := Extract(change, tickLiquidityNetByteOffset, 16)
	return SignedBig(o), SignedBig(n), true
}

// TickLiquidityGross returns the tick's gross liquidity.
func (p *PoolStorage) TickLiquidityGross(tick int32) (oldValue, newValue *big.Int, ok bool) {
	change := Lookup(p.changes, p.pool, StructMember(p.tickBase(tick), tickLiquidityMember))
	if change == nil {
		return nil, nil, false
	}
	o, n := Extract(change, 0, 16)
	return UnsignedBig(o), UnsignedBig(n), true
}

// TickFlagsSlot exposes the derived slot address of a tick's flags word,
// used by fixed-vector tests.
func TickFlagsSlot(tick int32) Address {
	return StructMember(Mapping(PadInt24(tick), Simple(poolTicksIndex)), tickFlagsMember)
}

func (p *PoolStorage) tickBase(tick int32) Address {
	return Mapping(PadInt24(tick), Simple(poolTicksIndex))
}

func (p *PoolStorage) fullSlot(s Address) (oldValue, newValue *big.Int, ok bool) {
	change := Lookup(p.changes, p.pool, s)
	if change == nil {
		return nil, nil, false
	}
	o, n := Extract(change, 0, 32)
	return UnsignedBig(o), UnsignedBig(n), true
}

package store

import "fmt"

// Key identifies one accumulator value. Keys are structured variants rather
// than hand-concatenated strings; the deterministic serialization happens
// only here, at the store boundary.
type Key interface {
	String() string
}

// FactoryKey scopes a factory-wide accumulator.
type FactoryKey struct {
	Suffix string
}

func (k FactoryKey) String() string { return "factory:" + k.Suffix }

// BundleKey is the chain-wide ETH price in USD.
type BundleKey struct{}

func (BundleKey) String() string { return "bundle:eth_usd" }

// PoolKey scopes an accumulator to one pool.
type PoolKey struct {
	Address string
	Suffix  string
}

func (k PoolKey) String() string { return fmt.Sprintf("pool:%s:%s", k.Address, k.Suffix) }

// TokenKey scopes an accumulator to one token.
type TokenKey struct {
	Address string
	Suffix  string
}

func (k TokenKey) String() string { return fmt.Sprintf("token:%s:%s", k.Address, k.Suffix) }

// PairKey maps an unordered token pair to its reference pool. Legs are
// stored in the order given; callers sort before constructing.
type PairKey struct {
	TokenA string
	TokenB string
}

func (k PairKey) String() string { return fmt.Sprintf("pair:%s:%s", k.TokenA, k.TokenB) }

// TickKey scopes an accumulator to one tick of one pool.
type TickKey struct {
	Pool   string
	Idx    int32
	Suffix string
}

func (k TickKey) String() string { return fmt.Sprintf("tick:%s#%d:%s", k.Pool, k.Idx, k.Suffix) }

// PositionKey scopes an accumulator to one position-manager token id.
type PositionKey struct {
	TokenID string
	Suffix  string
}

func (k PositionKey) String() string { return fmt.Sprintf("position:%s:%s", k.TokenID, k.Suffix) }

// UniswapDayKey is a protocol-wide day bucket.
type UniswapDayKey struct {
	Day    int64
	Suffix string
}

func (k UniswapDayKey) String() string {
	return fmt.Sprintf("uniswap_day_data:%d:%s", k.Day, k.Suffix)
}

// PoolDayKey is a per-pool day bucket.
type PoolDayKey struct {
	Day     int64
	Address string
	Suffix  string
}

func (k PoolDayKey) String() string {
	return fmt.Sprintf("pool_day_data:%d:%s:%s", k.Day, k.Address, k.Suffix)
}

// TokenDayKey is a per-token day bucket.
type TokenDayKey struct {
	Day     int64
	Address string
	Suffix  string
}

func (k TokenDayKey) String() string {
	return fmt.Sprintf("token_day_data:%d:%s:%s", k.Day, k.Address, k.Suffix)
}

// Day bucket prefixes for the rolling eviction of a finished day.
func UniswapDayPrefix(day int64) string { return fmt.Sprintf("uniswap_day_data:%d:", day) }
func PoolDayPrefix(day int64) string    { return fmt.Sprintf("pool_day_data:%d:", day) }
func TokenDayPrefix(day int64) string   { return fmt.Sprintf("token_day_data:%d:", day) }

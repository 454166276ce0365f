package entity

import (
	"testing"

	"uniscope/internal/store"
)

func TestFromDeltaKeyShapes(t *testing.T) {
	cases := []struct {
		key    string
		entity string
		pk     string
		field  string
	}{
		{"factory:tx_count", "factory", "1", "tx_count"},
		{"bundle:eth_usd", "bundle", "1", "eth_usd"},
		{"pool:0xabc:price:token0", "pool", "0xabc", "price:token0"},
		{"token:0xdef:whitelist_pools", "token", "0xdef", "whitelist_pools"},
		{"pair:0xaaa:0xbbb", "pair", "0xaaa:0xbbb", "pool"},
		{"tick:0xabc#-120:liquidity_net", "tick", "0xabc#-120", "liquidity_net"},
		{"position:42:owner", "position", "42", "owner"},
		{"uniswap_day_data:18753:volume:usd", "uniswap_day_data", "18753", "volume:usd"},
		{"pool_day_data:18753:0xabc:tvl:usd", "pool_day_data", "0xabc-18753", "tvl:usd"},
		{"token_day_data:18753:0xdef:volume", "token_day_data", "0xdef-18753", "volume"},
	}

	for _, tc := range cases {
		change, err := FromDelta(17, store.Delta{Ordinal: 3, Key: tc.key, Op: store.OpSet, New: "1"})
		if err != nil {
			t.Fatalf("%s: %v", tc.key, err)
		}
		if change.Entity != tc.entity || change.PK != tc.pk || change.Field != tc.field {
			t.Fatalf("%s: got (%s, %s, %s), want (%s, %s, %s)",
				tc.key, change.Entity, change.PK, change.Field, tc.entity, tc.pk, tc.field)
		}
		if change.Block != 17 || change.Ordinal != 3 {
			t.Fatalf("%s: block/ordinal not carried through", tc.key)
		}
	}
}

func TestFromDeltaRejectsUnknownPrefix(t *testing.T) {
	if _, err := FromDelta(1, store.Delta{Key: "mystery:thing"}); err == nil {
		t.Fatal("want error for unknown prefix")
	}
	if _, err := FromDelta(1, store.Delta{Key: "noseparator"}); err == nil {
		t.Fatal("want error for key without separator")
	}
}

func TestFromDeltasPreservesOrder(t *testing.T) {
	deltas := []store.Delta{
		{Ordinal: 1, Key: "factory:pool_count", Op: store.OpAdd, New: "1"},
		{Ordinal: 2, Key: "pool:0xabc:liquidity", Op: store.OpSet, New: "500"},
	}
	changes, err := FromDeltas(9, deltas)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes", len(changes))
	}
	if changes[0].Field != "pool_count" || changes[1].Field != "liquidity" {
		t.Fatalf("order not preserved: %+v", changes)
	}
}

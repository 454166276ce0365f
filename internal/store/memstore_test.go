package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrdinalScopedReads(t *testing.T) {
	s := NewMemStore()
	key := PoolKey{Address: "0xabc", Suffix: SuffixLiquidity}

	s.Set(3, key, "100")
	s.Set(7, key, "200")

	_, ok := s.GetAt(2, key)
	require.False(t, ok, "nothing written at or before ordinal 2")

	v, ok := s.GetAt(3, key)
	require.True(t, ok)
	require.Equal(t, "100", v)

	v, ok = s.GetAt(5, key)
	require.True(t, ok)
	require.Equal(t, "100", v)

	v, ok = s.GetAt(7, key)
	require.True(t, ok)
	require.Equal(t, "200", v)

	v, ok = s.GetLast(key)
	require.True(t, ok)
	require.Equal(t, "200", v)
}

func TestAdditiveVersusSet(t *testing.T) {
	s := NewMemStore()
	addKey := FactoryKey{Suffix: SuffixTxCount}
	setKey := PoolKey{Address: "0xabc", Suffix: SuffixSqrtPrice}

	s.Add(1, addKey, decimal.NewFromInt(2))
	s.Add(4, addKey, decimal.NewFromInt(3))
	require.True(t, GetDecimalLast(s, addKey).Equal(decimal.NewFromInt(5)))

	// Negative deltas are valid; native balances go down on burns.
	s.Add(5, addKey, decimal.NewFromInt(-7))
	require.True(t, GetDecimalLast(s, addKey).Equal(decimal.NewFromInt(-2)))

	s.Set(1, setKey, "111")
	s.Set(4, setKey, "222")
	v, _ := s.GetLast(setKey)
	require.Equal(t, "222", v)
}

func TestFlushCompactsAndReturnsDeltas(t *testing.T) {
	s := NewMemStore()
	key := PoolKey{Address: "0xabc", Suffix: SuffixVolumeUSD}

	s.Add(2, key, decimal.NewFromInt(10))
	s.Add(6, key, decimal.NewFromInt(5))

	deltas := s.Flush()
	require.Len(t, deltas, 2)
	require.Equal(t, Delta{Ordinal: 2, Key: key.String(), Op: OpAdd, Old: "", New: "10"}, deltas[0])
	require.Equal(t, Delta{Ordinal: 6, Key: key.String(), Op: OpAdd, Old: "10", New: "15"}, deltas[1])

	// After flush the committed value is the baseline for ordinal zero, so
	// next-block reads at any ordinal see it.
	v, ok := s.GetAt(0, key)
	require.True(t, ok)
	require.Equal(t, "15", v)

	require.Empty(t, s.Flush(), "second flush has no new deltas")
}

func TestDeletePrefixEvictsDayBuckets(t *testing.T) {
	s := NewMemStore()
	oldDay := UniswapDayKey{Day: 18752, Suffix: SuffixVolumeUSD}
	newDay := UniswapDayKey{Day: 18753, Suffix: SuffixVolumeUSD}
	unrelated := PoolKey{Address: "0xabc", Suffix: SuffixVolumeUSD}

	s.Set(1, oldDay, "100")
	s.Set(1, newDay, "200")
	s.Set(1, unrelated, "300")

	s.DeletePrefix(0, UniswapDayPrefix(18752))

	_, ok := s.GetLast(oldDay)
	require.False(t, ok)
	v, ok := s.GetLast(newDay)
	require.True(t, ok)
	require.Equal(t, "200", v)
	_, ok = s.GetLast(unrelated)
	require.True(t, ok)
}

func TestJSONRoundTripHelpers(t *testing.T) {
	s := NewMemStore()
	key := PoolKey{Address: "0xabc", Suffix: SuffixInfo}

	type info struct {
		Token0 string `json:"token0"`
		Fee    uint32 `json:"fee"`
	}
	require.NoError(t, SetJSON(s, 4, key, info{Token0: "0xdef", Fee: 3000}))

	var got info
	require.True(t, GetJSONLast(s, key, &got))
	require.Equal(t, uint32(3000), got.Fee)

	var missing info
	require.False(t, GetJSONAt(s, 3, key, &missing), "write not visible before its ordinal")
	require.True(t, GetJSONAt(s, 4, key, &missing))
}

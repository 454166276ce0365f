package aggregate

import (
	"strconv"

	"go.uber.org/zap"

	"uniscope/internal/store"
)

// rollDay evicts finished day buckets once the block timestamp crosses into
// a new day. Sinks have already materialized the closed buckets from earlier
// flush deltas; eviction only bounds the working set.
func (a *Aggregator) rollDay(timestamp uint64) {
	day := int64(timestamp / secondsPerDay)

	raw, ok := a.state.GetLast(store.FactoryKey{Suffix: store.SuffixCurrentDay})
	if !ok {
		a.state.Set(0, store.FactoryKey{Suffix: store.SuffixCurrentDay}, strconv.FormatInt(day, 10))
		return
	}
	last, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || day <= last {
		return
	}

	for d := last; d < day; d++ {
		a.state.DeletePrefix(0, store.UniswapDayPrefix(d))
		a.state.DeletePrefix(0, store.PoolDayPrefix(d))
		a.state.DeletePrefix(0, store.TokenDayPrefix(d))
	}
	a.state.Set(0, store.FactoryKey{Suffix: store.SuffixCurrentDay}, strconv.FormatInt(day, 10))
	a.logger.Debug("day rollover", zap.Int64("from", last), zap.Int64("to", day))
}

package indexer

import "fmt"

// BlockRange is an inclusive block range, matching eth_getLogs semantics.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts an inclusive block range into capture batches of at most
// batchSize blocks each.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d is before from block %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := start + batchSize - 1
		if end > to || end < start { // end < start catches uint64 wrap
			end = to
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
		start = end + 1
	}
}

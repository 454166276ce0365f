package model

// DecodeError records a decode failure for a log; the log is skipped with a
// diagnostic rather than aborting the block.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	TxID        string `json:"tx_id"`
	Ordinal     uint64 `json:"ordinal"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}

package model

// Block is one block's worth of execution-trace data.
type Block struct {
	Number       uint64        `json:"number"`
	Hash         string        `json:"hash"`
	Timestamp    uint64        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// Transaction groups the calls executed by one transaction.
type Transaction struct {
	Hash  string `json:"hash"`
	Index uint64 `json:"index"`
	Calls []Call `json:"calls"`
}

// Call is one call frame with its logs and storage writes.
// Logs of reverted frames must be skipped by consumers.
type Call struct {
	Index          uint64          `json:"index"`
	StateReverted  bool            `json:"state_reverted"`
	Logs           []Log           `json:"logs"`
	StorageChanges []StorageChange `json:"storage_changes"`
}

// Log is a raw event log emitted during a call.
type Log struct {
	Address    string   `json:"address"`
	Topics     []string `json:"topics"`
	Data       string   `json:"data"`
	Ordinal    uint64   `json:"ordinal"`
	BlockIndex uint64   `json:"block_index"`
}

// StorageChange records one write to one storage slot of one contract.
// OldValue and NewValue are hex-encoded 32-byte words.
type StorageChange struct {
	Address  string `json:"address"`
	Key      string `json:"key"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Ordinal  uint64 `json:"ordinal"`
}

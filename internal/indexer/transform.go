package indexer

import (
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"uniscope/internal/model"
)

// buildBlocks groups filtered logs into block traces, one transaction per
// tx hash with a single synthetic call frame. eth_getLogs only returns logs
// of committed state, so captured frames are never reverted and carry no
// storage changes; fee-growth fallbacks go through eth_call instead.
func buildBlocks(logs []types.Log, timestamps map[uint64]uint64) []model.Block {
	type txKey struct {
		block uint64
		hash  string
	}

	blockLogs := make(map[uint64][]types.Log)
	for _, log := range logs {
		blockLogs[log.BlockNumber] = append(blockLogs[log.BlockNumber], log)
	}

	numbers := make([]uint64, 0, len(blockLogs))
	for number := range blockLogs {
		numbers = append(numbers, number)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	blocks := make([]model.Block, 0, len(numbers))
	for _, number := range numbers {
		logsInBlock := blockLogs[number]
		sort.SliceStable(logsInBlock, func(i, j int) bool {
			return logsInBlock[i].Index < logsInBlock[j].Index
		})

		block := model.Block{
			Number:    number,
			Hash:      logsInBlock[0].BlockHash.Hex(),
			Timestamp: timestamps[number],
		}

		txIndex := make(map[txKey]int)
		for _, log := range logsInBlock {
			key := txKey{block: number, hash: log.TxHash.Hex()}
			idx, ok := txIndex[key]
			if !ok {
				idx = len(block.Transactions)
				txIndex[key] = idx
				block.Transactions = append(block.Transactions, model.Transaction{
					Hash:  log.TxHash.Hex(),
					Index: uint64(log.TxIndex),
					Calls: []model.Call{{}},
				})
			}
			call := &block.Transactions[idx].Calls[0]
			call.Logs = append(call.Logs, buildLog(log))
		}

		blocks = append(blocks, block)
	}
	return blocks
}

func buildLog(log types.Log) model.Log {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}
	return model.Log{
		Address:    log.Address.Hex(),
		Topics:     topics,
		Data:       hexutil.Encode(log.Data),
		Ordinal:    uint64(log.Index),
		BlockIndex: uint64(log.Index),
	}
}

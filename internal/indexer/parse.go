package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddresses parses capture address filters, skipping blank entries.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	var addresses []common.Address
	for _, raw := range inputs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		addresses = append(addresses, common.HexToAddress(raw))
	}
	return addresses, nil
}

// ParseTopic0 parses a topic0 filter override. Entries must be 32-byte hex
// hashes; duplicates are dropped so the eth_getLogs filter stays minimal.
// Without an override, capture derives its filter from the decoder.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	var topics []common.Hash
	seen := make(map[common.Hash]struct{})
	for _, raw := range inputs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		data, err := hexutil.Decode(raw)
		if err != nil || len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 %q", raw)
		}
		hash := common.BytesToHash(data)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		topics = append(topics, hash)
	}
	return topics, nil
}

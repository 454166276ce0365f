package store

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

type entry struct {
	ordinal uint64
	value   string
}

// MemStore is the in-memory Store used by the pipeline. The host delivers
// writes in non-decreasing ordinal order within a block; Flush commits the
// in-block history into a single baseline entry so ordinals can restart at
// zero on the next block.
type MemStore struct {
	data   map[string][]entry
	deltas []Delta
}

// NewMemStore builds an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]entry)}
}

// GetAt returns the value as of the given ordinal.
func (s *MemStore) GetAt(ordinal uint64, key Key) (string, bool) {
	history := s.data[key.String()]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ordinal <= ordinal {
			return history[i].value, true
		}
	}
	return "", false
}

// GetLast returns the most recent value for the key.
func (s *MemStore) GetLast(key Key) (string, bool) {
	history := s.data[key.String()]
	if len(history) == 0 {
		return "", false
	}
	return history[len(history)-1].value, true
}

// Set overwrites the value at the given ordinal (last-write-wins).
func (s *MemStore) Set(ordinal uint64, key Key, value string) {
	s.write(ordinal, key.String(), OpSet, value)
}

// Add applies an additive decimal delta at the given ordinal.
func (s *MemStore) Add(ordinal uint64, key Key, delta decimal.Decimal) {
	name := key.String()
	current := decimal.Zero
	if raw, ok := s.last(name); ok {
		current = parseDecimal(raw)
	}
	s.write(ordinal, name, OpAdd, current.Add(delta).String())
}

// AddBigInt applies an additive integer delta at the given ordinal.
func (s *MemStore) AddBigInt(ordinal uint64, key Key, delta *big.Int) {
	name := key.String()
	current := new(big.Int)
	if raw, ok := s.last(name); ok {
		current = parseBigInt(raw)
	}
	s.write(ordinal, name, OpAdd, current.Add(current, delta).String())
}

// AddMany applies the same decimal delta to several keys.
func (s *MemStore) AddMany(ordinal uint64, keys []Key, delta decimal.Decimal) {
	for _, key := range keys {
		s.Add(ordinal, key, delta)
	}
}

// AddManyBigInt applies the same integer delta to several keys.
func (s *MemStore) AddManyBigInt(ordinal uint64, keys []Key, delta *big.Int) {
	for _, key := range keys {
		s.AddBigInt(ordinal, key, delta)
	}
}

// DeletePrefix drops every key with the given serialized prefix. Used for
// the rolling day-bucket eviction; deletions do not produce entity deltas.
func (s *MemStore) DeletePrefix(ordinal uint64, prefix string) {
	for name := range s.data {
		if strings.HasPrefix(name, prefix) {
			delete(s.data, name)
		}
	}
}

// Flush returns the deltas accumulated since the previous flush and
// compacts each key's in-block history to its final value.
func (s *MemStore) Flush() []Delta {
	out := s.deltas
	s.deltas = nil
	for name, history := range s.data {
		if len(history) > 1 {
			s.data[name] = []entry{{ordinal: 0, value: history[len(history)-1].value}}
		} else if len(history) == 1 && history[0].ordinal != 0 {
			s.data[name] = []entry{{ordinal: 0, value: history[0].value}}
		}
	}
	return out
}

func (s *MemStore) last(name string) (string, bool) {
	history := s.data[name]
	if len(history) == 0 {
		return "", false
	}
	return history[len(history)-1].value, true
}

func (s *MemStore) write(ordinal uint64, name string, op Op, value string) {
	old, _ := s.last(name)
	s.data[name] = append(s.data[name], entry{ordinal: ordinal, value: value})
	s.deltas = append(s.deltas, Delta{
		Ordinal: ordinal,
		Key:     name,
		Op:      op,
		Old:     old,
		New:     value,
	})
}

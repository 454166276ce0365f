package store

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"
)

// Op describes how a delta was produced. Additive writes are commutative;
// set writes are last-write-wins keyed by ordinal.
type Op string

const (
	OpSet    Op = "set"
	OpAdd    Op = "add"
	OpDelete Op = "delete"
)

// Delta is one ordinal-tagged write with the value before and after.
type Delta struct {
	Ordinal uint64 `json:"ordinal"`
	Key     string `json:"key"`
	Op      Op     `json:"op"`
	Old     string `json:"old"`
	New     string `json:"new"`
}

// Store is the keyed state substrate. All values are strings; numeric
// helpers below define the canonical encodings. Queries are ordinal-scoped:
// GetAt answers as of that point in the event stream, which is essential
// when several price-dependent events land in one block.
type Store interface {
	GetAt(ordinal uint64, key Key) (string, bool)
	GetLast(key Key) (string, bool)
	Set(ordinal uint64, key Key, value string)
	Add(ordinal uint64, key Key, delta decimal.Decimal)
	AddBigInt(ordinal uint64, key Key, delta *big.Int)
	AddMany(ordinal uint64, keys []Key, delta decimal.Decimal)
	AddManyBigInt(ordinal uint64, keys []Key, delta *big.Int)
	DeletePrefix(ordinal uint64, prefix string)
	// Flush returns the deltas accumulated since the previous flush and
	// commits in-block history; called once per block.
	Flush() []Delta
}

// GetDecimalAt reads a decimal value, zero when absent or malformed.
func GetDecimalAt(s Store, ordinal uint64, key Key) decimal.Decimal {
	raw, ok := s.GetAt(ordinal, key)
	if !ok {
		return decimal.Zero
	}
	return parseDecimal(raw)
}

// GetDecimalLast reads the latest decimal value, zero when absent.
func GetDecimalLast(s Store, key Key) decimal.Decimal {
	raw, ok := s.GetLast(key)
	if !ok {
		return decimal.Zero
	}
	return parseDecimal(raw)
}

// GetBigIntAt reads a big integer value, zero when absent.
func GetBigIntAt(s Store, ordinal uint64, key Key) *big.Int {
	raw, ok := s.GetAt(ordinal, key)
	if !ok {
		return new(big.Int)
	}
	return parseBigInt(raw)
}

// GetBigIntLast reads the latest big integer value, zero when absent.
func GetBigIntLast(s Store, key Key) *big.Int {
	raw, ok := s.GetLast(key)
	if !ok {
		return new(big.Int)
	}
	return parseBigInt(raw)
}

// SetDecimal writes a decimal with the canonical encoding.
func SetDecimal(s Store, ordinal uint64, key Key, value decimal.Decimal) {
	s.Set(ordinal, key, value.String())
}

// SetBigInt writes a big integer with the canonical encoding.
func SetBigInt(s Store, ordinal uint64, key Key, value *big.Int) {
	s.Set(ordinal, key, value.String())
}

// SetJSON writes a JSON-encoded struct value.
func SetJSON(s Store, ordinal uint64, key Key, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.Set(ordinal, key, string(data))
	return nil
}

// GetJSONLast decodes the latest JSON value into out.
func GetJSONLast(s Store, key Key, out interface{}) bool {
	raw, ok := s.GetLast(key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

// GetJSONAt decodes the value as of ordinal into out.
func GetJSONAt(s Store, ordinal uint64, key Key, out interface{}) bool {
	raw, ok := s.GetAt(ordinal, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseBigInt(raw string) *big.Int {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

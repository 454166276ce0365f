package slot

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"uniscope/internal/model"
)

// Address is a 32-byte big-endian storage slot address.
type Address [32]byte

// Hex returns the lowercase hex encoding without a 0x prefix.
func (a Address) Hex() string {
	return fmt.Sprintf("%x", a[:])
}

// Simple returns the slot address of a plain state variable.
func Simple(index uint64) Address {
	var out Address
	new(big.Int).SetUint64(index).FillBytes(out[:])
	return out
}

// StructMember returns the slot of a struct member relative to a base slot.
// The base is interpreted as a signed big integer before the member index is
// added; slot numbers are never negative in practice, so the sum re-encodes
// with a zero fill, never a 0xFF sign extension.
func StructMember(base Address, member int64) Address {
	sum := new(big.Int).SetBytes(base[:])
	sum.Add(sum, big.NewInt(member))
	if sum.Sign() < 0 {
		panic(fmt.Sprintf("slot: struct member underflow: base %x member %d", base, member))
	}
	var out Address
	sum.FillBytes(out[:])
	return out
}

// Mapping returns keccak256(key ++ base), the Solidity mapping slot formula.
// The result is itself a valid base slot for struct members nested inside
// the mapped value.
func Mapping(key [32]byte, base Address) Address {
	var out Address
	copy(out[:], crypto.Keccak256(key[:], base[:]))
	return out
}

// PadBigInt left-pads a big integer to 32 bytes. Negative values are encoded
// as 256-bit two's complement with an explicit sign branch, which matters for
// negative tick indexes used as mapping keys.
func PadBigInt(v *big.Int) [32]byte {
	var out [32]byte
	if v.Sign() >= 0 {
		v.FillBytes(out[:])
		return out
	}
	twos := new(big.Int).Add(v, oneShl256)
	twos.FillBytes(out[:])
	return out
}

// PadInt24 left-pads a tick index to 32 bytes, sign-extended.
func PadInt24(v int32) [32]byte {
	return PadBigInt(big.NewInt(int64(v)))
}

var oneShl256 = new(big.Int).Lsh(big.NewInt(1), 256)

// Lookup scans changes for the first entry matching both the contract
// address and the slot. Multiple transactions or calls may be concatenated
// into one list; since upstream concatenates writes in execution order, the
// first match is the earliest write in the scope. A nil return means the
// slot was not written in this scope and callers must treat the field as
// unchanged.
func Lookup(changes []model.StorageChange, contract common.Address, s Address) *model.StorageChange {
	want := s.Hex()
	for i := range changes {
		if !strings.EqualFold(strip0x(changes[i].Key), want) {
			continue
		}
		if !strings.EqualFold(strip0x(changes[i].Address), strip0x(contract.Hex())) {
			continue
		}
		return &changes[i]
	}
	return nil
}

// Extract slices a field out of a located storage change. The offset counts
// from the low-order end: offset 0 is the rightmost byte. Both values are
// sliced identically. Out-of-range offsets and short source words are
// programmer errors in the layout descriptor, not data-quality problems, so
// they panic.
func Extract(change *model.StorageChange, offset, length int) (oldBytes, newBytes []byte) {
	if offset < 0 || length <= 0 || offset+length > 32 {
		panic(fmt.Sprintf("slot: extract out of range: offset %d length %d", offset, length))
	}
	return sliceWord(change.OldValue, offset, length), sliceWord(change.NewValue, offset, length)
}

func sliceWord(hexValue string, offset, length int) []byte {
	word := common.FromHex(hexValue)
	if len(word) < 32 {
		panic(fmt.Sprintf("slot: storage value is %d bytes, want at least 32", len(word)))
	}
	if len(word) > 32 {
		word = word[len(word)-32:]
	}
	end := len(word) - offset
	return word[end-length : end]
}

// UnsignedBig interprets bytes as an unsigned big-endian integer.
func UnsignedBig(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// SignedBig interprets bytes as a two's-complement big-endian integer. The
// encoding choice is fixed per field by the contract's declared type.
func SignedBig(b []byte) *big.Int {
	if len(b) == 0 {
		return new(big.Int)
	}
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 == 0 {
		return v
	}
	shift := new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8)
	return v.Sub(v, shift)
}

// Bool interprets a one-byte field as a Solidity bool.
func Bool(b []byte) bool {
	return len(b) == 1 && b[0] != 0
}

func strip0x(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
}

package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of digits kept by all price divisions.
const divisionPrecision = 100

var one = decimal.NewFromInt(1)

// SafeDiv divides a by b at 100-digit precision. A zero divisor yields zero,
// not an error: a pool with undefined price contributes zero downstream.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, divisionPrecision)
}

// TokenAmount converts a raw integer amount into a human-scale decimal using
// the token's declared decimals.
func TokenAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

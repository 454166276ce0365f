package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// PricesFromSqrtPrice converts a pool's sqrtPriceX96 into both token prices.
// Price1 is the amount of token1 one token0 buys; Price0 is the inverse (zero
// when the pool price is undefined).
func PricesFromSqrtPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (price0, price1 decimal.Decimal) {
	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0)
	raw := SafeDiv(sqrt.Mul(sqrt), q192)
	price1 = raw.Mul(decimal.New(1, int32(decimals0)-int32(decimals1)))
	price0 = SafeDiv(one, price1)
	return price0, price1
}

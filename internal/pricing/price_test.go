package pricing

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSafeDivZeroDivisor(t *testing.T) {
	got := SafeDiv(decimal.NewFromInt(10), decimal.Zero)
	if !got.IsZero() {
		t.Fatalf("want zero, got %s", got)
	}
}

func TestSafeDivRoundTrip(t *testing.T) {
	a := decimal.RequireFromString("123456.789")
	b := decimal.NewFromInt(7)
	q := SafeDiv(a, b)
	back := q.Mul(b)
	diff := back.Sub(a).Abs()
	// 100-digit quotients reconstruct the dividend to far better than any
	// amount we track.
	if diff.GreaterThan(decimal.New(1, -50)) {
		t.Fatalf("round trip drift: %s", diff)
	}
}

func TestPricesFromUnitSqrtPrice(t *testing.T) {
	// sqrtPriceX96 = 2^96 encodes a raw price of exactly 1.
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	price0, price1 := PricesFromSqrtPrice(sqrt, 18, 18)
	if !price1.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("price1 = %s, want 1", price1)
	}
	if !price0.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("price0 = %s, want 1", price0)
	}
}

func TestPricesDecimalsAdjustment(t *testing.T) {
	// Raw price 1 between a 6-decimal token0 and an 18-decimal token1 is
	// 10^-12 token1 per token0.
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	price0, price1 := PricesFromSqrtPrice(sqrt, 6, 18)
	if !price1.Equal(decimal.New(1, -12)) {
		t.Fatalf("price1 = %s, want 1e-12", price1)
	}
	if !price0.Equal(decimal.New(1, 12)) {
		t.Fatalf("price0 = %s, want 1e12", price0)
	}
}

func TestPricesZeroSqrtPrice(t *testing.T) {
	price0, price1 := PricesFromSqrtPrice(new(big.Int), 18, 18)
	if !price1.IsZero() || !price0.IsZero() {
		t.Fatalf("uninitialized pool should price at zero, got %s / %s", price0, price1)
	}
}

func TestTokenAmountScaling(t *testing.T) {
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	got := TokenAmount(raw, 18)
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("got %s, want 1.5", got)
	}
}

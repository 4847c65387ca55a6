package rewards

import "math/big"

// scale is the fixed-point precision factor applied to the reward-per-unit
// accumulator so that fractional rewards survive integer arithmetic.
var scale = mustBigInt("1000000000000000000") // 1e18

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// mulDivFloor returns a*b/denom truncated toward zero. Truncation is the
// rounding policy for all reward math: payouts may under-allocate by dust but
// never exceed the pool. A zero denominator yields zero.
func mulDivFloor(a, b, denom *big.Int) *big.Int {
	if a == nil || b == nil || denom == nil || denom.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denom)
}

// checkedUint64 narrows a big.Int to uint64, reporting whether the value fits.
func checkedUint64(v *big.Int) (uint64, bool) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

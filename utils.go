package seaport

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// NoConduitKey selects Seaport itself as the token spender
	NoConduitKey = "0x0000000000000000000000000000000000000000000000000000000000000000"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseUnits converts a human-readable amount such as "1.5" into base units.
// Amounts with more fractional digits than decimals are rejected.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must not be negative, got: %d", decimals)}
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount %q", amount), Err: err}
	}
	if d.IsNegative() {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount must not be negative, got: %s", amount)}
	}

	shifted := d.Mul(decimal.New(1, decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount %s has more than %d decimals", amount, decimals)}
	}

	result := shifted.BigInt()
	if result.Cmp(maxUint256) > 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}
	return result, nil
}

// FormatUnits converts base units into a human-readable amount
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

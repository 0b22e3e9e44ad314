package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a human-entered amount cannot be scaled
// to the token's base unit.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseUnits scales a decimal string such as "1.5" by 10^decimals into the
// token's integer base unit. Amounts with more fractional digits than the
// token supports are rejected rather than silently truncated.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders a base-unit amount as a human-readable decimal string,
// trimming trailing zeros ("1500000000000000000", 18 → "1.5").
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

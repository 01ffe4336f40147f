package types

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseAmount parses a decimal string into an arbitrary-precision
// non-negative integer. Thousands separators (",", "_") and surrounding
// whitespace are stripped before parsing. An empty string parses as zero.
func ParseAmount(s string) (*big.Int, error) {
	clean := strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if clean == "" {
		return big.NewInt(0), nil
	}

	n, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must be non-negative", s)
	}
	return n, nil
}

// FormatHuman renders amount (in the token's smallest unit) scaled by
// 10^decimals, with exactly 6 fractional digits, zero-padded. A nil
// amount is treated as zero.
func FormatHuman(amount *big.Int, decimals uint8) string {
	if amount == nil {
		amount = big.NewInt(0)
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)

	whole := new(big.Int)
	rem := new(big.Int)
	whole.DivMod(amount, base, rem)

	frac := new(big.Int).Mul(rem, big.NewInt(1_000_000))
	frac.Div(frac, base)

	return fmt.Sprintf("%s.%06d", whole.String(), frac.Int64())
}

// sum returns the arbitrary-precision sum of the given values, treating
// nil entries as zero.
func sum(values ...*big.Int) *big.Int {
	total := big.NewInt(0)
	for _, v := range values {
		if v == nil {
			continue
		}
		total.Add(total, v)
	}
	return total
}

package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountStripsSeparators(t *testing.T) {
	n, err := ParseAmount("1,000,000_000")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000000000), n)
}

func TestParseAmountEmptyIsZero(t *testing.T) {
	n, err := ParseAmount("")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), n)
}

func TestParseAmountRejectsNegative(t *testing.T) {
	_, err := ParseAmount("-5")
	assert.Error(t, err)
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	_, err := ParseAmount("not-a-number")
	assert.Error(t, err)
}

func TestFormatHumanPadsSixDigits(t *testing.T) {
	assert.Equal(t, "0.000021", FormatHuman(big.NewInt(21000000000000), 18))
	assert.Equal(t, "1.500000", FormatHuman(big.NewInt(1500000), 6))
}

// Zero always renders with 6 zero-padded fractional digits; the spec's
// bare "0.0" form is permitted, not required, so this implementation
// keeps a single code path.
func TestFormatHumanNilIsZero(t *testing.T) {
	assert.Equal(t, "0.000000", FormatHuman(nil, 18))
}

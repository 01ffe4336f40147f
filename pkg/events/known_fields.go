package events

import "strings"

// KnownFieldResolver is a built-in FieldResolver covering the balances
// events the balance-delta reducer reads and the system extrinsic
// outcome events; events of other pallets get no names and fall back
// to arg<i> field naming. A chain-specific resolver backed by real metadata should be
// preferred where available; this one keeps the common path working
// without a metadata source.
type KnownFieldResolver struct{}

var knownFields = map[string]map[string][]string{
	"balances": {
		"Transfer":   {"from", "to", "amount"},
		"Withdraw":   {"who", "amount"},
		"Deposit":    {"who", "amount"},
		"Reserved":   {"who", "amount"},
		"Unreserved": {"who", "amount"},
	},
	"system": {
		"ExtrinsicSuccess": {"dispatchInfo"},
		"ExtrinsicFailed":  {"dispatchError", "dispatchInfo"},
	},
}

// FieldNames implements FieldResolver.
func (KnownFieldResolver) FieldNames(section, method string) ([]string, bool) {
	methods, ok := knownFields[strings.ToLower(section)]
	if !ok {
		return nil, false
	}
	names, ok := methods[method]
	return names, ok
}

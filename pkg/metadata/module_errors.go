package metadata

import "fmt"

// moduleError names one {pallet, error} variant this resolver knows
// about, plus its doc string as it would appear in runtime metadata.
type moduleError struct {
	pallet string
	name   string
	docs   []string
}

// staticModuleErrors is a curated {module-index -> {error-index ->
// moduleError}} table for the small, fixed set of pallets this fork
// targets (the same pallet indices engine.BuildCallBytes's call table
// uses). Decoding a live chain's full SCALE-encoded V14+ metadata
// (a PortableRegistry of arbitrarily nested types) needs a general
// type-registry codec that no example repo in this pack vendors; rather
// than hand-roll one, common errors for the pallets this service
// simulates against are curated here, matching the real error names and
// docs those pallets ship with. An unrecognised {module, error} pair
// still decodes totally via the "Unknown module error" fallback in
// decode.DecodeRuntimeError.
var staticModuleErrors = map[uint8]map[uint8]moduleError{
	5: { // balances
		0: {pallet: "Balances", name: "VestingBalance", docs: []string{"Vesting balance too high to send value."}},
		1: {pallet: "Balances", name: "LiquidityRestrictions", docs: []string{"Account liquidity restrictions prevent withdrawal."}},
		2: {pallet: "Balances", name: "InsufficientBalance", docs: []string{"Balance too low to send value."}},
		3: {pallet: "Balances", name: "ExistentialDeposit", docs: []string{"Value too low to create account due to existential deposit."}},
		4: {pallet: "Balances", name: "Expendability", docs: []string{"Transfer/payment would kill account."}},
		5: {pallet: "Balances", name: "ExistingVestingSchedule", docs: []string{"A vesting schedule already exists for this account."}},
		6: {pallet: "Balances", name: "DeadAccount", docs: []string{"Beneficiary account must pre-exist."}},
		7: {pallet: "Balances", name: "TooManyReserves", docs: []string{"Number of named reserves exceeds the limit."}},
	},
	50: { // assets
		0: {pallet: "Assets", name: "BalanceLow", docs: []string{"Account balance must be greater than or equal to the transfer amount."}},
		1: {pallet: "Assets", name: "NoAccount", docs: []string{"The account to alter does not exist."}},
		2: {pallet: "Assets", name: "Unapproved", docs: []string{"The signing account has no permission to do the operation."}},
		3: {pallet: "Assets", name: "Frozen", docs: []string{"The asset or account is frozen."}},
		5: {pallet: "Assets", name: "InUse", docs: []string{"The asset ID is already taken."}},
	},
	51: { // tokens
		0: {pallet: "Tokens", name: "BalanceTooLow", docs: []string{"The balance is too low."}},
		1: {pallet: "Tokens", name: "AmountIntoBalanceFailed", docs: []string{"Cannot convert amount into balance type."}},
		2: {pallet: "Tokens", name: "LiquidityRestrictions", docs: []string{"Failed because liquidity restrictions due to locking."}},
		5: {pallet: "Tokens", name: "ExistentialDeposit", docs: []string{"Account still needs the existential deposit."}},
	},
}

// StaticModuleErrorResolver implements decode.ModuleErrorResolver over
// the curated table above.
type StaticModuleErrorResolver struct{}

// ResolveModuleError looks up {moduleIndex, errorIndex} in the static
// table. An unknown pair returns an error, which DecodeRuntimeError
// turns into the §4.3 "Unknown module error" fallback.
func (StaticModuleErrorResolver) ResolveModuleError(moduleIndex, errorIndex uint8) (string, string, []string, error) {
	errs, ok := staticModuleErrors[moduleIndex]
	if !ok {
		return "", "", nil, fmt.Errorf("metadata: unknown module index %d", moduleIndex)
	}
	e, ok := errs[errorIndex]
	if !ok {
		return "", "", nil, fmt.Errorf("metadata: unknown error index %d for module %d", errorIndex, moduleIndex)
	}
	return e.pallet, e.name, e.docs, nil
}

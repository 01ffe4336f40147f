package types

import "strings"

// Kind identifies which execution environment a request targets.
type Kind string

const (
	// KindEVM addresses an account-model chain reached through an
	// EVM-compatible JSON-RPC fork.
	KindEVM Kind = "evm"
	// KindRuntime addresses a runtime-module chain reached through a
	// Substrate-style JSON-RPC fork.
	KindRuntime Kind = "runtime"
)

// Address is an opaque identifier. Equality is case-insensitive on the
// EVM side (canonicalised to lowercase) and byte-exact on the runtime
// side; the engine never interprets address bytes except to canonicalise.
type Address string

// CanonicalEVM lowercases an EVM hex address for use as a map key and in
// outputs. Any input is trimmed and lowercased; it is not checked to be
// an EVM address.
func CanonicalEVM(addr string) Address {
	return Address(strings.ToLower(strings.TrimSpace(addr)))
}

// CanonicalRuntime trims incidental whitespace but otherwise preserves
// the address byte-exact, per the runtime-module equality rule.
func CanonicalRuntime(addr string) Address {
	return Address(strings.TrimSpace(addr))
}

// FungibleID names a tracked fungible: a lowercased contract address on
// the EVM side, or a decimal asset ID string on the runtime side.
type FungibleID string

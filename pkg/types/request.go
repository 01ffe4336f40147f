package types

import "math/big"

// EVMRequest is an engine-level simulation request against an
// account-model (EVM) fork.
type EVMRequest struct {
	Sender      Address
	To          Address
	Data        []byte   // decoded hex payload; empty when omitted
	Value       *big.Int // wei; nil treated as zero
	GasLimit    *uint64  // nil means "use the backend default"
	TrackTokens []Address
}

// RuntimeCall is a structured runtime-module extrinsic call. Args may
// themselves contain nested *RuntimeCall values (batch/proxy/multisig
// style nesting), which are built recursively.
type RuntimeCall struct {
	Pallet string
	Method string
	Args   []interface{}
}

// RuntimeRequest is an engine-level simulation request against a
// runtime-module (Substrate-style) fork. Exactly one of Call or RawHex
// is populated.
type RuntimeRequest struct {
	Sender      Address
	Call        *RuntimeCall
	RawHex      string
	TrackAssets []FungibleID
}

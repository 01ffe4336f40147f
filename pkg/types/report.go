package types

import "math/big"

// TokenBalance is a single before/after balance line, native listed
// first, then every observed fungible in union order.
type TokenBalance struct {
	Token    FungibleID // empty for native
	Symbol   string
	Decimals uint8
	Amount   *big.Int
}

// BalanceChange is a non-zero before/after delta for one token.
type BalanceChange struct {
	Token    FungibleID
	Symbol   string
	Decimals uint8
	Delta    *big.Int
}

// AddressState is the full before/after/changes view for one address.
type AddressState struct {
	Address Address
	Before  []TokenBalance
	After   []TokenBalance
	Changes []BalanceChange
}

// StateImpactReport composes the three address roles of a simulation.
// On the EVM side Counterparty is always present (even with zero
// changes). On the runtime side it is present only when a recognised
// counterparty exists and shows a non-zero change.
type StateImpactReport struct {
	Sender        AddressState
	Counterparty  *AddressState
	OtherAffected []AddressState
}

// Weight is the runtime-module dispatch weight of an extrinsic.
type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

// GasReport carries exactly one of EVM or Runtime, matching the
// request's kind.
type GasReport struct {
	EVM     *EVMGasReport
	Runtime *RuntimeGasReport
}

type EVMGasReport struct {
	GasUsed         uint64
	GasPrice        *big.Int
	TotalCostWei    *big.Int
	TotalCostNative string
	NativeSymbol    string
}

type RuntimeGasReport struct {
	Weight               Weight
	PartialFee           *big.Int
	PartialFeeFormatted  string
	NativeSymbol         string
}

// SimulationResponse is the engine's terminal output for one request.
// Success=true implies Error is nil; Success=false implies Error is set.
type SimulationResponse struct {
	Success      bool
	StateChanges StateImpactReport
	Events       []DecodedEvent
	Gas          GasReport
	Error        *DecodedError
}

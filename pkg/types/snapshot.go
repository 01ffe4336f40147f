package types

import "math/big"

// OrderedFungibles is a map from fungible ID to balance that preserves
// the insertion order of its keys, per the snapshotter's ordering
// invariant (§4.5 of the simulation spec).
type OrderedFungibles struct {
	order  []FungibleID
	values map[FungibleID]*big.Int
}

// NewOrderedFungibles returns an empty ordered fungible balance map.
func NewOrderedFungibles() *OrderedFungibles {
	return &OrderedFungibles{values: make(map[FungibleID]*big.Int)}
}

// Set records the balance for id, appending it to the insertion order
// the first time it is seen.
func (o *OrderedFungibles) Set(id FungibleID, balance *big.Int) {
	if _, exists := o.values[id]; !exists {
		o.order = append(o.order, id)
	}
	o.values[id] = balance
}

// Get returns the balance for id and whether it was observed.
func (o *OrderedFungibles) Get(id FungibleID) (*big.Int, bool) {
	v, ok := o.values[id]
	return v, ok
}

// Keys returns the tracked fungible IDs in insertion order.
func (o *OrderedFungibles) Keys() []FungibleID {
	return o.order
}

// RuntimeNative is the triple of free/reserved/frozen balances reported
// by runtime-module chains. A missing frozen field is treated as zero.
type RuntimeNative struct {
	Free     *big.Int
	Reserved *big.Int
	Frozen   *big.Int
}

// Total returns free+reserved, the "total controlled balance"
// representation used as the before/after native value in reports.
func (n RuntimeNative) Total() *big.Int {
	return sum(n.Free, n.Reserved)
}

// EVMBalanceSnapshot is the per-address balance observation on the
// account-model side: a single native balance plus tracked fungibles.
type EVMBalanceSnapshot struct {
	Native    *big.Int
	Fungibles *OrderedFungibles
}

// RuntimeBalanceSnapshot is the per-address balance observation on the
// runtime-module side: a free/reserved/frozen native triple plus
// tracked assets.
type RuntimeBalanceSnapshot struct {
	Native    RuntimeNative
	Fungibles *OrderedFungibles
}

// TokenMetadata describes a tracked fungible for display purposes.
// Symbol defaults to "UNKNOWN" (EVM) or "Asset#<id>" (runtime) and
// Decimals defaults to 18 when on-chain metadata cannot be read.
type TokenMetadata struct {
	Symbol   string
	Decimals uint8
}

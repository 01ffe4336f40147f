// Package stateimpact implements C6: diffing two balance snapshots per
// address into a change list, then partitioning the result into
// sender / primary-counterparty / other-affected, per §4.6.
package stateimpact

import (
	"math/big"

	"github.com/mev-engine/tx-simulator/pkg/types"
)

// MetadataResolver resolves a tracked fungible to its display metadata.
// Implementations are expected to cache per-process, per §3's lifecycle
// note on the token/asset-metadata cache.
type MetadataResolver interface {
	Resolve(id types.FungibleID) types.TokenMetadata
}

// BuildEVM implements C6 for the account-model side. The counterparty
// is always included, even with zero changes.
func BuildEVM(sender types.Address, counterparty *types.Address, before, after map[types.Address]types.EVMBalanceSnapshot, nativeSymbol string, nativeDecimals uint8, resolver MetadataResolver) types.StateImpactReport {
	excluded := map[types.Address]bool{canonicalEVM(sender): true}
	if counterparty != nil {
		excluded[canonicalEVM(*counterparty)] = true
	}

	considered := unionAddressesEVM(before, after)

	report := types.StateImpactReport{
		Sender: buildEVMAddressState(sender, before, after, nativeSymbol, nativeDecimals, resolver),
	}
	if counterparty != nil {
		state := buildEVMAddressState(*counterparty, before, after, nativeSymbol, nativeDecimals, resolver)
		report.Counterparty = &state
	}
	for _, addr := range considered {
		if excluded[canonicalEVM(addr)] {
			continue
		}
		state := buildEVMAddressState(addr, before, after, nativeSymbol, nativeDecimals, resolver)
		if len(state.Changes) > 0 {
			report.OtherAffected = append(report.OtherAffected, state)
		}
	}
	return report
}

// BuildRuntime implements C6 for the runtime-module side. The
// counterparty is included only when it shows a non-zero change.
func BuildRuntime(sender types.Address, counterparty *types.Address, before, after map[types.Address]types.RuntimeBalanceSnapshot, nativeSymbol string, nativeDecimals uint8, resolver MetadataResolver) types.StateImpactReport {
	excluded := map[types.Address]bool{canonicalRuntime(sender): true}
	if counterparty != nil {
		excluded[canonicalRuntime(*counterparty)] = true
	}

	considered := unionAddressesRuntime(before, after)

	report := types.StateImpactReport{
		Sender: buildRuntimeAddressState(sender, before, after, nativeSymbol, nativeDecimals, resolver),
	}
	if counterparty != nil {
		state := buildRuntimeAddressState(*counterparty, before, after, nativeSymbol, nativeDecimals, resolver)
		if len(state.Changes) > 0 {
			report.Counterparty = &state
		}
	}
	for _, addr := range considered {
		if excluded[canonicalRuntime(addr)] {
			continue
		}
		state := buildRuntimeAddressState(addr, before, after, nativeSymbol, nativeDecimals, resolver)
		if len(state.Changes) > 0 {
			report.OtherAffected = append(report.OtherAffected, state)
		}
	}
	return report
}

func buildEVMAddressState(addr types.Address, before, after map[types.Address]types.EVMBalanceSnapshot, nativeSymbol string, nativeDecimals uint8, resolver MetadataResolver) types.AddressState {
	b, hasBefore := before[addr]
	a, hasAfter := after[addr]

	nativeBefore := zeroIfNil(b.Native)
	nativeAfter := zeroIfNil(a.Native)

	state := types.AddressState{Address: addr}
	state.Before = append(state.Before, types.TokenBalance{Symbol: nativeSymbol, Decimals: nativeDecimals, Amount: nativeBefore})
	state.After = append(state.After, types.TokenBalance{Symbol: nativeSymbol, Decimals: nativeDecimals, Amount: nativeAfter})
	if delta := new(big.Int).Sub(nativeAfter, nativeBefore); delta.Sign() != 0 {
		state.Changes = append(state.Changes, types.BalanceChange{Symbol: nativeSymbol, Decimals: nativeDecimals, Delta: delta})
	}

	var beforeFB, afterFB *types.OrderedFungibles
	if hasBefore {
		beforeFB = b.Fungibles
	}
	if hasAfter {
		afterFB = a.Fungibles
	}
	for _, id := range unionFungibleKeys(beforeFB, afterFB) {
		meta := resolveMeta(resolver, id)
		before := fungibleOrZero(beforeFB, id)
		after := fungibleOrZero(afterFB, id)
		state.Before = append(state.Before, types.TokenBalance{Token: id, Symbol: meta.Symbol, Decimals: meta.Decimals, Amount: before})
		state.After = append(state.After, types.TokenBalance{Token: id, Symbol: meta.Symbol, Decimals: meta.Decimals, Amount: after})
		if delta := new(big.Int).Sub(after, before); delta.Sign() != 0 {
			state.Changes = append(state.Changes, types.BalanceChange{Token: id, Symbol: meta.Symbol, Decimals: meta.Decimals, Delta: delta})
		}
	}
	return state
}

func buildRuntimeAddressState(addr types.Address, before, after map[types.Address]types.RuntimeBalanceSnapshot, nativeSymbol string, nativeDecimals uint8, resolver MetadataResolver) types.AddressState {
	b, hasBefore := before[addr]
	a, hasAfter := after[addr]

	nativeBefore := b.Native.Total()
	nativeAfter := a.Native.Total()

	state := types.AddressState{Address: addr}
	state.Before = append(state.Before, types.TokenBalance{Symbol: nativeSymbol, Decimals: nativeDecimals, Amount: nativeBefore})
	state.After = append(state.After, types.TokenBalance{Symbol: nativeSymbol, Decimals: nativeDecimals, Amount: nativeAfter})
	if delta := new(big.Int).Sub(nativeAfter, nativeBefore); delta.Sign() != 0 {
		state.Changes = append(state.Changes, types.BalanceChange{Symbol: nativeSymbol, Decimals: nativeDecimals, Delta: delta})
	}

	var beforeFB, afterFB *types.OrderedFungibles
	if hasBefore {
		beforeFB = b.Fungibles
	}
	if hasAfter {
		afterFB = a.Fungibles
	}
	for _, id := range unionFungibleKeys(beforeFB, afterFB) {
		meta := resolveMeta(resolver, id)
		before := fungibleOrZero(beforeFB, id)
		after := fungibleOrZero(afterFB, id)
		state.Before = append(state.Before, types.TokenBalance{Token: id, Symbol: meta.Symbol, Decimals: meta.Decimals, Amount: before})
		state.After = append(state.After, types.TokenBalance{Token: id, Symbol: meta.Symbol, Decimals: meta.Decimals, Amount: after})
		if delta := new(big.Int).Sub(after, before); delta.Sign() != 0 {
			state.Changes = append(state.Changes, types.BalanceChange{Token: id, Symbol: meta.Symbol, Decimals: meta.Decimals, Delta: delta})
		}
	}
	return state
}

func resolveMeta(resolver MetadataResolver, id types.FungibleID) types.TokenMetadata {
	if resolver == nil {
		return types.TokenMetadata{Symbol: "UNKNOWN", Decimals: 18}
	}
	return resolver.Resolve(id)
}

func unionFungibleKeys(before, after *types.OrderedFungibles) []types.FungibleID {
	seen := make(map[types.FungibleID]bool)
	var out []types.FungibleID
	if before != nil {
		for _, k := range before.Keys() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	if after != nil {
		for _, k := range after.Keys() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

func fungibleOrZero(fb *types.OrderedFungibles, id types.FungibleID) *big.Int {
	if fb == nil {
		return big.NewInt(0)
	}
	if v, ok := fb.Get(id); ok {
		return v
	}
	return big.NewInt(0)
}

func unionAddressesEVM(before, after map[types.Address]types.EVMBalanceSnapshot) []types.Address {
	seen := make(map[types.Address]bool)
	var out []types.Address
	for addr := range before {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	for addr := range after {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

func unionAddressesRuntime(before, after map[types.Address]types.RuntimeBalanceSnapshot) []types.Address {
	seen := make(map[types.Address]bool)
	var out []types.Address
	for addr := range before {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	for addr := range after {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

func zeroIfNil(n *big.Int) *big.Int {
	if n == nil {
		return big.NewInt(0)
	}
	return n
}

func canonicalEVM(addr types.Address) types.Address {
	return types.CanonicalEVM(string(addr))
}

func canonicalRuntime(addr types.Address) types.Address {
	return types.CanonicalRuntime(string(addr))
}

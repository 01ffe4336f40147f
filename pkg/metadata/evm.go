// Package metadata supplies the production stateimpact.MetadataResolver
// and decode.ModuleErrorResolver implementations: on-chain metadata
// reads for tracked fungibles, cached per-process per §3, with the
// fallbacks §4.6/§7 require on read failure.
package metadata

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

const (
	symbolSelector   = "0x95d89b41" // symbol()
	decimalsSelector = "0x313ce567" // decimals()
)

// EVMCaller is the subset of the account-model fork backend the token
// resolver needs - satisfied by *forkclient.EVMBackend.
type EVMCaller interface {
	CallReadOnly(ctx context.Context, token types.Address, data []byte) ([]byte, error)
}

// EVMTokenResolver resolves an ERC20 contract's symbol/decimals by
// calling it directly - no ABI file needed for two single-selector
// reads. Results are cached for the process lifetime; a read failure on
// either call falls back per §4.6/§7 ("UNKNOWN"/18 decimals) and is not
// retried.
type EVMTokenResolver struct {
	caller EVMCaller

	mu    sync.Mutex
	cache map[types.FungibleID]types.TokenMetadata
}

// NewEVMTokenResolver builds a resolver over caller.
func NewEVMTokenResolver(caller EVMCaller) *EVMTokenResolver {
	return &EVMTokenResolver{caller: caller, cache: make(map[types.FungibleID]types.TokenMetadata)}
}

// Resolve implements stateimpact.MetadataResolver. id is expected to be
// an EVM contract address; the process-wide cache is write-through on
// miss per §5.
func (r *EVMTokenResolver) Resolve(id types.FungibleID) types.TokenMetadata {
	r.mu.Lock()
	if meta, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return meta
	}
	r.mu.Unlock()

	meta := types.TokenMetadata{Symbol: "UNKNOWN", Decimals: 18}
	ctx := context.Background()
	token := types.Address(id)

	if raw, err := r.caller.CallReadOnly(ctx, token, common.FromHex(symbolSelector)); err == nil {
		if sym, ok := decodeABIString(raw); ok && sym != "" {
			meta.Symbol = sym
		}
	}
	if raw, err := r.caller.CallReadOnly(ctx, token, common.FromHex(decimalsSelector)); err == nil {
		if d, ok := decodeABIUint8(raw); ok {
			meta.Decimals = d
		}
	}

	r.mu.Lock()
	r.cache[id] = meta
	r.mu.Unlock()
	return meta
}

// decodeABIString decodes a dynamic ABI string return value: a 32-byte
// offset word (ignored, always 0x20 for a single-return function),
// followed by a 32-byte length word and the right-padded bytes. Some
// non-compliant ERC20s (older ones) return a bytes32 instead; that shape
// is also accepted by trimming trailing zero bytes.
func decodeABIString(raw []byte) (string, bool) {
	if len(raw) == 32 {
		return string(trimTrailingZeros(raw)), true
	}
	if len(raw) < 64 {
		return "", false
	}
	length := new(big.Int).SetBytes(raw[32:64])
	if !length.IsUint64() {
		return "", false
	}
	n := length.Uint64()
	if uint64(len(raw)) < 64+n {
		return "", false
	}
	return string(raw[64 : 64+n]), true
}

func decodeABIUint8(raw []byte) (uint8, bool) {
	if len(raw) < 32 {
		return 0, false
	}
	v := new(big.Int).SetBytes(raw[:32])
	if !v.IsUint64() || v.Uint64() > 255 {
		return 0, false
	}
	return uint8(v.Uint64()), true
}

func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

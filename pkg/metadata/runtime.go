package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/mev-engine/tx-simulator/pkg/types"
)

// RuntimeAssetCaller is the subset of the runtime-module fork backend
// the asset resolver needs - satisfied by *forkclient.RuntimeBackend.
type RuntimeAssetCaller interface {
	AssetMetadata(ctx context.Context, asset types.FungibleID) (types.TokenMetadata, error)
}

// RuntimeAssetResolver resolves an asset ID's symbol/decimals via the
// fork's asset-metadata RPC, caching per-process. A missing asset or RPC
// failure falls back to "Asset#<id>"/18 decimals per §4.6/§7.
type RuntimeAssetResolver struct {
	caller RuntimeAssetCaller

	mu    sync.Mutex
	cache map[types.FungibleID]types.TokenMetadata
}

// NewRuntimeAssetResolver builds a resolver over caller.
func NewRuntimeAssetResolver(caller RuntimeAssetCaller) *RuntimeAssetResolver {
	return &RuntimeAssetResolver{caller: caller, cache: make(map[types.FungibleID]types.TokenMetadata)}
}

// Resolve implements stateimpact.MetadataResolver.
func (r *RuntimeAssetResolver) Resolve(id types.FungibleID) types.TokenMetadata {
	r.mu.Lock()
	if meta, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return meta
	}
	r.mu.Unlock()

	meta, err := r.caller.AssetMetadata(context.Background(), id)
	if err != nil || meta.Symbol == "" {
		meta = types.TokenMetadata{Symbol: fmt.Sprintf("Asset#%s", id), Decimals: 18}
	}

	r.mu.Lock()
	r.cache[id] = meta
	r.mu.Unlock()
	return meta
}

// Package snapshot implements C5: reading native and fungible balances
// for a set of addresses from a fork backend into a snapshot structure.
// It never mutates fork state and never fails the caller - a read
// failure degrades to a zeroed entry plus a logged warning, per §4.5
// and §7 of the balance-snapshot policy.
package snapshot

import (
	"context"
	"log"
	"math/big"
	"sync"

	"github.com/mev-engine/tx-simulator/pkg/types"
	"golang.org/x/sync/errgroup"
)

// EVMReader is the subset of the account-model fork backend the
// snapshotter needs.
type EVMReader interface {
	NativeBalance(ctx context.Context, addr types.Address) (*big.Int, error)
	FungibleBalance(ctx context.Context, token types.Address, addr types.Address) (*big.Int, error)
}

// RuntimeReader is the subset of the runtime-module fork backend the
// snapshotter needs.
type RuntimeReader interface {
	NativeBalance(ctx context.Context, addr types.Address) (types.RuntimeNative, error)
	FungibleBalance(ctx context.Context, asset types.FungibleID, addr types.Address) (*big.Int, error)
}

// CaptureEVM reads native + every tracked fungible balance for each
// address, in parallel across addresses. The returned map always has
// one entry per input address.
func CaptureEVM(ctx context.Context, reader EVMReader, addrs []types.Address, fungibles []types.Address, logger *log.Logger) map[types.Address]types.EVMBalanceSnapshot {
	out := make(map[types.Address]types.EVMBalanceSnapshot, len(addrs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, a := range addrs {
		addr := a
		g.Go(func() error {
			snap := captureOneEVM(gctx, reader, addr, fungibles, logger)
			mu.Lock()
			out[addr] = snap
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // captureOneEVM never returns an error; failures are swallowed per-address

	return out
}

func captureOneEVM(ctx context.Context, reader EVMReader, addr types.Address, fungibles []types.Address, logger *log.Logger) types.EVMBalanceSnapshot {
	native, err := reader.NativeBalance(ctx, addr)
	if err != nil {
		logWarn(logger, "snapshot: native balance read failed for %s: %v", addr, err)
		native = big.NewInt(0)
	}

	fb := types.NewOrderedFungibles()
	for _, token := range fungibles {
		bal, err := reader.FungibleBalance(ctx, token, addr)
		if err != nil {
			logWarn(logger, "snapshot: fungible %s balance read failed for %s: %v", token, addr, err)
			bal = big.NewInt(0)
		}
		fb.Set(types.FungibleID(token), bal)
	}

	return types.EVMBalanceSnapshot{Native: native, Fungibles: fb}
}

// CaptureRuntime is the runtime-module counterpart of CaptureEVM.
func CaptureRuntime(ctx context.Context, reader RuntimeReader, addrs []types.Address, assets []types.FungibleID, logger *log.Logger) map[types.Address]types.RuntimeBalanceSnapshot {
	out := make(map[types.Address]types.RuntimeBalanceSnapshot, len(addrs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, a := range addrs {
		addr := a
		g.Go(func() error {
			snap := captureOneRuntime(gctx, reader, addr, assets, logger)
			mu.Lock()
			out[addr] = snap
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func captureOneRuntime(ctx context.Context, reader RuntimeReader, addr types.Address, assets []types.FungibleID, logger *log.Logger) types.RuntimeBalanceSnapshot {
	native, err := reader.NativeBalance(ctx, addr)
	if err != nil {
		logWarn(logger, "snapshot: native balance read failed for %s: %v", addr, err)
		zero := big.NewInt(0)
		native = types.RuntimeNative{Free: zero, Reserved: zero, Frozen: zero}
	}

	fb := types.NewOrderedFungibles()
	for _, asset := range assets {
		bal, err := reader.FungibleBalance(ctx, asset, addr)
		if err != nil {
			logWarn(logger, "snapshot: asset %s balance read failed for %s: %v", asset, addr, err)
			bal = big.NewInt(0)
		}
		fb.Set(asset, bal)
	}

	return types.RuntimeBalanceSnapshot{Native: native, Fungibles: fb}
}

func logWarn(logger *log.Logger, format string, args ...interface{}) {
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}

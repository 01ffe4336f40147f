// Package engine implements C9, the two simulation algorithms of
// §4.1/§4.2: the account-model engine that snapshots/reverts a fork and
// the runtime-module engine that head-resets one. Both engines compose
// the lower-level collaborators (forkclient, snapshot, stateimpact,
// events, decode) into the request/response contract the API serves.
package engine

import (
	"context"
	"fmt"
	"log"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mev-engine/tx-simulator/pkg/decode"
	"github.com/mev-engine/tx-simulator/pkg/events"
	"github.com/mev-engine/tx-simulator/pkg/forkclient"
	"github.com/mev-engine/tx-simulator/pkg/snapshot"
	"github.com/mev-engine/tx-simulator/pkg/stateimpact"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

// FatalError marks a restore failure that leaves the fork in an
// unknown state. Per §4.1's state machine, the engine refuses further
// requests on this backend until a successful restore happens.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("engine: fork left in unrestored state: %v", e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }

// EVMEngine runs kind A simulations against one account-model fork.
type EVMEngine struct {
	Backend        *forkclient.EVMBackend
	Resolver       stateimpact.MetadataResolver
	Logger         *log.Logger
	NativeSymbol   string
	NativeDecimals uint8

	halted error
}

// IsHalted reports whether a prior fatal restore failure has put this
// engine in the terminal Restored-Failed state. The composition root
// consults this to mark the backend's health probe permanently
// degraded and to refuse further /simulate calls with 503 rather than
// re-attempting a simulation that is guaranteed to fail.
func (e *EVMEngine) IsHalted() bool {
	if e == nil {
		return false
	}
	return e.halted != nil
}

// Simulate implements the §4.1 algorithm end to end. A non-nil error
// return is always a FatalError: the fork could not be restored and
// the backend must not be reused.
func (e *EVMEngine) Simulate(ctx context.Context, req types.EVMRequest) (*types.SimulationResponse, error) {
	e.Backend.Mu.Lock()
	defer e.Backend.Mu.Unlock()

	if e.halted != nil {
		return nil, &FatalError{Cause: e.halted}
	}

	snapID, err := e.Backend.Snapshot(ctx)
	if err != nil {
		return nil, e.fatal(fmt.Errorf("initial snapshot: %w", err))
	}

	trackedAddrs := initialTrackedSet(req)
	trackedFungibles := req.TrackTokens

	before := snapshot.CaptureEVM(ctx, e.Backend, trackedAddrs, trackedFungibles, e.Logger)

	gasPrice, err := e.Backend.FeeData(ctx)
	if err != nil {
		gasPrice = big.NewInt(0)
	}

	receipt, sendErr := e.sendAndWait(ctx, req)
	if sendErr != nil {
		e.restoreBestEffort(ctx, snapID)
		decoded := decode.DecodeEVMError(rpcErrorOf(sendErr))
		return &types.SimulationResponse{Success: false, Error: decoded}, nil
	}

	decodedEvents := events.DecodeEVMEvents(receipt.Logs, nil)

	if receipt.Status == 0 {
		e.restoreBestEffort(ctx, snapID)
		return &types.SimulationResponse{
			Success: false,
			Events:  decodedEvents,
			Error:   &types.DecodedError{Kind: types.ErrRevert, Message: "Transaction reverted"},
		}, nil
	}

	discovered := discoverAddresses(decodedEvents, trackedAddrs)
	if len(discovered) > 0 {
		ok, err := e.Backend.Revert(ctx, snapID)
		if err != nil || !ok {
			return nil, e.fatal(fmt.Errorf("revert for address-expansion pass: %w", err))
		}
		historicalBefore := snapshot.CaptureEVM(ctx, e.Backend, discovered, trackedFungibles, e.Logger)
		for addr, snap := range historicalBefore {
			before[addr] = snap
		}
		trackedAddrs = append(trackedAddrs, discovered...)

		receipt, sendErr = e.sendAndWait(ctx, req)
		if sendErr != nil {
			e.restoreBestEffort(ctx, snapID)
			decoded := decode.DecodeEVMError(rpcErrorOf(sendErr))
			return &types.SimulationResponse{Success: false, Error: decoded}, nil
		}
		decodedEvents = events.DecodeEVMEvents(receipt.Logs, nil)
	}

	after := snapshot.CaptureEVM(ctx, e.Backend, trackedAddrs, trackedFungibles, e.Logger)

	counterparty := req.To
	report := stateimpact.BuildEVM(req.Sender, &counterparty, before, after, e.NativeSymbol, e.NativeDecimals, e.Resolver)

	gasReport := types.GasReport{
		EVM: &types.EVMGasReport{
			GasUsed:      receipt.GasUsed,
			GasPrice:     gasPrice,
			TotalCostWei: new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), gasPrice),
			NativeSymbol: e.NativeSymbol,
		},
	}
	gasReport.EVM.TotalCostNative = types.FormatHuman(gasReport.EVM.TotalCostWei, e.NativeDecimals)

	if err := e.restore(ctx, req.Sender, snapID); err != nil {
		return nil, e.fatal(err)
	}

	return &types.SimulationResponse{
		Success:      true,
		StateChanges: report,
		Events:       decodedEvents,
		Gas:          gasReport,
	}, nil
}

func (e *EVMEngine) sendAndWait(ctx context.Context, req types.EVMRequest) (*ethtypes.Receipt, error) {
	signer, err := e.Backend.GetImpersonatedSigner(ctx, req.Sender)
	if err != nil {
		return nil, err
	}
	hash, err := signer.SendTransaction(ctx, req.To, req.Data, req.Value, req.GasLimit)
	if err != nil {
		return nil, err
	}
	return e.Backend.WaitForReceipt(ctx, hash)
}

// restore implements step 10: best-effort stop-impersonating, then
// revert-or-reset. Only a failure of both is fatal.
func (e *EVMEngine) restore(ctx context.Context, sender types.Address, snapID string) error {
	if err := e.Backend.StopImpersonating(ctx, sender); err != nil && e.Logger != nil {
		e.Logger.Printf("engine: stop impersonating %s: %v", sender, err)
	}
	ok, err := e.Backend.Revert(ctx, snapID)
	if err == nil && ok {
		return nil
	}
	if resetErr := e.Backend.Reset(ctx); resetErr != nil {
		return fmt.Errorf("revert failed (%v) and reset failed: %w", err, resetErr)
	}
	return nil
}

func (e *EVMEngine) restoreBestEffort(ctx context.Context, snapID string) {
	if _, err := e.Backend.Revert(ctx, snapID); err != nil && e.Logger != nil {
		e.Logger.Printf("engine: best-effort revert failed: %v", err)
	}
}

func (e *EVMEngine) fatal(cause error) *FatalError {
	e.halted = cause
	return &FatalError{Cause: cause}
}

func initialTrackedSet(req types.EVMRequest) []types.Address {
	seen := map[types.Address]bool{}
	var out []types.Address
	add := func(a types.Address) {
		c := types.CanonicalEVM(string(a))
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	add(req.Sender)
	add(req.To)
	if recipient, ok := forkclient.DecodeTransferCalldata(req.Data); ok {
		add(recipient)
	}
	return out
}

// discoverAddresses implements the §4.1 address-expansion pass: union
// from/to of every Transfer-like event, minus the already-tracked set.
func discoverAddresses(decoded []types.DecodedEvent, tracked []types.Address) []types.Address {
	trackedSet := map[types.Address]bool{}
	for _, a := range tracked {
		trackedSet[types.CanonicalEVM(string(a))] = true
	}

	seen := map[types.Address]bool{}
	var out []types.Address
	consider := func(raw string) {
		if raw == "" {
			return
		}
		addr := types.CanonicalEVM(raw)
		if trackedSet[addr] || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	for _, ev := range decoded {
		if !isTransferLikeEvent(ev.Name) {
			continue
		}
		from, to := transferAddresses(ev)
		consider(from)
		consider(to)
	}
	return out
}

// transferLikeEvents are the ERC-20/ERC-721/ERC-1155 events §4.1 step 5
// means by "Transfer-like": anything else with incidental "from"/"to"
// fields (Swap, Burn, ...) is left out of address discovery.
var transferLikeEvents = map[string]bool{
	"Transfer":       true,
	"TransferSingle": true,
	"TransferBatch":  true,
}

func isTransferLikeEvent(name string) bool {
	return transferLikeEvents[name]
}

func transferAddresses(ev types.DecodedEvent) (from, to string) {
	for _, f := range ev.Fields {
		switch f.Name {
		case "from":
			from = f.Value
		case "to":
			to = f.Value
		}
	}
	return from, to
}

func rpcErrorOf(err error) *decode.RPCError {
	out := &decode.RPCError{Message: err.Error()}
	if de, ok := err.(rpc.DataError); ok {
		if s, ok := de.ErrorData().(string); ok {
			out.Data = s
		}
	}
	return out
}

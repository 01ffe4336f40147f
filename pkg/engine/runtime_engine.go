package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/mev-engine/tx-simulator/pkg/decode"
	"github.com/mev-engine/tx-simulator/pkg/events"
	"github.com/mev-engine/tx-simulator/pkg/forkclient"
	"github.com/mev-engine/tx-simulator/pkg/snapshot"
	"github.com/mev-engine/tx-simulator/pkg/stateimpact"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

// RuntimeEngine runs kind B simulations against one runtime-module fork.
type RuntimeEngine struct {
	Backend        *forkclient.RuntimeBackend
	Resolver       stateimpact.MetadataResolver
	ModuleResolver decode.ModuleErrorResolver
	FieldResolver  events.FieldResolver
	Logger         *log.Logger

	halted error
}

// IsHalted reports whether a prior fatal head-reset failure has put
// this engine in the terminal Restored-Failed state. The composition
// root consults this to mark the backend's health probe permanently
// degraded and to refuse further /simulate calls with 503 rather than
// re-attempting a simulation that is guaranteed to fail.
func (e *RuntimeEngine) IsHalted() bool {
	if e == nil {
		return false
	}
	return e.halted != nil
}

// Simulate implements the §4.2 algorithm. A non-nil error return is
// always a FatalError: the fork's head could not be reset and the
// backend must not be reused.
func (e *RuntimeEngine) Simulate(ctx context.Context, req types.RuntimeRequest) (*types.SimulationResponse, error) {
	e.Backend.Mu.Lock()
	defer e.Backend.Mu.Unlock()

	if e.halted != nil {
		return nil, &FatalError{Cause: e.halted}
	}

	if err := e.Backend.Reset(ctx); err != nil {
		return nil, e.fatal(fmt.Errorf("initial head-reset: %w", err))
	}

	nativeSymbol, nativeDecimals, _ := e.Backend.ChainProperties(ctx)

	callBytes, recipient, buildErr := e.buildExtrinsicCall(req)
	if buildErr != nil {
		return &types.SimulationResponse{
			Success: false,
			Error:   &types.DecodedError{Kind: types.ErrUnknown, Message: buildErr.Error()},
		}, nil
	}

	trackedAddrs := []types.Address{req.Sender}
	if recipient != "" {
		trackedAddrs = append(trackedAddrs, recipient)
	}
	before := snapshot.CaptureRuntime(ctx, e.Backend, trackedAddrs, req.TrackAssets, e.Logger)

	callHex := "0x" + hex.EncodeToString(callBytes)
	fee, weight, err := e.Backend.GetPaymentInfo(ctx, callHex, req.Sender)
	if err != nil {
		fee, weight = big.NewInt(0), types.Weight{}
	}

	nonce, err := e.Backend.GetNonce(ctx, req.Sender)
	if err != nil {
		return nil, e.fatal(fmt.Errorf("read nonce: %w", err))
	}

	extrinsicBytes, err := forkclient.BuildFakeSignedExtrinsic(req.Sender, nonce, big.NewInt(0), callBytes)
	if err != nil {
		return nil, e.fatal(fmt.Errorf("build fake-signed extrinsic: %w", err))
	}
	extrinsicHex := "0x" + hex.EncodeToString(extrinsicBytes)

	if _, err := e.Backend.SubmitExtrinsic(ctx, extrinsicHex); err != nil {
		return nil, e.fatal(fmt.Errorf("submit extrinsic: %w", err))
	}
	if err := e.Backend.NewBlock(ctx); err != nil {
		return nil, e.fatal(fmt.Errorf("produce block: %w", err))
	}

	rawEvents, err := e.Backend.BlockEvents(ctx)
	if err != nil {
		return nil, e.fatal(fmt.Errorf("read block events: %w", err))
	}
	resolver := e.FieldResolver
	if resolver == nil {
		resolver = events.KnownFieldResolver{}
	}
	decodedEvents := events.DecodeRuntimeEvents(toRawRecords(rawEvents), resolver)

	idx, found := events.MaxApplyExtrinsicIndex(decodedEvents)
	var ourEvents []types.DecodedEvent
	if found {
		ourEvents = events.FilterByExtrinsicIndex(decodedEvents, idx)
	}
	relevant := events.FilterRelevant(ourEvents)

	if failed, dispatchRaw := findRawExtrinsicFailed(rawEvents, idx); found && failed {
		if err := e.Backend.Reset(ctx); err != nil {
			return nil, e.fatal(fmt.Errorf("head-reset after ExtrinsicFailed: %w", err))
		}
		decodedErr := decode.DecodeRuntimeError(parseDispatchError(dispatchRaw), e.ModuleResolver)
		return &types.SimulationResponse{
			Success: false,
			Events:  relevant,
			Gas: types.GasReport{Runtime: &types.RuntimeGasReport{
				Weight:              weight,
				PartialFee:          fee,
				PartialFeeFormatted: types.FormatHuman(fee, nativeDecimals),
				NativeSymbol:        nativeSymbol,
			}},
			Error: decodedErr,
		}, nil
	}

	deltas := reduceDeltas(ourEvents)
	after := applyDeltas(before, deltas)

	var counterparty *types.Address
	if recipient != "" {
		counterparty = &recipient
	}
	report := stateimpact.BuildRuntime(req.Sender, counterparty, before, after, nativeSymbol, nativeDecimals, e.Resolver)

	if err := e.Backend.Reset(ctx); err != nil {
		return nil, e.fatal(fmt.Errorf("final head-reset: %w", err))
	}

	return &types.SimulationResponse{
		Success:      true,
		StateChanges: report,
		Events:       relevant,
		Gas: types.GasReport{Runtime: &types.RuntimeGasReport{
			Weight:              weight,
			PartialFee:          fee,
			PartialFeeFormatted: types.FormatHuman(fee, nativeDecimals),
			NativeSymbol:        nativeSymbol,
		}},
	}, nil
}

func (e *RuntimeEngine) buildExtrinsicCall(req types.RuntimeRequest) ([]byte, types.Address, error) {
	if req.RawHex != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(req.RawHex, "0x"))
		if err != nil {
			return nil, "", fmt.Errorf("invalid rawHex: %w", err)
		}
		return raw, "", nil
	}
	callBytes, err := BuildCallBytes(req.Call)
	if err != nil {
		return nil, "", err
	}
	recipient, _ := presumptiveRecipient(req.Call)
	return callBytes, recipient, nil
}

func (e *RuntimeEngine) fatal(cause error) *FatalError {
	e.halted = cause
	return &FatalError{Cause: cause}
}

func toRawRecords(raw []forkclient.RawBlockEvent) []events.RawEventRecord {
	out := make([]events.RawEventRecord, len(raw))
	for i, r := range raw {
		out[i] = events.RawEventRecord{
			Event: events.RawEvent{Section: r.Event.Section, Method: r.Event.Method, Data: r.Event.Data},
			Phase: events.RawPhase{
				IsApplyExtrinsic:    r.Phase.IsApplyExtrinsic,
				ApplyExtrinsicIndex: r.Phase.ApplyExtrinsicIndex,
				IsInitialization:    r.Phase.IsInitialization,
				IsFinalization:      r.Phase.IsFinalization,
			},
		}
	}
	return out
}

// findRawExtrinsicFailed scans the pre-formatting raw event records for
// a system.ExtrinsicFailed in the injected extrinsic's phase, returning
// its first (dispatchError) argument untouched by event-value
// stringification so parseDispatchError can inspect its real shape.
func findRawExtrinsicFailed(raw []forkclient.RawBlockEvent, extrinsicIndex int) (bool, interface{}) {
	for _, r := range raw {
		if !r.Phase.IsApplyExtrinsic || r.Phase.ApplyExtrinsicIndex != extrinsicIndex {
			continue
		}
		if strings.EqualFold(r.Event.Section, "system") && r.Event.Method == "ExtrinsicFailed" {
			if len(r.Event.Data) > 0 {
				return true, r.Event.Data[0]
			}
			return true, nil
		}
	}
	return false, nil
}

// parseDispatchError converts the loosely-typed dispatchError payload
// carried by a system.ExtrinsicFailed event into the typed probe shape
// decode.DecodeRuntimeError expects, per the variant order of §4.3.
func parseDispatchError(raw interface{}) *decode.DispatchError {
	switch v := raw.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		if mod, ok := v["module"].(map[string]interface{}); ok {
			return &decode.DispatchError{
				IsModule:    true,
				ModuleIndex: uint8(toFloat(mod["index"])),
				ErrorIndex:  uint8(toFloat(mod["error"])),
			}
		}
		if _, ok := v["badOrigin"]; ok {
			return &decode.DispatchError{IsBadOrigin: true}
		}
		if _, ok := v["cannotLookup"]; ok {
			return &decode.DispatchError{IsCannotLookup: true}
		}
		if other, ok := v["other"]; ok {
			return &decode.DispatchError{IsOther: true, OtherValue: fmt.Sprintf("%v", other)}
		}
		if tok, ok := v["token"]; ok {
			return &decode.DispatchError{IsToken: true, TokenValue: fmt.Sprintf("%v", tok)}
		}
		if arith, ok := v["arithmetic"]; ok {
			return &decode.DispatchError{IsArithmetic: true, ArithmeticValue: fmt.Sprintf("%v", arith)}
		}
		if msg, ok := v["message"].(string); ok {
			return &decode.DispatchError{HasMessage: true, Message: msg}
		}
		if len(v) == 1 {
			for k, val := range v {
				if scalar, ok := val.(string); ok {
					return &decode.DispatchError{HasSingleKey: true, SingleKey: k, SingleValue: scalar}
				}
			}
		}
		return &decode.DispatchError{Raw: fmt.Sprintf("%v", v)}
	case string:
		return &decode.DispatchError{IsString: true, StringValue: v}
	default:
		return &decode.DispatchError{Raw: fmt.Sprintf("%v", v)}
	}
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		n, _ := new(big.Float).SetString(t)
		if n == nil {
			return 0
		}
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// reduceDeltas implements the §4.2 event-driven delta reduction: native
// balance deltas are computed purely from balances.Transfer/Withdraw/
// Deposit events in ourEvents, isolating the injected extrinsic's
// effect from unrelated block-level income.
func reduceDeltas(evs []types.DecodedEvent) map[types.Address]*big.Int {
	deltas := map[types.Address]*big.Int{}
	add := func(addr types.Address, delta *big.Int) {
		canon := types.CanonicalRuntime(string(addr))
		cur, ok := deltas[canon]
		if !ok {
			cur = big.NewInt(0)
		}
		deltas[canon] = new(big.Int).Add(cur, delta)
	}

	for _, e := range evs {
		if !strings.EqualFold(e.Origin.Pallet, "balances") {
			continue
		}
		fields := fieldMap(e.Fields)
		switch e.Name {
		case "Transfer":
			amount := parseFieldAmount(fields["amount"])
			add(types.Address(fields["from"]), new(big.Int).Neg(amount))
			add(types.Address(fields["to"]), amount)
		case "Withdraw":
			amount := parseFieldAmount(fields["amount"])
			add(types.Address(fields["who"]), new(big.Int).Neg(amount))
		case "Deposit":
			amount := parseFieldAmount(fields["amount"])
			add(types.Address(fields["who"]), amount)
		}
	}
	return deltas
}

func fieldMap(fields []types.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out
}

func parseFieldAmount(s string) *big.Int {
	n, err := types.ParseAmount(s)
	if err != nil {
		return big.NewInt(0)
	}
	return n
}

func applyDeltas(before map[types.Address]types.RuntimeBalanceSnapshot, deltas map[types.Address]*big.Int) map[types.Address]types.RuntimeBalanceSnapshot {
	after := make(map[types.Address]types.RuntimeBalanceSnapshot, len(before))
	for addr, snap := range before {
		delta, ok := deltas[types.CanonicalRuntime(string(addr))]
		if !ok {
			delta = big.NewInt(0)
		}
		total := new(big.Int).Add(snap.Native.Total(), delta)
		after[addr] = types.RuntimeBalanceSnapshot{
			Native:    types.RuntimeNative{Free: total, Reserved: big.NewInt(0), Frozen: big.NewInt(0)},
			Fungibles: snap.Fungibles,
		}
	}
	for addr, delta := range deltas {
		if _, ok := after[addr]; ok {
			continue
		}
		after[addr] = types.RuntimeBalanceSnapshot{
			Native:    types.RuntimeNative{Free: delta, Reserved: big.NewInt(0), Frozen: big.NewInt(0)},
			Fungibles: types.NewOrderedFungibles(),
		}
	}
	return after
}

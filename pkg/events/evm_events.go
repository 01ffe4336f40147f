package events

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

// CustomABI lets a caller extend the static catalogue with
// contract-specific events (e.g. a project's own token) without
// touching the built-in signature table.
type CustomABI struct {
	Contract string // address these events are scoped to, lowercase
	ABI      abi.ABI
}

// DecodeEVMEvents implements C3: it decodes every log emitted by a
// transaction against any caller-supplied custom ABIs first, falling back
// to the catalogue, and returns them sorted ascending by log index. Logs
// that match nothing in either are skipped rather than erroring -
// most contracts emit events this decoder has no signature for.
func DecodeEVMEvents(logs []*ethtypes.Log, custom []CustomABI) []types.DecodedEvent {
	out := make([]types.DecodedEvent, 0, len(logs))
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 {
			continue
		}
		if ev := decodeOneEVMLog(log, custom); ev != nil {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

func decodeOneEVMLog(log *ethtypes.Log, custom []CustomABI) *types.DecodedEvent {
	topic0 := log.Topics[0]

	for _, c := range custom {
		if c.Contract != "" && !sameAddress(c.Contract, log.Address.Hex()) {
			continue
		}
		for name, ev := range c.ABI.Events {
			if ev.ID != topic0 || countIndexed(ev.Inputs)+1 != len(log.Topics) {
				continue
			}
			if fields, ok := decodeWithEvent(ev, log); ok {
				return buildDecodedEvent(name, log, fields)
			}
		}
	}

	candidates := catalogue[topic0]
	for _, entry := range candidates {
		if countIndexed(entry.event.Inputs)+1 != len(log.Topics) {
			continue // topic-count mismatch: wrong interface for this collision
		}
		if fields, ok := decodeWithEvent(entry.event, log); ok {
			return buildDecodedEvent(entry.name, log, fields)
		}
	}

	// Linear fallback: a precomputed map miss (or a topic-count mismatch
	// against every candidate) still gets one more pass against the full
	// catalogue in case of a hash bucket we didn't index correctly.
	for _, entries := range catalogue {
		for _, entry := range entries {
			if entry.event.ID != topic0 {
				continue
			}
			if fields, ok := decodeWithEvent(entry.event, log); ok {
				return buildDecodedEvent(entry.name, log, fields)
			}
		}
	}
	return nil
}

func countIndexed(args abi.Arguments) int {
	n := 0
	for _, a := range args {
		if a.Indexed {
			n++
		}
	}
	return n
}

func decodeWithEvent(ev abi.Event, log *ethtypes.Log) (map[string]interface{}, bool) {
	decoded := make(map[string]interface{})
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := ev.Inputs.UnpackIntoMap(decoded, log.Data); err != nil {
			return nil, false
		}
	}
	if len(log.Topics) > 1 {
		if err := abi.ParseTopicsIntoMap(decoded, ev.Inputs, log.Topics[1:]); err != nil {
			return nil, false
		}
	}
	return decoded, true
}

func buildDecodedEvent(name string, log *ethtypes.Log, decoded map[string]interface{}) *types.DecodedEvent {
	fields := make([]types.Field, 0, len(decoded))
	for k, v := range decoded {
		fields = append(fields, types.Field{Name: k, Value: stringifyEventValue(v)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	return &types.DecodedEvent{
		Origin:  types.EventOrigin{Address: sameAddressCanonical(log.Address.Hex())},
		Name:    name,
		Ordinal: uint64(log.Index),
		Fields:  fields,
	}
}

func stringifyEventValue(v interface{}) string {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case []*big.Int:
		parts := make([]string, len(t))
		for i, n := range t {
			parts[i] = n.String()
		}
		return fmt.Sprintf("%v", parts)
	case [20]byte:
		return fmt.Sprintf("0x%x", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sameAddress(a, b string) bool {
	return sameAddressCanonical(a) == sameAddressCanonical(b)
}

func sameAddressCanonical(addr string) string {
	return string(types.CanonicalEVM(addr))
}

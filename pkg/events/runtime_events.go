package events

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/mev-engine/tx-simulator/pkg/types"
)

// RawEvent is a single {section, method, data} event record as surfaced
// by the runtime's RPC client, before phase attachment or field naming.
type RawEvent struct {
	Section string
	Method  string
	Data    []interface{}
}

// RawPhase mirrors the loosely-typed phase variant attached to each
// runtime event record. At most one Is* flag is set on a well-formed
// value.
type RawPhase struct {
	IsApplyExtrinsic   bool
	ApplyExtrinsicIndex int
	IsInitialization   bool
	IsFinalization     bool
}

// RawEventRecord is one entry of a block's raw event list.
type RawEventRecord struct {
	Event RawEvent
	Phase RawPhase
}

// FieldResolver supplies metadata field names for a pallet event, when
// the runtime's metadata is available. Implementations return false
// when no naming is known for the given section/method.
type FieldResolver interface {
	FieldNames(section, method string) ([]string, bool)
}

// DecodeRuntimeEvents implements C4: it walks raw event records,
// attaches each one's block phase, and names its positional data
// using the resolver where possible, falling back to arg<i>.
func DecodeRuntimeEvents(records []RawEventRecord, resolver FieldResolver) []types.DecodedEvent {
	out := make([]types.DecodedEvent, 0, len(records))
	for i, rec := range records {
		out = append(out, decodeOneRuntimeEvent(uint64(i), rec, resolver))
	}
	return out
}

func decodeOneRuntimeEvent(ordinal uint64, rec RawEventRecord, resolver FieldResolver) types.DecodedEvent {
	names, haveNames := []string(nil), false
	if resolver != nil {
		names, haveNames = resolver.FieldNames(rec.Event.Section, rec.Event.Method)
	}

	fields := make([]types.Field, len(rec.Event.Data))
	for i, raw := range rec.Event.Data {
		name := fmt.Sprintf("arg%d", i)
		if haveNames && i < len(names) && names[i] != "" {
			name = names[i]
		}
		fields[i] = types.Field{Name: name, Value: formatRuntimeValue(raw)}
	}

	phase := mapPhase(rec.Phase)
	return types.DecodedEvent{
		Origin:  types.EventOrigin{Pallet: rec.Event.Section, Method: rec.Event.Method},
		Name:    rec.Event.Method,
		Ordinal: ordinal,
		Fields:  fields,
		Phase:   &phase,
	}
}

func mapPhase(p RawPhase) types.Phase {
	switch {
	case p.IsApplyExtrinsic:
		return types.Phase{Kind: types.PhaseApplyExtrinsic, Index: p.ApplyExtrinsicIndex}
	case p.IsInitialization:
		return types.Phase{Kind: types.PhaseInitialization}
	case p.IsFinalization:
		return types.Phase{Kind: types.PhaseFinalization}
	default:
		return types.Phase{Kind: types.PhaseUnknown}
	}
}

// formatRuntimeValue renders one argument value, preferring a
// human-style representation (thousands-grouped integers), then a
// JSON-style one for composite values, then a plain string - recursing
// into arrays and objects.
func formatRuntimeValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case *big.Int:
		return humanizeBigInt(t)
	case float64:
		return humanizeBigInt(new(big.Int).SetInt64(int64(t)))
	case string:
		if n, ok := new(big.Int).SetString(t, 10); ok {
			return humanizeBigInt(n)
		}
		return t
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatRuntimeValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func humanizeBigInt(n *big.Int) string {
	s := n.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FilterByExtrinsicIndex returns events whose phase is ApplyExtrinsic(index).
func FilterByExtrinsicIndex(events []types.DecodedEvent, index int) []types.DecodedEvent {
	out := make([]types.DecodedEvent, 0, len(events))
	for _, e := range events {
		if e.Phase != nil && e.Phase.Kind == types.PhaseApplyExtrinsic && e.Phase.Index == index {
			out = append(out, e)
		}
	}
	return out
}

// MaxApplyExtrinsicIndex returns the highest ApplyExtrinsic phase index
// present, and false if no event carries that phase.
func MaxApplyExtrinsicIndex(events []types.DecodedEvent) (int, bool) {
	max, found := 0, false
	for _, e := range events {
		if e.Phase == nil || e.Phase.Kind != types.PhaseApplyExtrinsic {
			continue
		}
		if !found || e.Phase.Index > max {
			max = e.Phase.Index
			found = true
		}
	}
	return max, found
}

var relevantPallets = map[string]bool{
	"balances": true, "assets": true, "tokens": true, "system": true, "transactionpayment": true,
}

var relevantMethods = map[string]bool{
	"Transfer": true, "Deposit": true, "Withdraw": true, "Reserved": true, "Unreserved": true,
	"ExtrinsicSuccess": true, "ExtrinsicFailed": true,
}

// FilterRelevant narrows a block's events to the pallets and methods
// the balance-delta reducer cares about.
func FilterRelevant(events []types.DecodedEvent) []types.DecodedEvent {
	out := make([]types.DecodedEvent, 0, len(events))
	for _, e := range events {
		if relevantPallets[strings.ToLower(e.Origin.Pallet)] || relevantMethods[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

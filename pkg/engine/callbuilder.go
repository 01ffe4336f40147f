package engine

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/mev-engine/tx-simulator/pkg/forkclient"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

// palletCallIndex is the static {pallet-index, call-index} lookup the
// builder needs to produce a dispatchable's SCALE call bytes. A real
// deployment resolves these from the chain's metadata; this fork
// targets a fixed, well-known small set of pallets common across
// Substrate-style runtimes, so a static table is enough to exercise the
// simulation path end to end.
type palletCallIndex struct {
	pallet byte
	call   byte
}

var callTable = map[string]map[string]palletCallIndex{
	"balances": {
		"transfer":            {pallet: 5, call: 0},
		"transfer_keep_alive": {pallet: 5, call: 3},
		"transfer_all":        {pallet: 5, call: 4},
	},
	"assets": {
		"transfer":      {pallet: 50, call: 8},
		"transfer_keep_alive": {pallet: 50, call: 9},
	},
	"tokens": {
		"transfer": {pallet: 51, call: 0},
	},
	"utility": {
		"batch":     {pallet: 40, call: 0},
		"batch_all": {pallet: 40, call: 2},
	},
	"proxy": {
		"proxy": {pallet: 41, call: 0},
	},
	"multisig": {
		"as_multi": {pallet: 45, call: 0},
	},
}

// BuildCallBytes implements the call-construction half of §4.2 step 4:
// looking up the pallet/method, recursively building any nested
// {pallet, method, args} call arguments (batch/proxy/multisig-style
// nesting), and SCALE-encoding the result.
func BuildCallBytes(call *types.RuntimeCall) ([]byte, error) {
	methods, ok := callTable[strings.ToLower(call.Pallet)]
	if !ok {
		return nil, fmt.Errorf("Unknown extrinsic: %s.%s", call.Pallet, call.Method)
	}
	idx, ok := methods[strings.ToLower(call.Method)]
	if !ok {
		return nil, fmt.Errorf("Unknown extrinsic: %s.%s", call.Pallet, call.Method)
	}

	out := []byte{idx.pallet, idx.call}
	for _, arg := range call.Args {
		encoded, err := encodeArg(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return out, nil
}

// presumptiveRecipient implements §4.2 step 4's last rule: when the
// method name contains "transfer" and args is non-empty, the first arg
// is taken as the recipient, stringified.
func presumptiveRecipient(call *types.RuntimeCall) (types.Address, bool) {
	if call == nil || len(call.Args) == 0 {
		return "", false
	}
	if !strings.Contains(strings.ToLower(call.Method), "transfer") {
		return "", false
	}
	return types.Address(fmt.Sprintf("%v", call.Args[0])), true
}

func encodeArg(arg interface{}) ([]byte, error) {
	switch v := arg.(type) {
	case *types.RuntimeCall:
		return BuildCallBytes(v)
	case map[string]interface{}:
		if nested, ok := asNestedCall(v); ok {
			return BuildCallBytes(nested)
		}
		return nil, fmt.Errorf("engine: unsupported call argument shape %T", arg)
	case string:
		if n, ok := new(big.Int).SetString(v, 10); ok {
			return encodeCompactBig(n), nil
		}
		if addrBytes, err := decodeAddressArg(v); err == nil {
			return append([]byte{0x00}, addrBytes...), nil
		}
		return encodeString(v), nil
	case float64:
		return encodeCompactBig(big.NewInt(int64(v))), nil
	case *big.Int:
		return encodeCompactBig(v), nil
	case []interface{}:
		out := forkclient.EncodeCompactUint(uint64(len(v)))
		for _, e := range v {
			encoded, err := encodeArg(e)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("engine: unsupported call argument type %T", arg)
	}
}

func asNestedCall(v map[string]interface{}) (*types.RuntimeCall, bool) {
	pallet, hasPallet := v["pallet"].(string)
	method, hasMethod := v["method"].(string)
	if !hasPallet || !hasMethod {
		return nil, false
	}
	args, _ := v["args"].([]interface{})
	return &types.RuntimeCall{Pallet: pallet, Method: method, Args: args}, true
}

func encodeCompactBig(n *big.Int) []byte {
	if n.IsUint64() {
		return forkclient.EncodeCompactUint(n.Uint64())
	}
	raw := n.Bytes()
	reversed := make([]byte, len(raw))
	for i, b := range raw {
		reversed[len(raw)-1-i] = b
	}
	header := byte((len(reversed)-4)<<2) | 0b11
	return append([]byte{header}, reversed...)
}

func encodeString(s string) []byte {
	body := []byte(s)
	return append(forkclient.EncodeCompactUint(uint64(len(body))), body...)
}

func decodeAddressArg(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("engine: address argument %s is not 32 bytes", s)
	}
	return raw, nil
}

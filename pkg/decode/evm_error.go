// Package decode implements C1/C2, the error decoders: pure functions
// that map raw failure payloads from either execution environment to a
// closed, tagged types.DecodedError. Neither decoder touches the fork
// backends; they are collaborators driven by the simulation engine.
package decode

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

// RPCError is the normalized shape of a failed EVM RPC call. Real
// providers nest the revert payload at one of several depths
// (error.data, error.info.error.data, error.error.data) depending on
// the client library and the node's JSON-RPC error envelope; callers
// populate whichever fields their transport surfaced and leave the
// rest empty.
type RPCError struct {
	Data             string
	InfoErrorData    string
	ErrorErrorData   string
	Message          string
	Reason           string
	InfoErrorMessage string
}

var dataInMessageRe = regexp.MustCompile(`data="(0x[0-9a-fA-F]*)"`)
var quotedReasonRe = regexp.MustCompile(`(?:execution reverted: |reason=)"([^"]*)"`)

var panicMeanings = map[uint64]string{
	0x00: "Generic compiler panic",
	0x01: "Assertion failed",
	0x11: "Arithmetic operation underflowed or overflowed outside an unchecked block",
	0x12: "Division or modulo by zero",
	0x21: "Tried to convert a value into an enum, but the value was too big or negative",
	0x22: "Incorrectly encoded storage byte array accessed",
	0x31: "Called .pop() on an empty array",
	0x32: "Array index out of bounds",
	0x41: "Too much memory was allocated, or an array was created that is too large",
	0x51: "Called a zero-initialized variable of internal function type",
}

type customErrorDef struct {
	name   string
	inputs abi.Arguments
}

var customErrorTable = map[string]customErrorDef{
	"0xe450d38c": {
		name: "InsufficientBalance",
		inputs: mustArgs(
			abi.Argument{Name: "sender", Type: mustType("address")},
			abi.Argument{Name: "balance", Type: mustType("uint256")},
			abi.Argument{Name: "needed", Type: mustType("uint256")},
		),
	},
	"0xfb8f41b2": {
		name: "InsufficientAllowance",
		inputs: mustArgs(
			abi.Argument{Name: "spender", Type: mustType("address")},
			abi.Argument{Name: "allowance", Type: mustType("uint256")},
			abi.Argument{Name: "needed", Type: mustType("uint256")},
		),
	},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func mustArgs(args ...abi.Argument) abi.Arguments {
	return abi.Arguments(args)
}

const panicSelector = "0x4e487b71"
const revertSelector = "0x08c379a0"

// DecodeEVMError implements C1. It is total: every input, including a
// nil RPCError, produces a tagged record.
func DecodeEVMError(e *RPCError) *types.DecodedError {
	if e == nil {
		return &types.DecodedError{Kind: types.ErrUnknown, Message: "Unknown error occurred"}
	}

	payload, raw := locatePayload(e)
	if len(payload) >= 10 {
		if d := decodeSelectorPayload(payload); d != nil {
			d.Raw = raw
			return d
		}
	}

	if e.Reason != "" {
		return &types.DecodedError{Kind: types.ErrUnknown, Message: cleanupMessage(e.Reason), Raw: raw}
	}
	if e.InfoErrorMessage != "" {
		return &types.DecodedError{Kind: types.ErrUnknown, Message: cleanupMessage(e.InfoErrorMessage), Raw: raw}
	}
	if e.Message != "" {
		return &types.DecodedError{Kind: types.ErrUnknown, Message: cleanupMessage(e.Message), Raw: raw}
	}
	return &types.DecodedError{Kind: types.ErrUnknown, Message: "Unknown error occurred", Raw: raw}
}

// locatePayload probes the known nesting depths in order, falling back
// to a regex match against the message string.
func locatePayload(e *RPCError) (payload string, raw string) {
	for _, candidate := range []string{e.Data, e.InfoErrorData, e.ErrorErrorData} {
		if candidate != "" {
			return normalizeHex(candidate), candidate
		}
	}
	if m := dataInMessageRe.FindStringSubmatch(e.Message); m != nil {
		return normalizeHex(m[1]), m[1]
	}
	return "", ""
}

func normalizeHex(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func decodeSelectorPayload(payload string) *types.DecodedError {
	selector := payload[:10]
	body := payload[10:]
	bodyBytes, err := hex.DecodeString(strings.TrimPrefix(body, "0x"))
	if err != nil {
		return nil
	}

	switch selector {
	case panicSelector:
		if len(bodyBytes) < 32 {
			return nil
		}
		code := new(big.Int).SetBytes(bodyBytes[:32])
		meaning, known := panicMeanings[code.Uint64()]
		if !known {
			meaning = "Unknown panic code"
		}
		return &types.DecodedError{Kind: types.ErrPanic, PanicCode: code, Message: meaning}

	case revertSelector:
		reason, err := abi.UnpackRevert(append(mustSelectorBytes(revertSelector), bodyBytes...))
		if err != nil || reason == "" {
			return &types.DecodedError{Kind: types.ErrRevert, Message: "Transaction reverted"}
		}
		return &types.DecodedError{Kind: types.ErrRevert, Message: reason}

	default:
		if def, ok := customErrorTable[selector]; ok {
			args, err := def.inputs.UnpackValues(bodyBytes)
			if err != nil {
				return &types.DecodedError{Kind: types.ErrCustom, Name: def.name}
			}
			strArgs := make([]string, len(args))
			for i, a := range args {
				strArgs[i] = stringifyArg(a)
			}
			return &types.DecodedError{Kind: types.ErrCustom, Name: def.name, Args: strArgs}
		}
		return nil
	}
}

func mustSelectorBytes(sel string) []byte {
	b, _ := hex.DecodeString(strings.TrimPrefix(sel, "0x"))
	return b
}

func stringifyArg(v interface{}) string {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case [20]byte:
		return "0x" + hex.EncodeToString(t[:])
	default:
		return fmt.Sprintf("%v", t)
	}
}

// cleanupMessage applies the §4.3 message-cleanup rules: extract an
// inner quoted reason, strip a leading "Error: ", and normalize the
// bare "execution reverted" phrase.
func cleanupMessage(msg string) string {
	if m := quotedReasonRe.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	msg = strings.TrimPrefix(msg, "Error: ")
	if msg == "execution reverted" {
		return "Transaction reverted"
	}
	return msg
}

package decode

import (
	"fmt"
	"strings"

	"github.com/mev-engine/tx-simulator/pkg/types"
)

// DispatchError mirrors a decoded runtime-module dispatch-error value.
// The runtime's RPC client surfaces these as loosely-typed variant
// objects; this struct captures every shape DecodeRuntimeError probes,
// per the order in spec.md §4.3. A well-formed input sets at most one
// of the Is* flags.
type DispatchError struct {
	IsModule    bool
	ModuleIndex uint8
	ErrorIndex  uint8

	IsBadOrigin    bool
	IsCannotLookup bool

	IsOther    bool
	OtherValue string

	IsToken    bool
	TokenValue string

	IsArithmetic    bool
	ArithmeticValue string

	// Generic fallback shapes for inputs that don't match one of the
	// typed variants above.
	HasSingleKey bool
	SingleKey    string
	SingleValue  string

	IsString    bool
	StringValue string

	HasMessage bool
	Message    string

	Raw string
}

// ModuleErrorResolver resolves a module/error index pair to the
// pallet/error names and docs from runtime metadata.
type ModuleErrorResolver interface {
	ResolveModuleError(moduleIndex, errorIndex uint8) (pallet, name string, docs []string, err error)
}

// DecodeRuntimeError implements C2. It is total: every input, including
// a nil DispatchError, produces a tagged record.
func DecodeRuntimeError(e *DispatchError, resolver ModuleErrorResolver) *types.DecodedError {
	if e == nil {
		return &types.DecodedError{Kind: types.ErrUnknown, Message: "Unknown error occurred"}
	}

	switch {
	case e.IsModule:
		if resolver == nil {
			return &types.DecodedError{Kind: types.ErrModule, Message: "Unknown module error", Raw: e.Raw}
		}
		pallet, name, docs, err := resolver.ResolveModuleError(e.ModuleIndex, e.ErrorIndex)
		if err != nil {
			return &types.DecodedError{Kind: types.ErrModule, Message: "Unknown module error", Raw: e.Raw}
		}
		joinedDocs := strings.Join(docs, " ")
		return &types.DecodedError{
			Kind:    types.ErrModule,
			Pallet:  pallet,
			Name:    name,
			Docs:    joinedDocs,
			Message: fmt.Sprintf("%s.%s: %s", pallet, name, joinedDocs),
			Raw:     e.Raw,
		}

	case e.IsBadOrigin:
		return &types.DecodedError{Kind: types.ErrBadOrigin, Message: "Bad origin - caller not authorized for this action", Raw: e.Raw}

	case e.IsCannotLookup:
		return &types.DecodedError{Kind: types.ErrCannotLookup, Message: "Cannot lookup - invalid account or reference", Raw: e.Raw}

	case e.IsOther:
		msg := e.OtherValue
		if msg == "" {
			msg = "Other error"
		}
		return &types.DecodedError{Kind: types.ErrOther, Message: msg, Raw: e.Raw}

	case e.IsToken:
		return &types.DecodedError{Kind: types.ErrToken, Message: "Token Error: " + e.TokenValue, Raw: e.Raw}

	case e.IsArithmetic:
		return &types.DecodedError{Kind: types.ErrArithmetic, Message: "Arithmetic Error: " + e.ArithmeticValue, Raw: e.Raw}

	case e.HasSingleKey:
		return &types.DecodedError{
			Kind:    types.ErrorKind(e.SingleKey),
			Message: fmt.Sprintf("%s: %s", e.SingleKey, e.SingleValue),
			Raw:     e.Raw,
		}

	case e.IsString:
		return &types.DecodedError{Kind: types.ErrUnknown, Message: e.StringValue, Raw: e.Raw}

	case e.HasMessage:
		return &types.DecodedError{Kind: types.ErrUnknown, Message: e.Message, Raw: e.Raw}

	default:
		return &types.DecodedError{Kind: types.ErrUnknown, Message: "Unknown error occurred", Raw: e.Raw}
	}
}

package decode

import (
	"errors"
	"testing"

	"github.com/mev-engine/tx-simulator/pkg/types"
	"github.com/stretchr/testify/assert"
)

type staticResolver struct {
	pallet, name string
	docs         []string
	err          error
}

func (s staticResolver) ResolveModuleError(moduleIndex, errorIndex uint8) (string, string, []string, error) {
	if s.err != nil {
		return "", "", nil, s.err
	}
	return s.pallet, s.name, s.docs, nil
}

func TestDecodeRuntimeErrorNil(t *testing.T) {
	d := DecodeRuntimeError(nil, nil)
	assert.Equal(t, types.ErrUnknown, d.Kind)
}

func TestDecodeRuntimeErrorModuleResolved(t *testing.T) {
	resolver := staticResolver{pallet: "Balances", name: "InsufficientBalance", docs: []string{"Balance too low."}}
	d := DecodeRuntimeError(&DispatchError{IsModule: true, ModuleIndex: 5, ErrorIndex: 2}, resolver)
	assert.Equal(t, types.ErrModule, d.Kind)
	assert.Equal(t, "Balances", d.Pallet)
	assert.Equal(t, "InsufficientBalance", d.Name)
	assert.Equal(t, "Balance too low.", d.Docs)
}

func TestDecodeRuntimeErrorModuleLookupFails(t *testing.T) {
	resolver := staticResolver{err: errors.New("not found")}
	d := DecodeRuntimeError(&DispatchError{IsModule: true}, resolver)
	assert.Equal(t, types.ErrModule, d.Kind)
	assert.Equal(t, "Unknown module error", d.Message)
}

func TestDecodeRuntimeErrorModuleNoResolver(t *testing.T) {
	d := DecodeRuntimeError(&DispatchError{IsModule: true}, nil)
	assert.Equal(t, types.ErrModule, d.Kind)
	assert.Equal(t, "Unknown module error", d.Message)
}

func TestDecodeRuntimeErrorBadOrigin(t *testing.T) {
	d := DecodeRuntimeError(&DispatchError{IsBadOrigin: true}, nil)
	assert.Equal(t, types.ErrBadOrigin, d.Kind)
	assert.Equal(t, "Bad origin - caller not authorized for this action", d.Message)
}

func TestDecodeRuntimeErrorOtherDefaultsWhenEmpty(t *testing.T) {
	d := DecodeRuntimeError(&DispatchError{IsOther: true}, nil)
	assert.Equal(t, "Other error", d.Message)
}

func TestDecodeRuntimeErrorTokenAndArithmetic(t *testing.T) {
	d := DecodeRuntimeError(&DispatchError{IsToken: true, TokenValue: "Frozen"}, nil)
	assert.Equal(t, "Token Error: Frozen", d.Message)

	d = DecodeRuntimeError(&DispatchError{IsArithmetic: true, ArithmeticValue: "Overflow"}, nil)
	assert.Equal(t, "Arithmetic Error: Overflow", d.Message)
}

func TestDecodeRuntimeErrorSingleKeyObject(t *testing.T) {
	d := DecodeRuntimeError(&DispatchError{HasSingleKey: true, SingleKey: "exhausted", SingleValue: "resources"}, nil)
	assert.Equal(t, types.ErrorKind("exhausted"), d.Kind)
	assert.Equal(t, "exhausted: resources", d.Message)
}

func TestDecodeRuntimeErrorStringAndMessageFallbacks(t *testing.T) {
	d := DecodeRuntimeError(&DispatchError{IsString: true, StringValue: "boom"}, nil)
	assert.Equal(t, types.ErrUnknown, d.Kind)
	assert.Equal(t, "boom", d.Message)

	d = DecodeRuntimeError(&DispatchError{HasMessage: true, Message: "weird object"}, nil)
	assert.Equal(t, types.ErrUnknown, d.Kind)
	assert.Equal(t, "weird object", d.Message)
}

package engine

import (
	"errors"
	"testing"

	"github.com/mev-engine/tx-simulator/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestInitialTrackedSetDedupesAndLowercases(t *testing.T) {
	req := types.EVMRequest{
		Sender: types.Address("0xAAAA444444444444444444444444444444444444"),
		To:     types.Address("0xaaaa444444444444444444444444444444444444"),
	}
	out := initialTrackedSet(req)
	assert.Len(t, out, 1)
}

func TestInitialTrackedSetIncludesCalldataRecipient(t *testing.T) {
	recipient := "4444444444444444444444444444444444444444"
	data := append([]byte{0xa9, 0x05, 0x9c, 0xbb}, make([]byte, 12)...)
	recipientBytes := make([]byte, 20)
	for i := 0; i < 20; i++ {
		recipientBytes[i] = 0x44
	}
	data = append(data, recipientBytes...)
	data = append(data, make([]byte, 32)...)

	req := types.EVMRequest{
		Sender: types.Address("0x1111111111111111111111111111111111111111"),
		To:     types.Address("0x2222222222222222222222222222222222222222"),
		Data:   data,
	}
	out := initialTrackedSet(req)
	found := false
	for _, a := range out {
		if string(a) == "0x"+recipient {
			found = true
		}
	}
	assert.True(t, found, "expected calldata-extracted recipient in tracked set")
}

func TestDiscoverAddressesExcludesTracked(t *testing.T) {
	tracked := []types.Address{types.Address("0xsender"), types.Address("0xto")}
	decoded := []types.DecodedEvent{
		{Name: "Transfer", Fields: []types.Field{{Name: "from", Value: "0xsender"}, {Name: "to", Value: "0xnewaddr"}}},
	}
	discovered := discoverAddresses(decoded, tracked)
	assert.Equal(t, []types.Address{types.Address("0xnewaddr")}, discovered)
}

func TestDiscoverAddressesDedupesAcrossEvents(t *testing.T) {
	decoded := []types.DecodedEvent{
		{Name: "Transfer", Fields: []types.Field{{Name: "from", Value: "0xa"}, {Name: "to", Value: "0xb"}}},
		{Name: "Transfer", Fields: []types.Field{{Name: "from", Value: "0xb"}, {Name: "to", Value: "0xa"}}},
	}
	discovered := discoverAddresses(decoded, nil)
	assert.Len(t, discovered, 2)
}

func TestDiscoverAddressesIgnoresNonTransferEvents(t *testing.T) {
	decoded := []types.DecodedEvent{
		{Name: "Swap", Fields: []types.Field{{Name: "sender", Value: "0xa"}, {Name: "to", Value: "0xpool"}}},
		{Name: "Burn", Fields: []types.Field{{Name: "sender", Value: "0xa"}, {Name: "to", Value: "0xpool"}}},
	}
	discovered := discoverAddresses(decoded, nil)
	assert.Empty(t, discovered, "Swap/Burn are not Transfer-like and must not feed address discovery")
}

func TestTransferAddressesIgnoresUnrelatedFields(t *testing.T) {
	ev := types.DecodedEvent{Fields: []types.Field{{Name: "value", Value: "100"}}}
	from, to := transferAddresses(ev)
	assert.Empty(t, from)
	assert.Empty(t, to)
}

func TestEVMEngineIsHaltedReflectsFatalState(t *testing.T) {
	e := &EVMEngine{}
	assert.False(t, e.IsHalted())

	ferr := e.fatal(errors.New("restore failed"))
	assert.True(t, e.IsHalted())
	assert.ErrorIs(t, ferr, ferr.Cause)
}

func TestEVMEngineIsHaltedNilSafe(t *testing.T) {
	var e *EVMEngine
	assert.False(t, e.IsHalted())
}

func TestRPCErrorOfWrapsPlainError(t *testing.T) {
	out := rpcErrorOf(errors.New("execution reverted"))
	assert.Equal(t, "execution reverted", out.Message)
}

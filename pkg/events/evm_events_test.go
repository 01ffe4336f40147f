package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustFindID returns the topic0 of the catalogue entry with the given
// name and indexed-topic count (name alone is ambiguous: ERC20 and
// ERC721 both define Transfer/Approval).
func mustFindID(name string, topicCount int) common.Hash {
	for id, entries := range catalogue {
		for _, e := range entries {
			if e.name == name && countIndexed(e.event.Inputs)+1 == topicCount {
				return id
			}
		}
	}
	panic("not found: " + name)
}

func packUint256(t *testing.T, n int64) []byte {
	typ, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: typ}}.Pack(big.NewInt(n))
	require.NoError(t, err)
	return packed
}

func TestDecodeEVMEventsERC20Transfer(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	log := &ethtypes.Log{
		Address: common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Topics:  []common.Hash{mustFindID("Transfer", 3), from.Hash(), to.Hash()},
		Data:    packUint256(t, 1000),
		Index:   3,
	}
	decoded := DecodeEVMEvents([]*ethtypes.Log{log}, nil)
	require.Len(t, decoded, 1)
	assert.Equal(t, "Transfer", decoded[0].Name)
	assert.Equal(t, uint64(3), decoded[0].Ordinal)
}

func TestDecodeEVMEventsERC721TransferDisambiguatedByTopicCount(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenID := common.BigToHash(big.NewInt(7))
	log := &ethtypes.Log{
		Address: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Topics:  []common.Hash{mustFindID("Transfer", 4), from.Hash(), to.Hash(), tokenID},
		Data:    []byte{},
		Index:   1,
	}
	decoded := DecodeEVMEvents([]*ethtypes.Log{log}, nil)
	require.Len(t, decoded, 1)
	assert.Equal(t, "Transfer", decoded[0].Name)
}

func TestDecodeEVMEventsSortedByLogIndex(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	mk := func(idx uint) *ethtypes.Log {
		return &ethtypes.Log{
			Address: common.HexToAddress("0x3333333333333333333333333333333333333333"),
			Topics:  []common.Hash{mustFindID("Transfer", 3), from.Hash(), to.Hash()},
			Data:    packUint256(t, 1),
			Index:   idx,
		}
	}
	decoded := DecodeEVMEvents([]*ethtypes.Log{mk(5), mk(1), mk(3)}, nil)
	require.Len(t, decoded, 3)
	assert.Equal(t, []uint64{1, 3, 5}, []uint64{decoded[0].Ordinal, decoded[1].Ordinal, decoded[2].Ordinal})
}

func TestDecodeEVMEventsUnknownSignatureSkipped(t *testing.T) {
	log := &ethtypes.Log{
		Address: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Topics:  []common.Hash{common.HexToHash("0xdeadbeef")},
		Index:   0,
	}
	decoded := DecodeEVMEvents([]*ethtypes.Log{log}, nil)
	assert.Empty(t, decoded)
}

func TestDecodeEVMEventsNoTopicsSkipped(t *testing.T) {
	log := &ethtypes.Log{Topics: nil}
	decoded := DecodeEVMEvents([]*ethtypes.Log{log}, nil)
	assert.Empty(t, decoded)
}

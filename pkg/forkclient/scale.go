package forkclient

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/mev-engine/tx-simulator/pkg/types"
)

// EncodeCompactUint implements SCALE's compact integer encoding: the
// low two bits of the first byte select a mode (single-byte, two-byte,
// four-byte, or a big-integer mode for anything larger).
func EncodeCompactUint(n uint64) []byte {
	switch {
	case n <= 0x3f:
		return []byte{byte(n << 2)}
	case n <= 0x3fff:
		v := uint16(n<<2) | 0b01
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, v)
		return out
	case n <= 0x3fffffff:
		v := uint32(n<<2) | 0b10
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, v)
		return out
	default:
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint64(raw, n)
		for len(raw) > 1 && raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		header := byte((len(raw)-4)<<2) | 0b11
		return append([]byte{header}, raw...)
	}
}

// PrependCompactLength wraps body with its own SCALE-compact byte
// length, as every fork RPC that accepts extrinsic bytes expects.
func PrependCompactLength(body []byte) []byte {
	return append(EncodeCompactUint(uint64(len(body))), body...)
}

// fakeSignature is the deterministic byte pattern the fork's
// mock-signature host accepts in place of a real signature: 4 bytes of
// 0xdeadbeef followed by 60 bytes of 0xcd, filling the 64-byte
// sr25519/ed25519 signature slot.
func fakeSignature() []byte {
	sig := make([]byte, 64)
	copy(sig, []byte{0xde, 0xad, 0xbe, 0xef})
	for i := 4; i < len(sig); i++ {
		sig[i] = 0xcd
	}
	return sig
}

func decodeAddressBytes(addr types.Address) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(string(addr), "0x"))
	if err != nil {
		return out, fmt.Errorf("forkclient: decode address %s: %w", addr, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("forkclient: address %s is %d bytes, want 32", addr, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// BuildFakeSignedExtrinsic assembles the wire layout from §6: version +
// address-type + address + sig-type + fake signature + immortal era +
// compact nonce + compact tip + call bytes, then prefixes the whole
// thing with its SCALE-compact length.
func BuildFakeSignedExtrinsic(sender types.Address, nonce uint64, tip *big.Int, callBytes []byte) ([]byte, error) {
	addrBytes, err := decodeAddressBytes(sender)
	if err != nil {
		return nil, err
	}
	if tip == nil {
		tip = big.NewInt(0)
	}

	body := make([]byte, 0, 2+32+1+64+1+8+8+len(callBytes))
	body = append(body, 0x84, 0x00)
	body = append(body, addrBytes[:]...)
	body = append(body, 0x01)
	body = append(body, fakeSignature()...)
	body = append(body, 0x00) // immortal era
	body = append(body, EncodeCompactUint(nonce)...)
	body = append(body, EncodeCompactUint(tip.Uint64())...)
	body = append(body, callBytes...)

	return PrependCompactLength(body), nil
}

// Package events implements C3/C4, the event decoders for both runtime
// environments. The EVM side (this file and evm_events.go) works from a
// static catalogue of well-known event signatures rather than a
// per-protocol ABI registry: topic0 collisions between interfaces that
// share a signature (ERC20/ERC721 Transfer, ERC20/ERC721 Approval) are
// resolved by matching the log's topic count against each candidate's
// indexed-field count.
package events

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// catalogEntry pairs a parsed single-event ABI with the event it
// describes, so a topic0 hit resolves straight to a decodable abi.Event.
type catalogEntry struct {
	name  string
	event abi.Event
}

// eventDefs holds one-event-per-entry ABI fragments. Splitting them
// keeps each entry independently parseable and keeps the topic0 index
// a straight one-to-many map instead of a nested protocol/contract
// lookup.
var eventDefs = []string{
	// ERC20
	`[{"anonymous":false,"name":"Transfer","type":"event","inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}]}]`,
	`[{"anonymous":false,"name":"Approval","type":"event","inputs":[
		{"indexed":true,"name":"owner","type":"address"},
		{"indexed":true,"name":"spender","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}]}]`,
	// ERC721 (Transfer/Approval share ERC20's signature text; distinguished by topic count)
	`[{"anonymous":false,"name":"Transfer","type":"event","inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":true,"name":"tokenId","type":"uint256"}]}]`,
	`[{"anonymous":false,"name":"Approval","type":"event","inputs":[
		{"indexed":true,"name":"owner","type":"address"},
		{"indexed":true,"name":"approved","type":"address"},
		{"indexed":true,"name":"tokenId","type":"uint256"}]}]`,
	`[{"anonymous":false,"name":"ApprovalForAll","type":"event","inputs":[
		{"indexed":true,"name":"owner","type":"address"},
		{"indexed":true,"name":"operator","type":"address"},
		{"indexed":false,"name":"approved","type":"bool"}]}]`,
	// ERC1155
	`[{"anonymous":false,"name":"TransferSingle","type":"event","inputs":[
		{"indexed":true,"name":"operator","type":"address"},
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"id","type":"uint256"},
		{"indexed":false,"name":"value","type":"uint256"}]}]`,
	`[{"anonymous":false,"name":"TransferBatch","type":"event","inputs":[
		{"indexed":true,"name":"operator","type":"address"},
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"ids","type":"uint256[]"},
		{"indexed":false,"name":"values","type":"uint256[]"}]}]`,
	// DEX: Uniswap V2 / Aerodrome style pair
	`[{"anonymous":false,"name":"Swap","type":"event","inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":false,"name":"amount0In","type":"uint256"},
		{"indexed":false,"name":"amount1In","type":"uint256"},
		{"indexed":false,"name":"amount0Out","type":"uint256"},
		{"indexed":false,"name":"amount1Out","type":"uint256"},
		{"indexed":true,"name":"to","type":"address"}]}]`,
	`[{"anonymous":false,"name":"Mint","type":"event","inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":false,"name":"amount0","type":"uint256"},
		{"indexed":false,"name":"amount1","type":"uint256"}]}]`,
	`[{"anonymous":false,"name":"Burn","type":"event","inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":false,"name":"amount0","type":"uint256"},
		{"indexed":false,"name":"amount1","type":"uint256"},
		{"indexed":true,"name":"to","type":"address"}]}]`,
	`[{"anonymous":false,"name":"Sync","type":"event","inputs":[
		{"indexed":false,"name":"reserve0","type":"uint112"},
		{"indexed":false,"name":"reserve1","type":"uint112"}]}]`,
	// DEX: Uniswap V3 style pool (distinct signature from the V2 Swap above)
	`[{"anonymous":false,"name":"Swap","type":"event","inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":true,"name":"recipient","type":"address"},
		{"indexed":false,"name":"amount0","type":"int256"},
		{"indexed":false,"name":"amount1","type":"int256"},
		{"indexed":false,"name":"sqrtPriceX96","type":"uint160"},
		{"indexed":false,"name":"liquidity","type":"uint128"},
		{"indexed":false,"name":"tick","type":"int24"}]}]`,
	// Ownership / proxy
	`[{"anonymous":false,"name":"OwnershipTransferred","type":"event","inputs":[
		{"indexed":true,"name":"previousOwner","type":"address"},
		{"indexed":true,"name":"newOwner","type":"address"}]}]`,
	`[{"anonymous":false,"name":"Upgraded","type":"event","inputs":[
		{"indexed":true,"name":"implementation","type":"address"}]}]`,
}

// catalogue is built once at package init: topic0 -> every entry whose
// signature hashes to it (collisions resolved at decode time by topic
// count).
var catalogue = buildCatalogue()

func buildCatalogue() map[common.Hash][]*catalogEntry {
	out := make(map[common.Hash][]*catalogEntry)
	for _, def := range eventDefs {
		parsed, err := abi.JSON(strings.NewReader(def))
		if err != nil {
			panic(err) // catalogue is static; a parse failure is a programming error
		}
		for name, ev := range parsed.Events {
			entry := &catalogEntry{name: name, event: ev}
			out[ev.ID] = append(out[ev.ID], entry)
		}
	}
	return out
}

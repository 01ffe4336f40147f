// Package forkclient implements C7/C8: thin clients over the two fork
// backends the simulation engine drives. Neither client interprets
// simulation semantics - they expose the raw operations §4.7 lists and
// leave orchestration to the engine.
package forkclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

const erc20BalanceOfSelector = "0x70a08231"

// EVMBackend is the account-model fork client (C7). One instance per
// configured fork; callers must hold Mu for the full snapshot ->
// execute -> restore cycle.
type EVMBackend struct {
	Mu sync.Mutex

	client    *ethclient.Client
	rpcClient *rpc.Client
	forkURL   string
	forkBlock *big.Int
}

// NewEVMBackend returns an unconnected backend; Connect must be called
// before any other method.
func NewEVMBackend() *EVMBackend {
	return &EVMBackend{}
}

// Connect opens the RPC connection and remembers the current block as
// the fork origin.
func (b *EVMBackend) Connect(ctx context.Context, forkURL string) error {
	rc, err := rpc.DialContext(ctx, forkURL)
	if err != nil {
		return fmt.Errorf("forkclient: dial %s: %w", forkURL, err)
	}
	client := ethclient.NewClient(rc)

	blockNum, err := client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("forkclient: read block number: %w", err)
	}

	b.rpcClient = rc
	b.client = client
	b.forkURL = forkURL
	b.forkBlock = new(big.Int).SetUint64(blockNum)
	return nil
}

// Snapshot takes a fork snapshot and returns its opaque ID.
func (b *EVMBackend) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := b.rpcClient.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("forkclient: evm_snapshot: %w", err)
	}
	return id, nil
}

// Revert reverts to a previously taken snapshot. A false result is a
// recoverable failure - callers should fall back to Reset.
func (b *EVMBackend) Revert(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := b.rpcClient.CallContext(ctx, &ok, "evm_revert", id); err != nil {
		return false, fmt.Errorf("forkclient: evm_revert: %w", err)
	}
	return ok, nil
}

// Reset performs a full fork reset, re-forking from forkURL at
// forkBlock when both are set, else a parameterless reset.
func (b *EVMBackend) Reset(ctx context.Context) error {
	if b.forkURL == "" {
		return b.rpcClient.CallContext(ctx, nil, "anvil_reset")
	}
	params := map[string]interface{}{
		"forking": map[string]interface{}{
			"jsonRpcUrl":  b.forkURL,
			"blockNumber": b.forkBlock.Uint64(),
		},
	}
	return b.rpcClient.CallContext(ctx, nil, "anvil_reset", params)
}

// Impersonate enables sending transactions from addr without its key.
func (b *EVMBackend) Impersonate(ctx context.Context, addr types.Address) error {
	return b.rpcClient.CallContext(ctx, nil, "anvil_impersonateAccount", string(addr))
}

// StopImpersonating disables impersonation of addr. Failures here are
// swallowed by the engine (best-effort per §7).
func (b *EVMBackend) StopImpersonating(ctx context.Context, addr types.Address) error {
	return b.rpcClient.CallContext(ctx, nil, "anvil_stopImpersonatingAccount", string(addr))
}

// GetImpersonatedSigner impersonates addr and returns a sender bound to
// it. Anvil accepts unsigned transactions from impersonated accounts
// via eth_sendTransaction, so the "signer" here is just the RPC-bound
// sender, not a private key.
func (b *EVMBackend) GetImpersonatedSigner(ctx context.Context, addr types.Address) (*ImpersonatedSender, error) {
	if err := b.Impersonate(ctx, addr); err != nil {
		return nil, fmt.Errorf("forkclient: impersonate %s: %w", addr, err)
	}
	return &ImpersonatedSender{backend: b, from: addr}, nil
}

// ImpersonatedSender sends transactions as an impersonated EOA.
type ImpersonatedSender struct {
	backend *EVMBackend
	from    types.Address
}

// SendTransaction submits an unsigned transaction as the impersonated
// sender and returns its hash.
func (s *ImpersonatedSender) SendTransaction(ctx context.Context, to types.Address, data []byte, value *big.Int, gasLimit *uint64) (common.Hash, error) {
	args := map[string]interface{}{
		"from": string(s.from),
		"to":   string(to),
	}
	if len(data) > 0 {
		args["data"] = "0x" + common.Bytes2Hex(data)
	}
	if value != nil {
		args["value"] = hexBig(value)
	}
	if gasLimit != nil {
		args["gas"] = hexUint64(*gasLimit)
	}

	var hash common.Hash
	if err := s.backend.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("forkclient: eth_sendTransaction: %w", err)
	}
	return hash, nil
}

// WaitForReceipt polls for a transaction receipt. Anvil auto-mines, so
// the receipt is normally available immediately after send.
func (b *EVMBackend) WaitForReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	return b.client.TransactionReceipt(ctx, hash)
}

// FeeData returns the current gas price from the fork.
func (b *EVMBackend) FeeData(ctx context.Context) (*big.Int, error) {
	return b.client.SuggestGasPrice(ctx)
}

// IsConnected is a best-effort health probe.
func (b *EVMBackend) IsConnected(ctx context.Context) bool {
	if b.client == nil {
		return false
	}
	_, err := b.client.BlockNumber(ctx)
	return err == nil
}

// ChainName reports the chain ID of the connected fork for display in
// health checks, blank if not yet connected.
func (b *EVMBackend) ChainName(ctx context.Context) string {
	if b.client == nil {
		return ""
	}
	id, err := b.client.ChainID(ctx)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("eip155:%s", id.String())
}

// NativeBalance implements snapshot.EVMReader.
func (b *EVMBackend) NativeBalance(ctx context.Context, addr types.Address) (*big.Int, error) {
	return b.client.BalanceAt(ctx, common.HexToAddress(string(addr)), nil)
}

// FungibleBalance implements snapshot.EVMReader via a raw
// balanceOf(address) call - no ABI file needed for a single-selector
// read.
func (b *EVMBackend) FungibleBalance(ctx context.Context, token types.Address, addr types.Address) (*big.Int, error) {
	padded := common.LeftPadBytes(common.HexToAddress(string(addr)).Bytes(), 32)
	calldata := append(common.FromHex(erc20BalanceOfSelector), padded...)

	tokenAddr := common.HexToAddress(string(token))
	result, err := b.client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("forkclient: balanceOf(%s) on %s: %w", addr, token, err)
	}
	if len(result) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(result), nil
}

// CallReadOnly performs an unsent eth_call against token with the given
// calldata, for single-selector metadata reads (symbol/decimals) that
// don't warrant a full ABI binding.
func (b *EVMBackend) CallReadOnly(ctx context.Context, token types.Address, data []byte) ([]byte, error) {
	addr := common.HexToAddress(string(token))
	return b.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
}

// DecodeTransferCalldata extracts the recipient address per the
// transfer/transferFrom calldata-extraction rule in §4.1. It returns
// ("", false) for any other selector or undersized payload.
func DecodeTransferCalldata(data []byte) (types.Address, bool) {
	const transferSelector = "a9059cbb"
	const transferFromSelector = "23b872dd"

	hexData := strings.ToLower(common.Bytes2Hex(data))
	switch {
	case strings.HasPrefix(hexData, transferSelector) && len(data) >= 68:
		return types.CanonicalEVM(common.BytesToAddress(data[4:36]).Hex()), true
	case strings.HasPrefix(hexData, transferFromSelector) && len(data) >= 100:
		return types.CanonicalEVM(common.BytesToAddress(data[36:68]).Hex()), true
	default:
		return "", false
	}
}

func hexBig(n *big.Int) string {
	return "0x" + n.Text(16)
}

func hexUint64(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

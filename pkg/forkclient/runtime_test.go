package forkclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mev-engine/tx-simulator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

// fakeRuntimeServer answers a fixed set of JSON-RPC methods with
// canned results, keyed by method name.
func fakeRuntimeServer(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			t.Fatalf("unexpected RPC method %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      json.RawMessage(req.ID),
			"result":  result,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestRuntimeBackendConnectRecordsOrigin(t *testing.T) {
	srv := fakeRuntimeServer(t, map[string]interface{}{
		"chain_getBlockHash": "0xabc123",
		"chain_getHeader":    map[string]interface{}{"number": "0x2a"},
		"system_chain":       "Development",
	})
	defer srv.Close()

	b := NewRuntimeBackend()
	require.NoError(t, b.Connect(context.Background(), srv.URL))
	assert.Equal(t, "0xabc123", b.OriginHash())
}

func TestRuntimeBackendChainPropertiesCachesAfterFirstRead(t *testing.T) {
	srv := fakeRuntimeServer(t, map[string]interface{}{
		"chain_getBlockHash": "0x1",
		"chain_getHeader":    map[string]interface{}{"number": "0x1"},
		"system_chain":       "Development",
		"system_properties":  map[string]interface{}{"tokenSymbol": "DOT", "tokenDecimals": float64(10)},
	})
	defer srv.Close()

	b := NewRuntimeBackend()
	require.NoError(t, b.Connect(context.Background(), srv.URL))

	symbol, decimals, err := b.ChainProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DOT", symbol)
	assert.Equal(t, uint8(10), decimals)

	symbol2, decimals2, err2 := b.ChainProperties(context.Background())
	require.NoError(t, err2)
	assert.Equal(t, symbol, symbol2)
	assert.Equal(t, decimals, decimals2)
}

func TestRuntimeBackendNativeBalance(t *testing.T) {
	srv := fakeRuntimeServer(t, map[string]interface{}{
		"chain_getBlockHash": "0x1",
		"chain_getHeader":    map[string]interface{}{"number": "0x1"},
		"system_chain":       "Development",
		"system_account": map[string]interface{}{
			"data": map[string]interface{}{
				"free":     "0x64",
				"reserved": "0xa",
				"frozen":   "0x0",
			},
		},
	})
	defer srv.Close()

	b := NewRuntimeBackend()
	require.NoError(t, b.Connect(context.Background(), srv.URL))

	balance, err := b.NativeBalance(context.Background(), types.Address("5Some"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance.Free.Int64())
	assert.Equal(t, int64(10), balance.Reserved.Int64())
	assert.Equal(t, int64(0), balance.Frozen.Int64())
}

func TestRuntimeBackendDryRunFallsBackToOptimisticSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Method {
		case "chain_getBlockHash":
			writeResult(t, w, req.ID, "0x1")
		case "chain_getHeader":
			writeResult(t, w, req.ID, map[string]interface{}{"number": "0x1"})
		default:
			writeError(t, w, req.ID)
		}
	}))
	defer srv.Close()

	b := NewRuntimeBackend()
	require.NoError(t, b.Connect(context.Background(), srv.URL))

	result := b.DryRun(context.Background(), "0xdeadbeef", types.Address("5Some"))
	assert.True(t, result.Success)
}

func writeResult(t *testing.T, w http.ResponseWriter, id json.RawMessage, result interface{}) {
	t.Helper()
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": result}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func writeError(t *testing.T, w http.ResponseWriter, id json.RawMessage) {
	t.Helper()
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestParseHexUint(t *testing.T) {
	assert.Equal(t, uint64(42), parseHexUint("0x2a"))
	assert.Equal(t, uint64(0), parseHexUint("0x0"))
}

func TestHexToBig(t *testing.T) {
	assert.Equal(t, int64(0), hexToBig("").Int64())
	assert.Equal(t, int64(255), hexToBig("0xff").Int64())
}

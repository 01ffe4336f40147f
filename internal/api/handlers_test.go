package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mev-engine/tx-simulator/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postSimulate(t *testing.T, h *Handlers, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/simulate", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h.Simulate(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestSimulateRejectsMalformedJSON(t *testing.T) {
	h := &Handlers{}
	req := httptest.NewRequest(http.MethodPost, "/simulate", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.Simulate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "invalid JSON")
}

func TestSimulateRequiresExactlyOneBranch(t *testing.T) {
	h := &Handlers{}

	w := postSimulate(t, h, map[string]interface{}{"sender": "0xabc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "exactly one of")

	w = postSimulate(t, h, map[string]interface{}{
		"sender":      "0xabc",
		"transaction": map[string]string{"to": "0xdef"},
		"extrinsic":   map[string]string{"pallet": "balances"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "exactly one of")
}

func TestSimulateRequiresSender(t *testing.T) {
	h := &Handlers{}
	w := postSimulate(t, h, map[string]interface{}{
		"transaction": map[string]string{"to": "0x1111111111111111111111111111111111111111"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "sender is required")
}

func TestSimulateEVMBranchRejectsUnconfiguredBackend(t *testing.T) {
	h := &Handlers{}
	w := postSimulate(t, h, map[string]interface{}{
		"sender":      "0x1111111111111111111111111111111111111111",
		"transaction": map[string]string{"to": "0x2222222222222222222222222222222222222222"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "evm backend not configured")
}

func TestSimulateRuntimeBranchRejectsUnconfiguredBackend(t *testing.T) {
	h := &Handlers{}
	w := postSimulate(t, h, map[string]interface{}{
		"sender":    "5Sender",
		"extrinsic": map[string]string{"pallet": "balances", "method": "transfer"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "runtime backend not configured")
}

func TestSimulateRuntimeBranchRequiresRawHexOrCall(t *testing.T) {
	h := &Handlers{runtimeEngine: &engine.RuntimeEngine{}}
	w := postSimulate(t, h, map[string]interface{}{
		"sender":    "5Sender",
		"extrinsic": map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "rawHex or")
}

func TestIsWellFormedEVMAddress(t *testing.T) {
	assert.True(t, isWellFormedEVMAddress("0x1111111111111111111111111111111111111111"))
	assert.True(t, isWellFormedEVMAddress("1111111111111111111111111111111111111111"))
	assert.False(t, isWellFormedEVMAddress("0x1234"))
	assert.False(t, isWellFormedEVMAddress("0xzzzz111111111111111111111111111111111111"))
}

func TestDecodeHexOrEmpty(t *testing.T) {
	b, err := decodeHexOrEmpty("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = decodeHexOrEmpty("0xa1b2")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa1, 0xb2}, b)

	b, err = decodeHexOrEmpty("0xa1b")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x1b}, b)

	_, err = decodeHexOrEmpty("0xzz")
	assert.Error(t, err)
}

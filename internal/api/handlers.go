package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/mev-engine/tx-simulator/pkg/engine"
	"github.com/mev-engine/tx-simulator/pkg/metrics"
	"github.com/mev-engine/tx-simulator/pkg/types"
)

// transactionPayload is the kind-A branch of a /simulate request body.
type transactionPayload struct {
	To       string  `json:"to"`
	Data     string  `json:"data,omitempty"`
	Value    string  `json:"value,omitempty"`
	GasLimit *uint64 `json:"gasLimit,omitempty"`
}

// extrinsicPayload is the kind-B branch of a /simulate request body.
type extrinsicPayload struct {
	Pallet string        `json:"pallet,omitempty"`
	Method string        `json:"method,omitempty"`
	Args   []interface{} `json:"args,omitempty"`
	RawHex string        `json:"rawHex,omitempty"`
}

// simulateRequestBody is the full discriminated /simulate request.
type simulateRequestBody struct {
	Sender      string              `json:"sender"`
	Transaction *transactionPayload `json:"transaction,omitempty"`
	Extrinsic   *extrinsicPayload   `json:"extrinsic,omitempty"`
	TrackTokens []string            `json:"trackTokens,omitempty"`
	TrackAssets []string            `json:"trackAssets,omitempty"`
}

// Handlers wires the HTTP surface to the two simulation engines.
type Handlers struct {
	evmEngine     *engine.EVMEngine
	runtimeEngine *engine.RuntimeEngine
	collector     *metrics.Collector
	recent        *RecentBuffer

	evmHealth     HealthChecker
	runtimeHealth HealthChecker
}

// NewHandlers builds the API handlers over the two engines. Either
// engine may be nil when only one backend kind is configured; the
// corresponding request branch then yields 400. recent may be nil,
// disabling the GET /recent activity feed.
func NewHandlers(evmEngine *engine.EVMEngine, runtimeEngine *engine.RuntimeEngine, collector *metrics.Collector, recent *RecentBuffer, evmHealth, runtimeHealth HealthChecker) *Handlers {
	return &Handlers{
		evmEngine:     evmEngine,
		runtimeEngine: runtimeEngine,
		collector:     collector,
		recent:        recent,
		evmHealth:     evmHealth,
		runtimeHealth: runtimeHealth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeValidationError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// Simulate serves POST /simulate, dispatching to kind A or kind B
// based on which of transaction/extrinsic is present.
func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	var body simulateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidationError(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	hasTx := body.Transaction != nil
	hasExtrinsic := body.Extrinsic != nil
	if hasTx == hasExtrinsic {
		writeValidationError(w, "request must include exactly one of transaction or extrinsic")
		return
	}
	if strings.TrimSpace(body.Sender) == "" {
		writeValidationError(w, "sender is required")
		return
	}

	if hasTx {
		h.simulateEVM(w, r, body)
		return
	}
	h.simulateRuntime(w, r, body)
}

func (h *Handlers) simulateEVM(w http.ResponseWriter, r *http.Request, body simulateRequestBody) {
	if h.evmEngine == nil {
		writeValidationError(w, "evm backend not configured")
		return
	}
	if h.evmEngine.IsHalted() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "evm backend permanently degraded after a fatal restore failure"})
		return
	}
	tx := body.Transaction
	if !isWellFormedEVMAddress(body.Sender) {
		writeValidationError(w, "sender is not a well-formed address")
		return
	}
	if !isWellFormedEVMAddress(tx.To) {
		writeValidationError(w, "transaction.to is not a well-formed address")
		return
	}

	data, err := decodeHexOrEmpty(tx.Data)
	if err != nil {
		writeValidationError(w, fmt.Sprintf("invalid data: %v", err))
		return
	}

	var value *big.Int
	if strings.TrimSpace(tx.Value) != "" {
		value, err = types.ParseAmount(tx.Value)
		if err != nil {
			writeValidationError(w, fmt.Sprintf("invalid value: %v", err))
			return
		}
	}

	trackTokens := make([]types.Address, 0, len(body.TrackTokens))
	for _, t := range body.TrackTokens {
		if !isWellFormedEVMAddress(t) {
			writeValidationError(w, fmt.Sprintf("trackTokens entry %q is not a well-formed address", t))
			return
		}
		trackTokens = append(trackTokens, types.CanonicalEVM(t))
	}

	req := types.EVMRequest{
		Sender:      types.CanonicalEVM(body.Sender),
		To:          types.CanonicalEVM(tx.To),
		Data:        data,
		Value:       value,
		GasLimit:    tx.GasLimit,
		TrackTokens: trackTokens,
	}

	start := time.Now()
	resp, err := h.evmEngine.Simulate(r.Context(), req)
	h.respondSimulation(w, "evm", resp, err, time.Since(start))
}

func (h *Handlers) simulateRuntime(w http.ResponseWriter, r *http.Request, body simulateRequestBody) {
	if h.runtimeEngine == nil {
		writeValidationError(w, "runtime backend not configured")
		return
	}
	if h.runtimeEngine.IsHalted() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "runtime backend permanently degraded after a fatal restore failure"})
		return
	}
	ext := body.Extrinsic
	if ext.RawHex == "" && ext.Pallet == "" {
		writeValidationError(w, "extrinsic must include rawHex or {pallet, method, args}")
		return
	}

	trackAssets := make([]types.FungibleID, 0, len(body.TrackAssets))
	for _, a := range body.TrackAssets {
		trackAssets = append(trackAssets, types.FungibleID(a))
	}

	req := types.RuntimeRequest{
		Sender:      types.CanonicalRuntime(body.Sender),
		RawHex:      ext.RawHex,
		TrackAssets: trackAssets,
	}
	if ext.RawHex == "" {
		req.Call = &types.RuntimeCall{Pallet: ext.Pallet, Method: ext.Method, Args: ext.Args}
	}

	start := time.Now()
	resp, err := h.runtimeEngine.Simulate(r.Context(), req)
	h.respondSimulation(w, "runtime", resp, err, time.Since(start))
}

// respondSimulation maps an engine result to the §6/§7 status-code
// contract: 200 on success, 422 on a decoded business failure, 500 on
// a fatal restore failure.
func (h *Handlers) respondSimulation(w http.ResponseWriter, kind string, resp *types.SimulationResponse, err error, elapsed time.Duration) {
	var fatal *engine.FatalError
	if errors.As(err, &fatal) {
		if h.collector != nil {
			h.collector.RecordFatal(kind)
		}
		if h.recent != nil {
			h.recent.Record(RecentEntry{Time: time.Now(), Kind: kind, Fatal: true, Summary: fatal.Error()})
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fatal.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.recent != nil {
		h.recent.Record(RecentEntry{Time: time.Now(), Kind: kind, Success: resp.Success, Summary: summarize(kind, resp)})
	}

	if resp.Success {
		if h.collector != nil {
			h.collector.RecordSuccess(kind, elapsed)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if h.collector != nil {
		h.collector.RecordFailure(kind, elapsed)
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func isWellFormedEVMAddress(addr string) bool {
	addr = strings.TrimPrefix(strings.TrimSpace(addr), "0x")
	if len(addr) != 40 {
		return false
	}
	_, err := hex.DecodeString(addr)
	return err == nil
}

func decodeHexOrEmpty(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

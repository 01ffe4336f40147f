package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/mev-engine/tx-simulator/pkg/types"
)

// RecentEntry summarizes one completed /simulate call for the monitor
// TUI: enough to render a scrolling activity list without shipping the
// full SimulationResponse (balance deltas, decoded errors, etc.) back
// out on every poll.
type RecentEntry struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Success bool      `json:"success"`
	Fatal   bool      `json:"fatal"`
	Summary string    `json:"summary"`
}

// RecentBuffer is a fixed-capacity ring buffer of the most recent
// simulation outcomes, read by GET /recent.
type RecentBuffer struct {
	mu      sync.Mutex
	entries []RecentEntry
	cap     int
	next    int
	full    bool
}

// NewRecentBuffer creates a buffer holding up to capacity entries.
func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RecentBuffer{entries: make([]RecentEntry, capacity), cap: capacity}
}

// Record appends e, overwriting the oldest entry once the buffer fills.
func (b *RecentBuffer) Record(e RecentEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % b.cap
	if b.next == 0 {
		b.full = true
	}
}

// Snapshot returns entries oldest-first.
func (b *RecentBuffer) Snapshot() []RecentEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]RecentEntry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}

	out := make([]RecentEntry, b.cap)
	copy(out, b.entries[b.next:])
	copy(out[b.cap-b.next:], b.entries[:b.next])
	return out
}

func summarize(kind string, resp *types.SimulationResponse) string {
	if resp == nil {
		return kind + " request failed"
	}
	if !resp.Success {
		if resp.Error != nil {
			return resp.Error.Message
		}
		return kind + " simulation failed"
	}
	return kind + " simulation succeeded"
}

// RecentHandler serves GET /recent: the buffered activity list the
// monitor TUI polls alongside /health.
func (h *Handlers) RecentHandler(w http.ResponseWriter, r *http.Request) {
	var entries []RecentEntry
	if h.recent != nil {
		entries = h.recent.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"recent": entries})
}

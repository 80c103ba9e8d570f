package spoke

import "sync"

// healthState tracks the status this spoke's own health endpoint reports.
// Ready toggles Passing/Critical around the registration lifecycle;
// SetDegraded lets handlers report a finer-grained Warning/Critical with
// detail when a dependency they rely on is unhealthy.
type healthState struct {
	mu     sync.Mutex
	ready  bool
	status string
	detail string
}

func newHealthState() *healthState {
	return &healthState{status: "Critical", detail: "not yet registered"}
}

func (h *healthState) setReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
	if ready {
		h.status = "Passing"
		h.detail = ""
	} else {
		h.status = "Critical"
		h.detail = "shutting down"
	}
}

func (h *healthState) setStatus(status, detail string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.detail = detail
}

func (h *healthState) snapshot() (status string, detail string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.detail
}

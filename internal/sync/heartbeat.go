package sync

import (
	"sync"
	"time"

	obsmetrics "github.com/vistrive/assetnext/internal/observability/metrics"
)

// Heartbeat is the process-wide signal that synced data changed. The
// revision advances at most once per scheduler tick, and only when the
// tick merged at least one record; pollers compare revisions instead of
// diffing asset lists.
type Heartbeat struct {
	mu            sync.Mutex
	revision      uint64
	lastChangeAt  time.Time
	lastCheckedAt time.Time
}

// HeartbeatStatus is a point-in-time snapshot for the status endpoint.
type HeartbeatStatus struct {
	Revision      uint64    `json:"revision"`
	LastChangeAt  time.Time `json:"last_change_at"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

func NewHeartbeat() *Heartbeat {
	return &Heartbeat{}
}

// Advance bumps the revision after a tick that merged records.
func (h *Heartbeat) Advance(now time.Time) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.revision++
	h.lastChangeAt = now
	h.lastCheckedAt = now
	obsmetrics.Sync().SetRevision(h.revision)
	return h.revision
}

// MarkChecked records a completed tick that changed nothing.
func (h *Heartbeat) MarkChecked(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCheckedAt = now
}

func (h *Heartbeat) Revision() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.revision
}

func (h *Heartbeat) Status() HeartbeatStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HeartbeatStatus{
		Revision:      h.revision,
		LastChangeAt:  h.lastChangeAt,
		LastCheckedAt: h.lastCheckedAt,
	}
}

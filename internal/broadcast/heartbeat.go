package broadcast

import (
	"context"
	"time"
)

// DefaultHeartbeatInterval bounds how stale a late-joining view can be.
const DefaultHeartbeatInterval = 5 * time.Second

// Heartbeat periodically re-announces the authoritative view's index.
type Heartbeat struct {
	Interval time.Duration
	Index    func() int
	Publish  func(Message)
}

// Run announces once immediately and then on every tick until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) {
	interval := h.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	h.beat()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

func (h *Heartbeat) beat() {
	h.Publish(HeartbeatMessage(h.Index()))
}

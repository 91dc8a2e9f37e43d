package broadcast

import (
	"context"
	"sync"

	"github.com/slidrapp/slidr/internal/metrics"
)

// LocalTransport fans messages out to subscribers in the same process.
type LocalTransport struct {
	mu       sync.RWMutex
	sessions map[string]map[*mailbox]struct{}
	closed   bool
}

// NewLocalTransport creates an empty in-process hub.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{
		sessions: make(map[string]map[*mailbox]struct{}),
	}
}

// Name implements Transport.
func (t *LocalTransport) Name() string { return "local" }

// Subscribe implements Transport.
func (t *LocalTransport) Subscribe(_ context.Context, session, peerID string, fn func(Message)) (func(), error) {
	box := newMailbox(t.Name(), peerID, fn)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		box.close()
		return func() {}, nil
	}
	subs, ok := t.sessions[session]
	if !ok {
		subs = make(map[*mailbox]struct{})
		t.sessions[session] = subs
	}
	subs[box] = struct{}{}
	t.mu.Unlock()

	return func() {
		t.remove(session, box)
	}, nil
}

func (t *LocalTransport) remove(session string, box *mailbox) {
	box.close()

	t.mu.Lock()
	defer t.mu.Unlock()

	subs, ok := t.sessions[session]
	if !ok {
		return
	}
	delete(subs, box)
	if len(subs) == 0 {
		delete(t.sessions, session)
	}
}

// Publish implements Transport.
func (t *LocalTransport) Publish(session string, msg Message) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}
	metrics.SyncPublished.WithLabelValues(t.Name(), string(msg.ID)).Inc()
	for box := range t.sessions[session] {
		box.deliver(msg)
	}
}

// Subscribers returns the number of live subscriptions for a session.
func (t *LocalTransport) Subscribers(session string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions[session])
}

// Close stops every subscription.
func (t *LocalTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	var boxes []*mailbox
	for session, subs := range t.sessions {
		for box := range subs {
			boxes = append(boxes, box)
		}
		delete(t.sessions, session)
	}
	t.mu.Unlock()

	// Outside the lock: close waits for running callbacks, which may publish.
	for _, box := range boxes {
		box.close()
	}
	return nil
}

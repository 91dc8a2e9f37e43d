package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/slidrapp/slidr/internal/metrics"
)

// mailboxSize bounds the per-subscriber backlog before messages are dropped.
const mailboxSize = 64

// Transport is a publish/subscribe channel keyed by session id.
//
// Implementations never deliver a message to the subscription whose peer id
// matches the message sender, preserve order per sender and receiver, and
// never block in Publish. Delivery is best effort.
type Transport interface {
	Name() string
	Subscribe(ctx context.Context, session, peerID string, fn func(Message)) (unsubscribe func(), err error)
	Publish(session string, msg Message)
	Close() error
}

// mailbox serializes deliveries to one subscriber on its own goroutine.
// mu is held for the whole callback, so close can wait for it.
type mailbox struct {
	transport string
	peerID    string
	queue     chan Message
	fn        func(Message)
	mu        sync.Mutex
	closed    atomic.Bool
	done      chan struct{}
	once      sync.Once
}

func newMailbox(transport, peerID string, fn func(Message)) *mailbox {
	m := &mailbox{
		transport: transport,
		peerID:    peerID,
		queue:     make(chan Message, mailboxSize),
		fn:        fn,
		done:      make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *mailbox) run() {
	for {
		select {
		case <-m.done:
			return
		case msg := <-m.queue:
			if !m.dispatch(msg) {
				return
			}
		}
	}
}

func (m *mailbox) dispatch(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return false
	}
	m.fn(msg)
	metrics.SyncDelivered.WithLabelValues(m.transport, string(msg.ID)).Inc()
	return true
}

// deliver enqueues msg unless it came from this subscriber or the backlog is full.
func (m *mailbox) deliver(msg Message) {
	if msg.Sender != "" && msg.Sender == m.peerID {
		return
	}
	if m.closed.Load() {
		return
	}
	select {
	case m.queue <- msg:
	case <-m.done:
	default:
		metrics.SyncDropped.WithLabelValues(m.transport, "mailbox_full").Inc()
	}
}

// close stops deliveries and waits for a running callback to return. No
// callback starts after close returns. It must not be called from fn.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed.Store(true)
	m.mu.Unlock()

	m.once.Do(func() { close(m.done) })
}

package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// collector records delivered messages for assertions from the test goroutine.
type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) add(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) all() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) waitLen(t *testing.T, n int) []Message {
	t.Helper()
	require.Eventually(t, func() bool { return c.count() >= n }, waitFor, tick)
	return c.all()
}

func sent(sender string, m Message) Message {
	m.Sender = sender
	return m
}

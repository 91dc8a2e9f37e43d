package broadcast

import "sync"

// ConfettiOptions configures a Confetti trigger.
type ConfettiOptions struct {
	Post    func(Message)
	OnFire  func(kind string)
	OnClear func()
}

// Confetti tracks transient reactions. Reactions are not replayed by the
// heartbeat; a missed one is never shown.
type Confetti struct {
	mu      sync.Mutex
	active  []string
	post    func(Message)
	onFire  func(string)
	onClear func()
}

// NewConfetti creates a trigger with no active reactions.
func NewConfetti(opts ConfettiOptions) *Confetti {
	return &Confetti{
		post:    opts.Post,
		onFire:  opts.OnFire,
		onClear: opts.OnClear,
	}
}

// Fire shows a reaction locally and broadcasts it.
func (c *Confetti) Fire(kind string) {
	c.fire(kind)
	if c.post != nil {
		c.post(ReactionMessage(kind))
	}
}

// Clear removes reactions locally and broadcasts the clear.
func (c *Confetti) Clear() {
	c.clear()
	if c.post != nil {
		c.post(ClearReactionMessage())
	}
}

// Active returns the reactions currently displayed, oldest first.
func (c *Confetti) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.active))
	copy(out, c.active)
	return out
}

func (c *Confetti) fire(kind string) {
	if kind == "" {
		return
	}
	c.mu.Lock()
	c.active = append(c.active, kind)
	c.mu.Unlock()

	if c.onFire != nil {
		c.onFire(kind)
	}
}

func (c *Confetti) clear() {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()

	if c.onClear != nil {
		c.onClear()
	}
}

// Handlers returns the reaction entries.
func (c *Confetti) Handlers() []HandlerEntry {
	return []HandlerEntry{
		{Type: TypeReaction, Handler: func(m Message) { c.fire(m.Kind) }},
		{Type: TypeClearReaction, Handler: func(Message) { c.clear() }},
	}
}

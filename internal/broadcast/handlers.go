package broadcast

// Handler receives the payload of one inbound message.
type Handler func(Message)

// HandlerEntry pairs a message type with its callback.
type HandlerEntry struct {
	Type    MessageType
	Handler Handler
}

// Handlers is the merged dispatch table.
type Handlers map[MessageType]Handler

// MergeHandlers folds each feature's entries into one table. A later entry
// for the same type replaces an earlier one.
func MergeHandlers(features ...[]HandlerEntry) Handlers {
	table := make(Handlers)
	for _, entries := range features {
		for _, e := range entries {
			if e.Handler == nil {
				continue
			}
			table[e.Type] = e.Handler
		}
	}
	return table
}

// Dispatch invokes the callback registered for msg's type. Unknown types are
// ignored. Reports whether a callback ran.
func (h Handlers) Dispatch(msg Message) bool {
	fn, ok := h[msg.ID]
	if !ok {
		return false
	}
	fn(msg)
	return true
}

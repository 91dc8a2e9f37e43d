// Package broadcast keeps independently rendered views of one presentation
// on the same slide. Views exchange small tagged messages over interchangeable
// publish/subscribe transports scoped by a session id.
package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageType is the tag carried in the wire field "id".
type MessageType string

const (
	TypeSlideIndex    MessageType = "slide-index"
	TypeHeartbeat     MessageType = "heartbeat"
	TypeReaction      MessageType = "reaction"
	TypeClearReaction MessageType = "clear-reaction"
)

// ErrInvalidMessage is returned by DecodeMessage for frames that cannot be dispatched.
var ErrInvalidMessage = errors.New("invalid message")

// Message is the wire record shared by every transport.
type Message struct {
	ID        MessageType `json:"id"`
	Index     *int        `json:"index,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Sender    string      `json:"sender,omitempty"`
	Nonce     string      `json:"nonce,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func newMessage(t MessageType) Message {
	return Message{
		ID:        t,
		Nonce:     ulid.Make().String(),
		Timestamp: time.Now().UnixMilli(),
	}
}

// SlideIndexMessage announces a navigation to index.
func SlideIndexMessage(index int) Message {
	m := newMessage(TypeSlideIndex)
	m.Index = &index
	return m
}

// HeartbeatMessage re-announces the current index.
func HeartbeatMessage(index int) Message {
	m := newMessage(TypeHeartbeat)
	m.Index = &index
	return m
}

// ReactionMessage fires a transient reaction of the given kind.
func ReactionMessage(kind string) Message {
	m := newMessage(TypeReaction)
	m.Kind = kind
	return m
}

// ClearReactionMessage removes displayed reactions.
func ClearReactionMessage() Message {
	return newMessage(TypeClearReaction)
}

// SlideIndex returns the carried index, if any.
func (m Message) SlideIndex() (int, bool) {
	if m.Index == nil {
		return 0, false
	}
	return *m.Index, true
}

// Encode marshals the message to its JSON wire form.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a wire frame. Unknown tags decode fine and are
// ignored later by dispatch.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if m.ID == "" {
		return Message{}, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	return m, nil
}

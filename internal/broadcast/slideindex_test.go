package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type postRecorder struct {
	msgs []Message
}

func (r *postRecorder) post(m Message) { r.msgs = append(r.msgs, m) }

func (r *postRecorder) indices() []int {
	out := make([]int, 0, len(r.msgs))
	for _, m := range r.msgs {
		if i, ok := m.SlideIndex(); ok {
			out = append(out, i)
		}
	}
	return out
}

func TestSlideIndexNavigationStaysInBounds(t *testing.T) {
	rec := &postRecorder{}
	s := NewSlideIndex(SlideIndexOptions{SlideCount: 3, Post: rec.post})

	s.NavPrevious()
	assert.Equal(t, 0, s.Index())

	s.NavNext()
	s.NavNext()
	s.NavNext()
	state := s.State()
	assert.Equal(t, 2, state.Index)
	assert.Equal(t, 2, state.Next)
	assert.Equal(t, 1, state.Previous)
	assert.True(t, state.Forward)

	assert.Equal(t, []int{0, 1, 2, 2}, rec.indices())
}

func TestSlideIndexDirection(t *testing.T) {
	s := NewSlideIndex(SlideIndexOptions{SlideCount: 5})
	s.SetSlideIndex(3)
	assert.True(t, s.State().Forward)

	s.NavPrevious()
	assert.False(t, s.State().Forward)
	assert.Equal(t, 2, s.Index())

	// Inbound positions never change direction.
	s.Handlers()[0].Handler(SlideIndexMessage(4))
	assert.Equal(t, 4, s.Index())
	assert.False(t, s.State().Forward)
}

func TestSlideIndexIgnorePost(t *testing.T) {
	rec := &postRecorder{}
	s := NewSlideIndex(SlideIndexOptions{SlideCount: 4, IgnorePost: true, Post: rec.post})

	s.NavNext()
	s.SetSlideIndex(3)

	assert.Equal(t, 3, s.Index())
	assert.Empty(t, rec.msgs)
}

func TestSlideIndexInboundClamped(t *testing.T) {
	s := NewSlideIndex(SlideIndexOptions{SlideCount: 3})
	table := MergeHandlers(s.Handlers())

	table.Dispatch(SlideIndexMessage(99))
	assert.Equal(t, 2, s.Index())

	table.Dispatch(HeartbeatMessage(-4))
	assert.Equal(t, 0, s.Index())

	table.Dispatch(Message{ID: TypeSlideIndex})
	assert.Equal(t, 0, s.Index(), "message without index is ignored")
}

func TestSlideIndexOnChangeOnlyOnChange(t *testing.T) {
	var changes []SlideState
	s := NewSlideIndex(SlideIndexOptions{
		SlideCount: 3,
		OnChange:   func(st SlideState) { changes = append(changes, st) },
	})
	table := MergeHandlers(s.Handlers())

	table.Dispatch(SlideIndexMessage(1))
	table.Dispatch(SlideIndexMessage(1))
	table.Dispatch(HeartbeatMessage(1))

	if assert.Len(t, changes, 1) {
		assert.Equal(t, 1, changes[0].Index)
	}
}

func TestSlideIndexUnknownCount(t *testing.T) {
	s := NewSlideIndex(SlideIndexOptions{})

	s.NavNext()
	state := s.State()
	assert.Equal(t, 0, state.Index)
	assert.Equal(t, 0, state.Next)

	s.SetSlideCount(4)
	s.NavNext()
	assert.Equal(t, 1, s.Index())

	s.SetSlideIndex(3)
	s.SetSlideCount(2)
	assert.Equal(t, 1, s.Index())
}

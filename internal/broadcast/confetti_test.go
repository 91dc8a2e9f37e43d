package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfettiFireAndClear(t *testing.T) {
	rec := &postRecorder{}
	var fired []string
	cleared := 0
	c := NewConfetti(ConfettiOptions{
		Post:    rec.post,
		OnFire:  func(kind string) { fired = append(fired, kind) },
		OnClear: func() { cleared++ },
	})

	c.Fire("love")
	c.Fire("clap")
	assert.Equal(t, []string{"love", "clap"}, c.Active())
	assert.Equal(t, []string{"love", "clap"}, fired)

	c.Clear()
	assert.Empty(t, c.Active())
	assert.Equal(t, 1, cleared)

	if assert.Len(t, rec.msgs, 3) {
		assert.Equal(t, TypeReaction, rec.msgs[0].ID)
		assert.Equal(t, "clap", rec.msgs[1].Kind)
		assert.Equal(t, TypeClearReaction, rec.msgs[2].ID)
	}
}

func TestConfettiInboundDoesNotRepublish(t *testing.T) {
	rec := &postRecorder{}
	c := NewConfetti(ConfettiOptions{Post: rec.post})
	table := MergeHandlers(c.Handlers())

	table.Dispatch(ReactionMessage("love"))
	table.Dispatch(ReactionMessage(""))
	assert.Equal(t, []string{"love"}, c.Active())

	table.Dispatch(ClearReactionMessage())
	assert.Empty(t, c.Active())
	assert.Empty(t, rec.msgs)
}

package game

import (
	"testing"

	"pkg.world.dev/duel/internal/assert"
)

func TestQueuePushGoesToNextGeneration(t *testing.T) {
	q := NewQueue()
	q.Push(StartGame{})

	_, ok := q.Pop()
	assert.Check(t, !ok, "pushed events must wait for a swap")
	assert.Equal(t, 1, q.NextLen())

	assert.Assert(t, q.Swap())
	ev, ok := q.Pop()
	assert.Assert(t, ok)
	assert.Equal(t, "start_game", ev.Name())
}

func TestQueueSwapOnlyWhenCurrentDrained(t *testing.T) {
	q := NewQueue()
	q.Push(StartTurn{Player: "a"}, StartTurn{Player: "b"})
	assert.Assert(t, q.Swap())

	// produced while processing the current generation
	q.Push(EndTurn{Player: "a"})
	assert.Check(t, !q.Swap(), "must not swap while current has events")

	first, _ := q.Pop()
	second, _ := q.Pop()
	assert.Equal(t, StartTurn{Player: "a"}, first)
	assert.Equal(t, StartTurn{Player: "b"}, second)
	assert.Equal(t, 0, q.CurrentLen())

	assert.Assert(t, q.Swap())
	third, ok := q.Pop()
	assert.Assert(t, ok)
	assert.Equal(t, "end_turn", third.Name())
	assert.Equal(t, 0, q.Len())
}

func TestQueueClear(t *testing.T) {
	q := NewQueue()
	q.Push(StartGame{})
	q.Swap()
	q.Push(StartGame{})
	assert.Equal(t, 2, q.Len())
	q.Clear()
	assert.Equal(t, 0, q.Len())
}

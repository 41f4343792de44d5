package room

import (
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/internal/assert"
	"pkg.world.dev/duel/protocol"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	set, err := card.Default()
	assert.NilError(t, err)
	logger := zerolog.New(io.Discard)
	rng := rand.New(rand.NewSource(3))
	return NewManager(func(roomID string) *game.Match {
		return game.NewMatch(roomID, game.DefaultRules(), set, rng)
	}, &logger, opts...)
}

type fixedSequence struct {
	next uint64
	err  error
}

func (s *fixedSequence) NextRoomNumber() (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	n := s.next
	s.next++
	return n, nil
}

func TestRoomIDsComeFromTheSequence(t *testing.T) {
	m := newTestManager(t, WithSequence(&fixedSequence{next: 40}))
	r, _, err := m.Join(player("alice"), testNow)
	assert.NilError(t, err)
	assert.Equal(t, "room_40", r.ID())

	_, _, err = m.Join(player("bob"), testNow)
	assert.NilError(t, err)
	r, _, err = m.Join(player("carol"), testNow)
	assert.NilError(t, err)
	assert.Equal(t, "room_41", r.ID())
}

func TestJoinFailsWhenNoRoomCanBeOpened(t *testing.T) {
	m := newTestManager(t, WithSequence(&fixedSequence{err: eris.New("redis is down")}))
	_, _, err := m.Join(player("alice"), testNow)
	assert.ErrorContains(t, err, "redis is down")

	_, ok := m.RoomOf(player("alice").ID)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func player(name string) Player {
	return Player{ID: game.PlayerID(name + "-id"), Name: name}
}

// tick processes every room once, the way the world does.
func tick(m *Manager, now time.Time) {
	for _, r := range m.Rooms() {
		r.Process(now)
	}
}

func TestJoinFillsRoomsInOrder(t *testing.T) {
	m := newTestManager(t)

	r1, matched, err := m.Join(player("alice"), testNow)
	assert.NilError(t, err)
	assert.Check(t, !matched)
	assert.Equal(t, "room_0", r1.ID())
	assert.True(t, r1.HasSpace())

	r2, matched, err := m.Join(player("bob"), testNow)
	assert.NilError(t, err)
	assert.Check(t, matched)
	assert.Equal(t, r1, r2)
	assert.False(t, r1.HasSpace())
	assert.Equal(t, 1, r1.Queue().NextLen())

	r3, matched, err := m.Join(player("carol"), testNow)
	assert.NilError(t, err)
	assert.Check(t, !matched)
	assert.Equal(t, "room_1", r3.ID())

	_, _, err = m.Join(player("alice"), testNow)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	got, ok := m.RoomOf(player("carol").ID)
	assert.Assert(t, ok)
	assert.Equal(t, r3, got)
	assert.Equal(t, 2, m.Len())

	opp, ok := r1.Opponent(player("alice").ID)
	assert.Assert(t, ok)
	assert.Equal(t, "bob", opp.Name)
}

func TestProcessStartsMatchOverTicks(t *testing.T) {
	m := newTestManager(t)
	r, _, err := m.Join(player("alice"), testNow)
	assert.NilError(t, err)
	_, _, err = m.Join(player("bob"), testNow)
	assert.NilError(t, err)

	// StartGame waits for the next generation
	tick(m, testNow)
	assert.Equal(t, protocol.PhaseStarting, r.Match().Phase())

	tick(m, testNow)
	assert.Equal(t, protocol.PhaseInProgress, r.Match().Phase())
	assert.Equal(t, "", string(r.Match().Turn()))

	tick(m, testNow)
	assert.Check(t, r.Match().Turn() != "")
	assert.Equal(t, r.TurnOwner(), r.Summary().Turn)
}

func TestProcessForcesEndOfTurnOnTimeout(t *testing.T) {
	m := newTestManager(t)
	r, _, _ := m.Join(player("alice"), testNow)
	_, _, _ = m.Join(player("bob"), testNow)
	for i := 0; i < 3; i++ {
		tick(m, testNow)
	}
	first := r.Match().Turn()
	assert.Check(t, first != "")

	late := testNow.Add(game.DefaultRules().TurnDuration)
	results := r.Process(late)
	assert.Check(t, len(results) > 0)
	assert.Equal(t, game.PlayerID(""), r.Match().Turn())

	r.Process(late)
	assert.Check(t, r.Match().Turn() != first)
	assert.Check(t, r.Match().Turn() != "")
}

func TestLeaveClosesRoomAndForfeits(t *testing.T) {
	m := newTestManager(t)
	r, _, _ := m.Join(player("alice"), testNow)
	_, _, _ = m.Join(player("bob"), testNow)
	tick(m, testNow)
	tick(m, testNow)

	closed, opp, forfeit, err := m.Leave(player("alice").ID, testNow)
	assert.NilError(t, err)
	assert.Equal(t, r, closed)
	assert.Assert(t, opp != nil)
	assert.Equal(t, "bob", opp.Name)
	assert.Assert(t, forfeit != nil)
	assert.Equal(t, player("bob").ID, forfeit.Outcome.Winner)

	_, ok := m.RoomOf(player("bob").ID)
	assert.Check(t, !ok, "opponent is released")
	assert.Equal(t, 0, m.Len())

	_, _, _, err = m.Leave(player("alice").ID, testNow)
	assert.ErrorIs(t, err, ErrNotInRoom)

	// bob can queue again
	again, _, err := m.Join(player("bob"), testNow)
	assert.NilError(t, err)
	assert.Equal(t, "room_1", again.ID())
}

func TestLeaveWhileWaiting(t *testing.T) {
	m := newTestManager(t)
	_, _, _ = m.Join(player("alice"), testNow)
	_, opp, forfeit, err := m.Leave(player("alice").ID, testNow)
	assert.NilError(t, err)
	assert.Check(t, opp == nil)
	assert.Check(t, forfeit == nil)
	assert.Equal(t, 0, m.Len())
}

func TestCloseFinished(t *testing.T) {
	m := newTestManager(t)
	r, _, _ := m.Join(player("alice"), testNow)
	_, _, _ = m.Join(player("bob"), testNow)
	_, _, _ = m.Join(player("carol"), testNow)
	tick(m, testNow)
	tick(m, testNow)

	r.Match().Apply(game.StateChange{Phase: protocol.PhaseFinished, Winner: player("alice").ID}, testNow)
	r.Match().Apply(game.EndGame{Winner: player("alice").ID}, testNow)

	closed := m.CloseFinished()
	assert.Len(t, closed, 1)
	assert.Equal(t, "room_0", closed[0].ID())
	assert.Equal(t, 1, m.Len())
	assert.Len(t, m.List(), 1)
	assert.Equal(t, "room_1", m.List()[0].ID)
}

func TestChatSequence(t *testing.T) {
	m := newTestManager(t)
	r, _, _ := m.Join(player("alice"), testNow)
	assert.Equal(t, uint64(1), r.NextChatSequence())
	assert.Equal(t, uint64(2), r.NextChatSequence())
}

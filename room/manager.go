package room

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/log"
)

var (
	ErrAlreadyInRoom = eris.New("player is already in a room")
	ErrNotInRoom     = eris.New("player is not in a room")
)

// MatchFactory builds the match for a new room.
type MatchFactory func(roomID string) *game.Match

// Sequence numbers new rooms. Room ids are "room_<n>".
type Sequence interface {
	NextRoomNumber() (uint64, error)
}

// counter is the in-memory Sequence used when no other is configured.
type counter struct {
	next uint64
}

func (c *counter) NextRoomNumber() (uint64, error) {
	n := c.next
	c.next++
	return n, nil
}

type Manager struct {
	rooms    map[string]*Room
	order    []string
	byPlayer map[game.PlayerID]string
	seq      Sequence
	newMatch MatchFactory
	logger   *zerolog.Logger
}

type ManagerOption func(*Manager)

func WithSequence(seq Sequence) ManagerOption {
	return func(m *Manager) {
		if seq != nil {
			m.seq = seq
		}
	}
}

func NewManager(newMatch MatchFactory, logger *zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		rooms:    map[string]*Room{},
		order:    make([]string, 0),
		byPlayer: map[game.PlayerID]string{},
		seq:      &counter{},
		newMatch: newMatch,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Join seats the player in the oldest room with space, or creates a new room. matched is true when the room just
// filled up, in which case the StartGame event has been queued.
func (m *Manager) Join(p Player, now time.Time) (r *Room, matched bool, err error) {
	if _, ok := m.byPlayer[p.ID]; ok {
		return nil, false, ErrAlreadyInRoom
	}
	for _, id := range m.order {
		if candidate := m.rooms[id]; candidate.HasSpace() {
			r = candidate
			break
		}
	}
	if r == nil {
		if r, err = m.create(now); err != nil {
			return nil, false, err
		}
	}
	if err := r.match.Seat(p.ID, p.Name); err != nil {
		return nil, false, eris.Wrapf(err, "failed to seat player in %s", r.id)
	}
	r.players = append(r.players, p)
	m.byPlayer[p.ID] = r.id

	if r.match.Full() {
		r.queue.Push(game.StartGame{})
		log.Room(r.logger, zerolog.InfoLevel, r)
		return r, true, nil
	}
	return r, false, nil
}

func (m *Manager) create(now time.Time) (*Room, error) {
	n, err := m.seq.NextRoomNumber()
	if err != nil {
		return nil, eris.Wrap(err, "failed to open a room")
	}
	id := fmt.Sprintf("room_%d", n)
	r := &Room{
		id:        id,
		players:   make([]Player, 0, game.Seats),
		match:     m.newMatch(id),
		queue:     game.NewQueue(),
		createdAt: now,
		logger:    log.CreateRoomLogger(m.logger, id),
	}
	m.rooms[id] = r
	m.order = append(m.order, id)
	r.logger.Debug().Msg("room created")
	return r, nil
}

// Leave removes the player and closes their room. The room is returned so the caller can notify the opponent,
// who is also released from the room. forfeit is set when leaving ended a running match, or settled one that was
// already decided but not yet recorded.
func (m *Manager) Leave(id game.PlayerID, now time.Time) (r *Room, opponent *Player, forfeit *game.Result, err error) {
	roomID, ok := m.byPlayer[id]
	if !ok {
		return nil, nil, nil, ErrNotInRoom
	}
	r = m.rooms[roomID]
	if opp, ok := r.Opponent(id); ok {
		opponent = &opp
	}
	forfeit = r.match.Forfeit(id, now)
	m.close(r)
	return r, opponent, forfeit, nil
}

// CloseFinished closes every room whose match has ended and returns them.
func (m *Manager) CloseFinished() []*Room {
	closed := make([]*Room, 0)
	for _, id := range m.order {
		if r := m.rooms[id]; r.match.Ended() {
			closed = append(closed, r)
		}
	}
	for _, r := range closed {
		m.close(r)
	}
	return closed
}

func (m *Manager) close(r *Room) {
	for _, p := range r.players {
		delete(m.byPlayer, p.ID)
	}
	delete(m.rooms, r.id)
	for i, id := range m.order {
		if id == r.id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	r.queue.Clear()
	r.logger.Debug().Msg("room closed")
}

func (m *Manager) RoomOf(id game.PlayerID) (*Room, bool) {
	roomID, ok := m.byPlayer[id]
	if !ok {
		return nil, false
	}
	return m.rooms[roomID], true
}

func (m *Manager) Get(id string) (*Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// Rooms returns the open rooms in creation order.
func (m *Manager) Rooms() []*Room {
	out := make([]*Room, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rooms[id])
	}
	return out
}

func (m *Manager) List() []Summary {
	out := make([]Summary, 0, len(m.order))
	for _, r := range m.Rooms() {
		out = append(out, r.Summary())
	}
	return out
}

func (m *Manager) Len() int {
	return len(m.rooms)
}

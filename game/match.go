// Package game implements the rules of a two player card duel as a state machine driven by events.
package game

import (
	"math/rand"
	"time"

	"github.com/rotisserie/eris"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/protocol"
)

const Seats = 2

var (
	ErrRoomFull      = eris.New("match already has two players")
	ErrAlreadySeated = eris.New("player is already seated")
	ErrStarted       = eris.New("match has already started")
)

// Reject reasons sent back to clients.
const (
	ReasonNotInProgress = "game is not in progress"
	ReasonNotYourTurn   = "not your turn"
	ReasonNotInHand     = "card not in hand"
	ReasonNoEnergy      = "not enough energy"
	ReasonDeckEmpty     = "deck is empty"
	ReasonBlocking      = "already blocking"
	ReasonNotSeated     = "player is not in this match"
	ReasonUnknownTarget = "unknown target card"
)

// Outcome reasons.
const (
	OutcomeDefeat  = "defeat"
	OutcomeForfeit = "forfeit"
)

type Rules struct {
	InitialHandSize int
	StartingHealth  int
	MaxEnergy       int
	TurnDuration    time.Duration
}

func DefaultRules() Rules {
	return Rules{
		InitialHandSize: 5,
		StartingHealth:  20,
		MaxEnergy:       10,
		TurnDuration:    30 * time.Second,
	}
}

type seat struct {
	id       PlayerID
	name     string
	deck     []card.Card
	hand     []card.Card
	health   int
	energy   int
	turns    int
	blocking bool
}

// Match holds the mutable state of one game. It is not safe for concurrent use; the world tick owns it.
type Match struct {
	roomID   string
	rules    Rules
	set      *card.Set
	registry *card.Registry
	rng      *rand.Rand

	seats      []*seat
	phase      protocol.Phase
	winner     PlayerID
	reason     string
	turn       PlayerID
	turnNumber int
	deadline   time.Time
	discard    []card.Card
	ended      bool
}

func NewMatch(roomID string, rules Rules, set *card.Set, rng *rand.Rand) *Match {
	return &Match{
		roomID:   roomID,
		rules:    rules,
		set:      set,
		registry: card.NewRegistry(set.DeckSize() * Seats),
		rng:      rng,
		seats:    make([]*seat, 0, Seats),
		phase:    protocol.PhaseStarting,
		discard:  make([]card.Card, 0),
	}
}

// Seat adds a player. Players can only be seated before the match starts.
func (m *Match) Seat(id PlayerID, name string) error {
	if m.seat(id) != nil {
		return ErrAlreadySeated
	}
	if m.phase != protocol.PhaseStarting {
		return ErrStarted
	}
	if len(m.seats) >= Seats {
		return ErrRoomFull
	}
	m.seats = append(m.seats, &seat{
		id:     id,
		name:   name,
		deck:   make([]card.Card, 0),
		hand:   make([]card.Card, 0),
		health: m.rules.StartingHealth,
	})
	return nil
}

func (m *Match) seat(id PlayerID) *seat {
	for _, s := range m.seats {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (m *Match) opponent(id PlayerID) *seat {
	for _, s := range m.seats {
		if s.id != id {
			return s
		}
	}
	return nil
}

func (m *Match) Phase() protocol.Phase { return m.phase }
func (m *Match) Winner() PlayerID      { return m.winner }
func (m *Match) Turn() PlayerID        { return m.turn }
func (m *Match) TurnNumber() int       { return m.turnNumber }
func (m *Match) Deadline() time.Time   { return m.deadline }
func (m *Match) Full() bool            { return len(m.seats) == Seats }
func (m *Match) Ended() bool           { return m.ended }
func (m *Match) RoomID() string        { return m.roomID }

func (m *Match) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(m.seats))
	for _, s := range m.seats {
		ids = append(ids, s.id)
	}
	return ids
}

// Health returns the health of a seated player.
func (m *Match) Health(id PlayerID) (int, bool) {
	s := m.seat(id)
	if s == nil {
		return 0, false
	}
	return s.health, true
}

// Hand returns a copy of a seated player's hand.
func (m *Match) Hand(id PlayerID) []card.Card {
	s := m.seat(id)
	if s == nil {
		return nil
	}
	out := make([]card.Card, len(s.hand))
	copy(out, s.hand)
	return out
}

// Expired reports whether the current turn ran past its deadline.
func (m *Match) Expired(now time.Time) bool {
	return m.phase == protocol.PhaseInProgress && m.turn != "" && !now.Before(m.deadline)
}

func (m *Match) resetTimer(now time.Time) {
	m.deadline = now.Add(m.rules.TurnDuration)
}

// Snapshot returns the match as seen by viewer. Opponent hands are reduced to a count.
func (m *Match) Snapshot(viewer PlayerID) protocol.State {
	st := protocol.State{
		RoomID:      m.roomID,
		Phase:       m.phase,
		Winner:      string(m.winner),
		Turn:        string(m.turn),
		TurnNumber:  m.turnNumber,
		Hand:        m.Hand(viewer),
		Players:     make([]protocol.PlayerView, 0, len(m.seats)),
		DiscardSize: len(m.discard),
	}
	if st.Hand == nil {
		st.Hand = []card.Card{}
	}
	if m.turn != "" {
		deadline := m.deadline
		st.Deadline = &deadline
	}
	for _, s := range m.seats {
		st.Players = append(st.Players, protocol.PlayerView{
			PlayerID: string(s.id),
			Name:     s.name,
			Health:   s.health,
			Energy:   s.energy,
			DeckSize: len(s.deck),
			HandSize: len(s.hand),
			Blocking: s.blocking,
		})
	}
	return st
}

func removeCard(cards []card.Card, id card.ID) ([]card.Card, card.Card, bool) {
	for i, c := range cards {
		if c.ID == id {
			return append(cards[:i], cards[i+1:]...), c, true
		}
	}
	return cards, card.Card{}, false
}

func indexOf(cards []card.Card, id card.ID) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Package room groups players into two seat rooms and drives each room's match.
package room

import (
	"time"

	"github.com/rs/zerolog"

	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/protocol"
)

type Player struct {
	ID   game.PlayerID
	Name string
}

type Room struct {
	id        string
	players   []Player
	match     *game.Match
	queue     *game.Queue
	chatSeq   uint64
	createdAt time.Time
	logger    *zerolog.Logger
}

func (r *Room) ID() string              { return r.id }
func (r *Room) Match() *game.Match      { return r.match }
func (r *Room) Queue() *game.Queue      { return r.queue }
func (r *Room) CreatedAt() time.Time    { return r.createdAt }
func (r *Room) Logger() *zerolog.Logger { return r.logger }

func (r *Room) Players() []Player {
	out := make([]Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r *Room) PlayerIDs() []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Room) Has(id game.PlayerID) bool {
	_, ok := r.player(id)
	return ok
}

func (r *Room) player(id game.PlayerID) (Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Opponent returns the other player in the room, if any.
func (r *Room) Opponent(id game.PlayerID) (Player, bool) {
	for _, p := range r.players {
		if p.ID != id {
			return p, true
		}
	}
	return Player{}, false
}

// HasSpace reports whether a new player can be seated.
func (r *Room) HasSpace() bool {
	return len(r.players) < game.Seats && r.match.Phase() == protocol.PhaseStarting
}

// NextChatSequence hands out increasing ids for room chat messages, starting at 1.
func (r *Room) NextChatSequence() uint64 {
	r.chatSeq++
	return r.chatSeq
}

// Process runs the turn timer and the current event generation, then swaps the queue. Events queued while
// processing are applied on the next call.
func (r *Room) Process(now time.Time) []game.Result {
	results := make([]game.Result, 0)
	if r.match.Expired(now) {
		turn := r.match.Turn()
		r.logger.Info().Str("player_id", string(turn)).Msg("turn timer expired, forcing end of turn")
		res := r.match.Apply(game.EndTurn{Player: turn, Forced: true}, now)
		r.queue.Push(res.Next...)
		results = append(results, res)
	}
	for {
		ev, ok := r.queue.Pop()
		if !ok {
			break
		}
		r.logger.Debug().Str("event", ev.Name()).Msg("applying game event")
		res := r.match.Apply(ev, now)
		r.queue.Push(res.Next...)
		results = append(results, res)
	}
	r.queue.Swap()
	return results
}

// RoomID, PlayerNames, PhaseName and TurnOwner make a room loggable.
func (r *Room) RoomID() string { return r.id }

func (r *Room) PlayerNames() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Name)
	}
	return names
}

func (r *Room) PhaseName() string { return string(r.match.Phase()) }

func (r *Room) TurnOwner() string {
	p, ok := r.player(r.match.Turn())
	if !ok {
		return ""
	}
	return p.Name
}

// Summary is the public listing of a room.
type Summary struct {
	ID         string    `json:"id"`
	Players    []string  `json:"players"`
	Phase      string    `json:"phase"`
	Turn       string    `json:"turn,omitempty"`
	TurnNumber int       `json:"turn_number"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *Room) Summary() Summary {
	return Summary{
		ID:         r.id,
		Players:    r.PlayerNames(),
		Phase:      r.PhaseName(),
		Turn:       r.TurnOwner(),
		TurnNumber: r.match.TurnNumber(),
		CreatedAt:  r.createdAt,
	}
}

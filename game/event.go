package game

import (
	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/protocol"
)

type PlayerID string

// Event is one step of the match state machine. Events are applied by Match.Apply in the order they were queued.
type Event interface {
	Name() string
}

// Origin links an event to the client request that caused it. Events created by the server have a zero Origin.
type Origin struct {
	RequestID  string
	FromClient bool
}

type StartGame struct{}

type AddCardsToDeck struct {
	Player PlayerID
	Amount int
}

type DrawCard struct {
	Origin
	Player PlayerID
	Amount int
}

type PlayCard struct {
	Origin
	Player PlayerID
	Card   card.ID
	Target *card.ID
}

type EndTurn struct {
	Origin
	Player PlayerID
	// Forced is set when the turn timer ran out.
	Forced bool
}

type StartTurn struct {
	Player PlayerID
}

type SpecialAction struct {
	Origin
	Player  PlayerID
	Action  protocol.ActionType
	Targets []card.ID
}

type StateChange struct {
	Phase  protocol.Phase
	Winner PlayerID
	Reason string
}

type EndGame struct {
	Winner PlayerID
	Reason string
}

func (StartGame) Name() string      { return "start_game" }
func (AddCardsToDeck) Name() string { return "add_cards_to_deck" }
func (DrawCard) Name() string       { return "draw_card" }
func (PlayCard) Name() string       { return "play_card" }
func (EndTurn) Name() string        { return "end_turn" }
func (StartTurn) Name() string      { return "start_turn" }
func (SpecialAction) Name() string  { return "special_action" }
func (StateChange) Name() string    { return "state_change" }
func (EndGame) Name() string        { return "end_game" }

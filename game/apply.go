package game

import (
	"fmt"
	"time"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/protocol"
)

// Notice is a message for a set of players produced while applying an event.
type Notice struct {
	To      []PlayerID
	Message protocol.Message
}

// Outcome describes a finished match.
type Outcome struct {
	RoomID  string
	Winner  PlayerID
	Loser   PlayerID
	Reason  string
	Turns   int
	EndedAt time.Time
}

// Result is everything an applied event produced. Next events are queued for the following generation.
type Result struct {
	Next       []Event
	ResetTimer bool
	Notices    []Notice
	Outcome    *Outcome
}

func (r *Result) queue(events ...Event) {
	r.Next = append(r.Next, events...)
}

func (r *Result) notify(to []PlayerID, t protocol.Type, payload any) {
	r.Notices = append(r.Notices, Notice{
		To:      to,
		Message: protocol.Message{Type: t, Payload: payload},
	})
}

func (r *Result) ack(p PlayerID, o Origin) {
	if o.RequestID == "" {
		return
	}
	r.Notices = append(r.Notices, Notice{
		To:      []PlayerID{p},
		Message: protocol.Message{Type: protocol.TypeAck, RequestID: o.RequestID},
	})
}

func (r *Result) reject(p PlayerID, o Origin, reason string) {
	if !o.FromClient {
		return
	}
	r.Notices = append(r.Notices, Notice{
		To:      []PlayerID{p},
		Message: protocol.Message{Type: protocol.TypeReject, RequestID: o.RequestID, Payload: protocol.Reject{Reason: reason}},
	})
}

// Apply runs one event against the match. Events that arrive after the match finished are dropped.
func (m *Match) Apply(ev Event, now time.Time) Result {
	var res Result
	_, isEnd := ev.(EndGame)
	if m.ended || (m.phase == protocol.PhaseFinished && !isEnd) {
		if o, p, ok := originOf(ev); ok {
			res.reject(p, o, ReasonNotInProgress)
		}
		return res
	}
	switch e := ev.(type) {
	case StartGame:
		m.startGame(&res)
	case AddCardsToDeck:
		m.addCardsToDeck(e)
	case DrawCard:
		m.drawCard(&res, e)
	case StartTurn:
		m.startTurn(&res, e, now)
	case EndTurn:
		m.endTurn(&res, e, now)
	case PlayCard:
		m.playCard(&res, e)
	case SpecialAction:
		m.specialAction(&res, e)
	case StateChange:
		m.stateChange(&res, e)
	case EndGame:
		m.endGame(&res, e, now)
	}
	return res
}

func originOf(ev Event) (Origin, PlayerID, bool) {
	switch e := ev.(type) {
	case DrawCard:
		return e.Origin, e.Player, true
	case PlayCard:
		return e.Origin, e.Player, true
	case EndTurn:
		return e.Origin, e.Player, true
	case SpecialAction:
		return e.Origin, e.Player, true
	}
	return Origin{}, "", false
}

func (m *Match) startGame(res *Result) {
	if m.phase != protocol.PhaseStarting || !m.Full() {
		return
	}
	m.phase = protocol.PhaseInProgress
	for _, s := range m.seats {
		res.queue(AddCardsToDeck{Player: s.id, Amount: m.set.DeckSize()})
	}
	if m.rules.InitialHandSize > 0 {
		for _, s := range m.seats {
			res.queue(DrawCard{Player: s.id, Amount: m.rules.InitialHandSize})
		}
	}
	first := m.seats[m.rng.Intn(len(m.seats))]
	res.queue(StartTurn{Player: first.id})
}

func (m *Match) addCardsToDeck(e AddCardsToDeck) {
	s := m.seat(e.Player)
	if s == nil || e.Amount <= 0 {
		return
	}
	added := make([]card.Card, 0, e.Amount)
	for len(added) < e.Amount {
		deck := m.registry.Mint(m.set)
		if need := e.Amount - len(added); need < len(deck) {
			for _, extra := range deck[need:] {
				m.registry.Remove(extra.ID)
			}
			deck = deck[:need]
		}
		added = append(added, deck...)
	}
	s.deck = append(s.deck, added...)
	m.rng.Shuffle(len(s.deck), func(i, j int) {
		s.deck[i], s.deck[j] = s.deck[j], s.deck[i]
	})
}

func (m *Match) drawCard(res *Result, e DrawCard) {
	s := m.seat(e.Player)
	if s == nil {
		res.reject(e.Player, e.Origin, ReasonNotSeated)
		return
	}
	if e.FromClient {
		// requested draws happen on the player's own turn and cost one energy per card
		if m.turn != e.Player {
			res.reject(e.Player, e.Origin, ReasonNotYourTurn)
			return
		}
		if s.energy < e.Amount {
			res.reject(e.Player, e.Origin, ReasonNoEnergy)
			return
		}
		s.energy -= e.Amount
	}

	drawn := make([]card.Card, 0, e.Amount)
	fatigue := 0
	for i := 0; i < e.Amount; i++ {
		if len(s.deck) == 0 {
			fatigue++
			continue
		}
		top := s.deck[0]
		s.deck = s.deck[1:]
		s.hand = append(s.hand, top)
		drawn = append(drawn, top)
	}
	s.health -= fatigue

	res.ack(e.Player, e.Origin)
	res.notify([]PlayerID{s.id}, protocol.TypeCardsDrawn, protocol.CardsDrawn{Cards: drawn, Fatigue: fatigue})
	if opp := m.opponent(s.id); opp != nil {
		res.notify([]PlayerID{opp.id}, protocol.TypeOpponentDrew,
			protocol.OpponentDrew{PlayerID: string(s.id), Amount: len(drawn)})
	}
	m.checkDefeat(res, s)
}

func (m *Match) startTurn(res *Result, e StartTurn, now time.Time) {
	s := m.seat(e.Player)
	if s == nil || m.phase != protocol.PhaseInProgress {
		return
	}
	m.turnNumber++
	m.turn = s.id
	s.turns++
	s.energy = min(s.turns, m.rules.MaxEnergy)
	s.blocking = false
	m.resetTimer(now)
	res.ResetTimer = true

	deadline := m.deadline
	res.notify(m.Players(), protocol.TypeCurrentTurn, protocol.CurrentTurn{
		PlayerID:   string(s.id),
		TurnNumber: m.turnNumber,
		Deadline:   &deadline,
	})
	m.notifyState(res)
	if m.turnNumber > 1 {
		res.queue(DrawCard{Player: s.id, Amount: 1})
	}
}

func (m *Match) endTurn(res *Result, e EndTurn, now time.Time) {
	if m.phase != protocol.PhaseInProgress {
		res.reject(e.Player, e.Origin, ReasonNotInProgress)
		return
	}
	if m.turn != e.Player {
		res.reject(e.Player, e.Origin, ReasonNotYourTurn)
		return
	}
	opp := m.opponent(e.Player)
	if opp == nil {
		return
	}
	// nobody holds the turn until StartTurn runs in the next generation
	m.turn = ""
	m.resetTimer(now)
	res.ResetTimer = true
	res.ack(e.Player, e.Origin)
	if e.Forced {
		res.notify(m.Players(), protocol.TypeChat,
			protocol.SystemChat(fmt.Sprintf("%s ran out of time", m.seat(e.Player).name)))
	}
	res.queue(StartTurn{Player: opp.id})
}

func (m *Match) playCard(res *Result, e PlayCard) {
	s, ok := m.actingSeat(res, e.Player, e.Origin)
	if !ok {
		return
	}
	c, ok := m.registry.Get(e.Card)
	if !ok || indexOf(s.hand, e.Card) < 0 {
		res.reject(e.Player, e.Origin, ReasonNotInHand)
		return
	}
	if e.Target != nil {
		if _, ok := m.registry.Get(*e.Target); !ok || *e.Target == c.ID {
			res.reject(e.Player, e.Origin, ReasonUnknownTarget)
			return
		}
	}
	if c.Cost > s.energy {
		res.reject(e.Player, e.Origin, ReasonNoEnergy)
		return
	}
	s.hand, _, _ = removeCard(s.hand, c.ID)
	s.energy -= c.Cost
	m.discard = append(m.discard, c)

	played := protocol.CardPlayed{PlayerID: string(s.id), Card: c, Target: e.Target}
	opp := m.opponent(s.id)
	if opp != nil && c.Power > 0 {
		if opp.blocking {
			opp.blocking = false
			played.Blocked = true
		} else {
			opp.health -= c.Power
			played.Damage = c.Power
		}
	}
	res.ack(e.Player, e.Origin)
	res.notify(m.Players(), protocol.TypeCardPlayed, played)
	if opp != nil {
		m.checkDefeat(res, opp)
	}
}

func (m *Match) specialAction(res *Result, e SpecialAction) {
	s, ok := m.actingSeat(res, e.Player, e.Origin)
	if !ok {
		return
	}
	switch e.Action {
	case protocol.ActionDiscard:
		seen := make(map[card.ID]bool, len(e.Targets))
		for _, id := range e.Targets {
			if seen[id] || indexOf(s.hand, id) < 0 {
				res.reject(e.Player, e.Origin, ReasonNotInHand)
				return
			}
			seen[id] = true
		}
		for _, id := range e.Targets {
			s.hand, _, _ = removeCard(s.hand, id)
			c, _ := m.registry.Get(id)
			m.discard = append(m.discard, c)
			res.notify(m.Players(), protocol.TypeCardDiscarded,
				protocol.CardDiscarded{PlayerID: string(s.id), Card: c})
		}
	case protocol.ActionSwap:
		i := -1
		if len(e.Targets) > 0 {
			i = indexOf(s.hand, e.Targets[0])
		}
		if i < 0 {
			res.reject(e.Player, e.Origin, ReasonNotInHand)
			return
		}
		if len(s.deck) == 0 {
			res.reject(e.Player, e.Origin, ReasonDeckEmpty)
			return
		}
		s.hand[i], s.deck[0] = s.deck[0], s.hand[i]
		res.notify([]PlayerID{s.id}, protocol.TypeCardsDrawn, protocol.CardsDrawn{Cards: []card.Card{s.hand[i]}})
		res.notify([]PlayerID{s.id}, protocol.TypeState, m.Snapshot(s.id))
	case protocol.ActionBlock:
		if s.blocking {
			res.reject(e.Player, e.Origin, ReasonBlocking)
			return
		}
		if s.energy < 1 {
			res.reject(e.Player, e.Origin, ReasonNoEnergy)
			return
		}
		s.energy--
		s.blocking = true
		res.notify(m.Players(), protocol.TypeChat, protocol.SystemChat(s.name+" raises a block"))
	default:
		return
	}
	res.ack(e.Player, e.Origin)
}

// actingSeat checks that the player can act right now.
func (m *Match) actingSeat(res *Result, p PlayerID, o Origin) (*seat, bool) {
	s := m.seat(p)
	switch {
	case s == nil:
		res.reject(p, o, ReasonNotSeated)
		return nil, false
	case m.phase != protocol.PhaseInProgress:
		res.reject(p, o, ReasonNotInProgress)
		return nil, false
	case m.turn != p:
		res.reject(p, o, ReasonNotYourTurn)
		return nil, false
	}
	return s, true
}

func (m *Match) checkDefeat(res *Result, s *seat) {
	if s.health > 0 {
		return
	}
	winner := PlayerID("")
	if opp := m.opponent(s.id); opp != nil {
		winner = opp.id
	}
	res.queue(StateChange{Phase: protocol.PhaseFinished, Winner: winner, Reason: OutcomeDefeat})
}

func (m *Match) stateChange(res *Result, e StateChange) {
	m.phase = e.Phase
	if e.Phase != protocol.PhaseFinished {
		return
	}
	m.winner = e.Winner
	m.reason = e.Reason
	m.turn = ""
	res.notify(m.Players(), protocol.TypeGameOver, protocol.GameOver{Winner: string(e.Winner), Reason: e.Reason})
	res.queue(EndGame{Winner: e.Winner, Reason: e.Reason})
}

func (m *Match) endGame(res *Result, e EndGame, now time.Time) {
	res.Outcome = m.outcome(e.Winner, e.Reason, now)
	m.phase = protocol.PhaseFinished
	m.ended = true
	m.notifyState(res)
}

func (m *Match) outcome(winner PlayerID, reason string, now time.Time) *Outcome {
	o := &Outcome{
		RoomID:  m.roomID,
		Winner:  winner,
		Reason:  reason,
		Turns:   m.turnNumber,
		EndedAt: now,
	}
	if winner != "" {
		if opp := m.opponent(winner); opp != nil {
			o.Loser = opp.id
		}
	}
	return o
}

// Forfeit ends the match immediately in favour of the player that stayed. A match that is already decided but
// whose EndGame has not run yet is settled with its own winner instead. It returns nil when there is nothing to
// record.
func (m *Match) Forfeit(leaver PlayerID, now time.Time) *Result {
	if m.seat(leaver) == nil || m.ended {
		return nil
	}
	res := &Result{}
	if m.phase == protocol.PhaseFinished {
		m.ended = true
		res.Outcome = m.outcome(m.winner, m.reason, now)
		return res
	}
	if m.phase != protocol.PhaseInProgress {
		return nil
	}
	winner := PlayerID("")
	if opp := m.opponent(leaver); opp != nil {
		winner = opp.id
	}
	m.phase = protocol.PhaseFinished
	m.winner = winner
	m.turn = ""
	m.ended = true
	if winner != "" {
		res.notify([]PlayerID{winner}, protocol.TypeGameOver, protocol.GameOver{Winner: string(winner), Reason: OutcomeForfeit})
	}
	res.Outcome = m.outcome(winner, OutcomeForfeit, now)
	return res
}

func (m *Match) notifyState(res *Result) {
	for _, s := range m.seats {
		res.notify([]PlayerID{s.id}, protocol.TypeState, m.Snapshot(s.id))
	}
}

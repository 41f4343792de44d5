package game

import (
	"math/rand"
	"testing"
	"time"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/internal/assert"
	"pkg.world.dev/duel/protocol"
)

const (
	alice PlayerID = "alice-id"
	bob   PlayerID = "bob-id"
)

// three cheap cards, six per deck
const testCards = `
[[cards]]
key = "zap"
name = "Zap"
c_type = "spell"
cost = 1
power = 4

[[cards]]
key = "jab"
name = "Jab"
c_type = "spell"
cost = 1
power = 2

[[cards]]
key = "poke"
name = "Poke"
c_type = "spell"
cost = 1
power = 1
`

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMatch(t *testing.T, cards string, rules Rules) (*Match, *Queue) {
	t.Helper()
	set, err := card.Load([]byte(cards))
	assert.NilError(t, err)
	m := NewMatch("room_1", rules, set, rand.New(rand.NewSource(7)))
	assert.NilError(t, m.Seat(alice, "alice"))
	assert.NilError(t, m.Seat(bob, "bob"))
	return m, NewQueue()
}

func testRules() Rules {
	return Rules{InitialHandSize: 2, StartingHealth: 20, MaxEnergy: 3, TurnDuration: 30 * time.Second}
}

// drain processes generations until the queue is empty.
func drain(t *testing.T, m *Match, q *Queue, now time.Time) []Result {
	t.Helper()
	results := make([]Result, 0)
	for i := 0; q.Len() > 0; i++ {
		if i > 100 {
			t.Fatal("queue did not settle")
		}
		q.Swap()
		for {
			ev, ok := q.Pop()
			if !ok {
				break
			}
			res := m.Apply(ev, now)
			q.Push(res.Next...)
			results = append(results, res)
		}
	}
	return results
}

func noticesOf(results []Result, to PlayerID, typ protocol.Type) []protocol.Message {
	out := make([]protocol.Message, 0)
	for _, r := range results {
		for _, n := range r.Notices {
			if n.Message.Type != typ {
				continue
			}
			for _, p := range n.To {
				if p == to {
					out = append(out, n.Message)
				}
			}
		}
	}
	return out
}

func outcomeOf(results []Result) *Outcome {
	for _, r := range results {
		if r.Outcome != nil {
			return r.Outcome
		}
	}
	return nil
}

func startedMatch(t *testing.T, cards string, rules Rules) (*Match, *Queue) {
	t.Helper()
	m, q := newTestMatch(t, cards, rules)
	q.Push(StartGame{})
	drain(t, m, q, testNow)
	return m, q
}

func other(p PlayerID) PlayerID {
	if p == alice {
		return bob
	}
	return alice
}

func TestSeating(t *testing.T) {
	m, _ := newTestMatch(t, testCards, testRules())
	assert.ErrorIs(t, m.Seat(alice, "again"), ErrAlreadySeated)
	assert.ErrorIs(t, m.Seat("carol", "carol"), ErrRoomFull)
	assert.True(t, m.Full())
	assert.DeepEqual(t, []PlayerID{alice, bob}, m.Players())
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	set, err := card.Load([]byte(testCards))
	assert.NilError(t, err)
	m := NewMatch("room_1", testRules(), set, rand.New(rand.NewSource(1)))
	assert.NilError(t, m.Seat(alice, "alice"))

	res := m.Apply(StartGame{}, testNow)
	assert.Equal(t, protocol.PhaseStarting, m.Phase())
	assert.Len(t, res.Next, 0)
}

func TestStartGameDealsAndPicksFirstPlayer(t *testing.T) {
	m, q := newTestMatch(t, testCards, testRules())
	q.Push(StartGame{})
	results := drain(t, m, q, testNow)

	assert.Equal(t, protocol.PhaseInProgress, m.Phase())
	assert.Equal(t, 1, m.TurnNumber())
	assert.Check(t, m.Turn() == alice || m.Turn() == bob)
	assert.Equal(t, testNow.Add(30*time.Second), m.Deadline())

	for _, p := range []PlayerID{alice, bob} {
		assert.Len(t, m.Hand(p), 2)
		st := m.Snapshot(p)
		for _, view := range st.Players {
			assert.Equal(t, 4, view.DeckSize)
			assert.Equal(t, 2, view.HandSize)
			assert.Equal(t, 20, view.Health)
		}
		turns := noticesOf(results, p, protocol.TypeCurrentTurn)
		assert.Len(t, turns, 1)
		assert.Equal(t, string(m.Turn()), turns[0].Payload.(protocol.CurrentTurn).PlayerID)
		assert.Len(t, noticesOf(results, p, protocol.TypeCardsDrawn), 1)
		assert.Len(t, noticesOf(results, p, protocol.TypeOpponentDrew), 1)
	}

	// a second start is ignored
	res := m.Apply(StartGame{}, testNow)
	assert.Len(t, res.Next, 0)
}

func TestEndTurnSwitchesPlayer(t *testing.T) {
	m, q := startedMatch(t, testCards, testRules())
	first := m.Turn()
	second := other(first)

	res := m.Apply(EndTurn{Player: second, Origin: Origin{RequestID: "r1", FromClient: true}}, testNow)
	rejects := noticesOf([]Result{res}, second, protocol.TypeReject)
	assert.Len(t, rejects, 1)
	assert.Equal(t, "r1", rejects[0].RequestID)
	assert.Equal(t, ReasonNotYourTurn, rejects[0].Payload.(protocol.Reject).Reason)
	assert.Equal(t, first, m.Turn())

	later := testNow.Add(10 * time.Second)
	q.Push(EndTurn{Player: first, Origin: Origin{RequestID: "r2", FromClient: true}})
	results := drain(t, m, q, later)

	assert.Len(t, noticesOf(results, first, protocol.TypeAck), 1)
	assert.Equal(t, second, m.Turn())
	assert.Equal(t, 2, m.TurnNumber())
	assert.Equal(t, later.Add(30*time.Second), m.Deadline())
	// the second player draws at the start of their turn
	assert.Len(t, m.Hand(second), 3)
	assert.Len(t, m.Hand(first), 2)
}

func TestEndTurnTwiceInOneGenerationOnlyPassesOnce(t *testing.T) {
	m, q := startedMatch(t, testCards, testRules())
	first := m.Turn()

	q.Push(EndTurn{Player: first}, EndTurn{Player: first})
	drain(t, m, q, testNow)
	assert.Equal(t, other(first), m.Turn())
	assert.Equal(t, 2, m.TurnNumber())
}

func TestTurnExpiry(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	assert.Check(t, !m.Expired(testNow.Add(29*time.Second)))
	assert.Check(t, m.Expired(testNow.Add(30*time.Second)))

	first := m.Turn()
	res := m.Apply(EndTurn{Player: first, Forced: true}, testNow.Add(30*time.Second))
	assert.Len(t, noticesOf([]Result{res}, other(first), protocol.TypeChat), 1)
	assert.Check(t, !m.Expired(testNow.Add(31*time.Second)), "no one holds the turn until it starts")
}

func TestPlayCardDealsDamageAndSpendsEnergy(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	p := m.Turn()
	c := m.Hand(p)[0]

	res := m.Apply(PlayCard{Player: p, Card: c.ID, Origin: Origin{RequestID: "x", FromClient: true}}, testNow)
	assert.Len(t, noticesOf([]Result{res}, p, protocol.TypeAck), 1)
	played := noticesOf([]Result{res}, other(p), protocol.TypeCardPlayed)
	assert.Len(t, played, 1)
	assert.Equal(t, c.Power, played[0].Payload.(protocol.CardPlayed).Damage)

	health, _ := m.Health(other(p))
	assert.Equal(t, 20-c.Power, health)
	assert.Len(t, m.Hand(p), 1)
	assert.Equal(t, 1, m.Snapshot(p).DiscardSize)

	// energy is spent
	next := m.Hand(p)[0]
	res = m.Apply(PlayCard{Player: p, Card: next.ID, Origin: Origin{FromClient: true}}, testNow)
	rejects := noticesOf([]Result{res}, p, protocol.TypeReject)
	assert.Len(t, rejects, 1)
	assert.Equal(t, ReasonNoEnergy, rejects[0].Payload.(protocol.Reject).Reason)
}

func TestPlayCardRejections(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	p := m.Turn()
	opp := other(p)

	res := m.Apply(PlayCard{Player: opp, Card: m.Hand(opp)[0].ID, Origin: Origin{FromClient: true}}, testNow)
	assert.Equal(t, ReasonNotYourTurn,
		noticesOf([]Result{res}, opp, protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)

	res = m.Apply(PlayCard{Player: p, Card: 9999, Origin: Origin{FromClient: true}}, testNow)
	assert.Equal(t, ReasonNotInHand,
		noticesOf([]Result{res}, p, protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)

	res = m.Apply(PlayCard{Player: "mallory", Card: 1, Origin: Origin{FromClient: true}}, testNow)
	assert.Equal(t, ReasonNotSeated,
		noticesOf([]Result{res}, "mallory", protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)
}

func TestPlayCardTargets(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	p := m.Turn()
	c := m.Hand(p)[0]

	for _, target := range []card.ID{9999, c.ID} {
		res := m.Apply(PlayCard{Player: p, Card: c.ID, Target: &target, Origin: Origin{FromClient: true}}, testNow)
		rejects := noticesOf([]Result{res}, p, protocol.TypeReject)
		assert.Len(t, rejects, 1)
		assert.Equal(t, ReasonUnknownTarget, rejects[0].Payload.(protocol.Reject).Reason)
	}
	assert.Len(t, m.Hand(p), 2)

	target := m.Hand(other(p))[0].ID
	res := m.Apply(PlayCard{Player: p, Card: c.ID, Target: &target, Origin: Origin{FromClient: true}}, testNow)
	played := noticesOf([]Result{res}, other(p), protocol.TypeCardPlayed)
	assert.Len(t, played, 1)
	got := played[0].Payload.(protocol.CardPlayed)
	assert.Assert(t, got.Target != nil)
	assert.Equal(t, target, *got.Target)
	assert.Equal(t, c, got.Card)
}

func TestDecksAreRegistered(t *testing.T) {
	m, _ := newTestMatch(t, testCards, testRules())
	m.Apply(AddCardsToDeck{Player: alice, Amount: 4}, testNow)
	assert.Equal(t, 4, m.registry.Len())
	assert.Equal(t, 4, m.Snapshot(alice).Players[0].DeckSize)
}

func TestBlockAbsorbsOneCard(t *testing.T) {
	m, q := startedMatch(t, testCards, testRules())
	blocker := m.Turn()
	attacker := other(blocker)

	res := m.Apply(SpecialAction{Player: blocker, Action: protocol.ActionBlock, Origin: Origin{FromClient: true}}, testNow)
	assert.Len(t, noticesOf([]Result{res}, attacker, protocol.TypeChat), 1)
	assert.True(t, m.Snapshot(blocker).Players[indexOfPlayer(m, blocker)].Blocking)

	res = m.Apply(SpecialAction{Player: blocker, Action: protocol.ActionBlock, Origin: Origin{FromClient: true}}, testNow)
	assert.Equal(t, ReasonBlocking,
		noticesOf([]Result{res}, blocker, protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)

	q.Push(EndTurn{Player: blocker})
	drain(t, m, q, testNow)
	assert.Equal(t, attacker, m.Turn())

	c := m.Hand(attacker)[0]
	res = m.Apply(PlayCard{Player: attacker, Card: c.ID}, testNow)
	played := noticesOf([]Result{res}, blocker, protocol.TypeCardPlayed)[0].Payload.(protocol.CardPlayed)
	assert.True(t, played.Blocked)
	assert.Equal(t, 0, played.Damage)
	health, _ := m.Health(blocker)
	assert.Equal(t, 20, health)
	assert.False(t, m.Snapshot(blocker).Players[indexOfPlayer(m, blocker)].Blocking)
}

func indexOfPlayer(m *Match, p PlayerID) int {
	for i, id := range m.Players() {
		if id == p {
			return i
		}
	}
	return -1
}

func TestDiscardAndSwap(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	p := m.Turn()
	hand := m.Hand(p)

	res := m.Apply(SpecialAction{
		Player: p, Action: protocol.ActionDiscard, Targets: []card.ID{hand[0].ID, hand[0].ID},
		Origin: Origin{FromClient: true},
	}, testNow)
	assert.Equal(t, ReasonNotInHand,
		noticesOf([]Result{res}, p, protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)
	assert.Len(t, m.Hand(p), 2)

	res = m.Apply(SpecialAction{Player: p, Action: protocol.ActionSwap, Targets: []card.ID{hand[1].ID}}, testNow)
	drawn := noticesOf([]Result{res}, p, protocol.TypeCardsDrawn)
	assert.Len(t, drawn, 1)
	swapped := drawn[0].Payload.(protocol.CardsDrawn).Cards[0]
	assert.Check(t, swapped.ID != hand[1].ID)
	assert.Len(t, m.Hand(p), 2)

	res = m.Apply(SpecialAction{Player: p, Action: protocol.ActionDiscard, Targets: []card.ID{hand[0].ID}}, testNow)
	assert.Len(t, noticesOf([]Result{res}, other(p), protocol.TypeCardDiscarded), 1)
	assert.Len(t, m.Hand(p), 1)
	assert.Equal(t, 1, m.Snapshot(p).DiscardSize)
}

func TestLethalPlayFinishesMatch(t *testing.T) {
	rules := testRules()
	rules.StartingHealth = 1
	m, q := startedMatch(t, testCards, rules)
	p := m.Turn()

	q.Push(PlayCard{Player: p, Card: m.Hand(p)[0].ID})
	results := drain(t, m, q, testNow)

	assert.Equal(t, protocol.PhaseFinished, m.Phase())
	assert.Equal(t, p, m.Winner())
	assert.True(t, m.Ended())
	over := noticesOf(results, other(p), protocol.TypeGameOver)
	assert.Len(t, over, 1)
	assert.Equal(t, string(p), over[0].Payload.(protocol.GameOver).Winner)

	outcome := outcomeOf(results)
	assert.Assert(t, outcome != nil)
	assert.Equal(t, p, outcome.Winner)
	assert.Equal(t, other(p), outcome.Loser)
	assert.Equal(t, "room_1", outcome.RoomID)

	// late requests are rejected
	res := m.Apply(EndTurn{Player: p, Origin: Origin{RequestID: "late", FromClient: true}}, testNow)
	assert.Equal(t, ReasonNotInProgress,
		noticesOf([]Result{res}, p, protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)
}

func TestFatigueCanEndTheGame(t *testing.T) {
	rules := testRules()
	rules.StartingHealth = 1
	rules.InitialHandSize = 6
	m, q := startedMatch(t, testCards, rules)
	first := m.Turn()
	second := other(first)

	q.Push(EndTurn{Player: first})
	results := drain(t, m, q, testNow)

	assert.Equal(t, protocol.PhaseFinished, m.Phase())
	assert.Equal(t, first, m.Winner())
	drawn := noticesOf(results, second, protocol.TypeCardsDrawn)
	assert.Len(t, drawn, 1)
	assert.Equal(t, 1, drawn[0].Payload.(protocol.CardsDrawn).Fatigue)
}

func TestRequestedDrawCostsEnergy(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	p := m.Turn()

	res := m.Apply(DrawCard{Player: p, Amount: 2, Origin: Origin{FromClient: true}}, testNow)
	assert.Equal(t, ReasonNoEnergy,
		noticesOf([]Result{res}, p, protocol.TypeReject)[0].Payload.(protocol.Reject).Reason)

	res = m.Apply(DrawCard{Player: p, Amount: 1, Origin: Origin{RequestID: "d", FromClient: true}}, testNow)
	assert.Len(t, noticesOf([]Result{res}, p, protocol.TypeAck), 1)
	assert.Len(t, m.Hand(p), 3)
	assert.Equal(t, 0, m.Snapshot(p).Players[indexOfPlayer(m, p)].Energy)
}

func TestForfeit(t *testing.T) {
	m, _ := newTestMatch(t, testCards, testRules())
	assert.Check(t, m.Forfeit(alice, testNow) == nil, "nothing to forfeit before the start")

	m, _ = startedMatch(t, testCards, testRules())
	res := m.Forfeit(alice, testNow)
	assert.Assert(t, res != nil)
	assert.Equal(t, bob, res.Outcome.Winner)
	assert.Equal(t, alice, res.Outcome.Loser)
	assert.Equal(t, "forfeit", res.Outcome.Reason)
	assert.Len(t, noticesOf([]Result{*res}, bob, protocol.TypeGameOver), 1)
	assert.True(t, m.Ended())
}

// step processes a single generation.
func step(m *Match, q *Queue, now time.Time) []Result {
	q.Swap()
	results := make([]Result, 0)
	for {
		ev, ok := q.Pop()
		if !ok {
			return results
		}
		res := m.Apply(ev, now)
		q.Push(res.Next...)
		results = append(results, res)
	}
}

func TestLeavingAfterLethalPlaySettlesTheDefeat(t *testing.T) {
	rules := testRules()
	rules.StartingHealth = 1
	m, q := startedMatch(t, testCards, rules)
	p := m.Turn()

	q.Push(PlayCard{Player: p, Card: m.Hand(p)[0].ID})
	step(m, q, testNow)
	over := step(m, q, testNow)
	assert.Len(t, noticesOf(over, other(p), protocol.TypeGameOver), 1)
	assert.Check(t, outcomeOf(over) == nil)
	assert.False(t, m.Ended())

	// the loser leaves before EndGame runs
	res := m.Forfeit(other(p), testNow)
	assert.Assert(t, res != nil)
	assert.Assert(t, res.Outcome != nil)
	assert.Equal(t, p, res.Outcome.Winner)
	assert.Equal(t, other(p), res.Outcome.Loser)
	assert.Equal(t, OutcomeDefeat, res.Outcome.Reason)
	assert.Len(t, res.Notices, 0)
	assert.True(t, m.Ended())

	assert.Check(t, m.Forfeit(p, testNow) == nil, "outcome is recorded once")
}

func TestSnapshotHidesOpponentHand(t *testing.T) {
	m, _ := startedMatch(t, testCards, testRules())
	st := m.Snapshot(alice)
	assert.Equal(t, "room_1", st.RoomID)
	assert.DeepEqual(t, m.Hand(alice), st.Hand)
	assert.Len(t, st.Players, 2)
	assert.Assert(t, st.Deadline != nil)

	spectator := m.Snapshot("nobody")
	assert.Len(t, spectator.Hand, 0)
}

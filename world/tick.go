package world

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"pkg.world.dev/duel/chat"
	"pkg.world.dev/duel/events"
	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/log"
	"pkg.world.dev/duel/protocol"
	"pkg.world.dev/duel/room"
	"pkg.world.dev/duel/statsd"
	"pkg.world.dev/duel/storage/redis"
	"pkg.world.dev/duel/txpool"
)

// Report summarizes one tick.
type Report struct {
	ID        uint64
	StartedAt time.Time
	Duration  time.Duration
	Requests  int
	Events    int
	Rooms     int
	Players   int
	Outcomes  []game.Outcome
	Closed    []string
}

type storedChat struct {
	roomID string
	msg    protocol.Chat
}

// outbox collects everything a tick produced so it can be delivered and persisted once the state lock is released.
type outbox struct {
	notices  []game.Notice
	chats    []storedChat
	results  []redis.MatchResult
	outcomes []game.Outcome
}

func (o *outbox) send(to game.PlayerID, t protocol.Type, requestID string, payload any) {
	o.notices = append(o.notices, game.Notice{
		To:      []game.PlayerID{to},
		Message: protocol.Message{Type: t, RequestID: requestID, Payload: payload},
	})
}

func (o *outbox) reject(to game.PlayerID, requestID, reason string) {
	o.send(to, protocol.TypeReject, requestID, protocol.Reject{Reason: reason})
}

func (o *outbox) fail(to game.PlayerID, requestID string, err error) {
	o.notices = append(o.notices, game.Notice{To: []game.PlayerID{to}, Message: errorMessage(requestID, err)})
}

func (o *outbox) system(to []game.PlayerID, content string) {
	o.notices = append(o.notices, game.Notice{
		To:      to,
		Message: protocol.Message{Type: protocol.TypeChat, Payload: protocol.SystemChat(content)},
	})
}

func (o *outbox) result(r *room.Room, res game.Result) {
	o.notices = append(o.notices, res.Notices...)
	if res.Outcome == nil {
		return
	}
	names := map[game.PlayerID]string{}
	for _, p := range r.Players() {
		names[p.ID] = p.Name
	}
	out := *res.Outcome
	o.outcomes = append(o.outcomes, out)
	o.results = append(o.results, redis.MatchResult{
		RoomID:     out.RoomID,
		Winner:     string(out.Winner),
		WinnerName: names[out.Winner],
		Loser:      string(out.Loser),
		LoserName:  names[out.Loser],
		Reason:     out.Reason,
		Turns:      out.Turns,
		EndedAt:    out.EndedAt,
	})
}

// Tick applies the requests received since the last tick, advances every room and delivers the resulting
// messages. Persistence failures are logged and never fail the tick.
func (w *World) Tick(ctx context.Context, now time.Time) (*Report, error) {
	start := time.Now()
	requests := w.pool.CopyRequests()
	out := &outbox{}

	w.mux.Lock()
	w.tickID++
	report := &Report{ID: w.tickID, StartedAt: now, Requests: len(requests)}
	for _, req := range requests {
		w.handle(req, now, out)
	}
	statsd.EmitTickStat(start, "requests")

	roomStart := time.Now()
	for _, r := range w.rooms.Rooms() {
		results := r.Process(now)
		report.Events += len(results)
		for _, res := range results {
			out.result(r, res)
		}
	}
	for _, r := range w.rooms.CloseFinished() {
		report.Closed = append(report.Closed, r.ID())
		log.Room(r.Logger(), zerolog.InfoLevel, r)
	}
	statsd.EmitTickStat(roomStart, "rooms")
	report.Rooms = w.rooms.Len()
	report.Players = len(w.players)
	w.mux.Unlock()

	report.Outcomes = out.outcomes
	for _, n := range out.notices {
		if err := w.hub.Emit(n.To, n.Message); err != nil {
			if errors.Is(err, events.ErrStopped) {
				return nil, eris.Wrap(err, "failed to deliver tick messages")
			}
			w.logger.Error().Err(err).Str("type", string(n.Message.Type)).Msg("failed to encode message")
		}
	}

	w.persist(ctx, out)

	flushStart := time.Now()
	w.hub.Flush()
	statsd.EmitTickStat(flushStart, "flush")

	statsd.Gauge("rooms", float64(report.Rooms))
	statsd.Gauge("players", float64(report.Players))
	statsd.Count("requests", int64(report.Requests))
	statsd.Count("matches.finished", int64(len(report.Outcomes)))
	report.Duration = time.Since(start)
	return report, nil
}

func (w *World) handle(req txpool.Request, now time.Time, out *outbox) {
	switch req.Kind {
	case txpool.KindOpen:
		w.players[req.Player] = &player{id: req.Player, logger: log.CreatePlayerLogger(&w.logger, string(req.Player), "")}
		w.players[req.Player].logger.Debug().Msg("player connected")
		return
	case txpool.KindClose:
		w.disconnect(req.Player, now, out)
		return
	case txpool.KindFrame:
	}

	p, ok := w.players[req.Player]
	if !ok {
		return
	}
	f := req.Frame
	if f.Type == protocol.TypeConnect {
		w.connect(p, f, now, out)
		return
	}
	if p.name == "" {
		out.reject(p.id, f.RequestID, ReasonConnectFirst)
		return
	}
	if f.Type == protocol.TypeChat {
		w.chat(p, f, now, out)
		return
	}

	r, ok := w.rooms.RoomOf(p.id)
	if !ok {
		out.reject(p.id, f.RequestID, chat.NotInRoomText)
		return
	}
	ev, err := toEvent(p.id, f)
	if err != nil {
		out.fail(p.id, f.RequestID, err)
		return
	}
	r.Queue().Push(ev)
}

func (w *World) connect(p *player, f protocol.Frame, now time.Time, out *outbox) {
	payload, err := protocol.DecodePayload[protocol.Connect](f)
	if err != nil {
		out.fail(p.id, f.RequestID, err)
		return
	}
	if owner, taken := w.byName[payload.Name]; taken && owner != p.id {
		out.reject(p.id, f.RequestID, ReasonNameTaken)
		return
	}
	if _, inRoom := w.rooms.RoomOf(p.id); inRoom {
		out.reject(p.id, f.RequestID, ReasonAlreadyInRoom)
		return
	}
	if p.name != payload.Name {
		delete(w.byName, p.name)
		p.name = payload.Name
		w.byName[p.name] = p.id
		p.logger = log.CreatePlayerLogger(&w.logger, string(p.id), p.name)
	}

	out.send(p.id, protocol.TypeWelcome, f.RequestID, protocol.Welcome{PlayerID: string(p.id), Name: p.name})
	out.system([]game.PlayerID{p.id}, chat.ConnectedText)

	r, matched, err := w.rooms.Join(room.Player{ID: p.id, Name: p.name}, now)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to join a room")
		out.fail(p.id, f.RequestID, err)
		return
	}
	if !matched {
		out.send(p.id, protocol.TypeWaiting, "", protocol.Waiting{RoomID: r.ID()})
		out.system([]game.PlayerID{p.id}, chat.WaitingText)
		return
	}
	for _, seated := range r.Players() {
		opp, _ := r.Opponent(seated.ID)
		out.send(seated.ID, protocol.TypeMatched, "", protocol.Matched{
			RoomID:     r.ID(),
			OpponentID: string(opp.ID),
			Opponent:   opp.Name,
		})
	}
	out.system(r.PlayerIDs(), chat.MatchedText(r.ID()))
	p.logger.Info().Str("room_id", r.ID()).Msg("player matched")
}

func (w *World) disconnect(id game.PlayerID, now time.Time, out *outbox) {
	p, ok := w.players[id]
	if !ok {
		return
	}
	w.leave(p, now, out)
	if p.name != "" && w.byName[p.name] == id {
		delete(w.byName, p.name)
	}
	delete(w.players, id)
	p.logger.Debug().Msg("player disconnected")
}

func (w *World) leave(p *player, now time.Time, out *outbox) {
	r, opponent, forfeit, err := w.rooms.Leave(p.id, now)
	if err != nil {
		return
	}
	if forfeit != nil {
		out.result(r, *forfeit)
	}
	if opponent != nil {
		out.system([]game.PlayerID{opponent.ID}, chat.OpponentLeftText)
	}
	p.logger.Info().Str("room_id", r.ID()).Msg("player left room")
}

func (w *World) chat(p *player, f protocol.Frame, now time.Time, out *outbox) {
	msg, err := protocol.DecodePayload[protocol.Chat](f)
	if err != nil {
		out.fail(p.id, f.RequestID, err)
		return
	}
	if f.RequestID != "" {
		out.send(p.id, protocol.TypeAck, f.RequestID, nil)
	}
	routed := w.router.Route(chat.Sender{ID: p.id, Name: p.name}, msg, now)
	for _, d := range routed.Deliveries {
		out.notices = append(out.notices, game.Notice{
			To:      d.To,
			Message: protocol.Message{Type: protocol.TypeChat, Payload: d.Chat},
		})
	}
	if routed.Store != nil {
		out.chats = append(out.chats, storedChat{roomID: routed.Store.RoomID, msg: *routed.Store})
	}
}

func toEvent(id game.PlayerID, f protocol.Frame) (game.Event, error) {
	origin := game.Origin{RequestID: f.RequestID, FromClient: true}
	switch f.Type { //nolint:exhaustive // only game actions reach this point
	case protocol.TypeEndTurn:
		return game.EndTurn{Origin: origin, Player: id}, nil
	case protocol.TypeDrawCard:
		d, err := protocol.DecodePayload[protocol.DrawCard](f)
		if err != nil {
			return nil, err
		}
		return game.DrawCard{Origin: origin, Player: id, Amount: d.Amount}, nil
	case protocol.TypePlayCard:
		pc, err := protocol.DecodePayload[protocol.PlayCard](f)
		if err != nil {
			return nil, err
		}
		return game.PlayCard{Origin: origin, Player: id, Card: pc.CardID, Target: pc.Target}, nil
	case protocol.TypeSpecialAction:
		sa, err := protocol.DecodePayload[protocol.SpecialAction](f)
		if err != nil {
			return nil, err
		}
		return game.SpecialAction{Origin: origin, Player: id, Action: sa.Action, Targets: sa.Targets}, nil
	}
	return nil, eris.Wrapf(protocol.ErrUnknownType, "%q", f.Type)
}

func (w *World) persist(ctx context.Context, out *outbox) {
	if len(out.chats) == 0 && len(out.results) == 0 {
		return
	}
	ctx, span := w.tracer.Start(ctx, "world.persist")
	defer span.End()

	logFailure := func(err error, msg string) {
		span.SetStatus(codes.Error, eris.ToString(err, true))
		span.RecordError(err)
		w.logger.Error().Err(err).Msg(msg)
	}

	if w.stores.Chat != nil {
		for _, c := range out.chats {
			if err := w.stores.Chat.AppendChat(ctx, c.roomID, c.msg); err != nil {
				logFailure(err, "failed to store chat message")
			}
		}
	}
	for _, res := range out.results {
		if w.stores.Matches != nil {
			if err := w.stores.Matches.SaveResult(ctx, res); err != nil {
				logFailure(err, "failed to store match result")
			}
		}
		if w.stores.Stats != nil && res.WinnerName != "" && res.LoserName != "" {
			forfeit := res.Reason == game.OutcomeForfeit
			if err := w.stores.Stats.RecordOutcome(ctx, res.WinnerName, res.LoserName, forfeit); err != nil {
				logFailure(err, "failed to record player stats")
			}
		}
	}
}

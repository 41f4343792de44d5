// Package world owns every piece of server state and advances it one tick at a time.
package world

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/chat"
	"pkg.world.dev/duel/config"
	"pkg.world.dev/duel/events"
	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/protocol"
	"pkg.world.dev/duel/room"
	"pkg.world.dev/duel/storage/redis"
	"pkg.world.dev/duel/txpool"
)

// Reject reasons for requests that never reach a match.
const (
	ReasonConnectFirst  = "send connect first"
	ReasonNameTaken     = "name is already taken"
	ReasonAlreadyInRoom = "already in a room"
)

type ChatStore interface {
	AppendChat(ctx context.Context, roomID string, msg protocol.Chat) error
}

type MatchStore interface {
	SaveResult(ctx context.Context, result redis.MatchResult) error
}

type StatsRecorder interface {
	RecordOutcome(ctx context.Context, winner, loser string, forfeit bool) error
}

// Stores are the persistence backends of the world. Any of them may be nil. Without Rooms, room numbers restart
// at zero with every process.
type Stores struct {
	Chat    ChatStore
	Matches MatchStore
	Stats   StatsRecorder
	Rooms   room.Sequence
}

type player struct {
	id     game.PlayerID
	name   string
	logger *zerolog.Logger
}

type World struct {
	config config.Config
	cards  *card.Set
	rng    *rand.Rand

	// State owned by the tick. mux guards it against readers from the HTTP server.
	mux     *sync.RWMutex
	rooms   *room.Manager
	players map[game.PlayerID]*player
	byName  map[string]game.PlayerID
	router  *chat.Router
	tickID  uint64

	pool   *txpool.Pool
	hub    *events.Hub
	stores Stores

	tracer trace.Tracer
	logger zerolog.Logger
}

type Option func(*World)

func WithStores(stores Stores) Option {
	return func(w *World) {
		w.stores = stores
	}
}

// WithRandSeed makes deck shuffles and first player selection reproducible.
func WithRandSeed(seed int64) Option {
	return func(w *World) {
		w.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // game randomness
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

func New(cfg config.Config, cards *card.Set, opts ...Option) (*World, error) {
	if cards == nil {
		return nil, eris.New("card set is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	w := &World{
		config:  cfg,
		cards:   cards,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // game randomness
		mux:     &sync.RWMutex{},
		players: map[game.PlayerID]*player{},
		byName:  map[string]game.PlayerID{},
		pool:    txpool.New(),
		tracer:  otel.Tracer("duel"),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.rooms = room.NewManager(w.newMatch, &w.logger, room.WithSequence(w.stores.Rooms))
	w.router = chat.NewRouter(directory{w: w})
	w.hub = events.NewHub()
	return w, nil
}

func (w *World) rules() game.Rules {
	return game.Rules{
		InitialHandSize: w.config.InitialHandSize,
		StartingHealth:  w.config.StartingHealth,
		MaxEnergy:       w.config.MaxEnergy,
		TurnDuration:    w.config.TurnDuration,
	}
}

func (w *World) newMatch(roomID string) *game.Match {
	return game.NewMatch(roomID, w.rules(), w.cards, w.rng)
}

func (w *World) Cards() *card.Set {
	return w.cards
}

func (w *World) Config() config.Config {
	return w.config
}

// Connect registers a new websocket connection and returns the id of its player. The player is known to the
// world from the next tick on.
func (w *World) Connect(conn events.Conn) game.PlayerID {
	id := game.PlayerID(uuid.NewString())
	w.hub.Register(id, conn)
	w.pool.Add(txpool.Request{Player: id, Kind: txpool.KindOpen, ReceivedAt: time.Now()})
	return id
}

// Disconnect drops the connection right away. The player leaves their room on the next tick.
func (w *World) Disconnect(id game.PlayerID, conn events.Conn) {
	w.hub.Unregister(id, conn)
	w.pool.Add(txpool.Request{Player: id, Kind: txpool.KindClose, ReceivedAt: time.Now()})
}

// Submit queues a decoded frame for the next tick.
func (w *World) Submit(id game.PlayerID, f protocol.Frame) {
	w.pool.Add(txpool.Request{Player: id, Kind: txpool.KindFrame, Frame: f, ReceivedAt: time.Now()})
}

// Receive decodes a raw client frame and submits it. Frames that do not decode are answered with an error
// message instead.
func (w *World) Receive(id game.PlayerID, data []byte) error {
	f, err := protocol.DecodeClient(data)
	if err != nil {
		if emitErr := w.hub.Emit([]game.PlayerID{id}, errorMessage("", err)); emitErr != nil {
			return emitErr
		}
		return err
	}
	w.Submit(id, f)
	return nil
}

func (w *World) PendingRequests() int {
	return w.pool.Len()
}

func (w *World) ConnectionCount() int {
	return w.hub.ConnectionCount()
}

// Rooms lists the open rooms in creation order.
func (w *World) Rooms() []room.Summary {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.rooms.List()
}

func (w *World) Room(id string) (room.Summary, bool) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	r, ok := w.rooms.Get(id)
	if !ok {
		return room.Summary{}, false
	}
	return r.Summary(), true
}

func (w *World) PlayerCount() int {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return len(w.players)
}

// Shutdown closes every connection. The world cannot deliver messages afterwards.
// Shutdown tells every connected player that the server is going away, then closes their connections.
func (w *World) Shutdown() {
	if err := w.hub.Broadcast(protocol.Message{Type: protocol.TypeChat, Payload: protocol.SystemChat(chat.ShutdownText)}); err == nil {
		w.hub.Flush()
	}
	w.hub.Shutdown()
}

func errorMessage(requestID string, err error) protocol.Message {
	return protocol.Message{Type: protocol.TypeError, RequestID: requestID, Payload: protocol.Error{Message: err.Error()}}
}

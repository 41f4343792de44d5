// Package events owns the websocket connections of connected players and delivers queued messages to them once
// per tick.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/protocol"
)

const writeDeadline = 5 * time.Second

var ErrStopped = eris.New("event hub is shut down")

// Conn is the part of a websocket connection the hub writes to. Both fiber's and gorilla's connections satisfy it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type registration struct {
	player game.PlayerID
	conn   Conn
	done   chan bool
}

type outbound struct {
	to   []game.PlayerID
	all  bool
	data []byte
}

type Hub struct {
	connections            map[game.PlayerID]Conn
	emit                   chan outbound
	getQueueLength         chan chan int
	getAmountOfConnections chan chan int
	flush                  chan chan struct{}
	register               chan registration
	unregister             chan registration
	shutdown               chan struct{}
	stopped                chan struct{}
	queue                  []outbound
	isRunning              atomic.Bool
}

func NewHub() *Hub {
	h := &Hub{
		connections:            map[game.PlayerID]Conn{},
		emit:                   make(chan outbound),
		getQueueLength:         make(chan chan int),
		getAmountOfConnections: make(chan chan int),
		flush:                  make(chan chan struct{}),
		register:               make(chan registration),
		unregister:             make(chan registration),
		shutdown:               make(chan struct{}),
		stopped:                make(chan struct{}),
		queue:                  make([]outbound, 0),
	}
	go h.Run()
	return h
}

func (h *Hub) QueueLength() int {
	lengthChan := make(chan int)
	h.getQueueLength <- lengthChan
	return <-lengthChan
}

func (h *Hub) ConnectionCount() int {
	connAmountChan := make(chan int)
	h.getAmountOfConnections <- connAmountChan
	return <-connAmountChan
}

// Emit queues a message for the given players. It is delivered on the next Flush.
func (h *Hub) Emit(to []game.PlayerID, msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return h.send(outbound{to: to, data: data})
}

func (h *Hub) send(msg outbound) error {
	select {
	case h.emit <- msg:
		return nil
	case <-h.stopped:
		return ErrStopped
	}
}

// Broadcast queues a message for every connection that is registered when Flush runs.
func (h *Hub) Broadcast(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return h.send(outbound{all: true, data: data})
}

// Flush writes every queued message and blocks until all writes finished.
func (h *Hub) Flush() {
	done := make(chan struct{})
	select {
	case h.flush <- done:
		<-done
	case <-h.stopped:
	}
}

// Register associates a connection with a player, replacing any previous connection of that player.
func (h *Hub) Register(player game.PlayerID, conn Conn) {
	done := make(chan bool)
	select {
	case h.register <- registration{player: player, conn: conn, done: done}:
		<-done
	case <-h.stopped:
		_ = conn.Close()
	}
}

// Unregister closes and forgets the player's connection if it is still conn.
func (h *Hub) Unregister(player game.PlayerID, conn Conn) {
	done := make(chan bool)
	select {
	case h.unregister <- registration{player: player, conn: conn, done: done}:
		<-done
	case <-h.stopped:
	}
}

// Shutdown closes every connection and stops the hub. It is safe to call more than once.
func (h *Hub) Shutdown() {
	select {
	case h.shutdown <- struct{}{}:
		<-h.stopped
	case <-h.stopped:
	}
}

func (h *Hub) IsRunning() bool {
	return h.isRunning.Load()
}

//nolint:gocognit
func (h *Hub) Run() {
	if !h.isRunning.CompareAndSwap(false, true) {
		return
	}
	defer close(h.stopped)

	closeConnection := func(player game.PlayerID, conn Conn) {
		if current, ok := h.connections[player]; ok && current == conn {
			delete(h.connections, player)
		}
		if err := eris.Wrap(conn.Close(), ""); err != nil {
			log.Logger.Debug().Err(err).Str("player_id", string(player)).Msg("closing websocket failed")
		}
	}

Loop:
	for {
		select {
		case connChan := <-h.getAmountOfConnections:
			connChan <- len(h.connections)
		case lengthChan := <-h.getQueueLength:
			lengthChan <- len(h.queue)
		case reg := <-h.register:
			if old, ok := h.connections[reg.player]; ok && old != reg.conn {
				closeConnection(reg.player, old)
			}
			h.connections[reg.player] = reg.conn
			reg.done <- true
		case reg := <-h.unregister:
			if current, ok := h.connections[reg.player]; ok && current == reg.conn {
				closeConnection(reg.player, reg.conn)
			}
			reg.done <- true
		case msg := <-h.emit:
			h.queue = append(h.queue, msg)
		case done := <-h.flush:
			h.deliver()
			h.queue = h.queue[:0]
			close(done)
		case <-h.shutdown:
			for player, conn := range h.connections {
				closeConnection(player, conn)
			}
			break Loop
		}
	}
	h.isRunning.Store(false)
}

// deliver writes the queue to every connection in parallel, preserving order per connection.
func (h *Hub) deliver() {
	if len(h.queue) == 0 {
		return
	}
	perPlayer := make(map[game.PlayerID][][]byte, len(h.connections))
	for _, msg := range h.queue {
		if msg.all {
			for player := range h.connections {
				perPlayer[player] = append(perPlayer[player], msg.data)
			}
			continue
		}
		for _, player := range msg.to {
			if _, ok := h.connections[player]; ok {
				perPlayer[player] = append(perPlayer[player], msg.data)
			}
		}
	}

	var waitGroup sync.WaitGroup
	for player, frames := range perPlayer {
		conn := h.connections[player]
		waitGroup.Add(1)
		go func(player game.PlayerID, conn Conn, frames [][]byte) {
			defer waitGroup.Done()
			for _, data := range frames {
				err := eris.Wrap(conn.SetWriteDeadline(time.Now().Add(writeDeadline)), "")
				if err == nil {
					err = eris.Wrap(conn.WriteMessage(websocket.TextMessage, data), "")
				}
				if err != nil {
					go h.Unregister(player, conn)
					log.Logger.Error().
						Err(err).
						Str("player_id", string(player)).
						Msg("connection was unregistered because of this error: " + eris.ToString(err, true))
					return
				}
			}
		}(player, conn, frames)
	}
	waitGroup.Wait()
}

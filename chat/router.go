// Package chat routes room, private and system chat messages and answers slash commands.
package chat

import (
	"strings"
	"time"

	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/protocol"
)

const (
	NotInRoomText    = "You are not in a room"
	NotOnlineText    = "Player is not online"
	ConnectedText    = "Connected Successfully"
	WaitingText      = "Waiting for another player..."
	OpponentLeftText = "Your opponent has left. Room closed."
	ShutdownText     = "Server is shutting down"
)

type Sender struct {
	ID   game.PlayerID
	Name string
}

// Directory resolves the players and rooms chat can reach.
type Directory interface {
	Stats
	PlayerByName(name string) (game.PlayerID, bool)
	// RoomMembers returns the room of a player and everyone seated in it.
	RoomMembers(id game.PlayerID) (roomID string, members []game.PlayerID, ok bool)
	// NextSequence returns the next chat sequence id of a room.
	NextSequence(roomID string) uint64
}

type Delivery struct {
	To   []game.PlayerID
	Chat protocol.Chat
}

// Routed is the result of routing one message. Store is set for room messages that belong in the history.
type Routed struct {
	Deliveries []Delivery
	Store      *protocol.Chat
}

func (r *Routed) reply(to game.PlayerID, content string, now time.Time) {
	msg := protocol.SystemChat(content)
	msg.SentAt = &now
	r.Deliveries = append(r.Deliveries, Delivery{To: []game.PlayerID{to}, Chat: msg})
}

type Router struct {
	dir Directory
}

func NewRouter(dir Directory) *Router {
	return &Router{dir: dir}
}

// Route decides who receives msg. The message must already be validated.
func (r *Router) Route(from Sender, msg protocol.Chat, now time.Time) Routed {
	var out Routed
	msg.Sender = from.Name
	msg.SentAt = &now

	switch msg.Kind {
	case protocol.ChatRoom:
		if reply, ok := RunCommand(msg.Content, now, r.dir); ok {
			out.reply(from.ID, reply, now)
			return out
		}
		roomID, members, ok := r.dir.RoomMembers(from.ID)
		if !ok {
			out.reply(from.ID, NotInRoomText, now)
			return out
		}
		msg.RoomID = roomID
		msg.SequenceID = r.dir.NextSequence(roomID)
		out.Deliveries = append(out.Deliveries, Delivery{To: members, Chat: msg})
		stored := msg
		out.Store = &stored
	case protocol.ChatPrivate:
		to, ok := r.dir.PlayerByName(strings.TrimSpace(msg.Recipient))
		if !ok {
			out.reply(from.ID, NotOnlineText, now)
			return out
		}
		recipients := []game.PlayerID{to}
		if to != from.ID {
			recipients = append(recipients, from.ID)
		}
		out.Deliveries = append(out.Deliveries, Delivery{To: recipients, Chat: msg})
	case protocol.ChatSystem:
		if reply, ok := RunCommand(msg.Content, now, r.dir); ok {
			out.reply(from.ID, reply, now)
			return out
		}
		out.Deliveries = append(out.Deliveries, Delivery{To: []game.PlayerID{from.ID}, Chat: msg})
	}
	return out
}

// MatchedText is the notice sent to both players when their room fills up.
func MatchedText(roomID string) string {
	return "Matched! You are now in room " + strings.TrimPrefix(roomID, "room_")
}

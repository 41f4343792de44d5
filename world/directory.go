package world

import "pkg.world.dev/duel/game"

// directory exposes tick owned state to the chat router. It does not lock; it is only used inside a tick.
type directory struct {
	w *World
}

func (d directory) ConnectedCount() int {
	return len(d.w.players)
}

func (d directory) RoomCount() int {
	return d.w.rooms.Len()
}

func (d directory) PlayerByName(name string) (game.PlayerID, bool) {
	id, ok := d.w.byName[name]
	return id, ok
}

func (d directory) RoomMembers(id game.PlayerID) (string, []game.PlayerID, bool) {
	r, ok := d.w.rooms.RoomOf(id)
	if !ok {
		return "", nil, false
	}
	return r.ID(), r.PlayerIDs(), true
}

func (d directory) NextSequence(roomID string) uint64 {
	r, ok := d.w.rooms.Get(roomID)
	if !ok {
		return 0
	}
	return r.NextChatSequence()
}

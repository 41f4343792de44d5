package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/internal/assert"
	"pkg.world.dev/duel/protocol"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   []string
	closed   bool
	writeErr error
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.frames = append(f.frames, string(data))
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func contents(t *testing.T, frames []string) []string {
	t.Helper()
	out := make([]string, 0, len(frames))
	for _, raw := range frames {
		f, err := protocol.DecodeServer([]byte(raw))
		assert.NilError(t, err)
		c, err := protocol.DecodePayload[protocol.Chat](f)
		assert.NilError(t, err)
		out = append(out, c.Content)
	}
	return out
}

func chat(content string) protocol.Message {
	return protocol.Message{Type: protocol.TypeChat, Payload: protocol.SystemChat(content)}
}

func TestEmitIsTargetedAndOrdered(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	alice, bob := &fakeConn{}, &fakeConn{}
	h.Register("alice", alice)
	h.Register("bob", bob)
	assert.Equal(t, 2, h.ConnectionCount())

	assert.NilError(t, h.Emit([]game.PlayerID{"alice"}, chat("one")))
	assert.NilError(t, h.Emit([]game.PlayerID{"alice", "bob"}, chat("two")))
	assert.NilError(t, h.Emit([]game.PlayerID{"nobody"}, chat("lost")))
	assert.Equal(t, 3, h.QueueLength())

	assert.Len(t, alice.got(), 0, "nothing is written before a flush")
	h.Flush()
	assert.Equal(t, 0, h.QueueLength())

	assert.DeepEqual(t, []string{"one", "two"}, contents(t, alice.got()))
	assert.DeepEqual(t, []string{"two"}, contents(t, bob.got()))
}

func TestBroadcast(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	a, b := &fakeConn{}, &fakeConn{}
	h.Register("a", a)
	h.Register("b", b)
	assert.NilError(t, h.Broadcast(protocol.Message{Type: protocol.TypeError, Payload: protocol.Error{Message: "bye"}}))
	h.Flush()
	assert.Len(t, a.got(), 1)
	assert.Len(t, b.got(), 1)
}

func TestFailedWriteUnregisters(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	h.Register("broken", broken)
	assert.NilError(t, h.Emit([]game.PlayerID{"broken"}, chat("hi")))
	h.Flush()

	assert.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, broken.isClosed())
}

func TestReRegisterReplacesOldConnection(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	old, fresh := &fakeConn{}, &fakeConn{}
	h.Register("p", old)
	h.Register("p", fresh)
	assert.True(t, old.isClosed())
	assert.Equal(t, 1, h.ConnectionCount())

	// a stale unregister must not drop the new connection
	h.Unregister("p", old)
	assert.Equal(t, 1, h.ConnectionCount())

	h.Unregister("p", fresh)
	assert.Equal(t, 0, h.ConnectionCount())
	assert.True(t, fresh.isClosed())
}

func TestShutdownClosesConnections(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Register("p", c)
	h.Shutdown()
	assert.True(t, c.isClosed())
	assert.False(t, h.IsRunning())

	// calls after shutdown do not block
	h.Shutdown()
	h.Flush()
	assert.ErrorIs(t, h.Emit([]game.PlayerID{"p"}, chat("late")), ErrStopped)
}

// Package txpool buffers client requests between ticks.
package txpool

import (
	"sync"
	"time"

	"pkg.world.dev/duel/game"
	"pkg.world.dev/duel/protocol"
)

type Kind int

const (
	// KindFrame carries a decoded client frame.
	KindFrame Kind = iota
	// KindOpen is queued when a websocket connection is registered.
	KindOpen
	// KindClose is queued when a websocket connection goes away.
	KindClose
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	}
	return "unknown"
}

type Request struct {
	Player     game.PlayerID
	Kind       Kind
	Frame      protocol.Frame
	ReceivedAt time.Time
}

// Pool is a FIFO of requests. It is safe for concurrent use.
type Pool struct {
	requests []Request
	mux      *sync.Mutex
}

func New() *Pool {
	return &Pool{
		requests: make([]Request, 0),
		mux:      &sync.Mutex{},
	}
}

func (p *Pool) Add(r Request) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.requests = append(p.requests, r)
}

func (p *Pool) Len() int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return len(p.requests)
}

// CopyRequests returns the queued requests in arrival order and resets the pool.
func (p *Pool) CopyRequests() []Request {
	p.mux.Lock()
	defer p.mux.Unlock()
	cpy := p.requests
	p.requests = make([]Request, 0, len(cpy))
	return cpy
}

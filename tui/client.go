package tui

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"

	"pkg.world.dev/duel/protocol"
)

// Sender delivers a request to the server and returns the request id it was sent with.
type Sender interface {
	Send(t protocol.Type, payload any) (string, error)
}

// FrameMsg carries one frame received from the server.
type FrameMsg struct {
	Frame protocol.Frame
}

// DisconnectedMsg is sent once the connection is gone.
type DisconnectedMsg struct {
	Err error
}

type Client struct {
	conn   *websocket.Conn
	nextID atomic.Uint64
	mu     sync.Mutex
}

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to connect to %s", url)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Send(t protocol.Type, payload any) (string, error) {
	requestID := "r" + strconv.FormatUint(c.nextID.Add(1), 10)
	bz, err := protocol.Encode(t, requestID, payload)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, bz); err != nil {
		return "", eris.Wrap(err, "failed to send")
	}
	return requestID, nil
}

// Listen waits for the next frame. The model issues it again after every FrameMsg.
func (c *Client) Listen() tea.Cmd {
	return func() tea.Msg {
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return DisconnectedMsg{Err: eris.Wrap(err, "connection lost")}
			}
			f, err := protocol.DecodeServer(data)
			if err != nil {
				continue
			}
			return FrameMsg{Frame: f}
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return eris.Wrap(c.conn.Close(), "")
}

package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/duel/events"
	"pkg.world.dev/duel/game"
)

// Sessions is the part of the world a websocket connection talks to.
type Sessions interface {
	Connect(conn events.Conn) game.PlayerID
	Disconnect(id game.PlayerID, conn events.Conn)
	Receive(id game.PlayerID, data []byte) error
}

func WebSocketUpgrader(c *fiber.Ctx) error {
	// IsWebSocketUpgrade returns true if the client
	// requested upgrade to the WebSocket protocol.
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return eris.Wrap(c.Next(), "")
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketSession registers the connection as a player and feeds every text frame it sends to the world. Writes
// happen on the event hub, never here.
func WebSocketSession(s Sessions) func(*fiber.Ctx) error {
	return websocket.New(func(conn *websocket.Conn) {
		id := s.Connect(conn)
		defer s.Disconnect(id, conn)
		logger := log.With().Str("player_id", string(id)).Logger()
		logger.Debug().Msg("websocket opened")

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn().Err(eris.Wrap(err, "")).Msg("websocket read message failed")
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			if err := s.Receive(id, msg); err != nil {
				logger.Debug().Err(err).Msg("client frame rejected")
			}
		}
	})
}

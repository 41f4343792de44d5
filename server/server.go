// Package server exposes the world over HTTP and WebSocket.
package server

import (
	"context"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/duel/config"
	"pkg.world.dev/duel/server/handler"
	"pkg.world.dev/duel/world"
)

const shutdownTimeout = 5 * time.Second

// Readers serve the history endpoints. Endpoints whose reader is nil are not registered.
type Readers struct {
	Chat    handler.ChatHistory
	Matches handler.MatchHistory
	Stats   handler.StatsReader
}

type Server struct {
	app     *fiber.App
	w       *world.World
	port    string
	readers Readers

	matchLimit        int
	isGameLoopRunning func() bool
}

type Option func(*Server)

func WithPort(port string) Option {
	return func(s *Server) {
		s.port = port
	}
}

func WithReaders(r Readers) Option {
	return func(s *Server) {
		s.readers = r
	}
}

// WithGameLoopCheck is reported by the health endpoint.
func WithGameLoopCheck(isRunning func() bool) Option {
	return func(s *Server) {
		s.isGameLoopRunning = isRunning
	}
}

func New(w *world.World, opts ...Option) (*Server, error) {
	if w == nil {
		return nil, eris.New("server requires a non-nil world")
	}

	app := fiber.New(fiber.Config{
		Network:               "tcp", // Enable server listening on both ipv4 & ipv6 (default: ipv4 only)
		DisableStartupMessage: true,
		ErrorHandler:          handleError,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(cors.New())

	s := &Server{
		app:        app,
		w:          w,
		port:       w.Config().Port,
		matchLimit: w.Config().RecentMatchLimit,
	}
	if s.port == "" {
		s.port = config.DefaultPort
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens on the configured port and blocks until ctx is canceled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return eris.Wrapf(err, "failed to listen on port %s", s.port)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	serverErr := make(chan error, 1)

	go func() {
		log.Info().Msgf("Starting HTTP server at %s", ln.Addr().String())
		if err := s.app.Listener(ln); err != nil {
			serverErr <- eris.Wrap(err, "error starting http server")
		}
	}()

	select {
	case err := <-serverErr:
		return eris.Wrap(err, "server encountered an error")
	case <-ctx.Done():
		if err := s.shutdown(); err != nil {
			return eris.Wrap(err, "error shutting down server")
		}
	}
	return nil
}

func (s *Server) shutdown() error {
	log.Info().Msg("Shutting down server")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return eris.Wrap(err, "error shutting down server")
	}
	log.Info().Msg("Successfully shut down server")
	return nil
}

func (s *Server) setupRoutes() {
	// Route: /ws
	s.app.Use("/ws", handler.WebSocketUpgrader)
	s.app.Get("/ws", handler.WebSocketSession(s.w))

	// Route: /health
	s.app.Get("/health", handler.GetHealth(s.w, s.isGameLoopRunning))

	// Route: /rooms/...
	rooms := s.app.Group("/rooms")
	rooms.Get("/", handler.GetRooms(s.w))
	rooms.Get("/:id", handler.GetRoom(s.w))
	if s.readers.Chat != nil {
		rooms.Get("/:id/chat", handler.GetRoomChat(s.readers.Chat))
	}

	if s.readers.Matches != nil {
		s.app.Get("/matches", handler.GetMatches(s.readers.Matches, s.matchLimit))
	}
	if s.readers.Stats != nil {
		s.app.Get("/players/:name/stats", handler.GetPlayerStats(s.readers.Stats))
	}

	// Route: /schema/...
	s.app.Get("/schema/messages", handler.GetMessageSchemas())
}

package log

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup configures the global logger. Pretty output goes through a zerolog.ConsoleWriter.
func Setup(level string, pretty bool) error {
	return SetupWriter(os.Stderr, level, pretty)
}

func SetupWriter(w io.Writer, level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	zlog.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

// RoomSummary is the loggable view of a room.
type RoomSummary interface {
	RoomID() string
	PlayerNames() []string
	PhaseName() string
	TurnOwner() string
}

// Room logs a room summary at the given level.
func Room(logger *zerolog.Logger, level zerolog.Level, room RoomSummary) {
	players := zerolog.Arr()
	for _, name := range room.PlayerNames() {
		players = players.Str(name)
	}
	logger.WithLevel(level).
		Str("room_id", room.RoomID()).
		Array("players", players).
		Str("phase", room.PhaseName()).
		Str("turn", room.TurnOwner()).
		Send()
}

// CreateRoomLogger creates a sub logger with the entry {"room": roomID}.
func CreateRoomLogger(logger *zerolog.Logger, roomID string) *zerolog.Logger {
	newLogger := logger.With().Str("room", roomID).Logger()
	return &newLogger
}

// CreatePlayerLogger creates a sub logger tagged with both the player id and display name.
func CreatePlayerLogger(logger *zerolog.Logger, playerID, name string) *zerolog.Logger {
	newLogger := logger.With().Str("player_id", playerID).Str("player", name).Logger()
	return &newLogger
}

// CreateTraceLogger Creates a trace Logger. Using a single id you can use this Logger to follow and log a data path.
func CreateTraceLogger(logger *zerolog.Logger, traceID string) *zerolog.Logger {
	newLogger := logger.With().Str("trace_id", traceID).Logger()
	return &newLogger
}

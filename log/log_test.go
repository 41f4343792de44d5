package log

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"pkg.world.dev/duel/internal/assert"
)

type testRoom struct{}

func (testRoom) RoomID() string        { return "room_1" }
func (testRoom) PlayerNames() []string { return []string{"alice", "bob"} }
func (testRoom) PhaseName() string     { return "in_progress" }
func (testRoom) TurnOwner() string     { return "alice" }

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	out := map[string]any{}
	assert.NilError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestRoomLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	Room(&logger, zerolog.InfoLevel, testRoom{})

	line := decodeLine(t, &buf)
	assert.Equal(t, "room_1", line["room_id"])
	assert.Equal(t, "in_progress", line["phase"])
	assert.Equal(t, "alice", line["turn"])
	assert.DeepEqual(t, []any{"alice", "bob"}, line["players"])
}

func TestSubLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	roomLogger := CreateRoomLogger(&logger, "room_7")
	playerLogger := CreatePlayerLogger(roomLogger, "p-1", "carol")
	CreateTraceLogger(playerLogger, "abc").Info().Msg("hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "room_7", line["room"])
	assert.Equal(t, "p-1", line["player_id"])
	assert.Equal(t, "carol", line["player"])
	assert.Equal(t, "abc", line["trace_id"])
	assert.Equal(t, "hello", line["message"])
}

func TestSetupRejectsBadLevel(t *testing.T) {
	err := SetupWriter(&bytes.Buffer{}, "shouting", false)
	assert.ErrorContains(t, err, "shouting")
}

func TestSetupWritesJSON(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)
	var buf bytes.Buffer
	assert.NilError(t, SetupWriter(&buf, "warn", false))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

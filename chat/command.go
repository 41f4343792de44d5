package chat

import (
	"fmt"
	"strings"
	"time"
)

const (
	HelpText = "Available commands:\n" +
		"/help - Show this help message\n" +
		"/time - Show current time\n" +
		"/users - Show number of connected users\n" +
		"/rooms - Show number of open rooms"
	UnknownCommandText = "Unknown command. Type /help for available commands."
	TimeLayout         = "2006-01-02 15:04:05"
)

// Stats is what commands can report about the server.
type Stats interface {
	ConnectedCount() int
	RoomCount() int
}

// RunCommand answers a slash command. ok is false when content is not a command.
func RunCommand(content string, now time.Time, stats Stats) (reply string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "/") {
		return "", false
	}
	name := strings.Fields(content)[0]
	switch name {
	case "/help":
		return HelpText, true
	case "/time":
		return "Current server time: " + now.Format(TimeLayout), true
	case "/users":
		return fmt.Sprintf("Connected users: %d", stats.ConnectedCount()), true
	case "/rooms":
		return fmt.Sprintf("Open rooms: %d", stats.RoomCount()), true
	}
	return UnknownCommandText, true
}

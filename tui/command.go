package tui

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/protocol"
)

var (
	ErrEmptyInput = eris.New("nothing to send")
	ErrUsage      = eris.New("usage")
)

const HelpText = "/end  /draw [n]  /play <id> [target]  /block  /discard <id>...  /swap <id>...  " +
	"/w <name> <msg>  /queue  /quit   (/help /time /users /rooms are answered by the server)"

// Request is a parsed input line ready to be sent.
type Request struct {
	Type    protocol.Type
	Payload any
	Quit    bool
}

// ParseInput turns an input line into a request. Lines without a known client command are room chat, which
// includes the slash commands the server answers itself.
func ParseInput(line, name string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, ErrEmptyInput
	}
	fields := strings.Fields(line)
	args := fields[1:]

	switch fields[0] {
	case "/quit":
		return Request{Quit: true}, nil
	case "/queue":
		return Request{Type: protocol.TypeConnect, Payload: protocol.Connect{Name: name}}, nil
	case "/end":
		return Request{Type: protocol.TypeEndTurn}, nil
	case "/draw":
		amount := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return Request{}, eris.Wrap(ErrUsage, "/draw [n]")
			}
			amount = n
		}
		payload := protocol.DrawCard{Amount: amount}
		return Request{Type: protocol.TypeDrawCard, Payload: payload}, payload.Validate()
	case "/play":
		ids, err := parseIDs(args)
		if err != nil || len(ids) == 0 || len(ids) > 2 {
			return Request{}, eris.Wrap(ErrUsage, "/play <id> [target]")
		}
		payload := protocol.PlayCard{CardID: ids[0]}
		if len(ids) == 2 {
			payload.Target = &ids[1]
		}
		return Request{Type: protocol.TypePlayCard, Payload: payload}, nil
	case "/block":
		return Request{Type: protocol.TypeSpecialAction, Payload: protocol.SpecialAction{Action: protocol.ActionBlock}}, nil
	case "/discard", "/swap":
		ids, err := parseIDs(args)
		if err != nil || len(ids) == 0 {
			return Request{}, eris.Wrapf(ErrUsage, "%s <id>...", fields[0])
		}
		action := protocol.ActionDiscard
		if fields[0] == "/swap" {
			action = protocol.ActionSwap
		}
		return Request{Type: protocol.TypeSpecialAction, Payload: protocol.SpecialAction{Action: action, Targets: ids}}, nil
	case "/w":
		if len(args) < 2 {
			return Request{}, eris.Wrap(ErrUsage, "/w <name> <msg>")
		}
		msg, err := protocol.NewPrivateChat(args[0], strings.Join(args[1:], " "))
		return Request{Type: protocol.TypeChat, Payload: msg}, err
	}

	msg, err := protocol.NewRoomChat(line)
	return Request{Type: protocol.TypeChat, Payload: msg}, err
}

func parseIDs(args []string) ([]card.ID, error) {
	ids := make([]card.ID, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseUint(strings.TrimPrefix(a, "#"), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "%q is not a card id", a)
		}
		ids = append(ids, card.ID(n))
	}
	return ids, nil
}

package protocol

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"pkg.world.dev/duel/card"
)

const (
	MaxNameLength    = 32
	MaxContentLength = 500
	MaxDrawAmount    = 10
)

var (
	ErrEmptyName      = eris.New("name must not be empty")
	ErrNameTooLong    = eris.New("name is too long")
	ErrEmptyContent   = eris.New("message content must not be empty")
	ErrContentTooLong = eris.New("message content is too long")
	ErrEmptyRecipient = eris.New("private message recipient must not be empty")
	ErrUnknownKind    = eris.New("unknown chat kind")
	ErrUnknownAction  = eris.New("unknown special action")
	ErrNoTargets      = eris.New("special action needs at least one target")
	ErrBadAmount      = eris.New("draw amount out of range")
	ErrNoCard         = eris.New("card id must be set")
)

// Connect announces the display name of a freshly opened connection.
type Connect struct {
	Name string `json:"name" jsonschema:"minLength=1,maxLength=32"`
}

func NewConnect(name string) (Connect, error) {
	c := Connect{Name: strings.TrimSpace(name)}
	return c, c.Validate()
}

func (c *Connect) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(c.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

type DrawCard struct {
	Amount int `json:"amount" jsonschema:"minimum=1,maximum=10"`
}

func (d DrawCard) Validate() error {
	if d.Amount < 1 || d.Amount > MaxDrawAmount {
		return ErrBadAmount
	}
	return nil
}

type PlayCard struct {
	CardID card.ID  `json:"card_id"`
	Target *card.ID `json:"target,omitempty"`
}

func (p PlayCard) Validate() error {
	if p.CardID == 0 {
		return ErrNoCard
	}
	return nil
}

type ActionType string

const (
	ActionDiscard ActionType = "discard"
	ActionSwap    ActionType = "swap"
	ActionBlock   ActionType = "block"
)

type SpecialAction struct {
	Action  ActionType `json:"action" jsonschema:"enum=discard,enum=swap,enum=block"`
	Targets []card.ID  `json:"targets,omitempty"`
}

func (s SpecialAction) Validate() error {
	switch s.Action {
	case ActionDiscard, ActionSwap:
		if len(s.Targets) == 0 {
			return ErrNoTargets
		}
	case ActionBlock:
	default:
		return eris.Wrapf(ErrUnknownAction, "%q", s.Action)
	}
	return nil
}

type ChatKind string

const (
	ChatRoom    ChatKind = "room"
	ChatPrivate ChatKind = "private"
	ChatSystem  ChatKind = "system"
)

// Chat is used in both directions. Clients never set Sender or SequenceID; the server fills them in.
type Chat struct {
	Kind       ChatKind   `json:"kind" jsonschema:"enum=room,enum=private,enum=system"`
	Sender     string     `json:"sender,omitempty"`
	Recipient  string     `json:"recipient,omitempty"`
	Content    string     `json:"content"`
	RoomID     string     `json:"room_id,omitempty"`
	SequenceID uint64     `json:"sequence_id,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

func NewRoomChat(content string) (Chat, error) {
	c := Chat{Kind: ChatRoom, Content: content}
	return c, c.Validate()
}

func NewPrivateChat(recipient, content string) (Chat, error) {
	c := Chat{Kind: ChatPrivate, Recipient: recipient, Content: content}
	return c, c.Validate()
}

func NewSystemChat(content string) (Chat, error) {
	c := Chat{Kind: ChatSystem, Content: content}
	return c, c.Validate()
}

// SystemChat builds a server notice. Server notices are never empty so no error is returned.
func SystemChat(content string) Chat {
	return Chat{Kind: ChatSystem, Content: content}
}

func (c Chat) Validate() error {
	switch c.Kind {
	case ChatRoom, ChatSystem:
	case ChatPrivate:
		if strings.TrimSpace(c.Recipient) == "" {
			return ErrEmptyRecipient
		}
	default:
		return eris.Wrapf(ErrUnknownKind, "%q", c.Kind)
	}
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(c.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// IsCommand reports whether the content is a slash command.
func (c Chat) IsCommand() bool {
	return strings.HasPrefix(c.Content, "/")
}

type Welcome struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type Waiting struct {
	RoomID string `json:"room_id"`
}

type Matched struct {
	RoomID     string `json:"room_id"`
	OpponentID string `json:"opponent_id"`
	Opponent   string `json:"opponent"`
}

type CurrentTurn struct {
	PlayerID   string     `json:"player_id,omitempty"`
	TurnNumber int        `json:"turn_number"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

type CardsDrawn struct {
	Cards   []card.Card `json:"cards"`
	Fatigue int         `json:"fatigue,omitempty"`
}

type OpponentDrew struct {
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
}

type CardPlayed struct {
	PlayerID string    `json:"player_id"`
	Card     card.Card `json:"card"`
	Target   *card.ID  `json:"target,omitempty"`
	Damage   int       `json:"damage"`
	Blocked  bool      `json:"blocked,omitempty"`
}

type CardDiscarded struct {
	PlayerID string    `json:"player_id"`
	Card     card.Card `json:"card"`
}

type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

type PlayerView struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Health   int    `json:"health"`
	Energy   int    `json:"energy"`
	DeckSize int    `json:"deck_size"`
	HandSize int    `json:"hand_size"`
	Blocking bool   `json:"blocking"`
}

// State is a snapshot of a match as seen by one player. Only the viewer's hand is included.
type State struct {
	RoomID      string       `json:"room_id"`
	Phase       Phase        `json:"phase"`
	Winner      string       `json:"winner,omitempty"`
	Turn        string       `json:"turn,omitempty"`
	TurnNumber  int          `json:"turn_number"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	Hand        []card.Card  `json:"hand"`
	Players     []PlayerView `json:"players"`
	DiscardSize int          `json:"discard_size"`
}

type GameOver struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Reject struct {
	Reason string `json:"reason"`
}

type Error struct {
	Message string `json:"message"`
}

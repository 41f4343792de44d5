// Package protocol defines the JSON frames exchanged over the websocket.
//
// Every frame has the shape {"type": ..., "request_id": ..., "payload": ...}. Clients set request_id on requests
// they want acknowledged; the server answers with an ack or reject frame carrying the same id.
package protocol

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

type Type string

// Client to server.
const (
	TypeConnect       Type = "connect"
	TypeEndTurn       Type = "end_turn"
	TypeDrawCard      Type = "draw_card"
	TypePlayCard      Type = "play_card"
	TypeSpecialAction Type = "special_action"
	TypeChat          Type = "chat"
)

// Server to client. TypeChat is shared by both directions.
const (
	TypeWelcome       Type = "welcome"
	TypeWaiting       Type = "waiting"
	TypeMatched       Type = "matched"
	TypeCurrentTurn   Type = "current_turn"
	TypeCardsDrawn    Type = "cards_drawn"
	TypeOpponentDrew  Type = "opponent_drew"
	TypeCardPlayed    Type = "card_played"
	TypeCardDiscarded Type = "card_discarded"
	TypeState         Type = "state"
	TypeGameOver      Type = "game_over"
	TypeAck           Type = "ack"
	TypeReject        Type = "reject"
	TypeError         Type = "error"
)

var (
	ErrEmptyFrame      = eris.New("empty frame")
	ErrUnknownType     = eris.New("unknown message type")
	ErrMissingPayload  = eris.New("missing payload")
	ErrInvalidPayload  = eris.New("invalid payload")
	ErrNotClientBound  = eris.New("message type is not sent by clients")
	ErrNotServerBound  = eris.New("message type is not sent by the server")
	ErrInvalidEnvelope = eris.New("invalid frame")
)

var clientTypes = map[Type]bool{
	TypeConnect:       true,
	TypeEndTurn:       false,
	TypeDrawCard:      true,
	TypePlayCard:      true,
	TypeSpecialAction: true,
	TypeChat:          true,
}

var serverTypes = map[Type]bool{
	TypeWelcome:       true,
	TypeWaiting:       true,
	TypeMatched:       true,
	TypeCurrentTurn:   true,
	TypeCardsDrawn:    true,
	TypeOpponentDrew:  true,
	TypeCardPlayed:    true,
	TypeCardDiscarded: true,
	TypeState:         true,
	TypeGameOver:      true,
	TypeChat:          true,
	TypeAck:           false,
	TypeReject:        true,
	TypeError:         true,
}

// Frame is a decoded frame whose payload has not been interpreted yet.
type Frame struct {
	Type      Type            `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Message is an outbound frame with a typed payload.
type Message struct {
	Type      Type   `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

func (m Message) Encode() ([]byte, error) {
	bz, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to encode %s message", m.Type)
	}
	return bz, nil
}

func hasPayload(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, eris.Wrap(ErrInvalidEnvelope, err.Error())
	}
	if f.Type == "" {
		return Frame{}, eris.Wrap(ErrInvalidEnvelope, "missing type")
	}
	return f, nil
}

// DecodeClient parses a frame sent by a client and checks that its type is known and that a payload is present
// when the type requires one.
func DecodeClient(data []byte) (Frame, error) {
	f, err := decodeFrame(data)
	if err != nil {
		return Frame{}, err
	}
	needsPayload, ok := clientTypes[f.Type]
	if !ok {
		if _, isServer := serverTypes[f.Type]; isServer {
			return Frame{}, eris.Wrapf(ErrNotClientBound, "%q", f.Type)
		}
		return Frame{}, eris.Wrapf(ErrUnknownType, "%q", f.Type)
	}
	if needsPayload && !hasPayload(f.Payload) {
		return Frame{}, eris.Wrapf(ErrMissingPayload, "%q", f.Type)
	}
	return f, nil
}

// DecodeServer parses a frame sent by the server.
func DecodeServer(data []byte) (Frame, error) {
	f, err := decodeFrame(data)
	if err != nil {
		return Frame{}, err
	}
	needsPayload, ok := serverTypes[f.Type]
	if !ok {
		if _, isClient := clientTypes[f.Type]; isClient {
			return Frame{}, eris.Wrapf(ErrNotServerBound, "%q", f.Type)
		}
		return Frame{}, eris.Wrapf(ErrUnknownType, "%q", f.Type)
	}
	if needsPayload && !hasPayload(f.Payload) {
		return Frame{}, eris.Wrapf(ErrMissingPayload, "%q", f.Type)
	}
	return f, nil
}

// Validator is implemented by client payloads that check their own fields.
type Validator interface {
	Validate() error
}

// DecodePayload unmarshals the frame payload into T and validates it when T implements Validator.
func DecodePayload[T any](f Frame) (T, error) {
	var payload T
	if !hasPayload(f.Payload) {
		return payload, eris.Wrapf(ErrMissingPayload, "%q", f.Type)
	}
	if err := json.Unmarshal(f.Payload, &payload); err != nil {
		return payload, eris.Wrap(ErrInvalidPayload, err.Error())
	}
	if v, ok := any(&payload).(Validator); ok {
		if err := v.Validate(); err != nil {
			return payload, err
		}
	}
	return payload, nil
}

// Encode builds a single frame.
func Encode(t Type, requestID string, payload any) ([]byte, error) {
	return Message{Type: t, RequestID: requestID, Payload: payload}.Encode()
}

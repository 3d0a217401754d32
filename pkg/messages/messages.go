package messages

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const Version = "1"

var (
	ErrMessageInvalid     = errors.New("message was invalid")
	ErrUnknownMessageType = errors.New("unknown message type")
)

type Type int

const (
	StateMsgType Type = iota
	DoneRequestType
	RollRequestType
)

type Message struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused
	Type     Type     `msgpack:"type"`
	Version  string   `msgpack:"version"`
	Payload  any
}

func New(payload any) (Message, error) {
	m := Message{Version: Version, Payload: payload}
	switch payload.(type) {
	case RoomState:
		m.Type = StateMsgType
	case DoneRequest:
		m.Type = DoneRequestType
	case RollRequest:
		m.Type = RollRequestType
	default:
		return m, fmt.Errorf("%w: %T", ErrUnknownMessageType, payload)
	}
	return m, nil
}

// Encode wraps payload in a Message and marshals it.
func Encode(payload any) ([]byte, error) {
	m, err := New(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(m)
}

func (m *Message) UnmarshalMsgpack(b []byte) error {
	decoder := msgpack.NewDecoder(bytes.NewReader(b))
	l, err := decoder.DecodeArrayLen()
	if err != nil {
		return err
	}
	if l != 3 {
		return fmt.Errorf("%w: expected 3 fields, got %d", ErrMessageInvalid, l)
	}
	t, err := decoder.DecodeInt()
	if err != nil {
		return err
	}
	m.Type = Type(t)

	if m.Version, err = decoder.DecodeString(); err != nil {
		return err
	}

	switch m.Type {
	case DoneRequestType:
		var done DoneRequest
		if err = decoder.Decode(&done); err != nil {
			return err
		}
		m.Payload = done
	case StateMsgType:
		var room RoomState
		if err = decoder.Decode(&room); err != nil {
			return err
		}
		m.Payload = room
	case RollRequestType:
		var roll RollRequest
		if err = decoder.Decode(&roll); err != nil {
			return err
		}
		m.Payload = roll
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMessageType, m.Type)
	}
	return nil
}

type RoomState struct {
	Version int          `msgpack:"version"`
	Name    string       `msgpack:"name"`
	Dice    string       `msgpack:"required_roll"`
	Rolls   []RollResult `msgpack:"rolls"`
}

// RollRequest joins a room or rerolls. An empty Roll uses the room's dice.
type RollRequest struct {
	User string `msgpack:"user"`
	Roll string `msgpack:"roll"`
}

type RollResult struct {
	User     string `msgpack:"user"`
	Notation string `msgpack:"notation"`
	Result   int    `msgpack:"result"`
	Dice     []int  `msgpack:"dice"`
	Error    string `msgpack:"error"`
	IsDone   bool   `msgpack:"is_done"`
}

type DoneRequest struct {
	User string `msgpack:"user"`
}

// Package messages defines the voxedit wire protocol: a JSON envelope carried
// in WebSocket text frames, the payloads it transports and the helpers to send
// and receive them.
package messages

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	// The error type returned by handlers when a message is not meant for
	// them.
	ErrTypeMsgSkip = "msg_skip"

	ErrTypeSessionNotJoined     = "session_not_joined"
	ErrTypeSessionAlreadyJoined = "session_already_joined"
	ErrTypeBadMsg               = "bad_msg"
)

// MsgType identifies the payload of a message.
type MsgType string

// Msg is the envelope of every message exchanged between a client and the
// server.
type Msg struct {
	Type      MsgType         `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Payload is the body of a message.
type Payload interface {
	MsgType() MsgType
}

// MsgFromPayload wraps the given payload in a message envelope.
func MsgFromPayload(p Payload) (Msg, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Msg{}, errors.New("encoding message payload failed").
			WithTag("type", p.MsgType()).
			Wrap(err)
	}

	return Msg{
		Type:      p.MsgType(),
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// DataTo decodes the message payload into v.
func (m Msg) DataTo(v Payload) error {
	if v.MsgType() != m.Type {
		return errors.New("unexpected message type").
			WithType(ErrTypeBadMsg).
			WithTag("expected", v.MsgType()).
			WithTag("type", m.Type)
	}

	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message payload failed").
			WithType(ErrTypeBadMsg).
			WithTag("type", m.Type).
			Wrap(err)
	}
	return nil
}

// ResponseSender sends messages to a client.
type ResponseSender interface {
	// Sends the given payload.
	Send(Payload)

	// Sends an already encoded message.
	SendMsg(Msg)
}

// Sender writes a message on a connection and returns the number of bytes
// written.
type Sender func(Msg) (int, error)

// Receiver reads a message from a connection and returns it with the number
// of bytes read.
type Receiver func() (Msg, int, error)

// NewSender returns a sender that writes JSON text frames on the given
// connection.
func NewSender(conn *websocket.Conn) Sender {
	return func(msg Msg) (int, error) {
		b, err := json.Marshal(msg)
		if err != nil {
			return 0, errors.New("encoding message failed").
				WithTag("type", msg.Type).
				Wrap(err)
		}

		if err := websocket.Message.Send(conn, string(b)); err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

// NewReceiver returns a receiver that reads JSON frames from the given
// connection.
func NewReceiver(conn *websocket.Conn) Receiver {
	return func() (Msg, int, error) {
		var b []byte
		if err := websocket.Message.Receive(conn, &b); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(b, &msg); err != nil {
			return Msg{}, len(b), errors.New("decoding message failed").
				WithType(ErrTypeBadMsg).
				Wrap(err)
		}
		return msg, len(b), nil
	}
}

// Package client implements a voxedit WebSocket client, used by the smoke test
// and by tests that drive a server end to end.
package client

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/messages"
	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
)

// The error type of errors created from error responses.
const ErrTypeErrorResponse = "error_response"

// Client is a connection to a voxedit server.
type Client struct {
	conn      *websocket.Conn
	requestID uint32
}

// Dial connects to the voxedit server at the given endpoint. Both http(s) and
// ws(s) schemes are accepted.
func Dial(ctx context.Context, endpoint string, header http.Header) (*Client, error) {
	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)
	endpoint = strings.Replace(endpoint, "https://", "wss://", 1)

	if header == nil {
		header = make(http.Header)
	}
	if header.Get("Origin") == "" {
		header = header.Clone()
		header.Set("Origin", "http://localhost")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, errors.New("dialing voxedit server failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}

	return &Client{conn: conn}, nil
}

// NextRequestID returns a new request id.
func (c *Client) NextRequestID() uint32 {
	return atomic.AddUint32(&c.requestID, 1)
}

// Send sends the given payload.
func (c *Client) Send(p messages.Payload) error {
	msg, err := messages.MsgFromPayload(p)
	if err != nil {
		return err
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.New("encoding message failed").
			WithTag("type", msg.Type).
			Wrap(err)
	}

	if err = c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.New("sending message failed").
			WithTag("type", msg.Type).
			Wrap(err)
	}
	return nil
}

// Receive reads the next message. The read is aborted when the context
// deadline expires.
func (c *Client) Receive(ctx context.Context) (messages.Msg, error) {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return messages.Msg{}, err
	}

	_, b, err := c.conn.ReadMessage()
	if err != nil {
		return messages.Msg{}, errors.New("receiving message failed").Wrap(err)
	}

	var msg messages.Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return messages.Msg{}, errors.New("decoding message failed").
			WithType(messages.ErrTypeBadMsg).
			Wrap(err)
	}
	return msg, nil
}

// ReceiveType reads messages until one of the given types is received. Other
// messages are discarded, except error responses that are returned as an
// error when not expected.
func (c *Client) ReceiveType(ctx context.Context, types ...messages.MsgType) (messages.Msg, error) {
	for {
		msg, err := c.Receive(ctx)
		if err != nil {
			return messages.Msg{}, err
		}

		for _, t := range types {
			if msg.Type == t {
				return msg, nil
			}
		}

		if msg.Type == messages.MsgTypeErrorResponse {
			var res messages.ErrorResponse
			if err := msg.DataTo(&res); err != nil {
				return messages.Msg{}, err
			}
			return messages.Msg{}, errors.New("error response received").
				WithType(ErrTypeErrorResponse).
				WithTag("request_id", res.RequestID).
				WithTag("code", res.Code).
				WithTag("message", res.Message)
		}
	}
}

// ReceivePayload reads messages until one matching the payload type is
// received and decodes it into p.
func (c *Client) ReceivePayload(ctx context.Context, p messages.Payload) error {
	msg, err := c.ReceiveType(ctx, p.MsgType())
	if err != nil {
		return err
	}
	return msg.DataTo(p)
}

// Join joins the session with the given global id. An empty id creates a new
// session.
func (c *Client) Join(ctx context.Context, sessionID string) (messages.ParticipantJoinResponse, error) {
	var res messages.ParticipantJoinResponse

	err := c.Send(messages.ParticipantJoinRequest{
		RequestID: c.NextRequestID(),
		SessionID: sessionID,
	})
	if err != nil {
		return res, err
	}

	err = c.ReceivePayload(ctx, &res)
	return res, err
}

// Ping sends a ping request and returns the round trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	requestID := c.NextRequestID()

	if err := c.Send(messages.PingRequest{RequestID: requestID}); err != nil {
		return 0, err
	}

	for {
		var res messages.PingResponse
		if err := c.ReceivePayload(ctx, &res); err != nil {
			return 0, err
		}
		if res.RequestID == requestID {
			return time.Since(start), nil
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/messages"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// newServer starts a server that answers pings, and answers any other
// message with a bad request error.
func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			send := messages.NewSender(conn)
			receive := messages.NewReceiver(conn)

			reply := func(p messages.Payload) {
				msg, err := messages.MsgFromPayload(p)
				if err != nil {
					return
				}
				send(msg)
			}

			for {
				msg, _, err := receive()
				if err != nil {
					return
				}

				reply(messages.SyncClock{})

				var ping messages.PingRequest
				if err := msg.DataTo(&ping); err != nil {
					reply(messages.ErrorResponse{Code: messages.ErrorCodeBadRequest})
					continue
				}
				reply(messages.PingResponse{RequestID: ping.RequestID})
			}
		},
	})
	t.Cleanup(server.Close)
	return server
}

func TestClient(t *testing.T) {
	server := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := Dial(ctx, server.URL, nil)
	require.NoError(t, err)
	defer c.Close()

	t.Run("ping", func(t *testing.T) {
		latency, err := c.Ping(ctx)
		require.NoError(t, err)
		require.NotZero(t, latency)
	})

	t.Run("request ids are sequential", func(t *testing.T) {
		id := c.NextRequestID()
		require.Equal(t, id+1, c.NextRequestID())
	})

	t.Run("unexpected error response", func(t *testing.T) {
		err := c.Send(messages.ParticipantJoinRequest{RequestID: 3})
		require.NoError(t, err)

		var res messages.ParticipantJoinResponse
		err = c.ReceivePayload(ctx, &res)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeErrorResponse))
	})

	t.Run("expected error response", func(t *testing.T) {
		err := c.Send(messages.ParticipantJoinRequest{RequestID: 4})
		require.NoError(t, err)

		var res messages.ErrorResponse
		err = c.ReceivePayload(ctx, &res)
		require.NoError(t, err)
		require.Equal(t, messages.ErrorCodeBadRequest, res.Code)
	})
}

func TestDialFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "http://localhost:1", nil)
	require.Error(t, err)
}

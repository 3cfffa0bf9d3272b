package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"github.com/aukilabs/voxedit/modules/voxels"
	"github.com/aukilabs/voxedit/voxel"
	vwebsocket "github.com/aukilabs/voxedit/websocket"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newServer(t *testing.T) *httptest.Server {
	sessions := &models.SessionStore{ServerID: "smoke"}

	server := httptest.NewServer(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &vwebsocket.RealtimeHandler{
				ClientSyncClockInterval: time.Second,
				ClientIdleTimeout:       time.Minute,
				FrameDuration:           time.Millisecond * 10,
				Sessions:                sessions,
				Modules: []modules.Module{
					&voxels.Module{
						Palette: editor.DefaultPalette(),
						Scales:  voxel.DefaultScaleRange(),
					},
				},
			}
			defer h.Close()

			vwebsocket.Handle(context.Background(), conn, h)
		},
	})
	t.Cleanup(server.Close)
	return server
}

func TestRun(t *testing.T) {
	server := newServer(t)

	t.Run("smoke test success", func(t *testing.T) {
		res, err := Run(context.Background(), RunOptions{
			FromEndpoint: "http://localvoxedit",
			ToEndpoint:   server.URL,
			Timeout:      time.Second * 2,
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Empty(t, res.Error)
		require.Equal(t, "http://localvoxedit", res.FromEndpoint)
		require.Equal(t, server.URL, res.ToEndpoint)
		require.NotEmpty(t, res.SessionID)
		require.Greater(t, res.LatencyMilliSec, float64(0))
		require.Greater(t, res.EditMilliSec, float64(0))
	})

	t.Run("smoke test unreachable endpoint", func(t *testing.T) {
		res, err := Run(context.Background(), RunOptions{
			ToEndpoint: "http://localhost:1",
			Timeout:    time.Millisecond * 500,
		})
		require.Error(t, err)
		require.False(t, res.Success)
		require.NotEmpty(t, res.Error)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	t.Run("smoke test result is sent", func(t *testing.T) {
		server := newServer(t)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
		defer cancel()

		ctx = context.WithValue(ctx, testCtxKeyValue, testContext{
			Context: ctx,
			Cancel:  cancel,
		})

		var result Result
		handler := HandleSmokeTest(ctx, Options{
			Endpoint: "http://localvoxedit",
			SendResult: func(_ context.Context, res Result) error {
				result = res
				return nil
			},
		})

		body, err := json.Marshal(Request{Endpoint: server.URL})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		<-ctx.Done()
		require.True(t, result.Success)
		require.Equal(t, server.URL, result.ToEndpoint)
	})

	t.Run("bad request", func(t *testing.T) {
		handler := HandleSmokeTest(context.Background(), Options{
			SendResult: func(context.Context, Result) error {
				t.Fatal("smoke test should not run")
				return nil
			},
		})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{"))))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

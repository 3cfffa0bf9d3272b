package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/voxedit/client"
	"github.com/aukilabs/voxedit/featureflag"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// Creates a testing environement to unit test handlers and modules.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*client.Client, *client.Client, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	clientA, clientB, close := newTestingEnv(t, newHandler)
	return clientA, clientB, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*client.Client, *client.Client, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	newClient := func() *client.Client {
		header := make(http.Header)
		header.Set("User-Agent", "ted")
		header.Set("X-Forwarded-for", "192.0.0.0")
		header.Set(httpcmn.HeaderPosemeshClientID, uuid.NewString())

		c, err := client.Dial(context.Background(), server.URL, header)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}
		return c
	}

	clientA := newClient()
	clientB := newClient()

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		server.Close()
	}
}

func newTestHandler(newModule ...func() modules.Module) func() Handler {
	return newTestHandlerWithFlags(nil, newModule...)
}

func newTestHandlerWithFlags(flags []string, newModule ...func() modules.Module) func() Handler {
	sessionStore := &models.SessionStore{
		ServerID: "ted",
	}

	return func() Handler {
		modules := make([]modules.Module, len(newModule))
		for i, nm := range newModule {
			modules[i] = nm()
		}

		var h Handler = &RealtimeHandler{
			ClientSyncClockInterval: time.Millisecond * 250,
			ClientIdleTimeout:       time.Minute,
			FrameDuration:           time.Millisecond * 20,
			Sessions:                sessionStore,
			Modules:                 modules,
			FeatureFlags:            featureflag.New(flags),
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://voxedit-test.com")
		return h
	}
}

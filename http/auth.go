package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"golang.org/x/net/websocket"
)

const ErrTypeAppKeyNotAllowed = "app_key_not_allowed"

// AppKeys is the list of app keys allowed to connect. An empty list allows
// every client.
type AppKeys []string

func (k AppKeys) verify(r *http.Request) error {
	if len(k) == 0 {
		return nil
	}

	appKey := httpcmn.GetAppKeyFromHagallUserToken(httpcmn.GetUserTokenFromHTTPRequest(r))
	for _, allowed := range k {
		if appKey != "" && appKey == allowed {
			return nil
		}
	}

	return errors.New("app key not allowed").
		WithType(ErrTypeAppKeyNotAllowed).
		WithTag("app_key", appKey)
}

// VerifyAppKey returns a WebSocket handshake that rejects clients whose app
// key is not allowed.
func VerifyAppKey(appKeys AppKeys) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := appKeys.verify(r); err != nil {
			logs.WithClientID(r.Header.Get(httpcmn.HeaderPosemeshClientID)).Error(err)
			return err
		}
		return nil
	}
}

// VerifyAppKeyHandler wraps next with an app key check.
func VerifyAppKeyHandler(appKeys AppKeys, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := appKeys.verify(r); err != nil {
			logs.WithClientID(r.Header.Get(httpcmn.HeaderPosemeshClientID)).Error(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}

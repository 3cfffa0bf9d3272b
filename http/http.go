package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ShutdownTimeout is how long servers get to finish in-flight requests once
// the context is done. Hijacked WebSocket connections are not waited for.
var ShutdownTimeout = time.Second * 10

// ListenAndServe runs the given servers until the context is done or they
// all stopped.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		shutdown(servers)
	}()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s *http.Server) {
			defer wg.Done()
			serve(s)
		}(s)
	}
	wg.Wait()
}

func serve(s *http.Server) {
	logs.WithTag("addr", s.Addr).Info("starting server")

	switch err := s.ListenAndServe(); err {
	case nil, http.ErrServerClosed:
		logs.WithTag("addr", s.Addr).Info("server stopped")

	default:
		logs.Warn(errors.New("server stopped unexpectedly").
			WithTag("addr", s.Addr).
			Wrap(err))
	}
}

func shutdown(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logs.Warn(errors.New("shutting down the server failed").
				WithTag("addr", s.Addr).
				Wrap(err))
		}
	}
}

// Paths reported in HTTP metrics. Others are dropped to keep label
// cardinality bounded.
var metricsPaths = map[string]struct{}{
	"/":                {},
	"/health":          {},
	"/version":         {},
	"/ready":           {},
	"/ping":            {},
	"/smoke-test":      {},
	"/sessions/export": {},
}

// MetricsPathFormatter returns the path to report in HTTP metrics. Unknown
// paths and requests rejected with 301, 400, 401, 404 or 405 are not
// reported.
func MetricsPathFormatter(statusCode int, path string) string {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusMethodNotAllowed:
		return ""
	}

	if _, ok := metricsPaths[path]; !ok {
		return ""
	}
	return path
}

// Package smoketest checks that a voxedit server accepts connections and
// applies edits.
package smoketest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/voxedit/client"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/encoding/json"
)

const defaultTimeout = time.Second * 10

// Request is the body of a smoke test request.
type Request struct {
	Endpoint string        `json:"endpoint"`
	Token    string        `json:"token,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Result is the outcome of a smoke test.
type Result struct {
	FromEndpoint    string    `json:"from_endpoint"`
	ToEndpoint      string    `json:"to_endpoint"`
	StartedAt       time.Time `json:"started_at"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	SessionID       string    `json:"session_id,omitempty"`
	LatencyMilliSec float64   `json:"latency_ms"`
	EditMilliSec    float64   `json:"edit_ms"`
}

type Options struct {
	// The endpoint of the server running the smoke test.
	Endpoint string

	UserAgent  string
	SendResult func(context.Context, Result) error
}

type testCtxKey string

var testCtxKeyValue testCtxKey = "test-context"

type testContext struct {
	context.Context
	Cancel func()
}

// HandleSmokeTest returns a handler that runs a smoke test against the
// endpoint given in the request body. The test runs in the background and
// its result is passed to opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var req Request
		if err := json.Unmarshal(b, &req); err != nil || req.Endpoint == "" {
			httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
			return
		}

		go func() {
			defer func() {
				// Signals tests that the smoke test is over.
				if tctx := ctx.Value(testCtxKeyValue); tctx != nil {
					testCtx := tctx.(testContext)
					if testCtx.Cancel != nil {
						testCtx.Cancel()
					}
				}
			}()

			res, err := Run(ctx, RunOptions{
				FromEndpoint: opts.Endpoint,
				ToEndpoint:   req.Endpoint,
				Token:        req.Token,
				UserAgent:    opts.UserAgent,
				Timeout:      req.Timeout,
			})
			if err != nil {
				logs.WithTag("to_endpoint", req.Endpoint).Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

type RunOptions struct {
	FromEndpoint string
	ToEndpoint   string
	Token        string
	UserAgent    string
	Timeout      time.Duration
}

// Run connects to a voxedit server, creates a session, adds a voxel and
// deletes it.
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	res := Result{
		FromEndpoint: opts.FromEndpoint,
		ToEndpoint:   opts.ToEndpoint,
		StartedAt:    time.Now(),
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := run(ctx, opts, &res); err != nil {
		res.Error = err.Error()
		return res, errors.New("smoke test failed").
			WithTag("to_endpoint", opts.ToEndpoint).
			Wrap(err)
	}

	res.Success = true
	return res, nil
}

func run(ctx context.Context, opts RunOptions, res *Result) error {
	header := make(http.Header)
	if opts.UserAgent != "" {
		header.Set("User-Agent", opts.UserAgent)
	}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	c, err := client.Dial(ctx, opts.ToEndpoint, header)
	if err != nil {
		return err
	}
	defer c.Close()

	latency, err := c.Ping(ctx)
	if err != nil {
		return err
	}
	res.LatencyMilliSec = milliseconds(latency)

	join, err := c.Join(ctx, "")
	if err != nil {
		return err
	}
	res.SessionID = join.SessionID

	start := time.Now()

	if err = c.Send(messages.VoxelCreateRequest{
		RequestID: c.NextRequestID(),
		Forward:   mgl64.Vec3{0, 0, -1},
	}); err != nil {
		return err
	}

	var created messages.VoxelEditResponse
	if err = c.ReceivePayload(ctx, &created); err != nil {
		return err
	}
	if created.Target == nil || len(created.Mutations) == 0 {
		return errors.New("voxel was not created")
	}

	cell := created.Target.Cell
	if err = c.Send(messages.VoxelEditRequest{
		RequestID: c.NextRequestID(),
		Pick: messages.Pick{
			Ray: &voxel.Ray{
				Origin:    cell.Center().Add(mgl64.Vec3{0, 0, cell.Size * 4}),
				Direction: mgl64.Vec3{0, 0, -1},
			},
		},
		RightButton: true,
	}); err != nil {
		return err
	}

	var deleted messages.VoxelEditResponse
	if err = c.ReceivePayload(ctx, &deleted); err != nil {
		return err
	}
	if len(deleted.Mutations) == 0 {
		return errors.New("voxel was not deleted")
	}

	res.EditMilliSec = milliseconds(time.Since(start))
	return nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

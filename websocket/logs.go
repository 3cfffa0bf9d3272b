package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/modules"
	"golang.org/x/net/websocket"
)

// HandlerWithLogs decorates the given handler with logs. Received messages
// and sent error responses are counted and logged as a summary every
// summaryInterval.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
		errorCodes:         make(map[messages.ErrorCode]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	headers clientHeaders
	appKey  string

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int
	errorCodes         map[messages.ErrorCode]int

	sessionID     string
	sessionUUID   string
	participantID uint32
}

// clientHeaders are the request headers logged when a participant tries to
// join a session.
type clientHeaders struct {
	UserAgent               string `json:"user_agent,omitempty"`
	XForwardedFor           string `json:"x_forwarded_for,omitempty"`
	CloudFrontCountryName   string `json:"cloudfront_viewer_country,omitempty"`
	CloudFrontViewerAddress string `json:"cloudfront_viewer_address,omitempty"`
}

func makeClientHeaders(r *http.Request) clientHeaders {
	if r == nil {
		return clientHeaders{}
	}

	return clientHeaders{
		UserAgent:               r.UserAgent(),
		XForwardedFor:           r.Header.Get(httpcmn.XForwardedForHeaderKey),
		CloudFrontCountryName:   r.Header.Get(httpcmn.CloudFrontCountryNameHeaderKey),
		CloudFrontViewerAddress: r.Header.Get(httpcmn.CloudFrontViewerAddressHeaderKey),
	}
}

// entry returns a log entry tagged with the client and its session.
func (h *handlerWithLogs) entry() logs.Entry {
	e := logs.WithClientID(h.GetClientID()).
		WithTag(logs.AppKeyTag, h.appKey)

	if h.sessionID != "" {
		e = e.WithTag(logs.SessionIDTag, h.sessionID).
			WithTag("session_uuid", h.sessionUUID).
			WithTag(logs.ParticipantIDTag, h.participantID)
	}
	return e
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	req := conn.Request()
	h.headers = makeClientHeaders(req)
	h.appKey = httpcmn.GetAppKeyFromHagallUserToken(httpcmn.GetUserTokenFromHTTPRequest(req))

	h.entry().Info("new client is connected")
}

func (h *handlerWithLogs) HandleParticipantJoin(ctx context.Context, sender messages.ResponseSender, msg messages.Msg) error {
	if err := h.Handler.HandleParticipantJoin(ctx, sender, msg); err != nil {
		return err
	}

	session := h.CurrentSession()
	participant := h.CurrentParticipant()
	if session == nil || participant == nil {
		// The request was decoded by the wrapped handler.
		var req messages.ParticipantJoinRequest
		msg.DataTo(&req)

		h.entry().
			WithTag("requested_session_id", req.SessionID).
			WithTag("request_id", req.RequestID).
			WithTag("http_headers", h.headers).
			Info("participant failed to join a session")
		return nil
	}

	h.sessionID = h.GetSessions().GlobalSessionID(session.ID)
	h.sessionUUID = session.SessionUUID
	h.participantID = participant.ID

	h.entry().
		WithTag("voxel_count", session.Voxels().Len()).
		WithTag("http_headers", h.headers).
		Info("participant joined a session")
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	h.entry().
		WithTag("reason", err).
		Info("client disconnected")
}

func (h *handlerWithLogs) HandleWithModule(ctx context.Context, m modules.Module, sender messages.ResponseSender, msg messages.Msg) error {
	err := h.Handler.HandleWithModule(ctx, m, sender, msg)
	if err != nil && !errors.IsType(err, messages.ErrTypeMsgSkip) {
		h.entry().
			WithTag("module", m.Name()).
			WithTag("msg_type", msg.Type).
			Error(err)
	}
	return err
}

func (h *handlerWithLogs) Receiver() messages.Receiver {
	receive := h.Handler.Receiver()

	return func() (messages.Msg, int, error) {
		msg, n, err := receive()

		switch {
		case err == nil:
			h.entry().
				WithTag("msg_type", msg.Type).
				Debug("message received")
			h.incCounter(string(msg.Type))

		case !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed):
			h.entry().Error(errors.New("receiving message failed").Wrap(err))
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() messages.Sender {
	send := h.Handler.Sender()

	return func(msg messages.Msg) (int, error) {
		n, err := send(msg)

		switch {
		case err == nil:
			h.entry().
				WithTag("msg_type", msg.Type).
				Debug("message sent")

			if msg.Type == messages.MsgTypeErrorResponse {
				var res messages.ErrorResponse
				if msg.DataTo(&res) == nil {
					h.incErrorCode(res.Code)
				}
			}

		case !errors.Is(err, net.ErrClosed):
			h.entry().
				WithTag("msg_type", msg.Type).
				Error(errors.New("sending message failed").Wrap(err))
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) incErrorCode(code messages.ErrorCode) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.errorCodes[code]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 && len(h.errorCodes) == 0 {
		return
	}

	entry := h.entry().WithTag("time_interval", h.summaryInterval)
	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	if len(h.errorCodes) != 0 {
		codes := make(map[messages.ErrorCode]int, len(h.errorCodes))
		for k, v := range h.errorCodes {
			codes[k] = v
			delete(h.errorCodes, k)
		}
		entry = entry.WithTag("error_responses", codes)
	}

	entry.Info("inbound message summary")
}

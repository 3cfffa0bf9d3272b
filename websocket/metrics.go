package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/modules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel        = "error_type"
	msgTypeLabel        = "msg_type"
	moduleLabel         = "module"
	publicEndpointLabel = "public_endpoint"
	appKeyLabel         = "app_key"
	errCodeLabel        = "error_code"

	defaultModule = "voxedit"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	}, []string{
		publicEndpointLabel,
		appKeyLabel,
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		appKeyLabel,
	})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		appKeyLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
		appKeyLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		appKeyLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		appKeyLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
		msgTypeLabel,
		appKeyLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ws_msg_latency",
		Help: "The time to process a WebSocket msg.",
		// Edits hold the session edit lock, sub millisecond buckets matter.
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
		moduleLabel,
	})

	wsErrorResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_error_responses",
		Help: "The number of error responses sent to clients by error code.",
	}, []string{
		publicEndpointLabel,
		errCodeLabel,
	})
)

// HandlerWithMetrics decorates the given handler with Prometheus metrics.
// Connection metrics are labeled with the public endpoint and the app key of
// the client.
func HandlerWithMetrics(h Handler, publicEndpoint string) Handler {
	return &handlerWithMetrics{
		Handler:        h,
		publicEndpoint: publicEndpoint,
	}
}

type handlerWithMetrics struct {
	Handler

	publicEndpoint string
	conn           prometheus.Labels
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	appKey := httpcmn.GetAppKeyFromHagallUserToken(httpcmn.GetUserTokenFromHTTPRequest(conn.Request()))
	h.conn = prometheus.Labels{
		publicEndpointLabel: h.publicEndpoint,
		appKeyLabel:         appKey,
	}

	wsConnectedClients.With(h.conn).Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	if h.conn != nil {
		wsConnectedClients.With(h.conn).Dec()
	}
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, sender messages.ResponseSender, msg messages.Msg) error {
	return h.observe(msg.Type, defaultModule, func() error {
		return h.Handler.HandlePing(ctx, sender, msg)
	})
}

func (h *handlerWithMetrics) HandleParticipantJoin(ctx context.Context, sender messages.ResponseSender, msg messages.Msg) error {
	return h.observe(msg.Type, defaultModule, func() error {
		return h.Handler.HandleParticipantJoin(ctx, sender, msg)
	})
}

func (h *handlerWithMetrics) HandleWithModule(ctx context.Context, module modules.Module, sender messages.ResponseSender, msg messages.Msg) error {
	return h.observe(msg.Type, module.Name(), func() error {
		return h.Handler.HandleWithModule(ctx, module, sender, msg)
	})
}

func (h *handlerWithMetrics) SendSyncClock(ctx context.Context, sender messages.ResponseSender) error {
	return h.observe(messages.MsgTypeSyncClock, defaultModule, func() error {
		return h.Handler.SendSyncClock(ctx, sender)
	})
}

func (h *handlerWithMetrics) Receiver() messages.Receiver {
	receive := h.Handler.Receiver()

	return func() (messages.Msg, int, error) {
		msg, n, err := receive()

		labels := h.connLabels()
		if err != nil {
			wsReceiveError.MustCurryWith(labels).
				WithLabelValues(errors.Type(err)).
				Inc()
		} else {
			wsReceivedMsgs.MustCurryWith(labels).
				WithLabelValues(string(msg.Type)).
				Inc()
		}

		if n != 0 {
			wsReceivedBytes.MustCurryWith(labels).
				WithLabelValues(string(msg.Type)).
				Add(float64(n))
		}
		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() messages.Sender {
	send := h.Handler.Sender()

	return func(msg messages.Msg) (int, error) {
		n, err := send(msg)

		byType := prometheus.Labels{msgTypeLabel: string(msg.Type)}
		for k, v := range h.connLabels() {
			byType[k] = v
		}

		if err != nil {
			wsSendError.MustCurryWith(byType).
				WithLabelValues(errors.Type(err)).
				Inc()
		}

		if n != 0 {
			wsSentMsgs.With(byType).Inc()
			wsSentBytes.With(byType).Add(float64(n))
		}

		if msg.Type == messages.MsgTypeErrorResponse {
			h.countErrorResponse(msg)
		}
		return n, err
	}
}

// connLabels returns the connection labels, empty until the client is
// connected.
func (h *handlerWithMetrics) connLabels() prometheus.Labels {
	if h.conn == nil {
		return prometheus.Labels{
			publicEndpointLabel: h.publicEndpoint,
			appKeyLabel:         "",
		}
	}
	return h.conn
}

func (h *handlerWithMetrics) countErrorResponse(msg messages.Msg) {
	var res messages.ErrorResponse
	if err := msg.DataTo(&res); err != nil {
		return
	}

	wsErrorResponses.
		WithLabelValues(h.publicEndpoint, string(res.Code)).
		Inc()
}

// observe records how long f takes to handle a message. Skipped messages are
// not recorded.
func (h *handlerWithMetrics) observe(msgType messages.MsgType, module string, f func() error) error {
	start := time.Now()

	err := f()
	if errors.IsType(err, messages.ErrTypeMsgSkip) {
		return err
	}

	wsMsgLatency.
		WithLabelValues(h.publicEndpoint, string(msgType), module).
		Observe(time.Since(start).Seconds())
	return err
}

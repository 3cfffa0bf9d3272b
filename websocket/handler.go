package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents a voxedit handler.
type Handler interface {
	// Handles a ping request.
	HandlePing(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error

	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a request to join a session.
	HandleParticipantJoin(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handle a message with a module.
	HandleWithModule(ctx context.Context, module modules.Module, respond messages.ResponseSender, msg messages.Msg) error

	// Sends a sync clock message to the client.
	SendSyncClock(ctx context.Context, respond messages.ResponseSender) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() messages.Receiver

	// Creates a message sender passed in service methods in order to send
	// messages.
	Sender() messages.Sender

	// Closes the service and releases its allocated resources.
	Close()

	// The interval between each sync clock message sent to the connected
	// client.
	SyncClockInterval() time.Duration

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Returns the session store.
	GetSessions() *models.SessionStore

	// Returns the modules.
	GetModules() []modules.Module

	// The currently joined session.
	CurrentSession() *models.Session

	// The current participant.
	CurrentParticipant() *models.Participant

	// Get ClientID
	GetClientID() string
}

// Handle handles the given service.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The voxedit handler.
	Handler Handler

	sendChan       chan messages.Msg
	sender         messages.Sender
	receiveChan    chan messages.Msg
	receiver       messages.Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan messages.Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan messages.Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	syncClockTicker := time.NewTicker(h.Handler.SyncClockInterval())
	defer syncClockTicker.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", h.Handler.IdleTimeout()))

		case <-syncClockTicker.C:
			if err := h.Handler.SendSyncClock(ctx, responder); err != nil {
				h.disconnect(errors.New("sending sync clock failed").Wrap(err))
			}

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	// Unblocks the receiving goroutine.
	h.Conn.Close()
	wg.Wait()
}

func (h *handler) send(payload messages.Payload) {
	msg, err := messages.MsgFromPayload(payload)
	if err != nil {
		logs.WithTag("message", payload).
			WithClientID(h.Handler.GetClientID()).
			Debug(err)
		return
	}
	h.sendMsg(msg)
}

func (h *handler) sendMsg(msg messages.Msg) {
	select {
	case h.sendChan <- msg:
	default:
		h.disconnect(errors.New("send buffer is full").
			WithTag("msg_type", msg.Type).
			WithTag("size", sendChanSize))
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		msg, _, err := h.receiver()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case h.receiveChan <- msg:
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg messages.Msg, responder messages.ResponseSender) error {
	var err error

	switch msg.Type {
	case messages.MsgTypePingRequest:
		return h.Handler.HandlePing(ctx, responder, msg)

	case messages.MsgTypeParticipantJoinRequest:
		err = h.Handler.HandleParticipantJoin(ctx, responder, msg)
	}

	if err != nil {
		return err
	}

	if h.Handler.CurrentParticipant() == nil || h.Handler.CurrentSession() == nil {
		if msg.Type != messages.MsgTypeParticipantJoinRequest {
			responder.Send(messages.ErrorResponse{
				Code:    messages.ErrorCodeSessionNotJoined,
				Message: "session not joined: " + string(msg.Type),
			})
		}
		return nil
	}

	for _, m := range h.Handler.GetModules() {
		if err = h.Handler.HandleWithModule(ctx, m, responder, msg); err != nil {
			return err
		}
	}
	return nil
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send    func(messages.Payload)
	sendMsg func(messages.Msg)
}

func (r responseSender) Send(payload messages.Payload) {
	r.send(payload)
}

func (r responseSender) SendMsg(msg messages.Msg) {
	r.sendMsg(msg)
}

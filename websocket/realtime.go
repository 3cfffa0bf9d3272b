package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/voxedit/featureflag"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"golang.org/x/net/websocket"
)

// RealtimeHandler represents a service that manages multiple client connections
// and relays their edits in realtime.
type RealtimeHandler struct {
	// The interval between each sync clock message sent to the connected
	// client.
	ClientSyncClockInterval time.Duration

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The duration of a frame.
	FrameDuration time.Duration

	// The maximum number of cells stored by a session. Zero means no limit.
	MaxSessionVoxels int

	// The store that contains all the server sessions.
	Sessions *models.SessionStore

	// The modules that expand voxedit features.
	Modules []modules.Module

	FeatureFlags featureflag.FeatureFlag

	conn               *websocket.Conn
	currentSession     *models.Session
	currentParticipant *models.Participant

	clientID string
	appKey   string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	req := conn.Request()
	h.clientID = req.Header.Get(httpcmn.HeaderPosemeshClientID)
	h.appKey = httpcmn.GetAppKeyFromHagallUserToken(httpcmn.GetUserTokenFromHTTPRequest(req))

	h.conn = conn
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.PingRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(messages.PingResponse{
		RequestID: req.RequestID,
	})
	return nil
}

func (h *RealtimeHandler) HandleParticipantJoin(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.ParticipantJoinRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.currentSession != nil && h.Sessions.GlobalSessionID(h.currentSession.ID) == req.SessionID {
		respond.Send(messages.ErrorResponse{
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeSessionAlreadyJoined,
		})
		return nil
	}

	if h.currentParticipant != nil {
		h.leaveSession()
	}

	session, ok := h.Sessions.GetByGlobalID(req.SessionID)
	if !ok && req.SessionID != "" {
		respond.Send(messages.ErrorResponse{
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeNotFound,
		})
		return nil
	}

	if !ok {
		session = models.NewSession(h.Sessions.NewID(), h.FrameDuration, h.MaxSessionVoxels)
		session.AppKey = h.appKey
		session.BroadcastEdits = !h.FeatureFlags.IsSet(featureflag.FlagDisableEditBroadcast)
		if err := h.Sessions.Add(ctx, session); err != nil {
			respond.Send(messages.ErrorResponse{
				RequestID: req.RequestID,
				Code:      messages.ErrorCodeInternalServerError,
			})
			return nil
		}
		go session.StartDispatchFrames()
	}

	participant := &models.Participant{
		ID:        session.NewParticipantID(),
		ClientID:  h.clientID,
		Responder: respond,
	}

	session.AddParticipant(participant)

	respond.Send(messages.ParticipantJoinResponse{
		RequestID:     req.RequestID,
		SessionID:     h.Sessions.GlobalSessionID(session.ID),
		SessionUUID:   session.SessionUUID,
		ParticipantID: participant.ID,
	})

	h.currentSession = session
	h.currentParticipant = participant

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableSessionState, func() {
		respond.Send(messages.SessionState{
			Participants: models.ParticipantsToMessages(session.GetParticipants()),
			Voxels:       session.Voxels().Voxels(),
		})
	})

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantJoinBroadcast, func() {
		session.Broadcast(participant, messages.ParticipantJoinBroadcast{
			ParticipantID: participant.ID,
		})
	})

	for _, m := range h.Modules {
		m.Init(session, participant)
	}

	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveSession()
	}
}

func (h *RealtimeHandler) HandleWithModule(ctx context.Context, m modules.Module, respond messages.ResponseSender, msg messages.Msg) error {
	if h.CurrentParticipant() == nil || h.CurrentSession() == nil {
		return nil
	}

	err := m.HandleMsg(ctx, respond, msg)
	if errors.IsType(err, messages.ErrTypeMsgSkip) {
		return nil
	}
	if err != nil {
		return errors.New("handling message with module failed").
			WithTag("module", m.Name()).
			Wrap(err)
	}
	return nil
}

func (h *RealtimeHandler) SendSyncClock(ctx context.Context, respond messages.ResponseSender) error {
	respond.Send(messages.SyncClock{})
	return nil
}

func (h *RealtimeHandler) Receiver() messages.Receiver {
	return messages.NewReceiver(h.conn)
}

func (h *RealtimeHandler) Sender() messages.Sender {
	return messages.NewSender(h.conn)
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) SyncClockInterval() time.Duration {
	return h.ClientSyncClockInterval
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetSessions() *models.SessionStore {
	return h.Sessions
}

func (h *RealtimeHandler) GetModules() []modules.Module {
	return h.Modules
}

func (h *RealtimeHandler) CurrentSession() *models.Session {
	return h.currentSession
}

func (h *RealtimeHandler) CurrentParticipant() *models.Participant {
	return h.currentParticipant
}

func (h *RealtimeHandler) leaveSession() {
	session := h.currentSession
	participant := h.currentParticipant

	if participant == nil || session == nil {
		return
	}

	for _, m := range h.Modules {
		m.HandleDisconnect()
	}

	session.RemoveParticipant(participant)

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantLeaveBroadcast, func() {
		session.Broadcast(participant, messages.ParticipantLeaveBroadcast{
			ParticipantID: participant.ID,
		})
	})

	if session.ParticipantCount() == 0 {
		h.Sessions.Remove(context.Background(), session)
	}

	h.currentParticipant = nil
	h.currentSession = nil
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

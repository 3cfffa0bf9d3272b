package messages

import (
	"github.com/aukilabs/voxedit/voxel"
)

type PingRequest struct {
	RequestID uint32 `json:"request_id"`
}

func (PingRequest) MsgType() MsgType { return MsgTypePingRequest }

type PingResponse struct {
	RequestID uint32 `json:"request_id"`
}

func (PingResponse) MsgType() MsgType { return MsgTypePingResponse }

// SyncClock is periodically sent to clients so they can estimate the server
// time from the message timestamp.
type SyncClock struct{}

func (SyncClock) MsgType() MsgType { return MsgTypeSyncClock }

type ErrorResponse struct {
	RequestID uint32    `json:"request_id"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message,omitempty"`
}

func (ErrorResponse) MsgType() MsgType { return MsgTypeErrorResponse }

// ParticipantJoinRequest asks to join the session with the given global id.
// An empty session id creates a new session.
type ParticipantJoinRequest struct {
	RequestID uint32 `json:"request_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (ParticipantJoinRequest) MsgType() MsgType { return MsgTypeParticipantJoinRequest }

type ParticipantJoinResponse struct {
	RequestID     uint32 `json:"request_id"`
	SessionID     string `json:"session_id"`
	SessionUUID   string `json:"session_uuid"`
	ParticipantID uint32 `json:"participant_id"`
}

func (ParticipantJoinResponse) MsgType() MsgType { return MsgTypeParticipantJoinResponse }

type ParticipantJoinBroadcast struct {
	ParticipantID uint32 `json:"participant_id"`
}

func (ParticipantJoinBroadcast) MsgType() MsgType { return MsgTypeParticipantJoinBroadcast }

type ParticipantLeaveBroadcast struct {
	ParticipantID uint32 `json:"participant_id"`
}

func (ParticipantLeaveBroadcast) MsgType() MsgType { return MsgTypeParticipantLeaveBroadcast }

type Participant struct {
	ID uint32 `json:"id"`
}

// SessionState is sent to a participant that joins a session, with the
// content of the session.
type SessionState struct {
	Participants []Participant `json:"participants"`
	Voxels       []voxel.Voxel `json:"voxels"`
}

func (SessionState) MsgType() MsgType { return MsgTypeSessionState }

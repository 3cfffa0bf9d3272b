package messages

const (
	MsgTypePingRequest               MsgType = "ping_request"
	MsgTypePingResponse              MsgType = "ping_response"
	MsgTypeSyncClock                 MsgType = "sync_clock"
	MsgTypeErrorResponse             MsgType = "error_response"
	MsgTypeParticipantJoinRequest    MsgType = "participant_join_request"
	MsgTypeParticipantJoinResponse   MsgType = "participant_join_response"
	MsgTypeParticipantJoinBroadcast  MsgType = "participant_join_broadcast"
	MsgTypeParticipantLeaveBroadcast MsgType = "participant_leave_broadcast"
	MsgTypeSessionState              MsgType = "session_state"

	MsgTypeVoxelRayQueryRequest  MsgType = "voxel_ray_query_request"
	MsgTypeVoxelRayQueryResponse MsgType = "voxel_ray_query_response"
	MsgTypeVoxelPreviewRequest   MsgType = "voxel_preview_request"
	MsgTypeVoxelPreviewResponse  MsgType = "voxel_preview_response"
	MsgTypeVoxelEditRequest      MsgType = "voxel_edit_request"
	MsgTypeVoxelEditResponse     MsgType = "voxel_edit_response"
	MsgTypeVoxelEditBroadcast    MsgType = "voxel_edit_broadcast"
	MsgTypeVoxelExtrudeRequest   MsgType = "voxel_extrude_request"
	MsgTypeVoxelCreateRequest    MsgType = "voxel_create_request"
	MsgTypeEditorUpdateRequest   MsgType = "editor_update_request"
	MsgTypeEditorState           MsgType = "editor_state"

	MsgTypeClipboardRequest  MsgType = "clipboard_request"
	MsgTypeClipboardResponse MsgType = "clipboard_response"
)

// ErrorCode is the code of an error response.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeSessionAlreadyJoined ErrorCode = "session_already_joined"
	ErrorCodeSessionNotJoined     ErrorCode = "session_not_joined"
	ErrorCodeInvalidIntersection  ErrorCode = "invalid_intersection"
	ErrorCodeTooLarge             ErrorCode = "too_large"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeToolsDisabled        ErrorCode = "tools_disabled"
	ErrorCodeInternalServerError  ErrorCode = "internal_server_error"
)

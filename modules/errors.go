package modules

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/snapshot"
	"github.com/aukilabs/voxedit/voxel"
)

// ErrorCode returns the error response code that matches the type of the
// given error.
func ErrorCode(err error) messages.ErrorCode {
	switch errors.Type(err) {
	case voxel.ErrTypeInvalidIntersection:
		return messages.ErrorCodeInvalidIntersection

	case models.ErrTypeStoreFull:
		return messages.ErrorCodeTooLarge

	case editor.ErrTypeToolsDisabled:
		return messages.ErrorCodeToolsDisabled

	case snapshot.ErrTypeInvalidSignature:
		return messages.ErrorCodeUnauthorized

	case messages.ErrTypeSessionNotJoined:
		return messages.ErrorCodeSessionNotJoined

	case messages.ErrTypeSessionAlreadyJoined:
		return messages.ErrorCodeSessionAlreadyJoined

	case models.ErrTypeInvalidCell,
		models.ErrTypeNoSelection,
		models.ErrTypeEmptyClipboard,
		snapshot.ErrTypeMalformed,
		messages.ErrTypeBadMsg,
		messages.ErrTypeUnknownClipboardAction,
		editor.ErrTypeInvalidColorIndex,
		editor.ErrTypeUnknownTool,
		editor.ErrTypeUnknownMode,
		editor.ErrTypeUnknownPreviewStyle,
		voxel.ErrTypeUnknownFace,
		voxel.ErrTypeUnknownOperation:
		return messages.ErrorCodeBadRequest

	default:
		return messages.ErrorCodeInternalServerError
	}
}

// RespondError sends an error response built from the given error.
func RespondError(respond messages.ResponseSender, requestID uint32, err error) {
	code := ErrorCode(err)
	if code == messages.ErrorCodeInternalServerError {
		logs.WithTag("request_id", requestID).
			Error(errors.New("handling request failed").Wrap(err))
	} else {
		logs.WithTag("request_id", requestID).
			WithTag("code", code).
			Debug(err)
	}

	respond.Send(messages.ErrorResponse{
		RequestID: requestID,
		Code:      code,
		Message:   err.Error(),
	})
}

// SkipMsg returns the error that tells a message is not handled by a module.
func SkipMsg(msg messages.Msg) error {
	return errors.New("message skipped").
		WithType(messages.ErrTypeMsgSkip).
		WithTag("msg_type", msg.Type)
}

// NotJoined returns the error that tells a message requires a joined
// session.
func NotJoined(msg messages.Msg) error {
	return errors.New("session not joined").
		WithType(messages.ErrTypeSessionNotJoined).
		WithTag("msg_type", msg.Type)
}

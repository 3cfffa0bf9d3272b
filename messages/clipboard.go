package messages

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/snapshot"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

const ErrTypeUnknownClipboardAction = "unknown_clipboard_action"

// ClipboardAction is an operation on the selection of a participant.
type ClipboardAction int

const (
	// Copies the selection content to the clipboard.
	CopyAction ClipboardAction = iota

	// Copies the selection content to the clipboard then erases it.
	CutAction

	// Places the clipboard content into the selection, scaled to its size.
	PasteAction

	// Erases the selection content.
	DeleteAction

	// Moves the selection and its content by an offset.
	NudgeAction

	// Returns a signed snapshot of the selection content.
	ExportAction

	// Places a signed snapshot into the selection.
	ImportAction
)

var clipboardActionNames = [...]string{
	CopyAction:   "copy",
	CutAction:    "cut",
	PasteAction:  "paste",
	DeleteAction: "delete",
	NudgeAction:  "nudge",
	ExportAction: "export",
	ImportAction: "import",
}

// ParseClipboardAction returns the action with the given name.
func ParseClipboardAction(s string) (ClipboardAction, error) {
	for a, name := range clipboardActionNames {
		if name == s {
			return ClipboardAction(a), nil
		}
	}
	return 0, errors.New("unknown clipboard action").
		WithType(ErrTypeUnknownClipboardAction).
		WithTag("action", s)
}

func (a ClipboardAction) String() string {
	if a < 0 || int(a) >= len(clipboardActionNames) {
		return "unknown"
	}
	return clipboardActionNames[a]
}

func (a ClipboardAction) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(clipboardActionNames) {
		return nil, errors.New("unknown clipboard action").
			WithType(ErrTypeUnknownClipboardAction).
			WithTag("action", int(a))
	}
	return []byte(a.String()), nil
}

func (a *ClipboardAction) UnmarshalText(b []byte) error {
	v, err := ParseClipboardAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ClipboardRequest runs a clipboard action. Selection overrides the current
// selection of the participant when set.
type ClipboardRequest struct {
	RequestID uint32           `json:"request_id"`
	Action    ClipboardAction  `json:"action"`
	Selection *voxel.Cell      `json:"selection,omitempty"`
	Offset    mgl64.Vec3       `json:"offset"`
	Snapshot  *snapshot.Signed `json:"snapshot,omitempty"`
}

func (ClipboardRequest) MsgType() MsgType { return MsgTypeClipboardRequest }

type ClipboardResponse struct {
	RequestID uint32          `json:"request_id"`
	Action    ClipboardAction `json:"action"`

	// The selection after the action.
	Selection *voxel.Cell `json:"selection,omitempty"`

	// The voxels copied or cut.
	Voxels []voxel.Voxel `json:"voxels,omitempty"`

	Mutations []voxel.Mutation `json:"mutations,omitempty"`

	// The exported snapshot.
	Snapshot *snapshot.Signed `json:"snapshot,omitempty"`
}

func (ClipboardResponse) MsgType() MsgType { return MsgTypeClipboardResponse }

package messages

import (
	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

// Pick designates what a participant points at: either an intersection
// computed by the client or a pick ray that the server intersects with the
// session voxels. The intersection wins when both are set.
type Pick struct {
	Intersection *voxel.Intersection `json:"intersection,omitempty"`
	Ray          *voxel.Ray          `json:"ray,omitempty"`
}

type VoxelRayQueryRequest struct {
	RequestID uint32    `json:"request_id"`
	Ray       voxel.Ray `json:"ray"`
}

func (VoxelRayQueryRequest) MsgType() MsgType { return MsgTypeVoxelRayQueryRequest }

type VoxelRayQueryResponse struct {
	RequestID    uint32             `json:"request_id"`
	Intersection voxel.Intersection `json:"intersection"`
}

func (VoxelRayQueryResponse) MsgType() MsgType { return MsgTypeVoxelRayQueryResponse }

type VoxelPreviewRequest struct {
	RequestID uint32 `json:"request_id"`
	Pick
	RightButton bool `json:"right_button,omitempty"`
}

func (VoxelPreviewRequest) MsgType() MsgType { return MsgTypeVoxelPreviewRequest }

type VoxelPreviewResponse struct {
	RequestID uint32         `json:"request_id"`
	Preview   editor.Preview `json:"preview"`
}

func (VoxelPreviewResponse) MsgType() MsgType { return MsgTypeVoxelPreviewResponse }

// VoxelEditRequest applies the current editing mode to what the participant
// points at.
type VoxelEditRequest struct {
	RequestID uint32 `json:"request_id"`
	Pick
	RightButton bool `json:"right_button,omitempty"`
}

func (VoxelEditRequest) MsgType() MsgType { return MsgTypeVoxelEditRequest }

type VoxelEditResponse struct {
	RequestID uint32                `json:"request_id"`
	Mode      editor.Mode           `json:"mode"`
	Target    *voxel.ResolvedTarget `json:"target,omitempty"`
	Mutations []voxel.Mutation      `json:"mutations,omitempty"`

	// The color picked in eyedropper mode.
	PickedColor *voxel.RGB `json:"picked_color,omitempty"`

	// The cell selected in select mode.
	Selection *voxel.Cell `json:"selection,omitempty"`
}

func (VoxelEditResponse) MsgType() MsgType { return MsgTypeVoxelEditResponse }

// VoxelExtrudeRequest is sent while a participant drags after adding a voxel.
type VoxelExtrudeRequest struct {
	RequestID uint32    `json:"request_id"`
	Ray       voxel.Ray `json:"ray"`
	End       bool      `json:"end,omitempty"`
}

func (VoxelExtrudeRequest) MsgType() MsgType { return MsgTypeVoxelExtrudeRequest }

// VoxelCreateRequest creates a voxel in front of the participant camera.
type VoxelCreateRequest struct {
	RequestID uint32     `json:"request_id"`
	Camera    mgl64.Vec3 `json:"camera"`
	Forward   mgl64.Vec3 `json:"forward"`
}

func (VoxelCreateRequest) MsgType() MsgType { return MsgTypeVoxelCreateRequest }

// VoxelEdit is a group of mutations made by a participant.
type VoxelEdit struct {
	ParticipantID uint32           `json:"participant_id"`
	Mutations     []voxel.Mutation `json:"mutations"`
}

// VoxelEditBroadcast carries the edits made by other participants since the
// last session frame, in the order they were applied.
type VoxelEditBroadcast struct {
	Edits []VoxelEdit `json:"edits"`
}

func (VoxelEditBroadcast) MsgType() MsgType { return MsgTypeVoxelEditBroadcast }

type EditorUpdateRequest struct {
	RequestID uint32 `json:"request_id"`
	editor.Update
}

func (EditorUpdateRequest) MsgType() MsgType { return MsgTypeEditorUpdateRequest }

type EditorState struct {
	RequestID uint32 `json:"request_id,omitempty"`
	editor.State
}

func (EditorState) MsgType() MsgType { return MsgTypeEditorState }

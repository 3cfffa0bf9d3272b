// Package voxels implements the module that lets session participants
// query, preview and edit the session voxels.
package voxels

import (
	"context"

	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"github.com/aukilabs/voxedit/voxel"
)

type Module struct {
	// The palette given to the editor of new participants.
	Palette editor.Palette

	// The scale range of the editor of new participants.
	Scales voxel.ScaleRange

	currentSession     *models.Session
	currentParticipant *models.Participant
}

func (m *Module) Name() string {
	return "voxels"
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p

	if p.Editor == nil {
		p.Editor = editor.New(m.Palette, m.Scales)
	}
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var err error

	switch msg.Type {
	case messages.MsgTypeParticipantJoinRequest:
		err = m.handleParticipantJoin(ctx, respond, msg)

	case messages.MsgTypeVoxelRayQueryRequest:
		err = m.handleRayQuery(ctx, respond, msg)

	case messages.MsgTypeVoxelPreviewRequest:
		err = m.handlePreview(ctx, respond, msg)

	case messages.MsgTypeVoxelEditRequest:
		err = m.handleEdit(ctx, respond, msg)

	case messages.MsgTypeVoxelExtrudeRequest:
		err = m.handleExtrude(ctx, respond, msg)

	case messages.MsgTypeVoxelCreateRequest:
		err = m.handleCreate(ctx, respond, msg)

	case messages.MsgTypeEditorUpdateRequest:
		err = m.handleEditorUpdate(ctx, respond, msg)

	default:
		err = modules.SkipMsg(msg)
	}

	return err
}

func (m *Module) HandleDisconnect() {
	if p := m.currentParticipant; p != nil && p.Editor != nil {
		p.Editor.Extruder().End()
	}
}

func (m *Module) handleParticipantJoin(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	if m.currentParticipant == nil {
		return modules.NotJoined(msg)
	}

	respond.Send(messages.EditorState{
		State: m.currentParticipant.Editor.State(),
	})
	return nil
}

func (m *Module) handleRayQuery(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.VoxelRayQueryRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if m.currentSession == nil {
		return modules.NotJoined(msg)
	}

	respond.Send(messages.VoxelRayQueryResponse{
		RequestID:    req.RequestID,
		Intersection: m.currentSession.Voxels().FindRayIntersection(req.Ray),
	})
	return nil
}

func (m *Module) handlePreview(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.VoxelPreviewRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return modules.NotJoined(msg)
	}

	preview, err := participant.Editor.Preview(m.intersection(req.Pick), req.RightButton)
	if err != nil {
		instrumentResolveError(err)
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	respond.Send(messages.VoxelPreviewResponse{
		RequestID: req.RequestID,
		Preview:   preview,
	})
	return nil
}

func (m *Module) handleEdit(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.VoxelEditRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return modules.NotJoined(msg)
	}
	ed := participant.Editor

	mode, op, err := ed.EditMode(req.RightButton)
	if err != nil {
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	hit := m.intersection(req.Pick)
	target, err := ed.Resolve(hit, op)
	if err != nil {
		instrumentResolveError(err)
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	res := messages.VoxelEditResponse{
		RequestID: req.RequestID,
		Mode:      mode,
		Target:    &target,
	}

	switch mode {
	case editor.EyedropperMode:
		color := hit.Color
		ed.PickColor(color)
		res.PickedColor = &color

	case editor.SelectMode:
		participant.SetSelection(target.Cell)
		res.Selection = &target.Cell

	case editor.DeleteMode:
		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			return single(s.Erase(target.Cell))
		})

	case editor.AddMode, editor.RecolorMode:
		color := ed.Color(hit.Color)
		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			return s.EraseThenSet(target.Cell, color)
		})
		if err == nil && mode == editor.AddMode {
			ed.Extruder().Start(target.Cell, color)
		}
	}

	if err != nil {
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	instrumentEdit(mode, session.Voxels().Len())
	respond.Send(res)
	return nil
}

func (m *Module) handleExtrude(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.VoxelExtrudeRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return modules.NotJoined(msg)
	}

	extruder := participant.Editor.Extruder()
	res := messages.VoxelEditResponse{
		RequestID: req.RequestID,
		Mode:      editor.AddMode,
	}

	if req.End {
		extruder.End()
		respond.Send(res)
		return nil
	}

	c, color, ok := extruder.Drag(req.Ray)
	if ok {
		mutations, err := session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			return s.EraseThenSet(c, color)
		})
		if err != nil {
			extruder.End()
			modules.RespondError(respond, req.RequestID, err)
			return nil
		}

		res.Mutations = mutations
		instrumentEdit(editor.AddMode, session.Voxels().Len())
	}

	respond.Send(res)
	return nil
}

func (m *Module) handleCreate(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.VoxelCreateRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return modules.NotJoined(msg)
	}
	ed := participant.Editor

	if _, _, err := ed.EditMode(false); err != nil {
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	c, color, err := ed.NewVoxelInFront(req.Camera, req.Forward)
	if err != nil {
		respond.Send(messages.ErrorResponse{
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeBadRequest,
			Message:   err.Error(),
		})
		return nil
	}

	mutations, err := session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
		return single(s.Set(c, color))
	})
	if err != nil {
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	instrumentEdit(editor.AddMode, session.Voxels().Len())
	respond.Send(messages.VoxelEditResponse{
		RequestID: req.RequestID,
		Mode:      editor.AddMode,
		Target:    &voxel.ResolvedTarget{Cell: c},
		Mutations: mutations,
	})
	return nil
}

func (m *Module) handleEditorUpdate(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.EditorUpdateRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	participant := m.currentParticipant
	if participant == nil {
		return modules.NotJoined(msg)
	}

	if err := participant.Editor.Apply(req.Update); err != nil {
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	respond.Send(messages.EditorState{
		RequestID: req.RequestID,
		State:     participant.Editor.State(),
	})
	return nil
}

// intersection returns what a pick points at, intersecting its ray with the
// session voxels when no intersection is given.
func (m *Module) intersection(p messages.Pick) voxel.Intersection {
	switch {
	case p.Intersection != nil:
		return *p.Intersection

	case p.Ray != nil:
		return m.currentSession.Voxels().FindRayIntersection(*p.Ray)

	default:
		return voxel.Intersection{}
	}
}

func single(m voxel.Mutation, err error) ([]voxel.Mutation, error) {
	if err != nil {
		return nil, err
	}
	return []voxel.Mutation{m}, nil
}

// Package clipboard implements the module that copies, moves, exports and
// imports the voxels selected by a participant.
package clipboard

import (
	"context"
	"crypto/ecdsa"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
	"github.com/aukilabs/voxedit/modules"
	"github.com/aukilabs/voxedit/snapshot"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

type Module struct {
	// The key that signs exported snapshots.
	PrivateKey *ecdsa.PrivateKey

	// The addresses allowed to sign imported snapshots. Any signer is
	// accepted when empty.
	TrustedSigners []string

	currentSession     *models.Session
	currentParticipant *models.Participant
}

func (m *Module) Name() string {
	return "clipboard"
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	if msg.Type != messages.MsgTypeClipboardRequest {
		return modules.SkipMsg(msg)
	}

	var req messages.ClipboardRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return modules.NotJoined(msg)
	}

	res, err := m.handleAction(session, participant, req)
	if err != nil {
		modules.RespondError(respond, req.RequestID, err)
		return nil
	}

	instrumentAction(req.Action)
	respond.Send(res)
	return nil
}

func (m *Module) HandleDisconnect() {
}

func (m *Module) handleAction(session *models.Session, participant *models.Participant, req messages.ClipboardRequest) (messages.ClipboardResponse, error) {
	if req.Selection != nil {
		if !req.Selection.Valid() {
			return messages.ClipboardResponse{}, errors.New("invalid selection").
				WithType(models.ErrTypeInvalidCell).
				WithTag("origin", req.Selection.Origin).
				WithTag("size", req.Selection.Size)
		}
		participant.SetSelection(*req.Selection)
	}

	selection, ok := participant.Selection()
	if !ok {
		return messages.ClipboardResponse{}, errors.New("nothing is selected").
			WithType(models.ErrTypeNoSelection)
	}

	res := messages.ClipboardResponse{
		RequestID: req.RequestID,
		Action:    req.Action,
		Selection: &selection,
	}

	var err error
	switch req.Action {
	case messages.CopyAction:
		res.Voxels = session.Voxels().Region(selection)
		participant.SetClipboard(models.Clipboard{
			Region: selection,
			Voxels: res.Voxels,
		})

	case messages.CutAction:
		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			res.Voxels = s.Region(selection)
			participant.SetClipboard(models.Clipboard{
				Region: selection,
				Voxels: res.Voxels,
			})

			mutation, err := s.Erase(selection)
			if err != nil {
				return nil, err
			}
			return []voxel.Mutation{mutation}, nil
		})

	case messages.PasteAction:
		clipboard, ok := participant.Clipboard()
		if !ok {
			return messages.ClipboardResponse{}, errors.New("clipboard is empty").
				WithType(models.ErrTypeEmptyClipboard)
		}

		voxels := snapshot.NewExport(clipboard.Region, clipboard.Voxels).Place(selection)
		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			return replace(s, voxels, selection)
		})

	case messages.DeleteAction:
		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			mutation, err := s.Erase(selection)
			if err != nil {
				return nil, err
			}
			return []voxel.Mutation{mutation}, nil
		})

	case messages.NudgeAction:
		moved := selection.Translate(req.Offset)
		if !moved.Valid() || req.Offset == (mgl64.Vec3{}) {
			return messages.ClipboardResponse{}, errors.New("offset is not a multiple of the selection size").
				WithType(models.ErrTypeInvalidCell).
				WithTag("offset", req.Offset).
				WithTag("size", selection.Size)
		}

		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			voxels := s.Region(selection)
			for i := range voxels {
				voxels[i].Cell = voxels[i].Cell.Translate(req.Offset)
			}

			mutation, err := s.Erase(selection)
			if err != nil {
				return nil, err
			}

			mutations, err := replace(s, voxels, moved)
			return append([]voxel.Mutation{mutation}, mutations...), err
		})
		if err == nil {
			participant.SetSelection(moved)
			res.Selection = &moved
		}

	case messages.ExportAction:
		if m.PrivateKey == nil {
			return messages.ClipboardResponse{}, errors.New("no snapshot signing key")
		}

		e := snapshot.NewExport(selection, session.Voxels().Region(selection))
		signed, err := snapshot.SignExport(e, m.PrivateKey)
		if err != nil {
			return messages.ClipboardResponse{}, err
		}
		res.Snapshot = &signed

	case messages.ImportAction:
		if req.Snapshot == nil {
			return messages.ClipboardResponse{}, errors.New("missing snapshot").
				WithType(snapshot.ErrTypeMalformed)
		}

		e, err := snapshot.Open(*req.Snapshot, m.TrustedSigners...)
		if err != nil {
			return messages.ClipboardResponse{}, err
		}

		voxels := e.Place(selection)
		res.Mutations, err = session.Edit(participant, func(s *models.VoxelStore) ([]voxel.Mutation, error) {
			return replace(s, voxels, selection)
		})
		if err != nil {
			return messages.ClipboardResponse{}, err
		}

	default:
		return messages.ClipboardResponse{}, errors.New("unknown clipboard action").
			WithType(messages.ErrTypeUnknownClipboardAction).
			WithTag("action", int(req.Action))
	}

	if err != nil {
		return messages.ClipboardResponse{}, err
	}
	return res, nil
}

// replace erases the region then stores the given voxels. The mutations
// applied before a failure are returned with the error.
func replace(s *models.VoxelStore, voxels []voxel.Voxel, region voxel.Cell) ([]voxel.Mutation, error) {
	mutations := make([]voxel.Mutation, 0, len(voxels)+1)
	mutations = append(mutations, voxel.Mutation{Kind: voxel.EraseMutation, Cell: region})

	for _, v := range voxels {
		mutations = append(mutations, voxel.Mutation{
			Kind:  voxel.SetMutation,
			Cell:  v.Cell,
			Color: v.Color,
		})
	}

	applied, err := s.Apply(mutations...)
	if len(applied) == 0 {
		return nil, err
	}
	return applied, err
}

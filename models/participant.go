package models

import (
	"github.com/aukilabs/voxedit/editor"
	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/voxel"
)

const (
	ErrTypeNoSelection    = "no_selection"
	ErrTypeEmptyClipboard = "empty_clipboard"
)

// A session participant.
type Participant struct {
	ID        uint32
	ClientID  string
	Responder messages.ResponseSender

	// The editing state of the participant. It is only used from the
	// participant connection.
	Editor *editor.Editor

	selection *voxel.Cell
	clipboard *Clipboard
}

// Clipboard is the content copied or cut by a participant.
type Clipboard struct {
	Region voxel.Cell
	Voxels []voxel.Voxel
}

// Selection returns the cell last selected by the participant.
func (p *Participant) Selection() (voxel.Cell, bool) {
	if p.selection == nil {
		return voxel.Cell{}, false
	}
	return *p.selection, true
}

func (p *Participant) SetSelection(c voxel.Cell) {
	p.selection = &c
}

func (p *Participant) ClearSelection() {
	p.selection = nil
}

func (p *Participant) Clipboard() (Clipboard, bool) {
	if p.clipboard == nil {
		return Clipboard{}, false
	}
	return *p.clipboard, true
}

func (p *Participant) SetClipboard(c Clipboard) {
	p.clipboard = &c
}

func (p *Participant) ToMessage() messages.Participant {
	return messages.Participant{
		ID: p.ID,
	}
}

func ParticipantsToMessages(participants []*Participant) []messages.Participant {
	res := make([]messages.Participant, len(participants))
	for i, p := range participants {
		res[i] = p.ToMessage()
	}
	return res
}

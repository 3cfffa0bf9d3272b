package editor

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/voxel"
)

const (
	ErrTypeUnknownTool         = "unknown_tool"
	ErrTypeUnknownMode         = "unknown_mode"
	ErrTypeUnknownPreviewStyle = "unknown_preview_style"
	ErrTypeInvalidColorIndex   = "invalid_color_index"
	ErrTypeToolsDisabled       = "tools_disabled"
)

// Tool is the tool picked in the tool palette.
type Tool int

const (
	AddTool Tool = iota
	DeleteTool
	RecolorTool
	EyedropperTool
	SelectTool
)

var toolNames = [...]string{
	AddTool:        "add",
	DeleteTool:     "delete",
	RecolorTool:    "recolor",
	EyedropperTool: "eyedropper",
	SelectTool:     "select",
}

func ParseTool(s string) (Tool, error) {
	for t, name := range toolNames {
		if name == s {
			return Tool(t), nil
		}
	}
	return 0, errors.New("unknown tool").
		WithType(ErrTypeUnknownTool).
		WithTag("tool", s)
}

func (t Tool) String() string {
	if t < AddTool || t > SelectTool {
		return "unknown"
	}
	return toolNames[t]
}

func (t Tool) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tool) UnmarshalText(b []byte) error {
	tool, err := ParseTool(string(b))
	if err != nil {
		return err
	}
	*t = tool
	return nil
}

// Modifiers are the modifier keys held by a participant.
type Modifiers struct {
	Control bool `json:"control,omitempty"`
	Shift   bool `json:"shift,omitempty"`
	Meta    bool `json:"meta,omitempty"`
	Alt     bool `json:"alt,omitempty"`
}

// Mode is the editing mode that results from the selected tool and the held
// modifiers.
type Mode int

const (
	AddMode Mode = iota
	DeleteMode
	RecolorMode
	EyedropperMode
	SelectMode
	NavigateMode
)

var modeNames = [...]string{
	AddMode:        "add",
	DeleteMode:     "delete",
	RecolorMode:    "recolor",
	EyedropperMode: "eyedropper",
	SelectMode:     "select",
	NavigateMode:   "navigate",
}

func (m Mode) String() string {
	if m < AddMode || m > NavigateMode {
		return "unknown"
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return 0, errors.New("unknown mode").
		WithType(ErrTypeUnknownMode).
		WithTag("mode", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	mode, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Operation returns the resolver operation used to target voxels in the
// mode. Navigating targets nothing.
func (m Mode) Operation() (voxel.Operation, bool) {
	switch m {
	case AddMode:
		return voxel.Add, true
	case DeleteMode:
		return voxel.Delete, true
	case RecolorMode, EyedropperMode:
		return voxel.Recolor, true
	case SelectMode:
		return voxel.Select, true
	default:
		return 0, false
	}
}

// ModeFor returns the mode for the given tool and modifiers. Alt always
// navigates. Right clicks delete unless meta is held.
func ModeFor(t Tool, m Modifiers, rightButton bool) Mode {
	switch {
	case m.Alt:
		return NavigateMode
	case t == DeleteTool || m.Control || (rightButton && !m.Meta):
		return DeleteMode
	case t == EyedropperTool || m.Meta:
		return EyedropperMode
	case t == RecolorTool || m.Shift:
		return RecolorMode
	case t == SelectTool:
		return SelectMode
	default:
		return AddMode
	}
}

// PreviewStyle is how targets are previewed.
type PreviewStyle int

const (
	LinesPreview PreviewStyle = iota
	VoxelPreview
)

func ParsePreviewStyle(s string) (PreviewStyle, error) {
	switch s {
	case "lines":
		return LinesPreview, nil
	case "voxel":
		return VoxelPreview, nil
	default:
		return 0, errors.New("unknown preview style").
			WithType(ErrTypeUnknownPreviewStyle).
			WithTag("style", s)
	}
}

func (p PreviewStyle) String() string {
	if p == VoxelPreview {
		return "voxel"
	}
	return "lines"
}

func (p PreviewStyle) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PreviewStyle) UnmarshalText(b []byte) error {
	style, err := ParsePreviewStyle(string(b))
	if err != nil {
		return err
	}
	*p = style
	return nil
}

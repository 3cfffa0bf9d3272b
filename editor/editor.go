// Package editor holds the editing state of a participant: the selected tool,
// the held modifiers, the palette, the voxel scale and the preview settings.
// It turns them into an editing mode and resolves the voxels targeted in that
// mode.
package editor

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	NewVoxelSize     = 1.0
	NewVoxelDistance = 3.0
)

// State is a snapshot of an editor.
type State struct {
	Enabled      bool         `json:"enabled"`
	Tool         Tool         `json:"tool"`
	Mode         Mode         `json:"mode"`
	Modifiers    Modifiers    `json:"modifiers"`
	ColorIndex   int          `json:"color_index"`
	Palette      Palette      `json:"palette"`
	ScaleSet     bool         `json:"scale_set"`
	ScaleStep    int          `json:"scale_step"`
	Scale        float64      `json:"scale"`
	PreviewStyle PreviewStyle `json:"preview_style"`
}

// Update is a set of changes to apply to an editor. Nil fields are left
// untouched.
type Update struct {
	Enabled            *bool         `json:"enabled,omitempty"`
	ToggleEnabled      bool          `json:"toggle_enabled,omitempty"`
	Tool               *Tool         `json:"tool,omitempty"`
	Modifiers          *Modifiers    `json:"modifiers,omitempty"`
	ColorIndex         *int          `json:"color_index,omitempty"`
	ScaleStep          *int          `json:"scale_step,omitempty"`
	ScaleDelta         int           `json:"scale_delta,omitempty"`
	ResetScale         bool          `json:"reset_scale,omitempty"`
	PreviewStyle       *PreviewStyle `json:"preview_style,omitempty"`
	TogglePreviewStyle bool          `json:"toggle_preview_style,omitempty"`
}

// Editor is the editing state of a participant. It is not safe for
// concurrent use.
type Editor struct {
	enabled      bool
	tool         Tool
	modifiers    Modifiers
	colorIndex   int
	palette      Palette
	scales       voxel.ScaleRange
	scaleStep    int
	followStep   int
	previewStyle PreviewStyle
	extruder     Extruder
}

// New creates an enabled editor with the add tool selected, painting in copy
// mode with the scale following the size of the voxels pointed at.
func New(palette Palette, scales voxel.ScaleRange) *Editor {
	if len(palette) == 0 {
		palette = DefaultPalette()
	}
	if !scales.Valid() {
		scales = voxel.DefaultScaleRange()
	}

	return &Editor{
		enabled:    true,
		tool:       AddTool,
		colorIndex: CopyColorIndex,
		palette:    palette.Clone(),
		scales:     scales,
		followStep: scales.StepForScale(1),
	}
}

func (e *Editor) Enabled() bool {
	return e.enabled
}

func (e *Editor) SetEnabled(v bool) {
	e.enabled = v
	if !v {
		e.extruder.End()
	}
}

func (e *Editor) Tool() Tool {
	return e.tool
}

func (e *Editor) SetTool(t Tool) {
	e.tool = t
}

func (e *Editor) Modifiers() Modifiers {
	return e.modifiers
}

func (e *Editor) SetModifiers(m Modifiers) {
	e.modifiers = m
}

// Mode returns the current editing mode.
func (e *Editor) Mode(rightButton bool) Mode {
	return ModeFor(e.tool, e.modifiers, rightButton)
}

// EditMode returns the current editing mode with its operation. It fails
// when the tools are disabled or while navigating.
func (e *Editor) EditMode(rightButton bool) (Mode, voxel.Operation, error) {
	if !e.enabled {
		return 0, 0, errors.New("editing tools are disabled").
			WithType(ErrTypeToolsDisabled)
	}

	mode := e.Mode(rightButton)
	op, ok := mode.Operation()
	if !ok {
		return mode, 0, errors.New("editing tools are disabled while navigating").
			WithType(ErrTypeToolsDisabled).
			WithTag("mode", mode)
	}
	return mode, op, nil
}

func (e *Editor) ColorIndex() int {
	return e.colorIndex
}

// SelectColor selects a palette slot, or copy mode with CopyColorIndex.
func (e *Editor) SelectColor(i int) error {
	if i < CopyColorIndex || i >= len(e.palette) {
		return errors.New("color index out of range").
			WithType(ErrTypeInvalidColorIndex).
			WithTag("index", i).
			WithTag("palette_size", len(e.palette))
	}
	e.colorIndex = i
	return nil
}

// Color returns the color to paint with when pointing at a voxel of the given
// color.
func (e *Editor) Color(hit voxel.RGB) voxel.RGB {
	if e.colorIndex == CopyColorIndex {
		return hit
	}
	return e.palette[e.colorIndex]
}

// PickColor stores the given color in the selected palette slot. It does
// nothing in copy mode.
func (e *Editor) PickColor(c voxel.RGB) bool {
	if e.colorIndex == CopyColorIndex {
		return false
	}
	e.palette[e.colorIndex] = c
	return true
}

func (e *Editor) Palette() Palette {
	return e.palette.Clone()
}

func (e *Editor) ScaleRange() voxel.ScaleRange {
	return e.scales
}

// TargetSize returns the size voxels are targeted at.
func (e *Editor) TargetSize() voxel.TargetSize {
	if e.scaleStep == 0 {
		return voxel.Unset
	}
	return voxel.TargetSize(e.scales.ScaleForStep(e.scaleStep))
}

// ScaleStep returns the selected step, or the step of the last voxel pointed
// at when the scale is unset.
func (e *Editor) ScaleStep() int {
	if e.scaleStep == 0 {
		return e.followStep
	}
	return e.scaleStep
}

func (e *Editor) SetScaleStep(step int) {
	e.scaleStep = e.scales.ClampStep(step)
}

func (e *Editor) IncreaseScale() {
	e.SetScaleStep(e.ScaleStep() + 1)
}

func (e *Editor) DecreaseScale() {
	e.SetScaleStep(e.ScaleStep() - 1)
}

// ResetScale makes the scale follow the size of the voxels pointed at.
func (e *Editor) ResetScale() {
	e.scaleStep = 0
}

func (e *Editor) PreviewStyle() PreviewStyle {
	return e.previewStyle
}

func (e *Editor) SetPreviewStyle(s PreviewStyle) {
	e.previewStyle = s
}

func (e *Editor) Extruder() *Extruder {
	return &e.extruder
}

// Apply applies the given update. The update is applied entirely or not at
// all.
func (e *Editor) Apply(u Update) error {
	if u.ColorIndex != nil {
		if i := *u.ColorIndex; i < CopyColorIndex || i >= len(e.palette) {
			return errors.New("color index out of range").
				WithType(ErrTypeInvalidColorIndex).
				WithTag("index", i).
				WithTag("palette_size", len(e.palette))
		}
	}

	if u.Enabled != nil {
		e.SetEnabled(*u.Enabled)
	}
	if u.ToggleEnabled {
		e.SetEnabled(!e.enabled)
	}
	if u.Tool != nil {
		e.SetTool(*u.Tool)
	}
	if u.Modifiers != nil {
		e.SetModifiers(*u.Modifiers)
	}
	if u.ColorIndex != nil {
		e.colorIndex = *u.ColorIndex
	}
	if u.ResetScale {
		e.ResetScale()
	}
	if u.ScaleStep != nil {
		e.SetScaleStep(*u.ScaleStep)
	}
	if u.ScaleDelta != 0 {
		e.SetScaleStep(e.ScaleStep() + u.ScaleDelta)
	}
	if u.PreviewStyle != nil {
		e.SetPreviewStyle(*u.PreviewStyle)
	}
	if u.TogglePreviewStyle {
		if e.previewStyle == LinesPreview {
			e.previewStyle = VoxelPreview
		} else {
			e.previewStyle = LinesPreview
		}
	}
	return nil
}

// State returns a snapshot of the editor.
func (e *Editor) State() State {
	return State{
		Enabled:      e.enabled,
		Tool:         e.tool,
		Mode:         e.Mode(false),
		Modifiers:    e.modifiers,
		ColorIndex:   e.colorIndex,
		Palette:      e.Palette(),
		ScaleSet:     e.scaleStep != 0,
		ScaleStep:    e.ScaleStep(),
		Scale:        e.scales.ScaleForStep(e.ScaleStep()),
		PreviewStyle: e.previewStyle,
	}
}

// Resolve resolves the voxel targeted by an operation at the current scale.
// When the scale is unset, it follows the size of the hit voxel.
func (e *Editor) Resolve(hit voxel.Intersection, op voxel.Operation) (voxel.ResolvedTarget, error) {
	target, err := voxel.Resolve(hit, e.TargetSize(), op)
	if err != nil {
		return voxel.ResolvedTarget{}, err
	}

	if e.scaleStep == 0 {
		e.followStep = e.scales.StepForScale(hit.Cell.Size)
	}
	return target, nil
}

// NewVoxelInFront returns the cell and color of a voxel created in front of
// a camera looking in the given direction.
func (e *Editor) NewVoxelInFront(camera, forward mgl64.Vec3) (voxel.Cell, voxel.RGB, error) {
	if forward.Len() == 0 {
		return voxel.Cell{}, voxel.RGB{}, errors.New("forward vector is zero")
	}

	pos := camera.Add(forward.Normalize().Mul(NewVoxelDistance))

	i := e.colorIndex
	if i == CopyColorIndex {
		i = 0
	}
	return voxel.NewCell(pos, NewVoxelSize), e.palette[i], nil
}

package editor

import (
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	deletePreviewColor = voxel.RGB{Red: 255}
	selectPreviewColor = voxel.RGB{Red: 255, Green: 255}
)

// Cube is a cube overlay drawn to preview a voxel.
type Cube struct {
	Origin mgl64.Vec3 `json:"origin"`
	Size   float64    `json:"size"`
	Color  voxel.RGB  `json:"color"`
	Solid  bool       `json:"solid"`
	Alpha  float64    `json:"alpha"`
}

// Preview describes the overlays that show which voxel an edit would
// affect.
type Preview struct {
	Visible bool                 `json:"visible"`
	Mode    Mode                 `json:"mode"`
	Style   PreviewStyle         `json:"style"`
	Target  voxel.ResolvedTarget `json:"target"`
	Cube    *Cube                `json:"cube,omitempty"`
}

// Preview returns the preview for the given intersection in the current mode.
// Nothing is shown while the tools are disabled, while navigating, while
// extruding or when nothing is hit.
func (e *Editor) Preview(hit voxel.Intersection, rightButton bool) (Preview, error) {
	mode := e.Mode(rightButton)
	p := Preview{
		Mode:  mode,
		Style: e.previewStyle,
	}

	op, ok := mode.Operation()
	if !e.enabled || !ok || !hit.Hit || e.extruder.Extruding() {
		return p, nil
	}

	target, err := e.Resolve(hit, op)
	if err != nil {
		return p, err
	}
	p.Visible = true
	p.Target = target

	if e.previewStyle == LinesPreview && mode != SelectMode {
		return p, nil
	}

	s := target.Cell.Size
	cube := Cube{
		Origin: target.Cell.Origin,
		Size:   s + voxel.ZFightingEpsilon,
		Alpha:  1,
	}

	switch mode {
	case DeleteMode:
		cube.Color = deletePreviewColor

	case SelectMode:
		cube.Color = selectPreviewColor

	case RecolorMode, EyedropperMode:
		cube.Color = e.Color(hit.Color)
		cube.Solid = true
		cube.Alpha = 0.8

	case AddMode:
		cube.Size = s - voxel.ZFightingEpsilon
		cube.Color = e.Color(hit.Color)
		cube.Solid = true
		cube.Alpha = 0.7
	}

	p.Cube = &cube
	return p, nil
}

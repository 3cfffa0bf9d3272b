package editor

import (
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

// Extruder repeats the last added voxel along an axis while a participant
// drags after an add.
type Extruder struct {
	active    bool
	extruding bool
	last      voxel.Cell
	color     voxel.RGB
	direction mgl64.Vec3
}

// Start starts a drag from a freshly added voxel.
func (x *Extruder) Start(c voxel.Cell, color voxel.RGB) {
	*x = Extruder{
		active: true,
		last:   c,
		color:  color,
	}
}

// Active reports whether a drag is in progress.
func (x *Extruder) Active() bool {
	return x.active
}

// Extruding reports whether the drag picked a direction.
func (x *Extruder) Extruding() bool {
	return x.extruding
}

func (x *Extruder) Direction() mgl64.Vec3 {
	return x.direction
}

// Drag handles a drag step with the participant pick ray. The first step
// that moves further than the voxel size picks the direction, testing x then
// y then z, and adds nothing. Every following step adds the next voxel along
// that direction and returns it.
func (x *Extruder) Drag(r voxel.Ray) (voxel.Cell, voxel.RGB, bool) {
	if !x.active {
		return voxel.Cell{}, voxel.RGB{}, false
	}

	if x.extruding {
		x.last = x.last.Translate(x.direction)
		return x.last, x.color, true
	}

	if !r.Valid() {
		return voxel.Cell{}, voxel.RGB{}, false
	}

	distance := r.Origin.Sub(x.last.Origin).Len()
	spot := r.Normalized().At(distance)
	d := spot.Sub(x.last.Origin)
	s := x.last.Size

	for i := 0; i < 3; i++ {
		var dir mgl64.Vec3
		switch {
		case d[i] > s:
			dir[i] = s
		case d[i] < -s:
			dir[i] = -s
		default:
			continue
		}

		x.direction = dir
		x.extruding = true
		break
	}
	return voxel.Cell{}, voxel.RGB{}, false
}

// End ends the drag.
func (x *Extruder) End() {
	*x = Extruder{}
}

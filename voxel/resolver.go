package voxel

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// ErrTypeInvalidIntersection is the type of the error returned when a
	// target is resolved from an intersection that did not hit a voxel.
	ErrTypeInvalidIntersection = "invalid_intersection"

	ErrTypeUnknownFace      = "unknown_face"
	ErrTypeUnknownOperation = "unknown_operation"
)

// ZFightingEpsilon is the distance preview quads are pushed away from the
// voxel surface and shrunk by on their in-plane edges.
const ZFightingEpsilon = 0.002

// Operation is the kind of edit a target is resolved for.
type Operation int

const (
	Add Operation = iota
	Delete
	Recolor
	Select
)

var operationNames = [...]string{
	Add:     "add",
	Delete:  "delete",
	Recolor: "recolor",
	Select:  "select",
}

func ParseOperation(s string) (Operation, error) {
	for op, name := range operationNames {
		if name == s {
			return Operation(op), nil
		}
	}
	return 0, errors.New("unknown operation").
		WithType(ErrTypeUnknownOperation).
		WithTag("operation", s)
}

func (o Operation) String() string {
	if o < Add || o > Select {
		return "unknown"
	}
	return operationNames[o]
}

func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// TargetSize is the size a target is resolved at. A zero or negative value
// means the size is unset and the hit cell size is used.
type TargetSize float64

// Unset is the TargetSize that follows the size of the hit cell.
const Unset TargetSize = 0

func (s TargetSize) IsSet() bool {
	return s > 0
}

// Intersection describes where a ray hit the voxel store.
type Intersection struct {
	Hit      bool       `json:"hit"`
	Cell     Cell       `json:"cell"`
	Color    RGB        `json:"color"`
	Face     Face       `json:"face"`
	Point    mgl64.Vec3 `json:"point"`
	Distance float64    `json:"distance,omitempty"`
}

// ResolvedTarget is the cell an operation applies to, with the corners of
// the quad that outlines it on the hit face.
type ResolvedTarget struct {
	Cell        Cell       `json:"cell"`
	TopLeft     mgl64.Vec3 `json:"top_left"`
	TopRight    mgl64.Vec3 `json:"top_right"`
	BottomLeft  mgl64.Vec3 `json:"bottom_left"`
	BottomRight mgl64.Vec3 `json:"bottom_right"`
}

// Corners returns the quad corners in top-left, top-right, bottom-left,
// bottom-right order.
func (t ResolvedTarget) Corners() [4]mgl64.Vec3 {
	return [4]mgl64.Vec3{t.TopLeft, t.TopRight, t.BottomLeft, t.BottomRight}
}

// quadLayout tells for each face which in-plane axes the quad spans and, per
// corner, whether the corner sits on the high side of each of them. Corners
// are in top-left, top-right, bottom-left, bottom-right order. The labels
// follow the screen-space convention of the editing tools and are kept as is
// for rendering compatibility.
type quadLayout struct {
	u, v    int
	corners [4][2]bool
}

var quadLayouts = [...]quadLayout{
	MinXFace: {u: axisY, v: axisZ, corners: [4][2]bool{{true, false}, {true, true}, {false, false}, {false, true}}},
	MaxXFace: {u: axisY, v: axisZ, corners: [4][2]bool{{true, true}, {true, false}, {false, true}, {false, false}}},
	MinYFace: {u: axisX, v: axisZ, corners: [4][2]bool{{true, false}, {false, false}, {true, true}, {false, true}}},
	MaxYFace: {u: axisX, v: axisZ, corners: [4][2]bool{{true, true}, {false, true}, {true, false}, {false, false}}},
	MinZFace: {u: axisX, v: axisY, corners: [4][2]bool{{true, true}, {false, true}, {true, false}, {false, false}}},
	MaxZFace: {u: axisX, v: axisY, corners: [4][2]bool{{false, true}, {true, true}, {false, false}, {true, false}}},
}

// Resolve returns the cell that the given operation targets for the
// intersection, along with its preview quad on the hit face.
//
// Targets coarser than the hit cell resolve to the ancestor containing it.
// Finer or equal targets resolve to the sub cell under the hit point. Adds at
// or below the hit size are moved one step out of the hit face so the new
// voxel sits next to the clicked surface.
//
// The sub cell origin is floor(center/size)*size, clamped into the hit cell.
// Without the clamp a hit point on an edge of the hit cell would select a
// sub cell of its neighbour.
func Resolve(hit Intersection, size TargetSize, op Operation) (ResolvedTarget, error) {
	if !hit.Hit {
		return ResolvedTarget{}, errors.New("intersection did not hit a voxel").
			WithType(ErrTypeInvalidIntersection)
	}

	if hit.Cell.Size <= 0 || !hit.Face.Valid() {
		return ResolvedTarget{}, errors.New("invalid intersection").
			WithType(ErrTypeInvalidIntersection).
			WithTag("size", hit.Cell.Size).
			WithTag("face", int(hit.Face))
	}

	s := hit.Cell.Size
	if size.IsSet() {
		s = float64(size)
	}

	var origin mgl64.Vec3
	if s > hit.Cell.Size {
		origin = alignDown(hit.Cell.Origin, s)
	} else {
		center := hit.Point.Sub(hit.Face.Normal().Mul(s / 2))
		origin = alignDown(center, s)

		for i := 0; i < 3; i++ {
			origin[i] = clamp(origin[i], hit.Cell.Origin[i], hit.Cell.Origin[i]+hit.Cell.Size-s)
		}
	}

	target := ResolvedTarget{
		Cell: Cell{Origin: origin, Size: s},
	}
	target.TopLeft, target.TopRight, target.BottomLeft, target.BottomRight = quadCorners(origin, s, hit.Face)

	if op == Add && s <= hit.Cell.Size {
		target.Cell = target.Cell.Neighbor(hit.Face)
	}
	return target, nil
}

func quadCorners(origin mgl64.Vec3, s float64, f Face) (tl, tr, bl, br mgl64.Vec3) {
	highlight := origin
	axis := f.Axis()
	if f.IsMax() {
		highlight[axis] += s + ZFightingEpsilon
	} else {
		highlight[axis] -= ZFightingEpsilon
	}

	layout := quadLayouts[f]
	var corners [4]mgl64.Vec3

	for i, c := range layout.corners {
		p := highlight
		p[layout.u] = edge(origin[layout.u], s, c[0])
		p[layout.v] = edge(origin[layout.v], s, c[1])
		corners[i] = p
	}
	return corners[0], corners[1], corners[2], corners[3]
}

func edge(origin, s float64, high bool) float64 {
	if high {
		return origin + s - ZFightingEpsilon
	}
	return origin + ZFightingEpsilon
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(v, max))
}

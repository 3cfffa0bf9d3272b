package voxel

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is one of the six axis-aligned faces of a voxel cell.
type Face int

const (
	MinXFace Face = iota
	MaxXFace
	MinYFace
	MaxYFace
	MinZFace
	MaxZFace
)

const (
	axisX = 0
	axisY = 1
	axisZ = 2
)

var faceNames = [...]string{
	MinXFace: "MIN_X_FACE",
	MaxXFace: "MAX_X_FACE",
	MinYFace: "MIN_Y_FACE",
	MaxYFace: "MAX_Y_FACE",
	MinZFace: "MIN_Z_FACE",
	MaxZFace: "MAX_Z_FACE",
}

// ParseFace returns the face with the given name.
func ParseFace(s string) (Face, error) {
	for f, name := range faceNames {
		if name == s {
			return Face(f), nil
		}
	}
	return 0, errors.New("unknown face").
		WithType(ErrTypeUnknownFace).
		WithTag("face", s)
}

func (f Face) Valid() bool {
	return f >= MinXFace && f <= MaxZFace
}

func (f Face) String() string {
	if !f.Valid() {
		return "UNKNOWN_FACE"
	}
	return faceNames[f]
}

// Axis returns the index of the axis the face is orthogonal to.
func (f Face) Axis() int {
	return int(f) / 2
}

// IsMax reports whether the face lies on the high coordinate side of its
// axis.
func (f Face) IsMax() bool {
	return int(f)%2 == 1
}

// Normal returns the outward unit normal of the face.
func (f Face) Normal() mgl64.Vec3 {
	var n mgl64.Vec3
	if !f.Valid() {
		return n
	}

	if f.IsMax() {
		n[f.Axis()] = 1
	} else {
		n[f.Axis()] = -1
	}
	return n
}

// Opposite returns the face on the other side of the same axis.
func (f Face) Opposite() Face {
	if f.IsMax() {
		return f - 1
	}
	return f + 1
}

func (f Face) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, errors.New("unknown face").
			WithType(ErrTypeUnknownFace).
			WithTag("face", int(f))
	}
	return []byte(f.String()), nil
}

func (f *Face) UnmarshalText(b []byte) error {
	face, err := ParseFace(string(b))
	if err != nil {
		return err
	}
	*f = face
	return nil
}

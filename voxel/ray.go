package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ray is a half line used to pick voxels.
type Ray struct {
	Origin    mgl64.Vec3 `json:"origin"`
	Direction mgl64.Vec3 `json:"direction"`
}

// Valid reports whether the ray has a usable direction.
func (r Ray) Valid() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(r.Origin[i]) || math.IsNaN(r.Direction[i]) {
			return false
		}
	}
	return r.Direction.Len() > 0
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Normalized returns the ray with a unit direction.
func (r Ray) Normalized() Ray {
	return Ray{
		Origin:    r.Origin,
		Direction: r.Direction.Normalize(),
	}
}

// IntersectCell returns the distance at which the ray enters the cell and the
// face it enters through. Rays that start inside the cell or miss it are
// reported with ok set to false.
func IntersectCell(r Ray, c Cell) (t float64, face Face, ok bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	min := c.Origin
	max := c.Max()

	for i := 0; i < 3; i++ {
		d := r.Direction[i]
		o := r.Origin[i]

		if d == 0 {
			if o < min[i] || o > max[i] {
				return 0, 0, false
			}
			continue
		}

		t1 := (min[i] - o) / d
		t2 := (max[i] - o) / d
		entry := Face(i * 2)
		if t1 > t2 {
			t1, t2 = t2, t1
			entry++
		}

		if t1 > tmin {
			tmin = t1
			face = entry
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, 0, false
		}
	}

	if tmin < 0 || math.IsInf(tmin, 0) {
		return 0, 0, false
	}
	return tmin, face, true
}

// Intersect returns the intersection record of the ray with a colored cell.
func Intersect(r Ray, c Cell, color RGB) Intersection {
	t, face, ok := IntersectCell(r, c)
	if !ok {
		return Intersection{}
	}

	p := r.At(t)
	// Snaps the hit point onto the face plane.
	if face.IsMax() {
		p[face.Axis()] = c.Origin[face.Axis()] + c.Size
	} else {
		p[face.Axis()] = c.Origin[face.Axis()]
	}

	return Intersection{
		Hit:      true,
		Cell:     c,
		Color:    color,
		Face:     face,
		Point:    p,
		Distance: t * r.Direction.Len(),
	}
}

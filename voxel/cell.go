package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cell is an axis-aligned cube of the implicit voxel octree, addressed by its
// minimum corner. Its size is a power of two and its origin is a multiple of
// its size on every axis.
type Cell struct {
	Origin mgl64.Vec3 `json:"origin"`
	Size   float64    `json:"size"`
}

// NewCell returns the cell of the given size that contains the given point.
func NewCell(p mgl64.Vec3, size float64) Cell {
	return Cell{
		Origin: alignDown(p, size),
		Size:   size,
	}
}

// Valid reports whether c respects the octree alignment rules.
func (c Cell) Valid() bool {
	if !IsPowerOfTwo(c.Size) {
		return false
	}

	for i := 0; i < 3; i++ {
		if math.IsNaN(c.Origin[i]) || math.IsInf(c.Origin[i], 0) {
			return false
		}
		if math.Mod(c.Origin[i], c.Size) != 0 {
			return false
		}
	}
	return true
}

// Max returns the corner opposite to the origin.
func (c Cell) Max() mgl64.Vec3 {
	return c.Origin.Add(mgl64.Vec3{c.Size, c.Size, c.Size})
}

func (c Cell) Center() mgl64.Vec3 {
	h := c.Size / 2
	return c.Origin.Add(mgl64.Vec3{h, h, h})
}

// ContainsPoint reports whether p lies in the half-open volume of c.
func (c Cell) ContainsPoint(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < c.Origin[i] || p[i] >= c.Origin[i]+c.Size {
			return false
		}
	}
	return true
}

// Contains reports whether o lies entirely inside c. A cell contains itself.
func (c Cell) Contains(o Cell) bool {
	if o.Size > c.Size {
		return false
	}

	for i := 0; i < 3; i++ {
		if o.Origin[i] < c.Origin[i] || o.Origin[i]+o.Size > c.Origin[i]+c.Size {
			return false
		}
	}
	return true
}

// Overlaps reports whether c and o share some volume.
func (c Cell) Overlaps(o Cell) bool {
	for i := 0; i < 3; i++ {
		if c.Origin[i] >= o.Origin[i]+o.Size || o.Origin[i] >= c.Origin[i]+c.Size {
			return false
		}
	}
	return true
}

// Ancestor returns the cell of the given size that contains c. Sizes smaller
// than c's return c unchanged.
func (c Cell) Ancestor(size float64) Cell {
	if size <= c.Size {
		return c
	}
	return Cell{
		Origin: alignDown(c.Origin, size),
		Size:   size,
	}
}

// Children returns the eight cells of half the size that make up c.
func (c Cell) Children() [8]Cell {
	var children [8]Cell
	h := c.Size / 2

	for i := 0; i < 8; i++ {
		children[i] = Cell{
			Origin: mgl64.Vec3{
				c.Origin[0] + float64(i&1)*h,
				c.Origin[1] + float64((i>>1)&1)*h,
				c.Origin[2] + float64((i>>2)&1)*h,
			},
			Size: h,
		}
	}
	return children
}

// Neighbor returns the cell of the same size that shares the given face with
// c.
func (c Cell) Neighbor(f Face) Cell {
	return Cell{
		Origin: c.Origin.Add(f.Normal().Mul(c.Size)),
		Size:   c.Size,
	}
}

// Translate returns c moved by the given offset. The result is only a valid
// cell when the offset is a multiple of the cell size.
func (c Cell) Translate(offset mgl64.Vec3) Cell {
	return Cell{
		Origin: c.Origin.Add(offset),
		Size:   c.Size,
	}
}

// IsPowerOfTwo reports whether v is a positive power of two, fractional
// powers included.
func IsPowerOfTwo(v float64) bool {
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	frac, _ := math.Frexp(v)
	return frac == 0.5
}

func alignDown(p mgl64.Vec3, size float64) mgl64.Vec3 {
	return mgl64.Vec3{
		math.Floor(p[0]/size) * size,
		math.Floor(p[1]/size) * size,
		math.Floor(p[2]/size) * size,
	}
}

// RGB is a voxel color.
type RGB struct {
	Red   uint8 `json:"red"   yaml:"red"`
	Green uint8 `json:"green" yaml:"green"`
	Blue  uint8 `json:"blue"  yaml:"blue"`
}

// Uint32 packs the color as 0x00RRGGBB.
func (c RGB) Uint32() uint32 {
	return uint32(c.Red)<<16 | uint32(c.Green)<<8 | uint32(c.Blue)
}

func RGBFromUint32(v uint32) RGB {
	return RGB{
		Red:   uint8(v >> 16),
		Green: uint8(v >> 8),
		Blue:  uint8(v),
	}
}

package voxel

import (
	"math"
)

const (
	DefaultScaleSteps      = 8
	DefaultScaleOriginStep = 3
)

// ScaleRange maps the steps of a scale selector to power-of-two voxel sizes.
// Step OriginStep maps to size 1 and every step doubles the size.
type ScaleRange struct {
	Steps      int `json:"steps"`
	OriginStep int `json:"origin_step"`
}

func DefaultScaleRange() ScaleRange {
	return ScaleRange{
		Steps:      DefaultScaleSteps,
		OriginStep: DefaultScaleOriginStep,
	}
}

func (r ScaleRange) Valid() bool {
	return r.Steps > 0 && r.OriginStep >= 1 && r.OriginStep <= r.Steps
}

// Min returns the smallest selectable size.
func (r ScaleRange) Min() float64 {
	return math.Ldexp(1, 1-r.OriginStep)
}

// Max returns the largest selectable size.
func (r ScaleRange) Max() float64 {
	return math.Ldexp(1, r.Steps-r.OriginStep)
}

// ScaleForStep returns the size of a step, clamped to the range.
func (r ScaleRange) ScaleForStep(step int) float64 {
	return math.Ldexp(1, r.ClampStep(step)-r.OriginStep)
}

// StepForScale returns the step the given size falls on, clamped to the
// range. Sizes between two steps round to the nearest one.
func (r ScaleRange) StepForScale(scale float64) int {
	if scale <= 0 || math.IsNaN(scale) {
		return 1
	}
	return r.ClampStep(int(math.Round(math.Log2(scale))) + r.OriginStep)
}

func (r ScaleRange) ClampStep(step int) int {
	if step < 1 {
		return 1
	}
	if step > r.Steps {
		return r.Steps
	}
	return step
}

// Clamp snaps a size to the nearest power of two within the range.
func (r ScaleRange) Clamp(size float64) float64 {
	return r.ScaleForStep(r.StepForScale(size))
}

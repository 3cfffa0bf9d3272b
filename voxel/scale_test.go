package voxel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScaleRangeDefaults(t *testing.T) {
	r := DefaultScaleRange()
	require.True(t, r.Valid())
	require.Equal(t, 0.25, r.Min())
	require.Equal(t, 32.0, r.Max())
	require.Equal(t, 1.0, r.ScaleForStep(3))
	require.Equal(t, 0.25, r.ScaleForStep(1))
	require.Equal(t, 32.0, r.ScaleForStep(8))
}

func TestScaleRangeClamps(t *testing.T) {
	r := DefaultScaleRange()

	require.Equal(t, 0.25, r.ScaleForStep(-3))
	require.Equal(t, 32.0, r.ScaleForStep(99))
	require.Equal(t, 1, r.StepForScale(0.001))
	require.Equal(t, 8, r.StepForScale(1000))
	require.Equal(t, 1, r.StepForScale(0))

	require.Equal(t, 4.0, r.Clamp(3.5))
	require.Equal(t, 0.25, r.Clamp(0.01))
	require.Equal(t, 32.0, r.Clamp(64))
}

func TestScaleRangeRoundTrip(t *testing.T) {
	r := ScaleRange{Steps: 5, OriginStep: 2}
	require.Equal(t, 0.5, r.Min())
	require.Equal(t, 8.0, r.Max())

	for step := 1; step <= r.Steps; step++ {
		s := r.ScaleForStep(step)
		require.True(t, IsPowerOfTwo(s))
		require.Equal(t, step, r.StepForScale(s))
	}

	require.False(t, ScaleRange{Steps: 2, OriginStep: 3}.Valid())
}

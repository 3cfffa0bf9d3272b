package voxel

import (
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

const testEpsilon = 1e-9

func faceHit(c Cell, f Face, u, v float64) Intersection {
	p := c.Origin
	if f.IsMax() {
		p[f.Axis()] += c.Size
	}

	var in []int
	for i := 0; i < 3; i++ {
		if i != f.Axis() {
			in = append(in, i)
		}
	}
	p[in[0]] += u * c.Size
	p[in[1]] += v * c.Size

	return Intersection{
		Hit:   true,
		Cell:  c,
		Color: RGB{Red: 255},
		Face:  f,
		Point: p,
	}
}

func allFaces() []Face {
	return []Face{MinXFace, MaxXFace, MinYFace, MaxYFace, MinZFace, MaxZFace}
}

func TestResolveAddOnMaxXFace(t *testing.T) {
	hit := Intersection{
		Hit:   true,
		Cell:  Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 1},
		Face:  MaxXFace,
		Point: mgl64.Vec3{1, 0.5, 0.5},
	}

	target, err := Resolve(hit, Unset, Add)
	require.NoError(t, err)
	require.Equal(t, Cell{Origin: mgl64.Vec3{1, 0, 0}, Size: 1}, target.Cell)
}

func TestResolveDeleteCoarser(t *testing.T) {
	hit := Intersection{
		Hit:   true,
		Cell:  Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 1},
		Face:  MaxXFace,
		Point: mgl64.Vec3{1, 0.5, 0.5},
	}

	target, err := Resolve(hit, 2, Delete)
	require.NoError(t, err)
	require.Equal(t, Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 2}, target.Cell)
}

func TestResolveNoHit(t *testing.T) {
	_, err := Resolve(Intersection{}, Unset, Delete)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeInvalidIntersection))

	_, err = Resolve(Intersection{Hit: true, Face: MinXFace}, Unset, Delete)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeInvalidIntersection))
}

func TestResolveIdentityAtMatchingScale(t *testing.T) {
	cells := []Cell{
		{Origin: mgl64.Vec3{0, 0, 0}, Size: 1},
		{Origin: mgl64.Vec3{-4, 8, 12}, Size: 4},
		{Origin: mgl64.Vec3{0.25, -0.5, 1.75}, Size: 0.25},
	}

	for _, c := range cells {
		for _, f := range allFaces() {
			for _, op := range []Operation{Delete, Recolor, Select} {
				target, err := Resolve(faceHit(c, f, 0.3, 0.7), TargetSize(c.Size), op)
				require.NoError(t, err)
				require.Equal(t, c, target.Cell, "face %s op %s", f, op)

				target, err = Resolve(faceHit(c, f, 0.3, 0.7), Unset, op)
				require.NoError(t, err)
				require.Equal(t, c, target.Cell, "face %s op %s", f, op)
			}
		}
	}
}

func TestResolveCoarsening(t *testing.T) {
	hitCell := Cell{Origin: mgl64.Vec3{3, -5, 6}, Size: 1}

	for _, k := range []float64{2, 4, 8, 16} {
		for _, f := range allFaces() {
			for _, op := range []Operation{Add, Delete, Recolor, Select} {
				target, err := Resolve(faceHit(hitCell, f, 0.5, 0.5), TargetSize(k), op)
				require.NoError(t, err)
				require.Equal(t, k, target.Cell.Size)
				require.True(t, target.Cell.Valid())
				require.True(t, target.Cell.Contains(hitCell))
			}
		}
	}
}

func TestResolveAddAdjacency(t *testing.T) {
	hitCell := Cell{Origin: mgl64.Vec3{4, 4, 4}, Size: 4}

	for _, s := range []float64{4, 2, 1, 0.5} {
		for _, f := range allFaces() {
			hit := faceHit(hitCell, f, 0.6, 0.2)

			add, err := Resolve(hit, TargetSize(s), Add)
			require.NoError(t, err)

			del, err := Resolve(hit, TargetSize(s), Delete)
			require.NoError(t, err)

			require.False(t, add.Cell.Overlaps(hitCell), "face %s size %v", f, s)
			require.Equal(t, del.Cell.Origin.Add(f.Normal().Mul(s)), add.Cell.Origin)
			require.Equal(t, del.Corners(), add.Corners())
			require.True(t, hitCell.Contains(del.Cell))
		}
	}
}

func TestResolveDeleteAndRecolorDoNotShift(t *testing.T) {
	hitCell := Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 2}

	for _, f := range allFaces() {
		hit := faceHit(hitCell, f, 0.1, 0.9)

		del, err := Resolve(hit, 1, Delete)
		require.NoError(t, err)

		recolor, err := Resolve(hit, 1, Recolor)
		require.NoError(t, err)

		require.Equal(t, del, recolor)
		require.True(t, hitCell.Contains(del.Cell))
	}
}

func TestResolveRefiningPicksSubCellUnderPoint(t *testing.T) {
	hit := Intersection{
		Hit:   true,
		Cell:  Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 4},
		Face:  MaxYFace,
		Point: mgl64.Vec3{2.5, 4, 0.5},
	}

	target, err := Resolve(hit, 1, Delete)
	require.NoError(t, err)
	require.Equal(t, Cell{Origin: mgl64.Vec3{2, 3, 0}, Size: 1}, target.Cell)

	target, err = Resolve(hit, 1, Add)
	require.NoError(t, err)
	require.Equal(t, Cell{Origin: mgl64.Vec3{2, 4, 0}, Size: 1}, target.Cell)
}

func TestResolveClampsNoisyPointIntoHitCell(t *testing.T) {
	hit := Intersection{
		Hit:   true,
		Cell:  Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 2},
		Face:  MaxZFace,
		Point: mgl64.Vec3{2.0000001, -0.0000001, 2},
	}

	target, err := Resolve(hit, 1, Delete)
	require.NoError(t, err)
	require.Equal(t, Cell{Origin: mgl64.Vec3{1, 0, 1}, Size: 1}, target.Cell)
}

func TestResolveEdgePointStaysInHitCell(t *testing.T) {
	hit := Intersection{
		Hit:   true,
		Cell:  Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 1},
		Face:  MaxXFace,
		Point: mgl64.Vec3{1, 1, 0.5},
	}

	target, err := Resolve(hit, Unset, Recolor)
	require.NoError(t, err)
	require.Equal(t, hit.Cell, target.Cell)
}

func TestResolveQuadPlanarity(t *testing.T) {
	hitCell := Cell{Origin: mgl64.Vec3{-2, 0, 2}, Size: 2}

	for _, s := range []float64{4, 2, 1} {
		for _, f := range allFaces() {
			for _, op := range []Operation{Add, Delete} {
				target, err := Resolve(faceHit(hitCell, f, 0.25, 0.75), TargetSize(s), op)
				require.NoError(t, err)

				corners := target.Corners()
				axis := f.Axis()
				for _, c := range corners[1:] {
					require.InDelta(t, corners[0][axis], c[axis], testEpsilon)
				}

				base := target.Cell.Origin
				if op == Add && s <= hitCell.Size {
					base = base.Sub(f.Normal().Mul(s))
				}
				want := base[axis] - ZFightingEpsilon
				if f.IsMax() {
					want = base[axis] + s + ZFightingEpsilon
				}
				require.InDelta(t, want, corners[0][axis], testEpsilon)

				for i := 0; i < 3; i++ {
					if i == axis {
						continue
					}
					lo, hi := math.Inf(1), math.Inf(-1)
					for _, c := range corners {
						lo = math.Min(lo, c[i])
						hi = math.Max(hi, c[i])
					}
					require.InDelta(t, s-2*ZFightingEpsilon, hi-lo, testEpsilon)
				}
			}
		}
	}
}

func TestResolveQuadLabels(t *testing.T) {
	c := Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 1}
	lo := ZFightingEpsilon
	hi := 1 - ZFightingEpsilon
	out := 1 + ZFightingEpsilon
	in := -ZFightingEpsilon

	tests := []struct {
		face                  Face
		topLeft, topRight     mgl64.Vec3
		bottomLeft, bottomRgt mgl64.Vec3
	}{
		{
			face:       MinXFace,
			topLeft:    mgl64.Vec3{in, hi, lo},
			topRight:   mgl64.Vec3{in, hi, hi},
			bottomLeft: mgl64.Vec3{in, lo, lo},
			bottomRgt:  mgl64.Vec3{in, lo, hi},
		},
		{
			face:       MaxXFace,
			topLeft:    mgl64.Vec3{out, hi, hi},
			topRight:   mgl64.Vec3{out, hi, lo},
			bottomLeft: mgl64.Vec3{out, lo, hi},
			bottomRgt:  mgl64.Vec3{out, lo, lo},
		},
		{
			face:       MinYFace,
			topLeft:    mgl64.Vec3{hi, in, lo},
			topRight:   mgl64.Vec3{lo, in, lo},
			bottomLeft: mgl64.Vec3{hi, in, hi},
			bottomRgt:  mgl64.Vec3{lo, in, hi},
		},
		{
			face:       MaxYFace,
			topLeft:    mgl64.Vec3{hi, out, hi},
			topRight:   mgl64.Vec3{lo, out, hi},
			bottomLeft: mgl64.Vec3{hi, out, lo},
			bottomRgt:  mgl64.Vec3{lo, out, lo},
		},
		{
			face:       MinZFace,
			topLeft:    mgl64.Vec3{hi, hi, in},
			topRight:   mgl64.Vec3{lo, hi, in},
			bottomLeft: mgl64.Vec3{hi, lo, in},
			bottomRgt:  mgl64.Vec3{lo, lo, in},
		},
		{
			face:       MaxZFace,
			topLeft:    mgl64.Vec3{lo, hi, out},
			topRight:   mgl64.Vec3{hi, hi, out},
			bottomLeft: mgl64.Vec3{lo, lo, out},
			bottomRgt:  mgl64.Vec3{hi, lo, out},
		},
	}

	for _, test := range tests {
		t.Run(test.face.String(), func(t *testing.T) {
			target, err := Resolve(faceHit(c, test.face, 0.5, 0.5), Unset, Delete)
			require.NoError(t, err)
			require.True(t, test.topLeft.ApproxEqualThreshold(target.TopLeft, testEpsilon))
			require.True(t, test.topRight.ApproxEqualThreshold(target.TopRight, testEpsilon))
			require.True(t, test.bottomLeft.ApproxEqualThreshold(target.BottomLeft, testEpsilon))
			require.True(t, test.bottomRgt.ApproxEqualThreshold(target.BottomRight, testEpsilon))
		})
	}
}

func TestOperationText(t *testing.T) {
	for _, op := range []Operation{Add, Delete, Recolor, Select} {
		b, err := op.MarshalText()
		require.NoError(t, err)

		var parsed Operation
		require.NoError(t, parsed.UnmarshalText(b))
		require.Equal(t, op, parsed)
	}

	_, err := ParseOperation("explode")
	require.True(t, errors.IsType(err, ErrTypeUnknownOperation))
}

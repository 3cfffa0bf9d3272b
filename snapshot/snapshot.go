// Package snapshot encodes sets of voxels into a compact binary form and signs
// them so they can be moved between sessions and servers.
//
// The encoding uses the protobuf wire format of the following messages:
//
//	message Export {
//	  double size = 1;
//	  repeated Voxel voxels = 2;
//	}
//
//	message Voxel {
//	  double x = 1;
//	  double y = 2;
//	  double z = 3;
//	  double s = 4;
//	  fixed32 rgb = 5;
//	}
//
// Voxel positions are relative to the origin of the exported region.
package snapshot

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	ErrTypeMalformed        = "malformed_snapshot"
	ErrTypeInvalidSignature = "invalid_snapshot_signature"
)

const (
	exportSizeField   protowire.Number = 1
	exportVoxelsField protowire.Number = 2

	voxelXField   protowire.Number = 1
	voxelYField   protowire.Number = 2
	voxelZField   protowire.Number = 3
	voxelSField   protowire.Number = 4
	voxelRGBField protowire.Number = 5
)

// Export is a set of voxels cut out of a cubic region.
type Export struct {
	// The size of the exported region.
	Size float64

	// The voxels, positioned relative to the region origin.
	Voxels []voxel.Voxel
}

// NewExport creates an export from voxels located inside the given region.
func NewExport(region voxel.Cell, voxels []voxel.Voxel) Export {
	e := Export{
		Size:   region.Size,
		Voxels: make([]voxel.Voxel, len(voxels)),
	}

	for i, v := range voxels {
		e.Voxels[i] = voxel.Voxel{
			Cell: voxel.Cell{
				Origin: v.Cell.Origin.Sub(region.Origin),
				Size:   v.Cell.Size,
			},
			Color: v.Color,
		}
	}
	return e
}

// Place returns the exported voxels moved and scaled to fill the given
// region.
func (e Export) Place(region voxel.Cell) []voxel.Voxel {
	scale := 1.0
	if e.Size > 0 {
		scale = region.Size / e.Size
	}

	voxels := make([]voxel.Voxel, len(e.Voxels))
	for i, v := range e.Voxels {
		voxels[i] = voxel.Voxel{
			Cell: voxel.Cell{
				Origin: region.Origin.Add(v.Cell.Origin.Mul(scale)),
				Size:   v.Cell.Size * scale,
			},
			Color: v.Color,
		}
	}
	return voxels
}

// Marshal encodes the export.
func (e Export) Marshal() []byte {
	var b []byte
	b = appendDouble(b, exportSizeField, e.Size)

	for _, v := range e.Voxels {
		var vb []byte
		vb = appendDouble(vb, voxelXField, v.Cell.Origin[0])
		vb = appendDouble(vb, voxelYField, v.Cell.Origin[1])
		vb = appendDouble(vb, voxelZField, v.Cell.Origin[2])
		vb = appendDouble(vb, voxelSField, v.Cell.Size)
		vb = protowire.AppendTag(vb, voxelRGBField, protowire.Fixed32Type)
		vb = protowire.AppendFixed32(vb, v.Color.Uint32())

		b = protowire.AppendTag(b, exportVoxelsField, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	return b
}

// Unmarshal decodes an export. Unknown fields are skipped.
func Unmarshal(b []byte) (Export, error) {
	var e Export

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == exportSizeField && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			e.Size = math.Float64frombits(v)
			return n, nil

		case num == exportVoxelsField && typ == protowire.BytesType:
			vb, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}

			v, err := unmarshalVoxel(vb)
			if err != nil {
				return 0, err
			}
			e.Voxels = append(e.Voxels, v)
			return n, nil

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return Export{}, err
	}

	if e.Size <= 0 || !voxel.IsPowerOfTwo(e.Size) {
		return Export{}, errors.New("invalid export size").
			WithType(ErrTypeMalformed).
			WithTag("size", e.Size)
	}

	region := voxel.Cell{Size: e.Size}
	for _, v := range e.Voxels {
		if !v.Cell.Valid() || !region.Contains(v.Cell) {
			return Export{}, errors.New("voxel outside of export").
				WithType(ErrTypeMalformed).
				WithTag("origin", v.Cell.Origin).
				WithTag("size", v.Cell.Size)
		}
	}
	return e, nil
}

func unmarshalVoxel(b []byte) (voxel.Voxel, error) {
	var pos mgl64.Vec3
	var v voxel.Voxel

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.Fixed64Type && num >= voxelXField && num <= voxelSField {
			f, n := protowire.ConsumeFixed64(b)
			if num == voxelSField {
				v.Cell.Size = math.Float64frombits(f)
			} else {
				pos[num-voxelXField] = math.Float64frombits(f)
			}
			return n, nil
		}

		if num == voxelRGBField && typ == protowire.Fixed32Type {
			c, n := protowire.ConsumeFixed32(b)
			v.Color = voxel.RGBFromUint32(c)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})

	v.Cell.Origin = pos
	return v, err
}

func consumeFields(b []byte, consume func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformedError(n)
		}
		b = b[n:]

		n, err := consume(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return malformedError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func malformedError(n int) error {
	return errors.New("malformed snapshot").
		WithType(ErrTypeMalformed).
		Wrap(protowire.ParseError(n))
}

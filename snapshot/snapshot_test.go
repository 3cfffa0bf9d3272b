package snapshot

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/voxel"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func testVoxels() (voxel.Cell, []voxel.Voxel) {
	region := voxel.Cell{Origin: mgl64.Vec3{4, -4, 8}, Size: 4}
	return region, []voxel.Voxel{
		{
			Cell:  voxel.Cell{Origin: mgl64.Vec3{4, -4, 8}, Size: 2},
			Color: voxel.RGB{Red: 10, Green: 20, Blue: 30},
		},
		{
			Cell:  voxel.Cell{Origin: mgl64.Vec3{7, -1, 11}, Size: 1},
			Color: voxel.RGB{Red: 255},
		},
	}
}

func TestExportRelativeToRegion(t *testing.T) {
	region, voxels := testVoxels()
	e := NewExport(region, voxels)

	require.Equal(t, 4.0, e.Size)
	require.Equal(t, mgl64.Vec3{0, 0, 0}, e.Voxels[0].Cell.Origin)
	require.Equal(t, mgl64.Vec3{3, 3, 3}, e.Voxels[1].Cell.Origin)
	require.Equal(t, voxels, e.Place(region))
}

func TestExportPlaceScales(t *testing.T) {
	region, voxels := testVoxels()
	e := NewExport(region, voxels)

	placed := e.Place(voxel.Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 8})
	require.Equal(t, voxel.Cell{Origin: mgl64.Vec3{0, 0, 0}, Size: 4}, placed[0].Cell)
	require.Equal(t, voxel.Cell{Origin: mgl64.Vec3{6, 6, 6}, Size: 2}, placed[1].Cell)
	require.Equal(t, voxels[1].Color, placed[1].Color)

	for _, v := range placed {
		require.True(t, v.Cell.Valid())
	}
}

func TestExportMarshal(t *testing.T) {
	region, voxels := testVoxels()
	e := NewExport(region, voxels)

	decoded, err := Unmarshal(e.Marshal())
	require.NoError(t, err)
	require.Equal(t, e, decoded)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	region, voxels := testVoxels()
	b := NewExport(region, voxels).Marshal()

	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendString(b, "future field")

	decoded, err := Unmarshal(b)
	require.NoError(t, err)
	require.Len(t, decoded.Voxels, 2)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "truncated",
			data: NewExport(testVoxels()).Marshal()[:7],
		},
		{
			name: "no size",
			data: nil,
		},
		{
			name: "voxel outside",
			data: Export{
				Size: 1,
				Voxels: []voxel.Voxel{
					{Cell: voxel.Cell{Origin: mgl64.Vec3{2, 0, 0}, Size: 1}},
				},
			}.Marshal(),
		},
		{
			name: "invalid voxel",
			data: Export{
				Size: 4,
				Voxels: []voxel.Voxel{
					{Cell: voxel.Cell{Origin: mgl64.Vec3{1, 0, 0}, Size: 2}},
				},
			}.Marshal(),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Unmarshal(test.data)
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeMalformed))
		})
	}
}

func TestSignAndVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	region, voxels := testVoxels()
	e := NewExport(region, voxels)

	signed, err := SignExport(e, key)
	require.NoError(t, err)
	require.Equal(t, address, signed.Signer)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, Verify(signed))
		require.NoError(t, Verify(signed, address))

		opened, err := Open(signed)
		require.NoError(t, err)
		require.Equal(t, e, opened)
	})

	t.Run("untrusted signer", func(t *testing.T) {
		err := Verify(signed, "0x0000000000000000000000000000000000000001")
		require.True(t, errors.IsType(err, ErrTypeInvalidSignature))
	})

	t.Run("tampered data", func(t *testing.T) {
		tampered := signed
		tampered.Data = append([]byte{}, signed.Data...)
		tampered.Data[len(tampered.Data)-1] ^= 0xff

		_, err := Open(tampered)
		require.True(t, errors.IsType(err, ErrTypeInvalidSignature))
	})

	t.Run("wrong signer", func(t *testing.T) {
		other, err := crypto.GenerateKey()
		require.NoError(t, err)

		forged := signed
		forged.Signer = crypto.PubkeyToAddress(other.PublicKey).Hex()
		require.True(t, errors.IsType(Verify(forged), ErrTypeInvalidSignature))
	})

	t.Run("bad signature", func(t *testing.T) {
		bad := signed
		bad.Signature = "nope"
		require.True(t, errors.IsType(Verify(bad), ErrTypeInvalidSignature))
	})
}

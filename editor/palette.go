package editor

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/voxel"
	"gopkg.in/yaml.v3"
)

// CopyColorIndex is the color index that paints with the color of the voxel
// being pointed at.
const CopyColorIndex = -1

// Palette is the list of colors a participant paints with.
type Palette []voxel.RGB

// DefaultPalette returns the colors participants start with.
func DefaultPalette() Palette {
	return Palette{
		{Red: 237, Green: 175, Blue: 0},
		{Red: 61, Green: 211, Blue: 72},
		{Red: 51, Green: 204, Blue: 204},
		{Red: 63, Green: 169, Blue: 245},
		{Red: 193, Green: 99, Blue: 122},
		{Red: 255, Green: 54, Blue: 69},
		{Red: 124, Green: 36, Blue: 36},
		{Red: 63, Green: 35, Blue: 19},
	}
}

func (p Palette) Clone() Palette {
	c := make(Palette, len(p))
	copy(c, p)
	return c
}

type paletteFile struct {
	Colors []voxel.RGB `yaml:"colors"`
}

// LoadPalette reads a palette from a YAML file:
//
//	colors:
//	  - {red: 237, green: 175, blue: 0}
//	  - {red: 61, green: 211, blue: 72}
func LoadPalette(filename string) (Palette, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New("reading palette file failed").
			WithTag("filename", filename).
			Wrap(err)
	}

	var f paletteFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.New("decoding palette file failed").
			WithTag("filename", filename).
			Wrap(err)
	}

	if len(f.Colors) == 0 {
		return nil, errors.New("palette file has no colors").
			WithTag("filename", filename)
	}
	return Palette(f.Colors), nil
}

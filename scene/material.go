package scene

import (
	"image"
	// decoders for textures referenced by path
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaBlend
	AlphaMask
)

type Material struct {
	Name      string
	Diffuse   [4]float32
	Ambient   [3]float32
	Specular  [3]float32
	Emissive  [3]float32
	Shininess float32
	// Shadeless materials ignore lights and need no normals.
	Shadeless    bool
	Texture      *Texture
	Alpha        AlphaMode
	AlphaCutoff  float32
	VertexColors bool
	DoubleSided  bool
}

func NewMaterial(name string) *Material {
	return &Material{
		Name:        name,
		Diffuse:     [4]float32{0.8, 0.8, 0.8, 1},
		Ambient:     [3]float32{0.2, 0.2, 0.2},
		AlphaCutoff: 0.5,
	}
}

type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapClamp
)

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Texture struct {
	Image  *Image
	WrapS  Wrap
	WrapT  Wrap
	Filter Filter
	Mipmap bool
}

// Image is either a file on disk, decoded pixels, or both.
type Image struct {
	Name string
	Path string
	Data image.Image
}

// Decode loads pixels from Path unless they are already present.
func (img *Image) Decode() (image.Image, error) {
	if img.Data != nil {
		return img.Data, nil
	}
	if img.Path == "" {
		return nil, errors.Errorf("Image %q has neither data nor path", img.Name)
	}
	f, err := os.Open(img.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open image %q", img.Name)
	}
	defer f.Close()
	data, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode image %q", img.Path)
	}
	img.Data = data
	return data, nil
}

// Size returns dimensions, reading only the header for file images.
func (img *Image) Size() (int, int, error) {
	if img.Data != nil {
		b := img.Data.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	if img.Path == "" {
		return 0, 0, errors.Errorf("Image %q has neither data nor path", img.Name)
	}
	f, err := os.Open(img.Path)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "Failed to open image %q", img.Name)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "Failed to decode image %q", img.Path)
	}
	return cfg.Width, cfg.Height, nil
}

// FileName is the base name used when the image is referenced externally.
func (img *Image) FileName() string {
	if img.Path != "" {
		return filepath.Base(img.Path)
	}
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, img.Name)
	if name == "" {
		name = "image"
	}
	return name + ".png"
}

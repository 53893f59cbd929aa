package exporter

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/config"
	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
)

// imageFactory shares one image object between all textures using the same
// picture. External references are keyed by file name, embedded images by
// path, or by source when the image has no file.
type imageFactory struct {
	opts     config.Options
	external map[string]*m3g.ExternalReference
	embedded map[interface{}]*m3g.Image2D
	sources  map[m3g.Object]*scene.Image
}

func newImageFactory(opts config.Options) *imageFactory {
	return &imageFactory{
		opts:     opts,
		external: make(map[string]*m3g.ExternalReference),
		embedded: make(map[interface{}]*m3g.Image2D),
		sources:  make(map[m3g.Object]*scene.Image),
	}
}

func (f *imageFactory) image(img *scene.Image) (m3g.Object, error) {
	if f.opts.TextureExternal {
		return f.externalReference(img), nil
	}
	return f.image2D(img)
}

func (f *imageFactory) externalReference(img *scene.Image) *m3g.ExternalReference {
	uri := img.FileName()
	if ref, ok := f.external[uri]; ok {
		return ref
	}
	if ext := strings.ToLower(filepath.Ext(uri)); ext != ".png" {
		logger.Warningf("external image %q is not a png, most devices only load png", uri)
	}
	ref := &m3g.ExternalReference{URI: uri}
	f.external[uri] = ref
	f.sources[ref] = img
	return ref
}

func embeddedKey(img *scene.Image) interface{} {
	if img.Path != "" {
		return filepath.Clean(img.Path)
	}
	return img
}

func (f *imageFactory) image2D(img *scene.Image) (*m3g.Image2D, error) {
	key := embeddedKey(img)
	if i2d, ok := f.embedded[key]; ok {
		return i2d, nil
	}
	data, err := img.Decode()
	if err != nil {
		return nil, err
	}
	i2d, err := NewImage2D(data, f.opts.ImageFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "Image %q", img.Name)
	}
	i2d.Name = img.Name
	f.embedded[key] = i2d
	f.sources[i2d] = img
	return i2d, nil
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// NewImage2D converts pixels to an immutable RGB or RGBA image, top row first.
func NewImage2D(img image.Image, format string) (*m3g.Image2D, error) {
	var m3gFormat byte
	switch format {
	case config.ImageFormatRGB:
		m3gFormat = m3g.FormatRGB
	case config.ImageFormatRGBA:
		m3gFormat = m3g.FormatRGBA
	case config.ImageFormatAuto, "":
		m3gFormat = m3g.FormatRGB
		if hasAlpha(img) {
			m3gFormat = m3g.FormatRGBA
		}
	default:
		return nil, errors.Errorf("Unknown image format %q", format)
	}

	b := img.Bounds()
	bpp := m3g.BytesPerPixel(m3gFormat)
	pixels := make([]byte, 0, b.Dx()*b.Dy()*bpp)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pixels = append(pixels, c.R, c.G, c.B)
			if bpp == 4 {
				pixels = append(pixels, c.A)
			}
		}
	}
	return &m3g.Image2D{
		Format: m3gFormat,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: pixels,
	}, nil
}

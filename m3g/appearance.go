package m3g

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Appearance struct {
	Object3D
	Layer           int8
	CompositingMode *CompositingMode
	Fog             *Fog
	PolygonMode     *PolygonMode
	Material        *Material
	Textures        []*Texture2D
}

func NewAppearance(name string) *Appearance {
	return &Appearance{Object3D: Object3D{Name: name}}
}

func (a *Appearance) ObjectType() byte { return TypeAppearance }

func (a *Appearance) References() []Object {
	result := nonNil(a.CompositingMode, a.Fog, a.PolygonMode, a.Material)
	for _, t := range a.Textures {
		result = append(result, nonNil(t)...)
	}
	return append(result, a.Object3D.references()...)
}

func (a *Appearance) Encode(w *Writer) {
	a.Object3D.encode(w)
	w.Byte(byte(a.Layer))
	w.Ref(a.CompositingMode)
	w.Ref(a.Fog)
	w.Ref(a.PolygonMode)
	w.Ref(a.Material)
	w.Uint32(uint32(len(a.Textures)))
	for _, t := range a.Textures {
		w.Ref(t)
	}
}

type Material struct {
	Object3D
	AmbientColor               ColorRGB
	DiffuseColor               ColorRGBA
	EmissiveColor              ColorRGB
	SpecularColor              ColorRGB
	Shininess                  float32
	VertexColorTrackingEnabled bool
}

func NewMaterial(name string) *Material {
	return &Material{
		Object3D:     Object3D{Name: name},
		AmbientColor: ColorRGB{0x33, 0x33, 0x33},
		DiffuseColor: ColorRGBA{0xcc, 0xcc, 0xcc, 0xff},
	}
}

func (m *Material) ObjectType() byte { return TypeMaterial }

func (m *Material) References() []Object { return m.Object3D.references() }

func (m *Material) Encode(w *Writer) {
	m.Object3D.encode(w)
	w.ColorRGB(m.AmbientColor)
	w.ColorRGBA(m.DiffuseColor)
	w.ColorRGB(m.EmissiveColor)
	w.ColorRGB(m.SpecularColor)
	w.Float32(m.Shininess)
	w.Bool(m.VertexColorTrackingEnabled)
}

type PolygonMode struct {
	Object3D
	Culling                      byte
	Shading                      byte
	Winding                      byte
	TwoSidedLightingEnabled      bool
	LocalCameraLightingEnabled   bool
	PerspectiveCorrectionEnabled bool
}

func NewPolygonMode() *PolygonMode {
	return &PolygonMode{
		Culling: CullBack,
		Shading: ShadeSmooth,
		Winding: WindingCCW,
	}
}

func (pm *PolygonMode) ObjectType() byte { return TypePolygonMode }

func (pm *PolygonMode) References() []Object { return pm.Object3D.references() }

func (pm *PolygonMode) Encode(w *Writer) {
	pm.Object3D.encode(w)
	w.Byte(pm.Culling)
	w.Byte(pm.Shading)
	w.Byte(pm.Winding)
	w.Bool(pm.TwoSidedLightingEnabled)
	w.Bool(pm.LocalCameraLightingEnabled)
	w.Bool(pm.PerspectiveCorrectionEnabled)
}

type CompositingMode struct {
	Object3D
	DepthTestEnabled  bool
	DepthWriteEnabled bool
	ColorWriteEnabled bool
	AlphaWriteEnabled bool
	Blending          byte
	AlphaThreshold    byte
	DepthOffsetFactor float32
	DepthOffsetUnits  float32
}

func NewCompositingMode() *CompositingMode {
	return &CompositingMode{
		DepthTestEnabled:  true,
		DepthWriteEnabled: true,
		ColorWriteEnabled: true,
		AlphaWriteEnabled: true,
		Blending:          BlendReplace,
	}
}

func (cm *CompositingMode) ObjectType() byte { return TypeCompositingMode }

func (cm *CompositingMode) References() []Object { return cm.Object3D.references() }

func (cm *CompositingMode) Encode(w *Writer) {
	cm.Object3D.encode(w)
	w.Bool(cm.DepthTestEnabled)
	w.Bool(cm.DepthWriteEnabled)
	w.Bool(cm.ColorWriteEnabled)
	w.Bool(cm.AlphaWriteEnabled)
	w.Byte(cm.Blending)
	w.Byte(cm.AlphaThreshold)
	w.Floats(cm.DepthOffsetFactor, cm.DepthOffsetUnits)
}

type Fog struct {
	Object3D
	Color   ColorRGB
	Mode    byte
	Density float32
	Near    float32
	Far     float32
}

func NewFog() *Fog {
	return &Fog{Mode: FogLinear, Density: 1, Far: 1}
}

func (f *Fog) ObjectType() byte { return TypeFog }

func (f *Fog) References() []Object { return f.Object3D.references() }

func (f *Fog) Encode(w *Writer) {
	f.Object3D.encode(w)
	w.ColorRGB(f.Color)
	w.Byte(f.Mode)
	if f.Mode == FogExponential {
		w.Float32(f.Density)
	} else {
		w.Floats(f.Near, f.Far)
	}
}

type Texture2D struct {
	Transformable
	// Image is either *Image2D or *ExternalReference.
	Image       Object
	BlendColor  ColorRGB
	Blending    byte
	WrappingS   byte
	WrappingT   byte
	LevelFilter byte
	ImageFilter byte
}

func NewTexture2D(image Object) *Texture2D {
	return &Texture2D{
		Transformable: Transformable{Scale: mgl32.Vec3{1, 1, 1}, Transform: mgl32.Ident4()},
		Image:         image,
		Blending:      FuncModulate,
		WrappingS:     WrapRepeat,
		WrappingT:     WrapRepeat,
		LevelFilter:   FilterBaseLevel,
		ImageFilter:   FilterNearest,
	}
}

func (t *Texture2D) ObjectType() byte { return TypeTexture2D }

func (t *Texture2D) References() []Object {
	return append(nonNil(t.Image), t.Object3D.references()...)
}

func (t *Texture2D) Encode(w *Writer) {
	t.Transformable.encode(w)
	w.Ref(t.Image)
	w.ColorRGB(t.BlendColor)
	w.Byte(t.Blending)
	w.Byte(t.WrappingS)
	w.Byte(t.WrappingT)
	w.Byte(t.LevelFilter)
	w.Byte(t.ImageFilter)
}

type Image2D struct {
	Object3D
	Format  byte
	Mutable bool
	Width   uint32
	Height  uint32
	Palette []byte
	Pixels  []byte
}

func (img *Image2D) ObjectType() byte { return TypeImage2D }

func (img *Image2D) References() []Object { return img.Object3D.references() }

func (img *Image2D) Encode(w *Writer) {
	img.Object3D.encode(w)
	w.Byte(img.Format)
	w.Bool(img.Mutable)
	w.Uint32(img.Width)
	w.Uint32(img.Height)
	if !img.Mutable {
		w.ByteArray(img.Palette)
		w.ByteArray(img.Pixels)
	}
}

// BytesPerPixel of an unpaletted image of the given format.
func BytesPerPixel(format byte) int {
	switch format {
	case FormatLuminanceAlpha:
		return 2
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	default:
		return 1
	}
}

// ExternalReference points to an object stored in another file.
// It is written to its own section ahead of the scene objects.
type ExternalReference struct {
	URI string
}

func (er *ExternalReference) ObjectType() byte { return TypeExternalReference }

func (er *ExternalReference) References() []Object { return nil }

func (er *ExternalReference) Encode(w *Writer) { w.String(er.URI) }

func (er *ExternalReference) Base() *Object3D { return nil }

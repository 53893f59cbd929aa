package exporter

import (
	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/utils"
)

// appearanceKey separates uses of one material that need different state.
type appearanceKey struct {
	material    *scene.Material
	doubleSided bool
	lit         bool
	textured    bool
	colors      bool
}

func (t *Translator) translateMaterial(mat *scene.Material, mesh *scene.Mesh, normals, uvs, colors bool) (*m3g.Appearance, error) {
	key := appearanceKey{
		material:    mat,
		doubleSided: mesh.DoubleSided || mat.DoubleSided,
		lit:         normals && !mat.Shadeless,
		textured:    uvs,
		colors:      colors,
	}
	if app, ok := t.appearances[key]; ok {
		return app, nil
	}

	app := m3g.NewAppearance(mat.Name)
	app.PolygonMode = t.translatePolygonMode(mesh, mat)

	if key.lit {
		m := m3g.NewMaterial(mat.Name)
		m.DiffuseColor = m3g.ColorRGBA(utils.ColorFloat(mat.Diffuse).Bytes())
		m.AmbientColor = translateRGB(mat.Ambient)
		m.SpecularColor = translateRGB(mat.Specular)
		m.EmissiveColor = translateRGB(mat.Emissive)
		m.Shininess = clamp(mat.Shininess, 0, 128)
		m.VertexColorTrackingEnabled = mat.VertexColors && colors
		app.Material = m
	}

	if uvs && mat.Texture != nil && mat.Texture.Image != nil {
		tex, err := t.translateTexture(mat.Texture)
		if err != nil {
			return nil, err
		}
		if tex != nil {
			app.Textures = append(app.Textures, tex)
		}
	}

	switch mat.Alpha {
	case scene.AlphaBlend:
		cm := m3g.NewCompositingMode()
		cm.Blending = m3g.BlendAlpha
		cm.DepthWriteEnabled = false
		app.CompositingMode = cm
		// transparent geometry is drawn after the opaque layer
		app.Layer = 1
	case scene.AlphaMask:
		cm := m3g.NewCompositingMode()
		cm.AlphaThreshold = utils.FloatToByte(mat.AlphaCutoff)
		app.CompositingMode = cm
	}

	t.appearances[key] = app
	return app, nil
}

// translateTexture returns nil for images the format can not use.
func (t *Translator) translateTexture(tex *scene.Texture) (*m3g.Texture2D, error) {
	w, h, err := tex.Image.Size()
	if err != nil {
		logger.Warningf("texture %q skipped: %v", tex.Image.Name, err)
		return nil, nil
	}
	if !utils.IsPowerOfTwo(w) || !utils.IsPowerOfTwo(h) {
		logger.Warningf("texture %q is %dx%d, sizes must be powers of two. Exporting without texture",
			tex.Image.Name, w, h)
		return nil, nil
	}

	img, err := t.images.image(tex.Image)
	if err != nil {
		return nil, err
	}
	t2d := m3g.NewTexture2D(img)
	t2d.Name = tex.Image.Name
	t2d.WrappingS = translateWrap(tex.WrapS)
	t2d.WrappingT = translateWrap(tex.WrapT)
	if tex.Filter == scene.FilterLinear {
		t2d.ImageFilter = m3g.FilterLinear
	}
	if tex.Mipmap {
		t2d.LevelFilter = m3g.FilterLinear
	}
	return t2d, nil
}

func translateWrap(w scene.Wrap) byte {
	if w == scene.WrapClamp {
		return m3g.WrapClamp
	}
	return m3g.WrapRepeat
}

// translatePolygonMode accepts a nil material for meshes without materials.
func (t *Translator) translatePolygonMode(mesh *scene.Mesh, mat *scene.Material) *m3g.PolygonMode {
	pm := m3g.NewPolygonMode()
	pm.PerspectiveCorrectionEnabled = t.opts.PerspectiveCorrection
	if mesh.DoubleSided || (mat != nil && mat.DoubleSided) {
		pm.Culling = m3g.CullNone
		pm.TwoSidedLightingEnabled = true
	}
	if !t.opts.SmoothShading {
		pm.Shading = m3g.ShadeFlat
	}
	return pm
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package gltfscene

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"net/url"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/m3g_exporter/scene"
)

const (
	extensionLights = "KHR_lights_punctual"
	extensionUnlit  = "KHR_materials_unlit"
)

func (imp *importer) importMaterial(iMaterial uint32) (*scene.Material, error) {
	if mat, ok := imp.materials[iMaterial]; ok {
		return mat, nil
	}
	if int(iMaterial) >= len(imp.doc.Materials) {
		return nil, errors.Errorf("Material %d out of range", iMaterial)
	}
	gltfMat := imp.doc.Materials[iMaterial]

	name := gltfMat.Name
	if name == "" {
		name = fmt.Sprintf("material%d", iMaterial)
	}
	mat := scene.NewMaterial(name)
	mat.Diffuse = [4]float32{1, 1, 1, 1}
	mat.Emissive = gltfMat.EmissiveFactor
	mat.DoubleSided = gltfMat.DoubleSided
	if _, ok := gltfMat.Extensions[extensionUnlit]; ok {
		mat.Shadeless = true
	}

	switch gltfMat.AlphaMode {
	case gltf.AlphaBlend:
		mat.Alpha = scene.AlphaBlend
	case gltf.AlphaMask:
		mat.Alpha = scene.AlphaMask
		if gltfMat.AlphaCutoff != nil {
			mat.AlphaCutoff = *gltfMat.AlphaCutoff
		}
	}

	if pbr := gltfMat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.Diffuse = *pbr.BaseColorFactor
		}
		roughness := float32(1)
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
		// glossy surfaces get a tight grey highlight
		gloss := 1 - roughness
		mat.Specular = [3]float32{gloss, gloss, gloss}
		mat.Shininess = gloss * gloss * 128

		if pbr.BaseColorTexture != nil {
			tex, err := imp.importTexture(pbr.BaseColorTexture.Index)
			if err != nil {
				logger.Warningf("material %q: texture skipped: %v", name, err)
			} else {
				mat.Texture = tex
			}
		}
	}

	imp.materials[iMaterial] = mat
	return mat, nil
}

func (imp *importer) importTexture(iTexture uint32) (*scene.Texture, error) {
	if tex, ok := imp.textures[iTexture]; ok {
		return tex, nil
	}
	if int(iTexture) >= len(imp.doc.Textures) {
		return nil, errors.Errorf("Texture %d out of range", iTexture)
	}
	gltfTex := imp.doc.Textures[iTexture]
	if gltfTex.Source == nil {
		return nil, errors.Errorf("Texture %d has no image", iTexture)
	}
	img, err := imp.importImage(*gltfTex.Source)
	if err != nil {
		return nil, err
	}

	tex := &scene.Texture{Image: img, Filter: scene.FilterLinear}
	if gltfTex.Sampler != nil && int(*gltfTex.Sampler) < len(imp.doc.Samplers) {
		sampler := imp.doc.Samplers[*gltfTex.Sampler]
		if sampler.MagFilter == gltf.MagNearest {
			tex.Filter = scene.FilterNearest
		}
		switch sampler.MinFilter {
		case gltf.MinNearestMipMapNearest, gltf.MinLinearMipMapNearest,
			gltf.MinNearestMipMapLinear, gltf.MinLinearMipMapLinear:
			tex.Mipmap = true
		}
		tex.WrapS = wrap(sampler.WrapS)
		tex.WrapT = wrap(sampler.WrapT)
	}

	imp.textures[iTexture] = tex
	return tex, nil
}

func wrap(mode gltf.WrappingMode) scene.Wrap {
	if mode == gltf.WrapClampToEdge {
		return scene.WrapClamp
	}
	return scene.WrapRepeat
}

// importImage keeps external images as paths so they can be referenced or
// copied. Embedded images are decoded.
func (imp *importer) importImage(iImage uint32) (*scene.Image, error) {
	if img, ok := imp.images[iImage]; ok {
		return img, nil
	}
	if int(iImage) >= len(imp.doc.Images) {
		return nil, errors.Errorf("Image %d out of range", iImage)
	}
	gltfImg := imp.doc.Images[iImage]

	img := &scene.Image{Name: gltfImg.Name}
	if img.Name == "" {
		img.Name = fmt.Sprintf("image%d", iImage)
	}

	var data []byte
	var err error
	switch {
	case gltfImg.BufferView != nil:
		if int(*gltfImg.BufferView) >= len(imp.doc.BufferViews) {
			return nil, errors.Errorf("Image %q buffer view out of range", img.Name)
		}
		data, err = modeler.ReadBufferView(imp.doc, imp.doc.BufferViews[*gltfImg.BufferView])
	case gltfImg.IsEmbeddedResource():
		data, err = gltfImg.MarshalData()
	case gltfImg.URI != "":
		uri, uerr := url.PathUnescape(gltfImg.URI)
		if uerr != nil {
			uri = gltfImg.URI
		}
		img.Path = filepath.Join(imp.dir, filepath.FromSlash(uri))
	default:
		return nil, errors.Errorf("Image %q has no source", img.Name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read image %q", img.Name)
	}
	if data != nil {
		if img.Data, _, err = image.Decode(bytes.NewReader(data)); err != nil {
			return nil, errors.Wrapf(err, "Failed to decode image %q", img.Name)
		}
	}

	imp.images[iImage] = img
	return img, nil
}

func (imp *importer) importCamera(iCamera uint32) (*scene.Camera, error) {
	if int(iCamera) >= len(imp.doc.Cameras) {
		return nil, errors.Errorf("Camera %d out of range", iCamera)
	}
	gltfCam := imp.doc.Cameras[iCamera]
	cam := &scene.Camera{}
	switch {
	case gltfCam.Perspective != nil:
		p := gltfCam.Perspective
		cam.Projection = scene.ProjectionPerspective
		cam.YFov = p.Yfov
		cam.Near = p.Znear
		cam.Far = 1000
		if p.Zfar != nil {
			cam.Far = *p.Zfar
		}
		if p.AspectRatio != nil {
			cam.Aspect = *p.AspectRatio
		}
	case gltfCam.Orthographic != nil:
		o := gltfCam.Orthographic
		cam.Projection = scene.ProjectionOrthographic
		cam.OrthoHeight = 2 * o.Ymag
		if o.Ymag != 0 {
			cam.Aspect = o.Xmag / o.Ymag
		}
		cam.Near = o.Znear
		cam.Far = o.Zfar
	default:
		return nil, errors.Errorf("Camera %d has no projection", iCamera)
	}
	return cam, nil
}

// importLight reads a KHR_lights_punctual reference. Nodes without one get nil.
func (imp *importer) importLight(node *gltf.Node) (*scene.Light, error) {
	ref, ok := node.Extensions[extensionLights]
	if !ok {
		return nil, nil
	}
	index, ok := ref.(lightspuntual.LightIndex)
	if !ok {
		return nil, errors.Errorf("Unexpected light reference %T", ref)
	}
	lights, ok := imp.doc.Extensions[extensionLights].(lightspuntual.Lights)
	if !ok || int(index) >= len(lights) {
		return nil, errors.Errorf("Light %d is not defined", index)
	}
	gltfLight := lights[index]

	light := &scene.Light{Color: [3]float32{1, 1, 1}, Energy: 1}
	if gltfLight.Color != nil {
		light.Color = *gltfLight.Color
	}
	if gltfLight.Intensity != nil {
		light.Energy = *gltfLight.Intensity
	}
	if gltfLight.Range != nil && !math.IsInf(float64(*gltfLight.Range), 0) && *gltfLight.Range > 0 {
		light.Distance = *gltfLight.Range
	}

	switch gltfLight.Type {
	case lightspuntual.TypeDirectional:
		light.Type = scene.LightSun
	case lightspuntual.TypePoint:
		light.Type = scene.LightPoint
	case lightspuntual.TypeSpot:
		light.Type = scene.LightSpot
		outer := float32(math.Pi / 4)
		var inner float32
		if gltfLight.Spot != nil {
			inner = gltfLight.Spot.InnerConeAngle
			if gltfLight.Spot.OuterConeAngle != nil {
				outer = *gltfLight.Spot.OuterConeAngle
			}
		}
		light.SpotSize = 2 * outer
		if outer > 0 {
			light.SpotBlend = 1 - inner/outer
		}
	default:
		return nil, errors.Errorf("Unknown light type %q", gltfLight.Type)
	}
	return light, nil
}

// Package gltfpreview writes an intermediate scene as a binary glTF file.
package gltfpreview

import (
	"bytes"
	"image/png"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/m3g_exporter/log"
	"github.com/mogaika/m3g_exporter/scene"
)

var logger = log.New("gltfpreview")

type builder struct {
	doc       *gltf.Document
	nodes     map[*scene.Object]uint32
	meshes    map[*scene.Mesh]uint32
	materials map[*scene.Material]uint32
	textures  map[*scene.Texture]uint32
}

// Build converts s into a document with one node per object.
func Build(s *scene.Scene) (*gltf.Document, error) {
	b := &builder{
		doc:       gltf.NewDocument(),
		nodes:     make(map[*scene.Object]uint32),
		meshes:    make(map[*scene.Mesh]uint32),
		materials: make(map[*scene.Material]uint32),
		textures:  make(map[*scene.Texture]uint32),
	}

	for _, o := range s.Objects {
		node := &gltf.Node{
			Name:   o.Name,
			Matrix: [16]float32(o.MatrixLocal()),
		}
		if o.Mesh != nil && len(o.Mesh.Faces) != 0 {
			mesh, err := b.mesh(o.Mesh)
			if err != nil {
				return nil, errors.Wrapf(err, "Object %q", o.Name)
			}
			node.Mesh = gltf.Index(mesh)
		}
		b.nodes[o] = uint32(len(b.doc.Nodes))
		b.doc.Nodes = append(b.doc.Nodes, node)
	}

	for _, o := range s.Objects {
		if o.Parent == nil {
			continue
		}
		if parent, ok := b.nodes[o.Parent]; ok {
			b.doc.Nodes[parent].Children = append(b.doc.Nodes[parent].Children, b.nodes[o])
		}
	}

	return b.doc, nil
}

// Export builds and writes s as GLB.
func Export(w io.Writer, s *scene.Scene) error {
	doc, err := Build(s)
	if err != nil {
		return err
	}
	return ExportBinary(w, doc)
}

// ExportBinary puts every node without a parent into the default scene and
// encodes the document as GLB.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	isChild := make(map[uint32]bool)
	for _, node := range doc.Nodes {
		for _, child := range node.Children {
			isChild[child] = true
		}
	}
	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{})
		doc.Scene = gltf.Index(0)
	}
	doc.Scenes[0].Nodes = doc.Scenes[0].Nodes[:0]
	for iNode := range doc.Nodes {
		if !isChild[uint32(iNode)] {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
		}
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// mesh writes one primitive per material. Corners are not shared so face
// normals and per corner uvs survive.
func (b *builder) mesh(m *scene.Mesh) (uint32, error) {
	if index, ok := b.meshes[m]; ok {
		return index, nil
	}

	groups := len(m.Materials)
	if groups == 0 {
		groups = 1
	}
	gltfMesh := &gltf.Mesh{Name: m.Name}
	haveUV := m.HasUVs()
	haveColors := m.HasColors()

	for iGroup := 0; iGroup < groups; iGroup++ {
		positions := make([][3]float32, 0)
		normals := make([][3]float32, 0)
		uvs := make([][2]float32, 0)
		colors := make([][4]uint8, 0)
		indices := make([]uint32, 0)

		for _, face := range m.Faces {
			material := face.Material
			if material < 0 || material >= groups {
				material = 0
			}
			if material != iGroup || len(face.Vertices) < 3 {
				continue
			}
			first := uint32(len(positions))
			for i, vi := range face.Vertices {
				if vi < 0 || vi >= len(m.Vertices) {
					return 0, errors.Errorf("Mesh %q face references vertex %d of %d", m.Name, vi, len(m.Vertices))
				}
				v := m.Vertices[vi]
				positions = append(positions, v.Position)
				normal := face.Normal
				if face.Smooth {
					normal = v.Normal
				}
				normals = append(normals, normal)
				if haveUV {
					var uv [2]float32
					if i < len(face.UVs) {
						uv = [2]float32{face.UVs[i][0], 1 - face.UVs[i][1]}
					}
					uvs = append(uvs, uv)
				}
				if haveColors {
					c := [4]uint8{255, 255, 255, 255}
					if i < len(face.Colors) {
						for j := range c {
							c[j] = uint8(clamp01(face.Colors[i][j])*255 + 0.5)
						}
					}
					colors = append(colors, c)
				}
			}
			for i := 1; i+1 < len(face.Vertices); i++ {
				indices = append(indices, first, first+uint32(i), first+uint32(i)+1)
			}
		}
		if len(indices) == 0 {
			continue
		}

		attributes := map[string]uint32{
			gltf.POSITION: modeler.WritePosition(b.doc, positions),
			gltf.NORMAL:   modeler.WriteNormal(b.doc, normals),
		}
		if haveUV {
			attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(b.doc, uvs)
		}
		if haveColors {
			attributes[gltf.COLOR_0] = modeler.WriteColor(b.doc, colors)
		}
		primitive := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(b.doc, indices)),
			Attributes: attributes,
		}
		var mat *scene.Material
		if iGroup < len(m.Materials) {
			mat = m.Materials[iGroup]
		}
		materialIndex, err := b.material(mat, m.DoubleSided)
		if err != nil {
			return 0, err
		}
		primitive.Material = gltf.Index(materialIndex)
		gltfMesh.Primitives = append(gltfMesh.Primitives, primitive)
	}

	index := uint32(len(b.doc.Meshes))
	b.doc.Meshes = append(b.doc.Meshes, gltfMesh)
	b.meshes[m] = index
	return index, nil
}

func (b *builder) material(mat *scene.Material, doubleSided bool) (uint32, error) {
	if index, ok := b.materials[mat]; ok {
		return index, nil
	}
	src := mat
	if src == nil {
		src = scene.NewMaterial("default")
	}

	color := new([4]float32)
	*color = src.Diffuse
	metallic := new(float32)
	gltfMaterial := &gltf.Material{
		Name:           src.Name,
		DoubleSided:    doubleSided || src.DoubleSided,
		EmissiveFactor: src.Emissive,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
			MetallicFactor:  metallic,
		},
	}
	switch src.Alpha {
	case scene.AlphaBlend:
		gltfMaterial.AlphaMode = gltf.AlphaBlend
	case scene.AlphaMask:
		cutoff := src.AlphaCutoff
		gltfMaterial.AlphaMode = gltf.AlphaMask
		gltfMaterial.AlphaCutoff = &cutoff
	}

	if src.Texture != nil && src.Texture.Image != nil {
		texture, err := b.texture(src.Texture)
		if err != nil {
			logger.Warningf("material %q: texture skipped: %v", src.Name, err)
		} else {
			gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: texture}
		}
	}

	index := uint32(len(b.doc.Materials))
	b.doc.Materials = append(b.doc.Materials, gltfMaterial)
	b.materials[mat] = index
	return index, nil
}

func (b *builder) texture(tex *scene.Texture) (uint32, error) {
	if index, ok := b.textures[tex]; ok {
		return index, nil
	}
	img, err := tex.Image.Decode()
	if err != nil {
		return 0, err
	}
	var pngBytes bytes.Buffer
	if err := png.Encode(&pngBytes, img); err != nil {
		return 0, errors.Wrapf(err, "Failed to encode image %q", tex.Image.Name)
	}
	imageIndex, err := modeler.WriteImage(b.doc, tex.Image.Name, "image/png", &pngBytes)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to write gltf image")
	}

	sampler := &gltf.Sampler{}
	if tex.Filter == scene.FilterNearest {
		sampler.MagFilter = gltf.MagNearest
		sampler.MinFilter = gltf.MinNearest
	} else {
		sampler.MagFilter = gltf.MagLinear
		sampler.MinFilter = gltf.MinLinear
		if tex.Mipmap {
			sampler.MinFilter = gltf.MinLinearMipMapLinear
		}
	}
	sampler.WrapS = wrap(tex.WrapS)
	sampler.WrapT = wrap(tex.WrapT)
	samplerIndex := uint32(len(b.doc.Samplers))
	b.doc.Samplers = append(b.doc.Samplers, sampler)

	index := uint32(len(b.doc.Textures))
	b.doc.Textures = append(b.doc.Textures, &gltf.Texture{
		Name:    tex.Image.Name,
		Sampler: gltf.Index(samplerIndex),
		Source:  gltf.Index(imageIndex),
	})
	b.textures[tex] = index
	return index, nil
}

func wrap(w scene.Wrap) gltf.WrappingMode {
	if w == scene.WrapClamp {
		return gltf.WrapClampToEdge
	}
	return gltf.WrapRepeat
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

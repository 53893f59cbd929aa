package exporter

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/utils"
)

type vertexKey struct {
	source int
	normal [3]int8
	uv     mgl32.Vec2
	color  [4]byte
}

// vertexBuilder splits source vertices where faces disagree on normal,
// texture coordinate or color. Everything else is shared.
type vertexBuilder struct {
	mesh    *scene.Mesh
	normals bool
	uvs     bool
	colors  bool

	index     map[vertexKey]uint32
	sources   []int
	positions []float32
	normalArr []int
	uvArr     []float32
	colorArr  []byte
}

func newVertexBuilder(mesh *scene.Mesh, normals, uvs, colors bool) *vertexBuilder {
	return &vertexBuilder{
		mesh:    mesh,
		normals: normals,
		uvs:     uvs,
		colors:  colors,
		index:   make(map[vertexKey]uint32),
	}
}

func quantizeNormal(n mgl32.Vec3) [3]int8 {
	return [3]int8{int8(n[0] * 127), int8(n[1] * 127), int8(n[2] * 127)}
}

func (b *vertexBuilder) vertex(f *scene.Face, corner int) (uint32, error) {
	src := f.Vertices[corner]
	if src < 0 || src >= len(b.mesh.Vertices) {
		return 0, errors.Errorf("Face references vertex %d of %d", src, len(b.mesh.Vertices))
	}
	key := vertexKey{source: src}
	if b.normals {
		if f.Smooth {
			key.normal = quantizeNormal(b.mesh.Vertices[src].Normal)
		} else {
			key.normal = quantizeNormal(f.Normal)
		}
	}
	if b.uvs && corner < len(f.UVs) {
		key.uv = f.UVs[corner]
	}
	if b.colors {
		key.color = [4]byte{255, 255, 255, 255}
		if corner < len(f.Colors) {
			c := f.Colors[corner]
			key.color = utils.ColorFloat{c[0], c[1], c[2], c[3]}.Bytes()
		}
	}

	if i, ok := b.index[key]; ok {
		return i, nil
	}
	if len(b.sources) >= m3g.MaxVertexCount {
		return 0, errors.Errorf("Mesh %q needs more than %d vertices", b.mesh.Name, m3g.MaxVertexCount)
	}
	i := uint32(len(b.sources))
	b.index[key] = i
	b.sources = append(b.sources, src)
	p := b.mesh.Vertices[src].Position
	b.positions = append(b.positions, p[0], p[1], p[2])
	if b.normals {
		b.normalArr = append(b.normalArr, int(key.normal[0]), int(key.normal[1]), int(key.normal[2]))
	}
	if b.uvs {
		// m3g texture origin is top left
		b.uvArr = append(b.uvArr, key.uv[0], 1-key.uv[1])
	}
	if b.colors {
		b.colorArr = append(b.colorArr, key.color[:]...)
	}
	return i, nil
}

// strips turns faces into triangle strips: triangles as is, quads as one
// four index strip, larger polygons as fans of triangles.
func (b *vertexBuilder) strips(faces []*scene.Face) (*m3g.TriangleStripArray, error) {
	ts := m3g.NewTriangleStripArray()
	var idx [4]uint32
	for _, f := range faces {
		n := len(f.Vertices)
		switch {
		case n < 3:
			logger.Debugf("mesh %q: skipping face with %d vertices", b.mesh.Name, n)
		case n <= 4:
			for c := 0; c < n; c++ {
				i, err := b.vertex(f, c)
				if err != nil {
					return nil, err
				}
				idx[c] = i
			}
			if n == 4 {
				ts.AddStrip(idx[1], idx[2], idx[0], idx[3])
			} else {
				ts.AddStrip(idx[0], idx[1], idx[2])
			}
		default:
			first, err := b.vertex(f, 0)
			if err != nil {
				return nil, err
			}
			prev, err := b.vertex(f, 1)
			if err != nil {
				return nil, err
			}
			for c := 2; c < n; c++ {
				cur, err := b.vertex(f, c)
				if err != nil {
					return nil, err
				}
				ts.AddStrip(first, prev, cur)
				prev = cur
			}
		}
	}
	return ts, nil
}

func (b *vertexBuilder) buildVertexBuffer(name string, autoscaling bool) (*m3g.VertexBuffer, error) {
	vb := m3g.NewVertexBuffer(name)

	var positions *m3g.VertexArray
	var err error
	if autoscaling {
		bias, scale := m3g.AutoScale(b.positions, 3, 2)
		positions, err = m3g.Quantize(b.positions, 3, 2, bias, scale)
		vb.SetPositions(positions, scale, bias)
	} else {
		positions, err = m3g.Quantize(b.positions, 3, 2, [3]float32{}, 1)
		vb.SetPositions(positions, 1, [3]float32{})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Positions")
	}

	if b.normals {
		normals := m3g.NewVertexArray(3, 1)
		for i := 0; i < len(b.normalArr); i += 3 {
			if err := normals.Append(b.normalArr[i : i+3]...); err != nil {
				return nil, errors.Wrapf(err, "Normals")
			}
		}
		vb.Normals = normals
	}

	if b.uvs {
		var uvs *m3g.VertexArray
		if autoscaling {
			bias, scale := m3g.AutoScale(b.uvArr, 2, 2)
			uvs, err = m3g.Quantize(b.uvArr, 2, 2, bias, scale)
			vb.AddTexCoords(uvs, scale, bias)
		} else {
			uvs = m3g.NewVertexArray(2, 2)
			for i := 0; i < len(b.uvArr) && err == nil; i += 2 {
				// truncation as in (u-0.5)*65535
				err = uvs.Append(int((b.uvArr[i]-0.5)*65535), int((b.uvArr[i+1]-0.5)*65535))
			}
			vb.AddTexCoords(uvs, 1.0/65535.0, [3]float32{0.5, 0.5, 0.5})
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Texture coordinates")
		}
	}

	if b.colors {
		colors := m3g.NewVertexArray(4, 1)
		for i := 0; i < len(b.colorArr); i += 4 {
			if err := colors.AppendColor(b.colorArr[i : i+4]...); err != nil {
				return nil, errors.Wrapf(err, "Colors")
			}
		}
		vb.Colors = colors
	}
	return vb, nil
}

func (t *Translator) translateMesh(obj *scene.Object) error {
	mesh := obj.Mesh
	if mesh == nil || len(mesh.Faces) == 0 {
		logger.Noticef("empty mesh %q not exported", obj.Name)
		return nil
	}

	createUvs := false
	if t.opts.TextureEnabled && mesh.HasUVs() {
		for _, mat := range mesh.Materials {
			if mat != nil && mat.Texture != nil {
				createUvs = true
				break
			}
		}
	}
	createNormals := false
	createColors := mesh.HasColors()
	if t.opts.LightingEnabled {
		for _, mat := range mesh.Materials {
			if mat != nil && !mat.Shadeless {
				createNormals = true
				break
			}
		}
	}

	builder := newVertexBuilder(mesh, createNormals, createUvs, createColors)
	var submeshes []m3g.Submesh

	if len(mesh.Materials) != 0 {
		byMaterial := make([][]*scene.Face, len(mesh.Materials))
		for i := range mesh.Faces {
			f := &mesh.Faces[i]
			mi := f.Material
			if mi < 0 || mi >= len(mesh.Materials) {
				mi = 0
			}
			byMaterial[mi] = append(byMaterial[mi], f)
		}
		for mi, mat := range mesh.Materials {
			if len(byMaterial[mi]) == 0 || mat == nil {
				continue
			}
			app, err := t.translateMaterial(mat, mesh, createNormals, createUvs, createColors)
			if err != nil {
				return err
			}
			strips, err := builder.strips(byMaterial[mi])
			if err != nil {
				return err
			}
			submeshes = append(submeshes, m3g.Submesh{IndexBuffer: strips, Appearance: app})
		}
	}
	if len(submeshes) == 0 {
		faces := make([]*scene.Face, len(mesh.Faces))
		for i := range mesh.Faces {
			faces[i] = &mesh.Faces[i]
		}
		strips, err := builder.strips(faces)
		if err != nil {
			return err
		}
		app := m3g.NewAppearance(mesh.Name)
		app.PolygonMode = t.translatePolygonMode(mesh, nil)
		submeshes = append(submeshes, m3g.Submesh{IndexBuffer: strips, Appearance: app})
	}
	if len(builder.sources) == 0 {
		logger.Noticef("mesh %q has no usable faces", obj.Name)
		return nil
	}

	vb, err := builder.buildVertexBuffer(mesh.Name, t.opts.Autoscaling)
	if err != nil {
		return errors.Wrapf(err, "Mesh %q", mesh.Name)
	}

	var node m3g.Object
	if obj.Parent != nil && obj.Parent.Type == scene.ObjectArmature && obj.Parent.Armature != nil {
		skinned, err := t.translateArmature(obj.Parent, obj, vb, builder)
		if err != nil {
			return err
		}
		skinned.Submeshes = submeshes
		node = skinned
	} else {
		m := m3g.NewMesh(obj.Name, vb)
		m.Submeshes = submeshes
		node = m
	}

	t.translateToNode(obj, node)
	t.translateObjectAction(obj, node)
	return nil
}

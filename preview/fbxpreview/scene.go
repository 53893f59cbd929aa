// Package fbxpreview writes an intermediate scene as binary FBX so the
// geometry can be checked in any DCC tool before conversion.
package fbxpreview

import (
	"io"
	"math"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/mogaika/m3g_exporter/log"
	"github.com/mogaika/m3g_exporter/scene"
	"github.com/mogaika/m3g_exporter/utils"
)

var logger = log.New("fbxpreview")

// Export writes every object of s. Meshes keep their materials, other
// objects become null nodes.
func Export(w io.Writer, s *scene.Scene, filename string) error {
	f := NewFBXBuilder(filename)
	models := make(map[*scene.Object]int64, len(s.Objects))

	for _, o := range s.Objects {
		models[o] = exportObject(f, o)
	}
	for _, o := range s.Objects {
		parentId := int64(0)
		if o.Parent != nil {
			if id, ok := models[o.Parent]; ok {
				parentId = id
			}
		}
		f.AddConnections(bfbx73.C("OO", models[o], parentId))
	}

	return f.Write(w)
}

func exportObject(f *FBXBuilder, o *scene.Object) int64 {
	translation, rotation, scale := utils.Decompose(o.MatrixLocal())
	euler := utils.QuatToEuler(rotation).Mul(180.0 / math.Pi)

	kind := "Null"
	if o.Mesh != nil && len(o.Mesh.Faces) != 0 {
		kind = "Mesh"
	}

	id := f.GenerateId()
	model := bfbx73.Model(id, o.Name+"\x00\x01Model", kind).AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A",
				float64(translation[0]), float64(translation[1]), float64(translation[2])),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A",
				float64(euler[0]), float64(euler[1]), float64(euler[2])),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A",
				float64(scale[0]), float64(scale[1]), float64(scale[2])),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)
	f.AddObjects(model)

	if kind == "Null" {
		nodeAttribute := bfbx73.NodeAttribute(f.GenerateId(), o.Name+"\x00\x01NodeAttribute", "Null").AddNodes(
			bfbx73.TypeFlags("Null"),
		)
		f.AddObjects(nodeAttribute)
		f.AddConnections(bfbx73.C("OO", nodeAttribute.Properties[0].(int64), id))
		return id
	}

	f.AddConnections(bfbx73.C("OO", exportGeometry(f, o.Mesh), id))
	for _, mat := range o.Mesh.Materials {
		f.AddConnections(bfbx73.C("OO", exportMaterial(f, mat), id))
	}
	return id
}

func exportGeometry(f *FBXBuilder, m *scene.Mesh) int64 {
	if id, ok := f.GetCached(m); ok {
		return id
	}

	vertices := make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		vertices = append(vertices, v.Position[0], v.Position[1], v.Position[2])
	}

	indexes := make([]int32, 0)
	normals := make([]float64, 0)
	uv := make([]float64, 0)
	uvindexes := make([]int32, 0)
	rgba := make([]float64, 0)
	materials := make([]int32, 0)

	haveUV := m.HasUVs()
	haveRgba := m.HasColors()

	for _, face := range m.Faces {
		if len(face.Vertices) < 3 {
			continue
		}
		for i, vi := range face.Vertices {
			index := int32(vi)
			if i == len(face.Vertices)-1 {
				index = -index - 1
			}
			indexes = append(indexes, index)

			normal := face.Normal
			if face.Smooth {
				normal = m.Vertices[vi].Normal
			}
			normals = append(normals, float64(normal[0]), float64(normal[1]), float64(normal[2]))

			if haveUV {
				var u, v float32
				if i < len(face.UVs) {
					u, v = face.UVs[i][0], face.UVs[i][1]
				}
				uvindexes = append(uvindexes, int32(len(uv)/2))
				uv = append(uv, float64(u), float64(v))
			}
			if haveRgba {
				c := [4]float32{1, 1, 1, 1}
				if i < len(face.Colors) {
					c = face.Colors[i]
				}
				rgba = append(rgba, float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))
			}
		}
		material := face.Material
		if material < 0 || material >= len(m.Materials) {
			material = 0
		}
		materials = append(materials, int32(material))
	}

	id := f.GenerateId()
	f.AddCache(m, id)

	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)

	geometry := bfbx73.Geometry(id, m.Name+"\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(utils.FloatArray32to64(vertices)),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	geometry.AddNode(
		bfbx73.LayerElementNormal(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("ByPolygonVertex"),
			bfbx73.ReferenceInformationType("Direct"),
			bfbx73.Normals(normals),
		),
	)
	addLayerElement(geometryLayer, "LayerElementNormal")

	if haveRgba {
		geometry.AddNode(
			bfbx73.LayerElementColor(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygonVertex"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Colors(rgba),
			),
		)
		addLayerElement(geometryLayer, "LayerElementColor")
	}

	if haveUV {
		geometry.AddNode(
			bfbx73.LayerElementUV(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygonVertex"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.UV(uv),
				bfbx73.UVIndex(uvindexes),
			),
		)
		addLayerElement(geometryLayer, "LayerElementUV")
	}

	if len(m.Materials) > 1 {
		geometry.AddNode(
			bfbx73.LayerElementMaterial(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygon"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.Materials(materials),
			),
		)
	} else {
		geometry.AddNode(
			bfbx73.LayerElementMaterial(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("AllSame"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.Materials([]int32{0}),
			),
		)
	}
	addLayerElement(geometryLayer, "LayerElementMaterial")

	f.AddObjects(geometry)
	logger.Debugf("geometry %q: %d vertices, %d polygon indexes", m.Name, len(m.Vertices), len(indexes))
	return id
}

func addLayerElement(layer *fbx.Node, kind string) {
	layer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type(kind),
			bfbx73.TypedIndex(0),
		),
	)
}

func exportMaterial(f *FBXBuilder, mat *scene.Material) int64 {
	if id, ok := f.GetCached(mat); ok {
		return id
	}
	id := f.GenerateId()
	f.AddCache(mat, id)

	name := "default"
	if mat != nil {
		name = mat.Name
	} else {
		mat = scene.NewMaterial(name)
	}
	d := mat.Diffuse

	f.AddObjects(bfbx73.Material(id, name+"\x00\x01Material", "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("lambert"),
		bfbx73.MultiLayer(0),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("AmbientColor", "Color", "", "A", float64(mat.Ambient[0]), float64(mat.Ambient[1]), float64(mat.Ambient[2])),
			bfbx73.P("DiffuseColor", "Color", "", "A", float64(d[0]), float64(d[1]), float64(d[2])),
			bfbx73.P("EmissiveColor", "Color", "", "A", float64(mat.Emissive[0]), float64(mat.Emissive[1]), float64(mat.Emissive[2])),
			bfbx73.P("Emissive", "Vector3D", "Vector", "", float64(mat.Emissive[0]), float64(mat.Emissive[1]), float64(mat.Emissive[2])),
			bfbx73.P("Ambient", "Vector3D", "Vector", "", float64(mat.Ambient[0]), float64(mat.Ambient[1]), float64(mat.Ambient[2])),
			bfbx73.P("Diffuse", "Vector3D", "Vector", "", float64(d[0]), float64(d[1]), float64(d[2])),
			bfbx73.P("Opacity", "double", "Number", "", float64(d[3])),
		),
	))
	return id
}

package gltfscene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/m3g_exporter/scene"
)

// importMesh merges the primitives of a mesh. Every primitive adds its own
// vertices and its material. Skinned meshes are cached per skin because
// vertex groups are named after the skin joints.
func (imp *importer) importMesh(iMesh uint32, skin int) (*scene.Mesh, error) {
	key := [2]int{int(iMesh), skin}
	if m, ok := imp.meshes[key]; ok {
		return m, nil
	}
	if int(iMesh) >= len(imp.doc.Meshes) {
		return nil, errors.Errorf("Mesh %d out of range", iMesh)
	}
	gltfMesh := imp.doc.Meshes[iMesh]

	name := gltfMesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh%d", iMesh)
	}
	m := &scene.Mesh{Name: name}
	if skin >= 0 {
		for _, j := range imp.doc.Skins[skin].Joints {
			m.VertexGroups = append(m.VertexGroups, nodeName(imp.doc.Nodes[j], j, "bone"))
		}
	}

	for iPrimitive, primitive := range gltfMesh.Primitives {
		if err := imp.importPrimitive(m, primitive); err != nil {
			return nil, errors.Wrapf(err, "Mesh %q primitive %d", name, iPrimitive)
		}
	}
	if len(m.Faces) == 0 {
		logger.Warningf("mesh %q has no triangles", name)
	}

	// Primitives without a material use the default one. A mesh without
	// any material keeps an empty list.
	unassigned := -1
	for i := range m.Faces {
		if m.Faces[i].Material >= 0 {
			continue
		}
		if unassigned < 0 {
			unassigned = 0
			if len(m.Materials) != 0 {
				unassigned = len(m.Materials)
				m.Materials = append(m.Materials, imp.defaultMaterial())
			}
		}
		m.Faces[i].Material = unassigned
	}

	imp.meshes[key] = m
	return m, nil
}

// defaultMaterial is the white lit material of primitives without one.
func (imp *importer) defaultMaterial() *scene.Material {
	if imp.defaultMat == nil {
		imp.defaultMat = scene.NewMaterial("default")
		imp.defaultMat.Diffuse = [4]float32{1, 1, 1, 1}
	}
	return imp.defaultMat
}

func (imp *importer) accessor(index uint32) (*gltf.Accessor, error) {
	if int(index) >= len(imp.doc.Accessors) {
		return nil, errors.Errorf("Accessor %d out of range", index)
	}
	return imp.doc.Accessors[index], nil
}

func (imp *importer) importPrimitive(m *scene.Mesh, primitive *gltf.Primitive) error {
	switch primitive.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		logger.Warningf("mesh %q: primitive mode %v is not supported, skipped", m.Name, primitive.Mode)
		return nil
	}

	positionIndex, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return errors.Errorf("No positions")
	}
	acr, err := imp.accessor(positionIndex)
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(imp.doc, acr, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to read positions")
	}

	first := len(m.Vertices)
	for _, p := range positions {
		m.Vertices = append(m.Vertices, scene.Vertex{Position: p})
	}

	haveNormals := false
	if index, ok := primitive.Attributes[gltf.NORMAL]; ok {
		acr, err := imp.accessor(index)
		if err != nil {
			return err
		}
		normals, err := modeler.ReadNormal(imp.doc, acr, nil)
		if err != nil {
			return errors.Wrapf(err, "Failed to read normals")
		}
		if len(normals) != len(positions) {
			return errors.Errorf("Got %d normals for %d positions", len(normals), len(positions))
		}
		for i, n := range normals {
			m.Vertices[first+i].Normal = n
		}
		haveNormals = true
	}

	var uvs [][2]float32
	if index, ok := primitive.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := imp.accessor(index)
		if err != nil {
			return err
		}
		if uvs, err = modeler.ReadTextureCoord(imp.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "Failed to read texture coordinates")
		}
		if len(uvs) != len(positions) {
			return errors.Errorf("Got %d texture coordinates for %d positions", len(uvs), len(positions))
		}
	}

	var colors [][4]uint8
	if index, ok := primitive.Attributes[gltf.COLOR_0]; ok {
		acr, err := imp.accessor(index)
		if err != nil {
			return err
		}
		if colors, err = modeler.ReadColor(imp.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "Failed to read colors")
		}
		if len(colors) != len(positions) {
			return errors.Errorf("Got %d colors for %d positions", len(colors), len(positions))
		}
	}

	if err := imp.importWeights(m, primitive, first, len(positions)); err != nil {
		return err
	}

	var indices []uint32
	if primitive.Indices != nil {
		acr, err := imp.accessor(*primitive.Indices)
		if err != nil {
			return err
		}
		if indices, err = modeler.ReadIndices(imp.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "Failed to read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, index := range indices {
		if int(index) >= len(positions) {
			return errors.Errorf("Index %d out of %d vertices", index, len(positions))
		}
	}

	material := -1
	if primitive.Material != nil {
		mat, err := imp.importMaterial(*primitive.Material)
		if err != nil {
			return err
		}
		if colors != nil {
			mat.VertexColors = true
		}
		if mat.DoubleSided {
			m.DoubleSided = true
		}
		for i, existing := range m.Materials {
			if existing == mat {
				material = i
			}
		}
		if material < 0 {
			material = len(m.Materials)
			m.Materials = append(m.Materials, mat)
		}
	}

	for _, tri := range triangles(primitive.Mode, indices) {
		face := scene.Face{
			Vertices: []int{first + int(tri[0]), first + int(tri[1]), first + int(tri[2])},
			Smooth:   haveNormals,
			Material: material,
		}
		if uvs != nil {
			face.UVs = make([]mgl32.Vec2, 3)
			for i, v := range tri {
				// bottom left origin
				face.UVs[i] = mgl32.Vec2{uvs[v][0], 1 - uvs[v][1]}
			}
		}
		if colors != nil {
			face.Colors = make([]mgl32.Vec4, 3)
			for i, v := range tri {
				c := colors[v]
				face.Colors[i] = mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
			}
		}
		m.Faces = append(m.Faces, face)
	}

	m.CalcFaceNormals()
	if !haveNormals {
		m.CalcVertexNormals()
	}
	return nil
}

// importWeights turns JOINTS_0/WEIGHTS_0 into vertex groups indexed like the skin joints.
func (imp *importer) importWeights(m *scene.Mesh, primitive *gltf.Primitive, first, count int) error {
	jointsIndex, haveJoints := primitive.Attributes[gltf.JOINTS_0]
	weightsIndex, haveWeights := primitive.Attributes[gltf.WEIGHTS_0]
	if !haveJoints || !haveWeights || len(m.VertexGroups) == 0 {
		return nil
	}
	acr, err := imp.accessor(jointsIndex)
	if err != nil {
		return err
	}
	joints, err := modeler.ReadJoints(imp.doc, acr, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to read joints")
	}
	if acr, err = imp.accessor(weightsIndex); err != nil {
		return err
	}
	weights, err := modeler.ReadWeights(imp.doc, acr, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to read weights")
	}
	if len(joints) != count || len(weights) != count {
		return errors.Errorf("Got %d joints and %d weights for %d positions", len(joints), len(weights), count)
	}

	for i := 0; i < count; i++ {
		v := &m.Vertices[first+i]
		for k := 0; k < 4; k++ {
			if weights[i][k] <= 0 {
				continue
			}
			group := int(joints[i][k])
			if group >= len(m.VertexGroups) {
				return errors.Errorf("Vertex %d uses joint %d of %d", i, group, len(m.VertexGroups))
			}
			v.Groups = append(v.Groups, scene.GroupWeight{Group: group, Weight: weights[i][k]})
		}
	}
	return nil
}

// triangles lists the triangles of a primitive keeping counter clockwise winding.
func triangles(mode gltf.PrimitiveMode, indices []uint32) [][3]uint32 {
	result := make([][3]uint32, 0, len(indices)/3)
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				result = append(result, [3]uint32{indices[i], indices[i+1], indices[i+2]})
			} else {
				result = append(result, [3]uint32{indices[i+1], indices[i], indices[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			result = append(result, [3]uint32{indices[0], indices[i], indices[i+1]})
		}
	default:
		for i := 0; i+2 < len(indices); i += 3 {
			result = append(result, [3]uint32{indices[i], indices[i+1], indices[i+2]})
		}
	}
	return result
}

package gltfscene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/m3g_exporter/scene"
)

func near(a, b float32) bool {
	d := a - b
	return d < 1e-4 && d > -1e-4
}

func quadDocument() *gltf.Document {
	doc := gltf.NewDocument()
	attributes := map[string]uint32{
		gltf.POSITION:   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}),
		gltf.NORMAL:     modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
		gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}),
	}
	color := &[4]float32{1, 0, 0, 1}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:                 "red",
		DoubleSided:          true,
		AlphaMode:            gltf.AlphaBlend,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorFactor: color},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Attributes: attributes,
			Indices:    gltf.Index(modeler.WriteIndices(doc, []uint32{0, 1, 2, 0, 2, 3})),
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "root", Translation: [3]float32{0, 0, 5}, Children: []uint32{1}},
		&gltf.Node{Name: "quad", Translation: [3]float32{1, 0, 0}, Mesh: gltf.Index(0)},
	)
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}
	doc.Scene = gltf.Index(0)
	return doc
}

func TestImportMesh(t *testing.T) {
	s, err := FromDocument(quadDocument(), "quad", ".")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(s.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(s.Objects))
	}
	root, quad := s.FindObject("root"), s.FindObject("quad")
	if root == nil || quad == nil || quad.Parent != root {
		t.Fatalf("expected quad parented to root")
	}
	if quad.Type != scene.ObjectMesh || root.Type != scene.ObjectEmpty {
		t.Fatalf("unexpected types %v %v", root.Type, quad.Type)
	}
	if !quad.MatrixWorld.ApproxEqual(mgl32.Translate3D(1, 0, 5)) {
		t.Fatalf("unexpected world matrix %v", quad.MatrixWorld)
	}

	m := quad.Mesh
	if len(m.Vertices) != 4 || len(m.Faces) != 2 {
		t.Fatalf("expected 4 vertices and 2 faces, got %d %d", len(m.Vertices), len(m.Faces))
	}
	if !m.Faces[0].Smooth {
		t.Fatalf("expected smooth faces when normals are present")
	}
	if uv := m.Faces[0].UVs[0]; uv != (mgl32.Vec2{0, 0}) {
		t.Fatalf("expected v flipped to bottom left origin, got %v", uv)
	}
	if uv := m.Faces[0].UVs[2]; uv != (mgl32.Vec2{1, 1}) {
		t.Fatalf("expected v flipped to bottom left origin, got %v", uv)
	}
	if !m.Faces[0].Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("expected computed face normal, got %v", m.Faces[0].Normal)
	}

	if len(m.Materials) != 1 {
		t.Fatalf("expected 1 material, got %d", len(m.Materials))
	}
	mat := m.Materials[0]
	if mat.Name != "red" || mat.Diffuse != [4]float32{1, 0, 0, 1} || mat.Alpha != scene.AlphaBlend {
		t.Fatalf("unexpected material %+v", mat)
	}
	if !m.DoubleSided || !mat.DoubleSided {
		t.Fatalf("expected double sided mesh")
	}
}

func TestImportNonIndexedWithoutNormals(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
			},
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Mesh: gltf.Index(0)})
	doc.Scenes = nil

	s, err := FromDocument(doc, "tri", ".")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(s.Objects) != 1 || s.Objects[0].Name != "node0" {
		t.Fatalf("expected one generated node name")
	}
	m := s.Objects[0].Mesh
	if m.Name != "mesh0" || len(m.Faces) != 1 || m.Faces[0].Smooth {
		t.Fatalf("expected one flat face in mesh0")
	}
	if len(m.Materials) != 0 || m.Faces[0].Material != 0 {
		t.Fatalf("expected no materials, got %d", len(m.Materials))
	}
	if !m.Vertices[0].Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("expected vertex normal from faces, got %v", m.Vertices[0].Normal)
	}
}

func TestImportPrimitiveWithoutMaterial(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:                 "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float32{1, 0, 0, 1}},
	})
	triangle := func(z float32) map[string]uint32 {
		return map[string]uint32{
			gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, z}, {1, 0, z}, {0, 1, z}}),
		}
	}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "mixed",
		Primitives: []*gltf.Primitive{
			{Attributes: triangle(0)},
			{Attributes: triangle(1), Material: gltf.Index(0)},
		},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "mixed", Mesh: gltf.Index(0)})
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}

	s, err := FromDocument(doc, "mixed", ".")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	m := s.FindObject("mixed").Mesh
	if len(m.Materials) != 2 || len(m.Faces) != 2 {
		t.Fatalf("expected 2 materials and 2 faces, got %d %d", len(m.Materials), len(m.Faces))
	}
	if mat := m.Materials[m.Faces[0].Material]; mat.Name != "default" || mat.Diffuse != [4]float32{1, 1, 1, 1} || mat.Shadeless {
		t.Fatalf("expected white default material for face 0, got %+v", mat)
	}
	if mat := m.Materials[m.Faces[1].Material]; mat.Name != "red" {
		t.Fatalf("expected red material for face 1, got %+v", mat)
	}
}

func TestTriangles(t *testing.T) {
	strip := triangles(gltf.PrimitiveTriangleStrip, []uint32{0, 1, 2, 3})
	if len(strip) != 2 || strip[1] != [3]uint32{2, 1, 3} {
		t.Fatalf("unexpected strip triangles %v", strip)
	}
	fan := triangles(gltf.PrimitiveTriangleFan, []uint32{0, 1, 2, 3, 4})
	if len(fan) != 3 || fan[2] != [3]uint32{0, 3, 4} {
		t.Fatalf("unexpected fan triangles %v", fan)
	}
	list := triangles(gltf.PrimitiveTriangles, []uint32{0, 1, 2, 3})
	if len(list) != 1 {
		t.Fatalf("expected incomplete triangle to be dropped, got %v", list)
	}
}

func skinDocument() *gltf.Document {
	doc := gltf.NewDocument()
	attributes := map[string]uint32{
		gltf.POSITION:  modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}}),
		gltf.JOINTS_0:  modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}, {0, 1, 0, 0}, {1, 0, 0, 0}}),
		gltf.WEIGHTS_0: modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {1, 0, 0, 0}}),
	}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       "body",
		Primitives: []*gltf.Primitive{{Attributes: attributes}},
	})
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "rig", Translation: [3]float32{0, 0, 3}, Children: []uint32{1, 3}},
		&gltf.Node{Name: "hip", Translation: [3]float32{0, 1, 0}, Children: []uint32{2}},
		&gltf.Node{Name: "spine", Translation: [3]float32{0, 1, 0}},
		&gltf.Node{Name: "body", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	)
	doc.Skins = append(doc.Skins, &gltf.Skin{Name: "skeleton", Joints: []uint32{1, 2}})
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}
	return doc
}

func TestImportSkin(t *testing.T) {
	s, err := FromDocument(skinDocument(), "skin", ".")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	rig, arm, body := s.FindObject("rig"), s.FindObject("skeleton"), s.FindObject("body")
	if rig == nil || arm == nil || body == nil {
		t.Fatalf("expected rig, skeleton and body objects")
	}
	if s.FindObject("hip") != nil {
		t.Fatalf("joints must not become objects")
	}
	if arm.Type != scene.ObjectArmature || arm.Parent != rig {
		t.Fatalf("expected armature under rig")
	}
	if body.Parent != arm || !body.MatrixWorld.ApproxEqual(arm.MatrixWorld) {
		t.Fatalf("expected skinned mesh at the armature")
	}

	bones := arm.Armature.Bones
	if len(bones) != 2 || bones[1].Parent != bones[0] {
		t.Fatalf("expected spine under hip")
	}
	if !bones[1].MatrixLocal.ApproxEqual(mgl32.Translate3D(0, 2, 0)) {
		t.Fatalf("expected spine rest in armature space, got %v", bones[1].MatrixLocal)
	}
	if !bones[1].RelativeMatrix().ApproxEqual(mgl32.Translate3D(0, 1, 0)) {
		t.Fatalf("unexpected spine relative matrix %v", bones[1].RelativeMatrix())
	}

	m := body.Mesh
	if len(m.VertexGroups) != 2 || m.VertexGroups[0] != "hip" || m.VertexGroups[1] != "spine" {
		t.Fatalf("unexpected vertex groups %v", m.VertexGroups)
	}
	groups := m.Vertices[1].Groups
	if len(groups) != 2 || groups[1].Group != 1 || !near(groups[1].Weight, 0.5) {
		t.Fatalf("unexpected groups of vertex 1: %v", groups)
	}
	if len(m.Vertices[2].Groups) != 1 || m.Vertices[2].Groups[0].Group != 1 {
		t.Fatalf("unexpected groups of vertex 2: %v", m.Vertices[2].Groups)
	}
}

func TestImportCameraAndLight(t *testing.T) {
	doc := gltf.NewDocument()
	zfar := float32(50)
	doc.Cameras = append(doc.Cameras, &gltf.Camera{
		Perspective: &gltf.Perspective{Yfov: 0.8, Znear: 0.5, Zfar: &zfar},
	})
	intensity, lightRange := float32(3), float32(10)
	if doc.Extensions == nil {
		doc.Extensions = gltf.Extensions{}
	}
	doc.Extensions[extensionLights] = lightspuntual.Lights{
		&lightspuntual.Light{Type: lightspuntual.TypePoint, Color: &[3]float32{1, 0.5, 0}, Intensity: &intensity, Range: &lightRange},
	}
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "cam", Camera: gltf.Index(0)},
		&gltf.Node{Name: "lamp", Extensions: gltf.Extensions{extensionLights: lightspuntual.LightIndex(0)}},
	)
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0, 1}}}

	s, err := FromDocument(doc, "cl", ".")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	cam := s.FindObject("cam")
	if cam.Type != scene.ObjectCamera || !near(cam.Camera.YFov, 0.8) || cam.Camera.Far != 50 || cam.Camera.Near != 0.5 {
		t.Fatalf("unexpected camera %+v", cam.Camera)
	}
	lamp := s.FindObject("lamp")
	if lamp.Type != scene.ObjectLight {
		t.Fatalf("expected light object, got %v", lamp.Type)
	}
	l := lamp.Light
	if l.Type != scene.LightPoint || l.Energy != 3 || l.Distance != 10 || l.Color != [3]float32{1, 0.5, 0} {
		t.Fatalf("unexpected light %+v", l)
	}
}

func TestChannelCurves(t *testing.T) {
	imp := &importer{s: scene.NewScene("anim")}

	c, err := newChannel(0, gltf.TRSTranslation, gltf.InterpolationLinear,
		[]float32{0, 1}, [][]float32{{0, 0, 0}, {2, 0, 0}})
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	curves := imp.curves(c, nil)
	if len(curves) != 3 || curves[0].DataPath != scene.PathLocation {
		t.Fatalf("expected 3 location curves")
	}
	if k := curves[0].Keyframes[1]; k.Frame != 25 || k.Value != 2 {
		t.Fatalf("expected key at frame 25 with value 2, got %+v", k)
	}

	// bone values are relative to the rest pose
	rest := mgl32.Translate3D(0, 1, 0)
	relative := imp.curves(c, &rest)
	if !near(relative[1].Keyframes[0].Value, -1) || !near(relative[0].Keyframes[1].Value, 2) {
		t.Fatalf("unexpected relative keys %+v %+v", relative[1].Keyframes, relative[0].Keyframes)
	}

	q := mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0})
	c, err = newChannel(0, gltf.TRSRotation, gltf.InterpolationStep,
		[]float32{0}, [][]float32{{q.V[0], q.V[1], q.V[2], q.W}})
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	curves = imp.curves(c, nil)
	if len(curves) != 4 || curves[0].Interpolation != scene.InterpolationConstant {
		t.Fatalf("expected 4 constant quaternion curves")
	}
	if !near(curves[0].Keyframes[0].Value, q.W) || !near(curves[2].Keyframes[0].Value, q.V[1]) {
		t.Fatalf("expected W first quaternion curves")
	}
}

func TestCubicSplineChannel(t *testing.T) {
	c, err := newChannel(0, gltf.TRSScale, gltf.InterpolationCubicSpline,
		[]float32{0, 1}, [][]float32{{0, 0, 0}, {1, 1, 1}, {0, 0, 0}, {0, 0, 0}, {2, 2, 2}, {0, 0, 0}})
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if len(c.values) != 2 || c.values[1][0] != 2 {
		t.Fatalf("expected only key values, got %v", c.values)
	}
	if _, err := newChannel(0, gltf.TRSScale, gltf.InterpolationLinear, []float32{0, 1}, [][]float32{{1, 1, 1}}); err == nil {
		t.Fatalf("expected error on key count mismatch")
	}
}

func TestUserProperties(t *testing.T) {
	props := userProperties(map[string]interface{}{"12": "hello", "7": float64(3), "name": "ignored"})
	if len(props) != 2 || props[12] != "hello" || props[7] != "3" {
		t.Fatalf("unexpected properties %v", props)
	}
	if userProperties("not a map") != nil {
		t.Fatalf("expected nil for non map extras")
	}
}

package gltfpreview

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/m3g_exporter/scene"
)

func testScene() *scene.Scene {
	s := scene.NewScene("preview")
	root := s.AddObject(&scene.Object{Name: "root", Type: scene.ObjectEmpty, MatrixWorld: mgl32.Translate3D(0, 1, 0)})

	m := &scene.Mesh{Name: "quad"}
	for _, p := range []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}} {
		m.Vertices = append(m.Vertices, scene.Vertex{Position: p, Normal: mgl32.Vec3{0, 0, 1}})
	}
	m.Faces = []scene.Face{{
		Vertices: []int{0, 1, 2, 3},
		UVs:      []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Normal:   mgl32.Vec3{0, 0, 1},
	}}

	pixels := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	pixels.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	mat := scene.NewMaterial("textured")
	mat.Texture = &scene.Texture{Image: &scene.Image{Name: "checker", Data: pixels}, WrapS: scene.WrapClamp}
	m.Materials = []*scene.Material{mat}

	s.AddObject(&scene.Object{Name: "quad", Type: scene.ObjectMesh, Parent: root, Mesh: m, MatrixWorld: mgl32.Translate3D(0, 1, 2)})
	return s
}

func TestBuild(t *testing.T) {
	doc, err := Build(testScene())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(doc.Nodes))
	}
	if len(doc.Nodes[0].Children) != 1 || doc.Nodes[0].Children[0] != 1 {
		t.Fatalf("expected quad under root, got %v", doc.Nodes[0].Children)
	}
	if local := mgl32.Mat4(doc.Nodes[1].Matrix); !local.ApproxEqual(mgl32.Translate3D(0, 0, 2)) {
		t.Fatalf("expected local matrix relative to parent, got %v", local)
	}
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("expected one mesh with one primitive")
	}
	primitive := doc.Meshes[0].Primitives[0]

	indices, err := modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil)
	if err != nil {
		t.Fatalf("read indices: %v", err)
	}
	if len(indices) != 6 {
		t.Fatalf("expected quad as 2 triangles, got %d indices", len(indices))
	}

	uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[primitive.Attributes[gltf.TEXCOORD_0]], nil)
	if err != nil {
		t.Fatalf("read uvs: %v", err)
	}
	if uvs[0] != [2]float32{0, 1} || uvs[2] != [2]float32{1, 0} {
		t.Fatalf("expected v flipped to top left origin, got %v", uvs)
	}

	if len(doc.Textures) != 1 || len(doc.Images) != 1 || len(doc.Samplers) != 1 {
		t.Fatalf("expected one texture, image and sampler")
	}
	if doc.Samplers[0].WrapS != gltf.WrapClampToEdge || doc.Samplers[0].WrapT != gltf.WrapRepeat {
		t.Fatalf("unexpected wrapping %v %v", doc.Samplers[0].WrapS, doc.Samplers[0].WrapT)
	}
	if doc.Materials[0].PBRMetallicRoughness.BaseColorTexture == nil {
		t.Fatalf("expected base color texture")
	}
}

func TestExportBinary(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, testScene()); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
		t.Fatalf("expected glb magic, got %q", buf.Bytes()[:4])
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(doc); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(doc.Scenes) == 0 || len(doc.Scenes[0].Nodes) != 1 || doc.Scenes[0].Nodes[0] != 0 {
		t.Fatalf("expected only the root node in the scene")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[doc.Meshes[0].Primitives[0].Attributes[gltf.POSITION]], nil)
	if err != nil {
		t.Fatalf("read positions: %v", err)
	}
	if len(positions) != 4 || positions[2] != [3]float32{1, 1, 0} {
		t.Fatalf("unexpected positions %v", positions)
	}
}

package fbxpreview

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

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
	m.Materials = []*scene.Material{scene.NewMaterial("red"), scene.NewMaterial("blue")}
	s.AddObject(&scene.Object{Name: "quad", Type: scene.ObjectMesh, Parent: root, Mesh: m, MatrixWorld: mgl32.Translate3D(0, 1, 2)})
	return s
}

func TestExportWritesBinaryFbx(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, testScene(), "preview.fbx"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("Kaydara FBX Binary")) {
		t.Fatalf("expected binary fbx magic, got %q", buf.Bytes()[:20])
	}
}

func TestExportObjectsAndConnections(t *testing.T) {
	s := testScene()
	f := NewFBXBuilder("preview.fbx")
	ids := make(map[*scene.Object]int64)
	for _, o := range s.Objects {
		ids[o] = exportObject(f, o)
	}

	counts := make(map[string]int)
	for _, n := range f.objects.Nodes {
		counts[n.Name]++
	}
	if counts["Model"] != 2 || counts["Geometry"] != 1 || counts["Material"] != 2 || counts["NodeAttribute"] != 1 {
		t.Fatalf("unexpected object counts %v", counts)
	}

	// null attribute, geometry and two materials
	if len(f.connections.Nodes) != 4 {
		t.Fatalf("expected 4 connections, got %d", len(f.connections.Nodes))
	}

	// the same mesh on a second object shares the geometry
	exportObject(f, &scene.Object{Name: "copy", Mesh: s.Objects[1].Mesh})
	counts = make(map[string]int)
	for _, n := range f.objects.Nodes {
		counts[n.Name]++
	}
	if counts["Geometry"] != 1 || counts["Material"] != 2 {
		t.Fatalf("expected shared geometry and materials, got %v", counts)
	}
}

func TestCountDefinitions(t *testing.T) {
	f := NewFBXBuilder("preview.fbx")
	exportObject(f, testScene().Objects[1])
	f.countDefinitions()

	definitions := f.Root().GetNode("Definitions")
	total := definitions.GetNode("Count").Properties[0].(int32)
	// GlobalSettings, model, geometry and two materials
	if total != 5 {
		t.Fatalf("expected 5 definitions, got %d", total)
	}
}

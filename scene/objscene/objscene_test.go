package objscene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/m3g_exporter/scene"
)

const cubeSide = `# two objects
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1

o Quad
usemtl red
f 1/1/1 2/2/1 3/3/1 4/4/1

o Tri
s 1
f -4 -3 -2
`

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader(cubeSide), "cube", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Objects) != 2 {
		t.Fatalf("expected 2 objects; got %d", len(s.Objects))
	}

	quad := s.FindObject("Quad")
	if quad == nil || quad.Type != scene.ObjectMesh {
		t.Fatalf("expected Quad mesh object; got %v", quad)
	}
	m := quad.Mesh
	if len(m.Vertices) != 4 || len(m.Faces) != 1 {
		t.Fatalf("expected 4 vertices and 1 face; got %d and %d", len(m.Vertices), len(m.Faces))
	}
	f := m.Faces[0]
	if len(f.Vertices) != 4 || len(f.UVs) != 4 {
		t.Fatalf("expected quad with uvs; got %+v", f)
	}
	if !f.Smooth {
		t.Fatalf("expected face with normals to be smooth")
	}
	if f.UVs[2] != (mgl32.Vec2{1, 1}) {
		t.Fatalf("expected uv (1,1); got %v", f.UVs[2])
	}
	if len(m.Materials) != 1 || m.Materials[0].Name != "red" {
		t.Fatalf("expected undefined material to be created; got %v", m.Materials)
	}

	tri := s.FindObject("Tri").Mesh
	if len(tri.Vertices) != 3 {
		t.Fatalf("expected 3 vertices; got %d", len(tri.Vertices))
	}
	if tri.Vertices[0].Position != (mgl32.Vec3{0, 0, 0}) || tri.Vertices[2].Position != (mgl32.Vec3{1, 1, 0}) {
		t.Fatalf("negative indices resolved wrong: %v", tri.Vertices)
	}
	if tri.Faces[0].UVs != nil || !tri.Faces[0].Smooth {
		t.Fatalf("expected smooth face without uvs; got %+v", tri.Faces[0])
	}
	if tri.Faces[0].Normal != (mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("expected face normal +Z; got %v", tri.Faces[0].Normal)
	}
	if tri.Materials[0].Name != "red" {
		t.Fatalf("expected material to carry over objects; got %q", tri.Materials[0].Name)
	}
}

func TestReadSplitsVerticesByNormal(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
vn 0 0 1
vn 0 1 0
f 1//1 2//1 3//1
f 1//2 4//2 2//2
`
	s, err := Read(strings.NewReader(src), "split", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Objects) != 1 || s.Objects[0].Name != "split" {
		t.Fatalf("expected object named after scene; got %v", s.Objects)
	}
	m := s.Objects[0].Mesh
	if len(m.Vertices) != 6 {
		t.Fatalf("expected 6 vertices; got %d", len(m.Vertices))
	}
	if m.Vertices[3].Normal != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("expected normal from file; got %v", m.Vertices[3].Normal)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		src    string
		expErr string
	}{
		{"v 1 2\n", "expected 3 arguments; got 2"},
		{"vt 1\n", "expected 2 arguments; got 1"},
		{"v 1 2 3\nf 1 2\n", "expected at least 3 arguments; got 2"},
		{"v 1 2 3\nf 1 2 3\n", "index out of bounds"},
		{"v 1 2 3\nf 1 1 1 1//a\n", "could not parse"},
		{"usemtl\n", "'usemtl'"},
	}

	for caseIndex, tc := range cases {
		_, err := Read(strings.NewReader(tc.src), "bad", "")
		if err == nil || !strings.Contains(err.Error(), tc.expErr) {
			t.Errorf("[case %d] expected error containing %q; got %v", caseIndex, tc.expErr, err)
		}
	}
}

func TestSelectFaceCoordIndex(t *testing.T) {
	cases := []struct {
		token  string
		expect int
	}{
		{"1", 0},
		{"3", 2},
		{"-1", 2},
		{"-3", 0},
	}
	for _, tc := range cases {
		got, err := selectFaceCoordIndex(tc.token, 3)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.expect {
			t.Errorf("expected %q to select %d; got %d", tc.token, tc.expect, got)
		}
	}
	if _, err := selectFaceCoordIndex("0", 3); err == nil {
		t.Errorf("expected index 0 to fail")
	}
}

func TestLoadWithMaterials(t *testing.T) {
	dir := t.TempDir()
	mtl := `newmtl glass
Kd 0.1 0.2 0.3
Ka 0 0 0
Ks 1 1 1
Ke 0.5 0 0
Ns 500
d 0.25
map_Kd -s 1 1 1 tex/glass.png

newmtl flat
illum 0
Tr 0
`
	obj := `mtllib scene.mtl
v 0 0 0
v 1 0 0
v 0 1 0
o Window
usemtl glass
f 1 2 3
usemtl flat
f 3 2 1
`
	if err := os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(mtl), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(path, []byte(obj), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "scene" {
		t.Fatalf("expected scene name from file; got %q", s.Name)
	}
	m := s.FindObject("Window").Mesh
	if len(m.Materials) != 2 || m.Faces[1].Material != 1 {
		t.Fatalf("expected two materials; got %d", len(m.Materials))
	}

	glass := m.Materials[0]
	if glass.Diffuse != [4]float32{0.1, 0.2, 0.3, 0.25} {
		t.Fatalf("expected diffuse with alpha; got %v", glass.Diffuse)
	}
	if glass.Alpha != scene.AlphaBlend {
		t.Fatalf("expected blended material")
	}
	if glass.Shininess != 64 {
		t.Fatalf("expected shininess 64; got %v", glass.Shininess)
	}
	if glass.Emissive != [3]float32{0.5, 0, 0} || glass.Specular != [3]float32{1, 1, 1} {
		t.Fatalf("unexpected colors %v %v", glass.Emissive, glass.Specular)
	}
	if glass.Texture == nil || glass.Texture.Image.Name != "glass" {
		t.Fatalf("expected texture glass; got %v", glass.Texture)
	}
	if glass.Texture.Image.Path != filepath.Join(dir, "tex", "glass.png") {
		t.Fatalf("expected texture path relative to obj; got %q", glass.Texture.Image.Path)
	}

	flat := m.Materials[1]
	if !flat.Shadeless || flat.Alpha != scene.AlphaOpaque || flat.Diffuse[3] != 1 {
		t.Fatalf("expected opaque shadeless material; got %+v", flat)
	}
}

func TestMissingMaterialLibrary(t *testing.T) {
	s, err := Read(strings.NewReader("mtllib nothing.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), "m", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Objects) != 1 {
		t.Fatalf("expected geometry without materials; got %d objects", len(s.Objects))
	}
}

func TestMaterialsShareTextureImage(t *testing.T) {
	dir := t.TempDir()
	mtl := "newmtl a\nmap_Kd t.png\nnewmtl b\nmap_Kd t.png\n"
	if err := os.WriteFile(filepath.Join(dir, "shared.mtl"), []byte(mtl), 0644); err != nil {
		t.Fatal(err)
	}
	obj := "mtllib shared.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl a\nf 1 2 3\nusemtl b\nf 3 2 1\n"
	s, err := Read(strings.NewReader(obj), "shared", dir)
	if err != nil {
		t.Fatal(err)
	}
	m := s.Objects[0].Mesh
	if len(m.Materials) != 2 {
		t.Fatalf("expected two materials; got %d", len(m.Materials))
	}
	if m.Materials[0].Texture.Image != m.Materials[1].Texture.Image {
		t.Fatalf("expected one image for one texture file")
	}
}

package scene

import (
	"image"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFCurveEvaluate(t *testing.T) {
	curve := &FCurve{
		Interpolation: InterpolationLinear,
		Keyframes:     []Keyframe{{1, 0}, {11, 10}, {21, 0}},
	}
	for _, test := range []struct {
		frame float32
		value float32
	}{
		{-5, 0},
		{1, 0},
		{6, 5},
		{11, 10},
		{16, 5},
		{30, 0},
	} {
		if v := curve.Evaluate(test.frame); math.Abs(float64(v-test.value)) > 1e-5 {
			t.Errorf("frame %v: got %v, want %v", test.frame, v, test.value)
		}
	}

	curve.Interpolation = InterpolationConstant
	if v := curve.Evaluate(10); v != 0 {
		t.Errorf("constant interpolation gave %v", v)
	}

	curve.Interpolation = InterpolationBezier
	if v := curve.Evaluate(6); v != 5 {
		t.Errorf("bezier midpoint gave %v", v)
	}
	if v := curve.Evaluate(3); v >= 2 {
		t.Errorf("bezier does not ease in: %v", v)
	}

	curve.Interpolation = InterpolationLinear
	curve.Extrapolation = ExtrapolationCyclic
	if v := curve.Evaluate(26); math.Abs(float64(v-5)) > 1e-5 {
		t.Errorf("cyclic extrapolation gave %v", v)
	}
}

func TestFCurveSort(t *testing.T) {
	curve := &FCurve{Keyframes: []Keyframe{{5, 1}, {1, 2}, {3, 3}}}
	curve.Sort()
	for i := 1; i < len(curve.Keyframes); i++ {
		if curve.Keyframes[i-1].Frame > curve.Keyframes[i].Frame {
			t.Fatalf("not sorted: %v", curve.Keyframes)
		}
	}
}

func TestMatrixLocal(t *testing.T) {
	parent := &Object{Name: "parent", MatrixWorld: mgl32.Translate3D(10, 0, 0)}
	child := &Object{Name: "child", Parent: parent, MatrixWorld: mgl32.Translate3D(10, 5, 0)}

	local := child.MatrixLocal()
	if !local.ApproxEqual(mgl32.Translate3D(0, 5, 0)) {
		t.Errorf("local matrix %v", local)
	}
	if !parent.MatrixLocal().ApproxEqual(parent.MatrixWorld) {
		t.Errorf("root local matrix differs from world")
	}
}

func TestBoneRelativeMatrix(t *testing.T) {
	arm := &Armature{Name: "arm"}
	root := arm.AddBone("root", nil, mgl32.Translate3D(0, 1, 0))
	tip := arm.AddBone("tip", root, mgl32.Translate3D(0, 3, 0))

	if len(arm.Roots()) != 1 || arm.Roots()[0] != root {
		t.Errorf("roots %v", arm.Roots())
	}
	if len(root.Children) != 1 || root.Children[0] != tip {
		t.Errorf("children not linked")
	}
	if !tip.RelativeMatrix().ApproxEqual(mgl32.Translate3D(0, 2, 0)) {
		t.Errorf("relative matrix %v", tip.RelativeMatrix())
	}
	if arm.Bone("tip") != tip || arm.Bone("nope") != nil {
		t.Errorf("bone lookup")
	}
}

func TestCalcNormals(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{
			{Position: mgl32.Vec3{0, 0, 0}},
			{Position: mgl32.Vec3{1, 0, 0}},
			{Position: mgl32.Vec3{1, 1, 0}},
			{Position: mgl32.Vec3{0, 1, 0}},
		},
		Faces: []Face{{Vertices: []int{0, 1, 2, 3}}},
	}
	m.CalcFaceNormals()
	m.CalcVertexNormals()
	if !m.Faces[0].Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("face normal %v", m.Faces[0].Normal)
	}
	for i, v := range m.Vertices {
		if !v.Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal %v", i, v.Normal)
		}
	}
}

func TestImageFileName(t *testing.T) {
	for _, test := range []struct {
		img  Image
		name string
	}{
		{Image{Name: "ignored", Path: "/tmp/textures/wall.png"}, "wall.png"},
		{Image{Name: "embedded diffuse"}, "embedded_diffuse.png"},
		{Image{}, "image.png"},
	} {
		if got := test.img.FileName(); got != test.name {
			t.Errorf("got %q, want %q", got, test.name)
		}
	}

	img := &Image{Name: "mem", Data: image.NewNRGBA(image.Rect(0, 0, 8, 4))}
	w, h, err := img.Size()
	if err != nil || w != 8 || h != 4 {
		t.Errorf("size %dx%d %v", w, h, err)
	}
	if _, err := (&Image{Name: "empty"}).Decode(); err == nil {
		t.Errorf("image without data decoded")
	}
}

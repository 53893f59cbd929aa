package exporter

import (
	"image"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/m3g_exporter/config"
	"github.com/mogaika/m3g_exporter/m3g"
	"github.com/mogaika/m3g_exporter/scene"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func addObject(s *scene.Scene, name string, typ scene.ObjectType, parent *scene.Object, m mgl32.Mat4) *scene.Object {
	return s.AddObject(&scene.Object{Name: name, Type: typ, Parent: parent, MatrixWorld: m})
}

func quadMesh(name string) *scene.Mesh {
	m := &scene.Mesh{Name: name}
	for _, p := range []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}} {
		m.Vertices = append(m.Vertices, scene.Vertex{Position: p, Normal: mgl32.Vec3{0, 0, 1}})
	}
	m.Faces = []scene.Face{{Vertices: []int{0, 1, 2, 3}, Normal: mgl32.Vec3{0, 0, 1}, Smooth: true}}
	return m
}

func translate(t *testing.T, s *scene.Scene, opts config.Options) *m3g.World {
	t.Helper()
	world, err := NewTranslator(s, opts, nil).Translate()
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	return world
}

func TestTranslateWorld(t *testing.T) {
	s := scene.NewScene("empty")
	s.World = &scene.World{Color: [3]float32{1, 0.5, 0}, AmbientColor: [3]float32{0.2, 0.2, 0.2}}
	opts := config.DefaultOptions()
	opts.CreateAmbientLight = true

	world := translate(t, s, opts)
	if world.Background == nil || world.Background.Color != (m3g.ColorRGBA{255, 127, 0, 0}) {
		t.Fatalf("unexpected background %+v", world.Background)
	}
	if len(world.Children) != 1 {
		t.Fatalf("expected ambient light, got %d children", len(world.Children))
	}
	light := world.Children[0].(*m3g.Light)
	if light.Mode != m3g.LightAmbient || light.Color != (m3g.ColorRGB{51, 51, 51}) {
		t.Fatalf("unexpected ambient light %+v", light)
	}
}

func TestTranslateQuad(t *testing.T) {
	s := scene.NewScene("quad")
	obj := addObject(s, "plane#12", scene.ObjectMesh, nil, mgl32.Ident4())
	obj.Mesh = quadMesh("plane")

	world := translate(t, s, config.DefaultOptions())
	if len(world.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(world.Children))
	}
	mesh := world.Children[0].(*m3g.Mesh)
	if mesh.UserID != 12 {
		t.Fatalf("expected user id 12, got %d", mesh.UserID)
	}
	if len(mesh.Submeshes) != 1 {
		t.Fatalf("expected 1 submesh, got %d", len(mesh.Submeshes))
	}
	strips := mesh.Submeshes[0].IndexBuffer
	expected := []uint32{1, 2, 0, 3}
	if len(strips.Indices) != len(expected) || len(strips.StripLengths) != 1 {
		t.Fatalf("unexpected strips %v %v", strips.Indices, strips.StripLengths)
	}
	for i := range expected {
		if strips.Indices[i] != expected[i] {
			t.Fatalf("expected indices %v, got %v", expected, strips.Indices)
		}
	}
	vb := mesh.VertexBuffer
	if n := vb.Positions.VertexCount(); n != 4 {
		t.Fatalf("expected 4 vertices, got %d", n)
	}
	if vb.Normals != nil {
		t.Fatalf("normals exported for a mesh without lit materials")
	}
	if mesh.Submeshes[0].Appearance.PolygonMode == nil {
		t.Fatalf("default appearance has no polygon mode")
	}
	if vb.PositionBias != [3]float32{0.5, 0.5, 0} {
		t.Fatalf("unexpected bias %v", vb.PositionBias)
	}
	if !mesh.HasGeneralTransform || mesh.HasComponentTransform {
		t.Fatalf("static mesh should use the general transform")
	}
}

func TestFixedScaleVertexBuffer(t *testing.T) {
	s := scene.NewScene("fixed")
	obj := addObject(s, "plane", scene.ObjectMesh, nil, mgl32.Ident4())
	m := quadMesh("plane")
	m.Faces[0].UVs = []mgl32.Vec2{{0, 0}, {0.25, 0.75}, {1, 1}, {0, 1}}
	mat := scene.NewMaterial("tex")
	mat.Texture = &scene.Texture{Image: &scene.Image{Name: "t", Data: image.NewNRGBA(image.Rect(0, 0, 2, 2))}}
	m.Materials = []*scene.Material{mat}
	obj.Mesh = m
	opts := config.DefaultOptions()
	opts.Autoscaling = false

	vb := translate(t, s, opts).Children[0].(*m3g.Mesh).VertexBuffer
	if vb.PositionScale != 1 || vb.PositionBias != [3]float32{} {
		t.Fatalf("expected unit position scale; got %v %v", vb.PositionScale, vb.PositionBias)
	}
	if len(vb.TexCoords) != 1 {
		t.Fatalf("expected texture coordinates")
	}
	tc := vb.TexCoords[0]
	if tc.Scale != 1.0/65535.0 || tc.Bias != [3]float32{0.5, 0.5, 0.5} {
		t.Fatalf("expected fixed texture coordinate scale; got %v %v", tc.Scale, tc.Bias)
	}

	found := false
	for i := 0; i < vb.Positions.VertexCount(); i++ {
		p := vb.Positions.Vertex(i)
		if p[0] != 1 || p[1] != 0 || p[2] != 0 {
			continue
		}
		found = true
		// v is flipped, then (x-0.5)*65535 truncated
		if uv := tc.Array.Vertex(i); uv[0] != -16383 || uv[1] != -16383 {
			t.Fatalf("expected (-16383, -16383); got %v", uv)
		}
	}
	if !found {
		t.Fatalf("vertex (1, 0, 0) not exported at unit scale")
	}
}

func TestPolygonModeOptions(t *testing.T) {
	s := scene.NewScene("modes")
	obj := addObject(s, "plane", scene.ObjectMesh, nil, mgl32.Ident4())
	obj.Mesh = quadMesh("plane")

	pm := translate(t, s, config.DefaultOptions()).Children[0].(*m3g.Mesh).Submeshes[0].Appearance.PolygonMode
	if pm.PerspectiveCorrectionEnabled || pm.Shading != m3g.ShadeSmooth || pm.Culling != m3g.CullBack {
		t.Fatalf("unexpected default polygon mode %+v", pm)
	}

	opts := config.DefaultOptions()
	opts.PerspectiveCorrection = true
	opts.SmoothShading = false
	obj.Mesh.DoubleSided = true
	pm = translate(t, s, opts).Children[0].(*m3g.Mesh).Submeshes[0].Appearance.PolygonMode
	if !pm.PerspectiveCorrectionEnabled || pm.Shading != m3g.ShadeFlat {
		t.Fatalf("expected flat shading with perspective correction; got %+v", pm)
	}
	if pm.Culling != m3g.CullNone || !pm.TwoSidedLightingEnabled {
		t.Fatalf("expected double sided polygon mode; got %+v", pm)
	}
}

func TestTranslatePolygonFan(t *testing.T) {
	s := scene.NewScene("fan")
	obj := addObject(s, "pentagon", scene.ObjectMesh, nil, mgl32.Ident4())
	m := &scene.Mesh{Name: "pentagon"}
	for i := 0; i < 5; i++ {
		a := float64(i) * 2 * math.Pi / 5
		m.Vertices = append(m.Vertices, scene.Vertex{Position: mgl32.Vec3{float32(math.Cos(a)), float32(math.Sin(a)), 0}})
	}
	m.Faces = []scene.Face{
		{Vertices: []int{0, 1, 2, 3, 4}},
		{Vertices: []int{0, 1}},
	}
	obj.Mesh = m

	world := translate(t, s, config.DefaultOptions())
	strips := world.Children[0].(*m3g.Mesh).Submeshes[0].IndexBuffer
	if len(strips.StripLengths) != 3 {
		t.Fatalf("expected 3 strips, got %v", strips.StripLengths)
	}
	for _, l := range strips.StripLengths {
		if l != 3 {
			t.Fatalf("expected triangles, got %v", strips.StripLengths)
		}
	}
	if strips.Indices[6] != 0 || strips.Indices[8] != 4 {
		t.Fatalf("unexpected fan %v", strips.Indices)
	}
}

func TestVertexSharing(t *testing.T) {
	for _, tc := range []struct {
		smooth   bool
		vertices int
	}{
		{true, 4},
		{false, 6},
	} {
		s := scene.NewScene("share")
		obj := addObject(s, "mesh", scene.ObjectMesh, nil, mgl32.Ident4())
		m := quadMesh("mesh")
		m.Faces = []scene.Face{
			{Vertices: []int{0, 1, 2}, Normal: mgl32.Vec3{0, 0, 1}, Smooth: tc.smooth},
			{Vertices: []int{0, 2, 3}, Normal: mgl32.Vec3{0, 1, 0}, Smooth: tc.smooth},
		}
		m.Materials = []*scene.Material{scene.NewMaterial("mat")}
		obj.Mesh = m

		world := translate(t, s, config.DefaultOptions())
		mesh := world.Children[0].(*m3g.Mesh)
		if n := mesh.VertexBuffer.Positions.VertexCount(); n != tc.vertices {
			t.Fatalf("smooth=%v: expected %d vertices, got %d", tc.smooth, tc.vertices, n)
		}
		if mesh.VertexBuffer.Normals == nil {
			t.Fatalf("lit material exported without normals")
		}
		if n := mesh.VertexBuffer.Normals.Vertex(0); n[2] != 127 {
			t.Fatalf("expected normal z 127, got %v", n)
		}
		if mesh.Submeshes[0].Appearance.Material == nil {
			t.Fatalf("expected material")
		}
	}
}

func TestSubmeshPerMaterial(t *testing.T) {
	s := scene.NewScene("materials")
	obj := addObject(s, "mesh", scene.ObjectMesh, nil, mgl32.Ident4())
	m := quadMesh("mesh")
	m.Faces = []scene.Face{
		{Vertices: []int{0, 1, 2}, Material: 1},
		{Vertices: []int{0, 2, 3}, Material: 7},
	}
	red := scene.NewMaterial("red")
	red.Alpha = scene.AlphaBlend
	unused := scene.NewMaterial("unused")
	m.Materials = []*scene.Material{unused, red, scene.NewMaterial("spare")}
	obj.Mesh = m

	world := translate(t, s, config.DefaultOptions())
	mesh := world.Children[0].(*m3g.Mesh)
	if len(mesh.Submeshes) != 2 {
		t.Fatalf("expected 2 submeshes, got %d", len(mesh.Submeshes))
	}
	// out of range material falls back to the first one
	if mesh.Submeshes[0].Appearance.Name != "unused" || mesh.Submeshes[1].Appearance.Name != "red" {
		t.Fatalf("unexpected appearances %q %q", mesh.Submeshes[0].Appearance.Name, mesh.Submeshes[1].Appearance.Name)
	}
	blended := mesh.Submeshes[1].Appearance
	if blended.Layer != 1 || blended.CompositingMode == nil ||
		blended.CompositingMode.Blending != m3g.BlendAlpha || blended.CompositingMode.DepthWriteEnabled {
		t.Fatalf("unexpected blended appearance %+v", blended)
	}
}

func TestParentPivot(t *testing.T) {
	s := scene.NewScene("pivot")
	body := addObject(s, "body", scene.ObjectMesh, nil, mgl32.Translate3D(1, 0, 0))
	body.Mesh = quadMesh("body")
	addObject(s, "hand", scene.ObjectEmpty, body, mgl32.Translate3D(1, 2, 0))

	world := translate(t, s, config.DefaultOptions())
	if len(world.Children) != 1 {
		t.Fatalf("expected 1 world child, got %d", len(world.Children))
	}
	pivot, ok := world.Children[0].(*m3g.Group)
	if !ok || pivot.Name != "body_pivot" {
		t.Fatalf("expected pivot group, got %T", world.Children[0])
	}
	if !pivot.HasGeneralTransform || pivot.Transform.At(0, 3) != 1 {
		t.Fatalf("pivot should carry the mesh transform, got %v", pivot.Transform)
	}
	if len(pivot.Children) != 2 {
		t.Fatalf("expected mesh and hand in pivot, got %d", len(pivot.Children))
	}
	mesh := pivot.Children[0].(*m3g.Mesh)
	if mesh.HasGeneralTransform || mesh.HasComponentTransform {
		t.Fatalf("wrapped mesh should not be transformed")
	}
	hand := pivot.Children[1].(*m3g.Group)
	if hand.Transform.At(0, 3) != 0 || hand.Transform.At(1, 3) != 2 {
		t.Fatalf("expected local translation (0,2,0), got %v", hand.Transform)
	}
}

func TestUnnamedObjects(t *testing.T) {
	s := scene.NewScene("names")
	a := addObject(s, "", scene.ObjectEmpty, nil, mgl32.Ident4())
	b := addObject(s, "", scene.ObjectEmpty, nil, mgl32.Ident4())
	translate(t, s, config.DefaultOptions())
	if a.Name == "" || b.Name == "" || a.Name == b.Name {
		t.Fatalf("expected unique names, got %q %q", a.Name, b.Name)
	}
}

func TestUserParameters(t *testing.T) {
	s := scene.NewScene("params")
	obj := addObject(s, "node", scene.ObjectEmpty, nil, mgl32.Ident4())
	obj.Properties = map[uint32]string{5: "five", 2: "two"}
	world := translate(t, s, config.DefaultOptions())
	params := world.Children[0].Base().UserParameters
	if len(params) != 2 || params[0].ID != 2 || string(params[1].Value) != "five" {
		t.Fatalf("unexpected parameters %+v", params)
	}
}

func TestTranslateLights(t *testing.T) {
	s := scene.NewScene("lights")
	spot := addObject(s, "spot", scene.ObjectLight, nil, mgl32.Ident4())
	spot.Light = &scene.Light{
		Type:      scene.LightSpot,
		Color:     [3]float32{1, 1, 1},
		Energy:    2,
		Distance:  4,
		SpotSize:  math.Pi / 2,
		SpotBlend: 0.5,
	}
	area := addObject(s, "area", scene.ObjectLight, nil, mgl32.Ident4())
	area.Light = &scene.Light{Type: scene.LightArea}

	world := translate(t, s, config.DefaultOptions())
	if len(world.Children) != 1 {
		t.Fatalf("area light should be skipped, got %d children", len(world.Children))
	}
	l := world.Children[0].(*m3g.Light)
	if l.Mode != m3g.LightSpot || !near(l.SpotAngle, 45) || !near(l.SpotExponent, 64) {
		t.Fatalf("unexpected spot %+v", l)
	}
	if l.Intensity != 2 || l.AttenuationConstant != 1 || !near(l.AttenuationLinear, 0.5) {
		t.Fatalf("unexpected attenuation %+v", l)
	}

	opts := config.DefaultOptions()
	opts.LightingEnabled = false
	if world := translate(t, s, opts); len(world.Children) != 0 {
		t.Fatalf("lights exported with lighting disabled")
	}
}

func TestTranslateCameras(t *testing.T) {
	s := scene.NewScene("cameras")
	first := addObject(s, "first", scene.ObjectCamera, nil, mgl32.Ident4())
	first.Camera = &scene.Camera{YFov: math.Pi / 4, Aspect: 1.5, Near: 0.5, Far: 50}
	second := addObject(s, "second", scene.ObjectCamera, nil, mgl32.Ident4())
	second.Camera = &scene.Camera{Projection: scene.ProjectionOrthographic, OrthoHeight: 6, Near: 1, Far: 10}

	world := translate(t, s, config.DefaultOptions())
	c := world.Children[0].(*m3g.Camera)
	if c.ProjectionType != m3g.ProjectionPerspective || !near(c.FovY, 45) || c.AspectRatio != 1.5 {
		t.Fatalf("unexpected camera %+v", c)
	}
	if world.ActiveCamera == nil || world.ActiveCamera.Name != "second" {
		t.Fatalf("last camera should be active")
	}
	if world.ActiveCamera.ProjectionType != m3g.ProjectionParallel || world.ActiveCamera.FovY != 6 {
		t.Fatalf("unexpected parallel camera %+v", world.ActiveCamera)
	}
}

func TestObjectAnimation(t *testing.T) {
	s := scene.NewScene("anim")
	s.FPS = 25
	s.FrameEnd = 50
	obj := addObject(s, "box", scene.ObjectEmpty, nil, mgl32.Translate3D(0, 3, 0))
	action := scene.NewAction("move#4")
	action.AddCurve(&scene.FCurve{
		DataPath:      scene.PathLocation,
		Index:         0,
		Interpolation: scene.InterpolationLinear,
		Keyframes:     []scene.Keyframe{{Frame: 1, Value: 0}, {Frame: 25, Value: 2}},
	})
	action.AddCurve(&scene.FCurve{
		DataPath:      scene.PathRotationEuler,
		Index:         2,
		Interpolation: scene.InterpolationLinear,
		Extrapolation: scene.ExtrapolationCyclic,
		Keyframes:     []scene.Keyframe{{Frame: 0, Value: 0}, {Frame: 10, Value: math.Pi / 2}},
	})
	obj.Action = action

	world := translate(t, s, config.DefaultOptions())
	g := world.Children[0].(*m3g.Group)
	if !g.HasComponentTransform || g.HasGeneralTransform {
		t.Fatalf("animated node should use component transform")
	}
	if len(g.AnimationTracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(g.AnimationTracks))
	}

	loc := g.AnimationTracks[0]
	if loc.PropertyID != m3g.PropertyTranslation || loc.Controller.UserID != 4 || loc.Controller.Weight != 1 {
		t.Fatalf("unexpected track %+v", loc)
	}
	seq := loc.KeyframeSequence
	if seq.Interpolation != m3g.InterpolationLinear || seq.Duration != 2000 || seq.RepeatMode != m3g.RepeatConstant {
		t.Fatalf("unexpected sequence %+v", seq)
	}
	if len(seq.Keyframes) != 2 || seq.Keyframes[0].Time != 40 || seq.Keyframes[1].Time != 1000 {
		t.Fatalf("unexpected keyframes %+v", seq.Keyframes)
	}
	if v := seq.Keyframes[1].Value; v[0] != 2 || v[1] != 3 || v[2] != 0 {
		t.Fatalf("expected (2,3,0), got %v", v)
	}

	rot := g.AnimationTracks[1]
	if rot.Controller != loc.Controller {
		t.Fatalf("tracks of one action should share a controller")
	}
	seq = rot.KeyframeSequence
	if rot.PropertyID != m3g.PropertyOrientation || seq.Interpolation != m3g.InterpolationLinear || seq.RepeatMode != m3g.RepeatLoop {
		t.Fatalf("unexpected orientation track %+v", seq)
	}
	q := seq.Keyframes[1].Value
	s2 := float32(math.Sqrt2 / 2)
	if !near(q[0], 0) || !near(q[1], 0) || !near(q[2], s2) || !near(q[3], s2) {
		t.Fatalf("expected quarter turn around z, got %v", q)
	}
}

func TestOrientationInterpolation(t *testing.T) {
	for _, tc := range []struct {
		path     string
		interp   scene.Interpolation
		expected byte
	}{
		{scene.PathRotationQuaternion, scene.InterpolationBezier, m3g.InterpolationSlerp},
		{scene.PathRotationQuaternion, scene.InterpolationLinear, m3g.InterpolationSlerp},
		{scene.PathRotationQuaternion, scene.InterpolationConstant, m3g.InterpolationSlerp},
		{scene.PathRotationEuler, scene.InterpolationBezier, m3g.InterpolationSpline},
		{scene.PathRotationEuler, scene.InterpolationLinear, m3g.InterpolationLinear},
		{scene.PathRotationEuler, scene.InterpolationConstant, m3g.InterpolationStep},
	} {
		s := scene.NewScene("interp")
		s.FPS = 25
		s.FrameEnd = 10
		obj := addObject(s, "spin", scene.ObjectEmpty, nil, mgl32.Ident4())
		action := scene.NewAction("spin")
		action.AddCurve(&scene.FCurve{
			DataPath:      tc.path,
			Index:         0,
			Interpolation: tc.interp,
			Keyframes:     []scene.Keyframe{{Frame: 0, Value: 1}, {Frame: 10, Value: 0.5}},
		})
		obj.Action = action

		world := translate(t, s, config.DefaultOptions())
		tracks := world.Children[0].(*m3g.Group).AnimationTracks
		if len(tracks) != 1 {
			t.Fatalf("%s: expected 1 track, got %d", tc.path, len(tracks))
		}
		if got := tracks[0].KeyframeSequence.Interpolation; got != tc.expected {
			t.Errorf("%s %v: expected interpolation %d; got %d", tc.path, tc.interp, tc.expected, got)
		}
	}
}

func riggedScene() (*scene.Scene, *scene.Object) {
	s := scene.NewScene("rig")
	s.FPS = 25
	rig := addObject(s, "rig#7", scene.ObjectArmature, nil, mgl32.Ident4())
	arm := &scene.Armature{Name: "rig"}
	hip := arm.AddBone("hip", nil, mgl32.Ident4())
	arm.AddBone("leg", hip, mgl32.Translate3D(0, -1, 0))
	rig.Armature = arm

	body := addObject(s, "body", scene.ObjectMesh, rig, mgl32.Ident4())
	body.Mesh = &scene.Mesh{
		Name: "body",
		Vertices: []scene.Vertex{
			{Position: mgl32.Vec3{0, 0, 0}, Groups: []scene.GroupWeight{{Group: 0, Weight: 1}}},
			{Position: mgl32.Vec3{1, 0, 0}, Groups: []scene.GroupWeight{{Group: 0, Weight: 1}}},
			{Position: mgl32.Vec3{0, -1, 0}, Groups: []scene.GroupWeight{{Group: 0, Weight: 0.5}, {Group: 1, Weight: 0.5}}},
		},
		Faces:        []scene.Face{{Vertices: []int{0, 1, 2}}},
		VertexGroups: []string{"hip", "leg"},
	}
	return s, rig
}

func TestSkinnedMesh(t *testing.T) {
	s, _ := riggedScene()
	world := translate(t, s, config.DefaultOptions())
	if len(world.Children) != 1 {
		t.Fatalf("expected only the skinned mesh, got %d children", len(world.Children))
	}
	sm, ok := world.Children[0].(*m3g.SkinnedMesh)
	if !ok {
		t.Fatalf("expected skinned mesh, got %T", world.Children[0])
	}
	if sm.Skeleton.Name != "rig#7" || len(sm.Skeleton.Children) != 1 {
		t.Fatalf("unexpected skeleton %+v", sm.Skeleton)
	}
	hip := sm.Skeleton.Children[0].(*m3g.Group)
	hipSecond := hip.Children[0].(*m3g.Group)
	if hip.Name != "hip" || hipSecond.Name != "hip_second" {
		t.Fatalf("unexpected bone groups %q %q", hip.Name, hipSecond.Name)
	}
	leg := hipSecond.Children[0].(*m3g.Group)
	if leg.Transform.At(1, 3) != -1 {
		t.Fatalf("leg rest transform should be relative to hip, got %v", leg.Transform)
	}
	legSecond := leg.Children[0].(*m3g.Group)

	expected := []m3g.TransformReference{
		{TransformNode: hipSecond, FirstVertex: 0, VertexCount: 2, Weight: 255},
		{TransformNode: hipSecond, FirstVertex: 2, VertexCount: 1, Weight: 128},
		{TransformNode: legSecond, FirstVertex: 2, VertexCount: 1, Weight: 128},
	}
	if len(sm.Transforms) != len(expected) {
		t.Fatalf("expected %d references, got %+v", len(expected), sm.Transforms)
	}
	for i, e := range expected {
		if sm.Transforms[i] != e {
			t.Fatalf("reference %d: expected %+v, got %+v", i, e, sm.Transforms[i])
		}
	}
}

func TestExportAllActions(t *testing.T) {
	s, rig := riggedScene()
	idle := scene.NewAction("idle")
	idle.AddBoneCurve("hip", &scene.FCurve{
		DataPath:  scene.PathLocation,
		Keyframes: []scene.Keyframe{{Frame: 0, Value: 0}, {Frame: 10, Value: 1}},
	})
	walk := scene.NewAction("walk#A7E20#3")
	walk.AddBoneCurve("leg", &scene.FCurve{
		DataPath:      scene.PathLocation,
		Index:         1,
		Interpolation: scene.InterpolationBezier,
		Keyframes:     []scene.Keyframe{{Frame: 0, Value: 0}, {Frame: 5, Value: 1}},
	})
	other := scene.NewAction("jump#A8E20#4")
	other.AddBoneCurve("leg", &scene.FCurve{DataPath: scene.PathScale, Keyframes: []scene.Keyframe{{Frame: 0, Value: 1}}})
	rig.Action = idle
	s.Actions = []*scene.Action{idle, walk, other}

	opts := config.DefaultOptions()
	opts.ExportAllActions = true
	world := translate(t, s, opts)
	sm := world.Children[0].(*m3g.SkinnedMesh)
	hipSecond := sm.Skeleton.Children[0].(*m3g.Group).Children[0].(*m3g.Group)
	legSecond := hipSecond.Children[0].(*m3g.Group).Children[0].(*m3g.Group)

	if len(hipSecond.AnimationTracks) != 1 || hipSecond.AnimationTracks[0].Controller.Weight != 1 {
		t.Fatalf("hip should be driven by the armature action")
	}
	if len(legSecond.AnimationTracks) != 1 {
		t.Fatalf("expected 1 leg track, got %d", len(legSecond.AnimationTracks))
	}
	track := legSecond.AnimationTracks[0]
	if track.Controller.Weight != 0 || track.Controller.UserID != 3 {
		t.Fatalf("unexpected controller %+v", track.Controller)
	}
	if track.KeyframeSequence.Interpolation != m3g.InterpolationSpline || track.KeyframeSequence.Duration != 800 {
		t.Fatalf("unexpected sequence %+v", track.KeyframeSequence)
	}

	opts.ExportAllActions = false
	world = translate(t, s, opts)
	sm = world.Children[0].(*m3g.SkinnedMesh)
	legSecond = sm.Skeleton.Children[0].(*m3g.Group).Children[0].(*m3g.Group).Children[0].(*m3g.Group).Children[0].(*m3g.Group)
	if len(legSecond.AnimationTracks) != 0 {
		t.Fatalf("extra actions exported without ExportAllActions")
	}
}

func texturedScene(w, h int, external bool) (*scene.Scene, config.Options) {
	s := scene.NewScene("textured")
	obj := addObject(s, "mesh", scene.ObjectMesh, nil, mgl32.Ident4())
	m := quadMesh("mesh")
	m.Faces[0].UVs = []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	img := &scene.Image{Name: "stone", Path: "stone.jpg", Data: image.NewNRGBA(image.Rect(0, 0, w, h))}
	a := scene.NewMaterial("a")
	a.Texture = &scene.Texture{Image: img, Filter: scene.FilterLinear, WrapS: scene.WrapClamp}
	b := scene.NewMaterial("b")
	b.Texture = &scene.Texture{Image: img}
	m.Faces = append(m.Faces, scene.Face{Vertices: []int{0, 1, 2}, UVs: []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}}, Material: 1})
	m.Materials = []*scene.Material{a, b}
	obj.Mesh = m

	opts := config.DefaultOptions()
	opts.TextureExternal = external
	return s, opts
}

func TestTexture(t *testing.T) {
	s, opts := texturedScene(4, 4, false)
	tr := NewTranslator(s, opts, nil)
	world, err := tr.Translate()
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	mesh := world.Children[0].(*m3g.Mesh)
	if len(mesh.VertexBuffer.TexCoords) != 1 || mesh.VertexBuffer.TexCoords[0].Array.ComponentCount != 2 {
		t.Fatalf("expected one 2 component texture coordinate array")
	}
	ta := mesh.Submeshes[0].Appearance.Textures
	tb := mesh.Submeshes[1].Appearance.Textures
	if len(ta) != 1 || len(tb) != 1 {
		t.Fatalf("expected textures on both appearances")
	}
	if ta[0].ImageFilter != m3g.FilterLinear || ta[0].WrappingS != m3g.WrapClamp || ta[0].WrappingT != m3g.WrapRepeat {
		t.Fatalf("unexpected sampler %+v", ta[0])
	}
	img, ok := ta[0].Image.(*m3g.Image2D)
	if !ok || img != tb[0].Image {
		t.Fatalf("expected one shared Image2D")
	}
	if img.Format != m3g.FormatRGBA || img.Width != 4 || len(img.Pixels) != 64 {
		t.Fatalf("unexpected image %d %dx%d %d", img.Format, img.Width, img.Height, len(img.Pixels))
	}
	if len(tr.Images()) != 1 {
		t.Fatalf("expected 1 image source, got %d", len(tr.Images()))
	}
}

func TestImagesSharedByPath(t *testing.T) {
	s, opts := texturedScene(4, 4, false)
	m := s.Objects[0].Mesh
	copied := *m.Materials[1].Texture.Image
	m.Materials[1].Texture = &scene.Texture{Image: &copied}

	world := translate(t, s, opts)
	mesh := world.Children[0].(*m3g.Mesh)
	ia := mesh.Submeshes[0].Appearance.Textures[0].Image
	ib := mesh.Submeshes[1].Appearance.Textures[0].Image
	if ia != ib {
		t.Fatalf("expected images of one file to share an Image2D")
	}

	copied.Path = ""
	world = translate(t, s, opts)
	mesh = world.Children[0].(*m3g.Mesh)
	if mesh.Submeshes[0].Appearance.Textures[0].Image == mesh.Submeshes[1].Appearance.Textures[0].Image {
		t.Fatalf("expected images without a file to stay separate")
	}
}

func TestExternalTexture(t *testing.T) {
	s, opts := texturedScene(8, 2, true)
	world := translate(t, s, opts)
	tex := world.Children[0].(*m3g.Mesh).Submeshes[0].Appearance.Textures[0]
	ref, ok := tex.Image.(*m3g.ExternalReference)
	if !ok || ref.URI != "stone.jpg" {
		t.Fatalf("expected external reference to stone.jpg, got %+v", tex.Image)
	}
}

func TestNonPowerOfTwoTexture(t *testing.T) {
	s, opts := texturedScene(3, 4, false)
	world := translate(t, s, opts)
	if n := len(world.Children[0].(*m3g.Mesh).Submeshes[0].Appearance.Textures); n != 0 {
		t.Fatalf("non power of two texture exported")
	}
}

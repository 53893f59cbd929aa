package m3g

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/m3g_exporter/utils"
)

type ColorRGB [3]byte
type ColorRGBA [4]byte

// Object is anything that can be serialized into the scene section.
type Object interface {
	ObjectType() byte
	// References lists the objects this one points to. They are exported before it.
	References() []Object
	Encode(w *Writer)
	// Base returns the Object3D part, nil for external references.
	Base() *Object3D
}

type UserParameter struct {
	ID    uint32
	Value []byte
}

type Object3D struct {
	// Name is used only for diagnostics and generated source, it is not serialized.
	Name            string
	UserID          uint32
	AnimationTracks []*AnimationTrack
	UserParameters  []UserParameter
}

func (o *Object3D) Base() *Object3D { return o }

func (o *Object3D) AddAnimationTrack(t *AnimationTrack) {
	o.AnimationTracks = append(o.AnimationTracks, t)
}

func (o *Object3D) references() []Object {
	result := make([]Object, 0, len(o.AnimationTracks))
	for _, t := range o.AnimationTracks {
		result = append(result, t)
	}
	return result
}

func (o *Object3D) encode(w *Writer) {
	w.Uint32(o.UserID)
	w.Uint32(uint32(len(o.AnimationTracks)))
	for _, t := range o.AnimationTracks {
		w.Ref(t)
	}
	w.Uint32(uint32(len(o.UserParameters)))
	for _, p := range o.UserParameters {
		w.Uint32(p.ID)
		w.ByteArray(p.Value)
	}
}

type Transformable struct {
	Object3D
	HasComponentTransform bool
	Translation           mgl32.Vec3
	Scale                 mgl32.Vec3
	OrientationAngle      float32 // degrees
	OrientationAxis       mgl32.Vec3
	HasGeneralTransform   bool
	Transform             mgl32.Mat4
}

func (t *Transformable) SetTransform(m mgl32.Mat4) {
	t.HasGeneralTransform = true
	t.Transform = m
}

// SetComponents sets translation, orientation and scale.
// The orientation is stored as angle and axis, identity rotation has a zero angle.
func (t *Transformable) SetComponents(translation mgl32.Vec3, orientation mgl32.Quat, scale mgl32.Vec3) {
	t.HasComponentTransform = true
	t.Translation = translation
	t.Scale = scale
	t.OrientationAngle, t.OrientationAxis = utils.QuatToAngleAxis(orientation)
}

func (t *Transformable) encode(w *Writer) {
	t.Object3D.encode(w)
	w.Bool(t.HasComponentTransform)
	if t.HasComponentTransform {
		w.Vec3(t.Translation)
		w.Vec3(t.Scale)
		w.Float32(t.OrientationAngle)
		w.Vec3(t.OrientationAxis)
	}
	w.Bool(t.HasGeneralTransform)
	if t.HasGeneralTransform {
		w.Matrix(t.Transform)
	}
}

type Node struct {
	Transformable
	RenderingEnabled bool
	PickingEnabled   bool
	AlphaFactor      byte
	Scope            uint32
	HasAlignment     bool
	ZTarget          byte
	YTarget          byte
	ZReference       Object
	YReference       Object
}

func newNode(name string) Node {
	return Node{
		Transformable: Transformable{
			Object3D:  Object3D{Name: name},
			Scale:     mgl32.Vec3{1, 1, 1},
			Transform: mgl32.Ident4(),
		},
		RenderingEnabled: true,
		PickingEnabled:   true,
		AlphaFactor:      255,
		Scope:            0xffffffff,
		ZTarget:          AlignNone,
		YTarget:          AlignNone,
	}
}

func (n *Node) node() *Node { return n }

// Noder is implemented by every scene graph node.
type Noder interface {
	Object
	node() *Node
}

// AsNode returns the Node part of o, or nil when o is not a node.
func AsNode(o Object) *Node {
	if n, ok := o.(Noder); ok && !isNil(o) {
		return n.node()
	}
	return nil
}

func (n *Node) references() []Object {
	return append(nonNil(n.ZReference, n.YReference), n.Object3D.references()...)
}

func (n *Node) encode(w *Writer) {
	n.Transformable.encode(w)
	w.Bool(n.RenderingEnabled)
	w.Bool(n.PickingEnabled)
	w.Byte(n.AlphaFactor)
	w.Uint32(n.Scope)
	w.Bool(n.HasAlignment)
	if n.HasAlignment {
		w.Byte(n.ZTarget)
		w.Byte(n.YTarget)
		w.Ref(n.ZReference)
		w.Ref(n.YReference)
	}
}

func nonNil(objs ...Object) []Object {
	result := make([]Object, 0, len(objs))
	for _, o := range objs {
		if !isNil(o) {
			result = append(result, o)
		}
	}
	return result
}

package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Bone struct {
	Name     string
	Parent   *Bone
	Children []*Bone
	// MatrixLocal is the rest transform in armature space.
	MatrixLocal mgl32.Mat4
}

type Armature struct {
	Name  string
	Bones []*Bone
}

func (a *Armature) AddBone(name string, parent *Bone, matrix mgl32.Mat4) *Bone {
	b := &Bone{Name: name, Parent: parent, MatrixLocal: matrix}
	if parent != nil {
		parent.Children = append(parent.Children, b)
	}
	a.Bones = append(a.Bones, b)
	return b
}

func (a *Armature) Bone(name string) *Bone {
	for _, b := range a.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (a *Armature) Roots() []*Bone {
	result := make([]*Bone, 0)
	for _, b := range a.Bones {
		if b.Parent == nil {
			result = append(result, b)
		}
	}
	return result
}

// RelativeMatrix is the rest transform relative to the parent bone.
func (b *Bone) RelativeMatrix() mgl32.Mat4 {
	if b.Parent == nil {
		return b.MatrixLocal
	}
	return b.Parent.MatrixLocal.Inv().Mul4(b.MatrixLocal)
}

type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

type Camera struct {
	Projection Projection
	// YFov is the vertical field of view in radians.
	YFov        float32
	Aspect      float32
	Near        float32
	Far         float32
	OrthoHeight float32
}

type LightType int

const (
	LightPoint LightType = iota
	LightSpot
	LightSun
	LightAmbient
	LightArea
)

func (t LightType) String() string {
	return [...]string{"POINT", "SPOT", "SUN", "AMBIENT", "AREA"}[t]
}

type Light struct {
	Type   LightType
	Color  [3]float32
	Energy float32
	// Distance at which the light falls to half, zero means no falloff.
	Distance float32
	// SpotSize is the full cone angle in radians.
	SpotSize  float32
	SpotBlend float32
}

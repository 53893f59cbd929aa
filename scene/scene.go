// Package scene is the host independent description of what gets exported:
// objects with world transforms, meshes with per corner data, materials,
// lights, cameras, armatures and keyframed actions.
package scene

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type ObjectType int

const (
	ObjectEmpty ObjectType = iota
	ObjectMesh
	ObjectCamera
	ObjectLight
	ObjectArmature
)

func (t ObjectType) String() string {
	switch t {
	case ObjectEmpty:
		return "EMPTY"
	case ObjectMesh:
		return "MESH"
	case ObjectCamera:
		return "CAMERA"
	case ObjectLight:
		return "LIGHT"
	case ObjectArmature:
		return "ARMATURE"
	}
	return fmt.Sprintf("ObjectType(%d)", int(t))
}

type World struct {
	Color        [3]float32
	AmbientColor [3]float32
}

type Scene struct {
	Name       string
	World      *World
	FPS        float32
	FrameStart int
	FrameEnd   int
	Objects    []*Object
	// Actions holds every action of the file, used or not.
	Actions []*Action
}

func NewScene(name string) *Scene {
	return &Scene{Name: name, FPS: 25, FrameStart: 1, FrameEnd: 250}
}

type Object struct {
	Name        string
	Type        ObjectType
	Parent      *Object
	MatrixWorld mgl32.Mat4

	Mesh     *Mesh
	Camera   *Camera
	Light    *Light
	Armature *Armature

	Action *Action
	// Properties become user parameters keyed by id.
	Properties map[uint32]string
}

func (s *Scene) AddObject(o *Object) *Object {
	s.Objects = append(s.Objects, o)
	return o
}

func (s *Scene) FindObject(name string) *Object {
	for _, o := range s.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (s *Scene) Children(parent *Object) []*Object {
	result := make([]*Object, 0)
	for _, o := range s.Objects {
		if o.Parent == parent {
			result = append(result, o)
		}
	}
	return result
}

// MatrixLocal returns the transform relative to the parent.
func (o *Object) MatrixLocal() mgl32.Mat4 {
	if o.Parent == nil {
		return o.MatrixWorld
	}
	return o.Parent.MatrixWorld.Inv().Mul4(o.MatrixWorld)
}

// Stats returns a short multi line summary of the scene.
func (s *Scene) Stats() string {
	counts := make(map[ObjectType]int)
	var verts, faces int
	for _, o := range s.Objects {
		counts[o.Type]++
		if o.Mesh != nil {
			verts += len(o.Mesh.Vertices)
			faces += len(o.Mesh.Faces)
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "scene %q: %d objects, %d actions, %v fps, frames %d..%d\n",
		s.Name, len(s.Objects), len(s.Actions), s.FPS, s.FrameStart, s.FrameEnd)
	for t := ObjectEmpty; t <= ObjectArmature; t++ {
		if counts[t] != 0 {
			fmt.Fprintf(&sb, "  %-8s %d\n", t, counts[t])
		}
	}
	fmt.Fprintf(&sb, "  vertices %d, faces %d\n", verts, faces)
	return sb.String()
}
